// Package corelog is the module's structured debug logger, trimmed down
// from the teacher's area/level logger (antibyte-retroterm/pkg/logger) to
// what a single-process interpreter needs: one global enable flag plus a
// handful of named areas, writing to stderr through the standard log
// package.
package corelog

import (
	"log"
	"os"
	"sync/atomic"
)

// Area names one logging subsystem, so a caller can narrow noisy output
// (e.g. just the VM) without an external config file.
type Area string

const (
	AreaCompiler Area = "compiler"
	AreaVM       Area = "vm"
	AreaSession  Area = "session"
	AreaGraphics Area = "graphics"
)

var enabled int32 // atomic bool

var std = log.New(os.Stderr, "", log.LstdFlags)

// SetEnabled turns debug logging on or off process-wide. Disabled by
// default, the way a shipped interpreter should stay quiet unless asked.
func SetEnabled(on bool) {
	v := int32(0)
	if on {
		v = 1
	}
	atomic.StoreInt32(&enabled, v)
}

func isEnabled() bool {
	return atomic.LoadInt32(&enabled) != 0
}

// Debug logs a formatted message tagged with area, a no-op unless
// SetEnabled(true) was called.
func Debug(area Area, format string, args ...interface{}) {
	if !isEnabled() {
		return
	}
	std.Printf("[%s] "+format, append([]interface{}{area}, args...)...)
}
