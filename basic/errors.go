package basic

import (
	"fmt"

	"github.com/retroterm/corebasic/compiler"
	"github.com/retroterm/corebasic/vm"
)

// Error categories, following the shape of the teacher's BASICError
// (antibyte-retroterm/pkg/tinybasic/errors.go: Category/Message/LineNumber)
// trimmed to the two phases this module has: compiling and running. A
// run-time error raised by the VM carries the VM's own error kind (for
// example "DIVISION BY ZERO") as its Category instead of CategoryRuntime;
// see wrapRuntimeError.
const (
	CategoryCompile = "COMPILE ERROR"
	CategoryRuntime = "RUNTIME ERROR"
)

// Error is the error type Environment.Run and Environment.Compile return:
// a category, the offending line (0 in direct mode or when unknown), and
// a human-readable message.
type Error struct {
	Category string
	Line     int
	Message  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s IN LINE %d: %s", e.Category, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func wrapCompileError(err error) error {
	if ce, ok := err.(*compiler.Error); ok {
		return &Error{Category: CategoryCompile, Line: ce.Line, Message: ce.Msg}
	}
	return &Error{Category: CategoryCompile, Message: err.Error()}
}

func wrapRuntimeError(err error) error {
	if ve, ok := err.(*vm.Error); ok {
		return &Error{Category: ve.Kind, Line: ve.Line, Message: ve.Detail}
	}
	return &Error{Category: CategoryRuntime, Message: err.Error()}
}
