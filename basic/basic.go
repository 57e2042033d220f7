// Package basic is the top-level facade: it owns a stored program's
// source text, compiles it with package compiler, and runs the result on
// package vm, wiring in a graphics.Host and console streams the way the
// teacher's TinyBASIC type owns a program map and a bytecode VM
// (antibyte-retroterm/pkg/tinybasic/tinybasic.go).
package basic

import (
	"crypto/md5"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/retroterm/corebasic/bytecode"
	"github.com/retroterm/corebasic/compiler"
	"github.com/retroterm/corebasic/corelog"
	"github.com/retroterm/corebasic/graphics"
	"github.com/retroterm/corebasic/vm"
)

// Environment is one REPL session: a stored program, its last compiled
// form (cached by source hash so repeated RUNs without edits skip
// recompilation), and the VM that executes it.
type Environment struct {
	SessionID string

	program map[int]string

	compiledHash string
	compiled     *bytecode.Program

	machine *vm.VM
	host    graphics.Host
}

// New creates an empty session. host may be nil, in which case graphics
// statements are silently discarded via graphics.NullHost.
func New(host graphics.Host, out io.Writer, in io.Reader) *Environment {
	if host == nil {
		host = &graphics.NullHost{}
	}
	return &Environment{
		SessionID: uuid.NewString(),
		program:   make(map[int]string),
		host:      host,
		machine:   vm.New(host, out, in),
	}
}

// EnterLine stores or deletes one line of source, following classic
// BASIC's convention: a line number followed only by whitespace deletes
// that line (spec.md §2, Lifecycle).
func (e *Environment) EnterLine(lineNum int, text string) {
	if strings.TrimSpace(text) == "" {
		delete(e.program, lineNum)
		return
	}
	e.program[lineNum] = text
}

// NewProgram clears the stored program and resets any cached compilation.
func (e *Environment) NewProgram() {
	e.program = make(map[int]string)
	e.compiled = nil
	e.compiledHash = ""
}

// List renders the stored program in line-number order, the canonical
// LIST format and also the SAVE/LOAD text format.
func (e *Environment) List() string {
	lines := e.sortedLines()
	var sb strings.Builder
	for _, ln := range lines {
		fmt.Fprintf(&sb, "%d %s\n", ln, e.program[ln])
	}
	return sb.String()
}

func (e *Environment) sortedLines() []int {
	lines := make([]int, 0, len(e.program))
	for ln := range e.program {
		lines = append(lines, ln)
	}
	sort.Ints(lines)
	return lines
}

// Save writes the stored program in its text format to w.
func (e *Environment) Save(w io.Writer) error {
	_, err := io.WriteString(w, e.List())
	return err
}

// Load replaces the stored program with lines parsed from r, one
// "<line number> <source>" pair per line (spec.md §2).
func (e *Environment) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	e.NewProgram()
	for _, raw := range strings.Split(string(data), "\n") {
		ln, text, ok := parseStoredLine(raw)
		if !ok {
			continue
		}
		e.EnterLine(ln, text)
	}
	return nil
}

func parseStoredLine(raw string) (int, string, bool) {
	raw = strings.TrimRight(raw, "\r")
	trimmed := strings.TrimLeft(raw, " \t")
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(trimmed[:i])
	if err != nil {
		return 0, "", false
	}
	return n, strings.TrimLeft(trimmed[i:], " \t"), true
}

// hash returns a digest of the program text used to decide whether a
// cached compilation is still valid, the way the teacher's
// calculateProgramHash does for its bytecode cache
// (antibyte-retroterm/pkg/tinybasic/bytecode_integration.go).
func (e *Environment) hash() string {
	var sb strings.Builder
	for _, ln := range e.sortedLines() {
		fmt.Fprintf(&sb, "%d|%s\n", ln, e.program[ln])
	}
	sum := md5.Sum([]byte(sb.String()))
	return fmt.Sprintf("%x", sum)
}

// Compile compiles the stored program, reusing the cached bytecode.Program
// when the source hasn't changed since the last Compile.
func (e *Environment) Compile() (*bytecode.Program, error) {
	h := e.hash()
	if e.compiled != nil && e.compiledHash == h {
		corelog.Debug(corelog.AreaSession, "using cached compile (hash %s)", h)
		return e.compiled, nil
	}
	corelog.Debug(corelog.AreaSession, "compiling program (hash %s)", h)
	prog, err := compiler.Compile(e.program)
	if err != nil {
		return nil, wrapCompileError(err)
	}
	e.compiled = prog
	e.compiledHash = h
	return prog, nil
}

// Run compiles (if needed) and executes the stored program from the top,
// discarding any variable state from a previous RUN.
func (e *Environment) Run() error {
	prog, err := e.Compile()
	if err != nil {
		return err
	}
	e.machine.Load(prog)
	if err := e.machine.Run(); err != nil {
		return wrapRuntimeError(err)
	}
	return nil
}

// Dispatch interprets one line of REPL input the way classic BASIC's
// direct mode does: a leading line number stores (or, if the rest of the
// line is blank, deletes) that program line; otherwise the line must be
// one of the direct commands RUN/LIST/NEW/EXIT/QUIT. RUN's program output
// goes wherever the Environment was built to write; LIST's goes to w.
// Both cmd/retrobasic and cmd/basicd share this so a network session and
// a console session behave identically.
func (e *Environment) Dispatch(line string, w io.Writer) (exit bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false, nil
	}

	if n, rest, ok := leadingLineNumber(trimmed); ok {
		e.EnterLine(n, rest)
		return false, nil
	}

	switch strings.ToUpper(trimmed) {
	case "RUN":
		return false, e.Run()
	case "LIST":
		_, werr := io.WriteString(w, e.List())
		return false, werr
	case "NEW":
		e.NewProgram()
		return false, nil
	case "EXIT", "QUIT":
		return true, nil
	}

	return false, fmt.Errorf("SYNTAX ERROR: unrecognized direct command %q", trimmed)
}

func leadingLineNumber(s string) (int, string, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, "", false
	}
	return n, strings.TrimLeft(s[i:], " \t"), true
}
