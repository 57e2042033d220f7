// Package compiler turns a stored BASIC program (a line-number -> source
// text mapping) into a flat bytecode.Program, in one pass over the lines
// in ascending order. Forward references to not-yet-seen line numbers are
// resolved in a finalization pass once every line has been compiled.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/retroterm/corebasic/bytecode"
	"github.com/retroterm/corebasic/lexer"
	"github.com/retroterm/corebasic/symtab"
)

// Error is a compile-time error with the source line and column of the
// offending token, the way the teacher's BASICError carries LineNumber.
type Error struct {
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s IN LINE %d (col %d)", e.Msg, e.Line, e.Col)
	}
	return e.Msg
}

type userFunc struct {
	name       string
	params     []string // uppercased formal parameter names, as they appear in the body text
	hiddenVars []string // the hidden variable name backing each paramSlots entry, same order
	paramSlots []symtab.Slot
	body       string
}

type whileFrame struct {
	startPC int
	jzPC    int
}

type doFrame struct {
	startPC int
}

// Compiler holds all one-pass compilation state. It is not reentrant; call
// Compile once per stored program.
type Compiler struct {
	syms *symtab.Table

	code     []bytecode.Op
	pcToLine []int
	lineToPC map[int]int

	jumpTables [][]int
	data       []bytecode.DataItem
	dataLines  []int

	funcs map[string]*userFunc

	curLine     int
	curLineText string

	// pendingJumps holds code indices whose Op.A field still holds a
	// source line number (from GOTO/GOSUB/IF-THEN-line/IF-ELSE-line)
	// rather than a resolved PC; finalize() patches these. Structured
	// jumps emitted by IF/WHILE/DO/FOR patch their own PCs directly
	// during emission and never go through this list.
	pendingJumps []int

	whileStack []whileFrame
	doStack    []doFrame
}

func newCompiler() *Compiler {
	return &Compiler{
		syms:     symtab.New(),
		lineToPC: make(map[int]int),
		funcs:    make(map[string]*userFunc),
	}
}

// Compile compiles a stored program (line number -> source text, blank or
// whitespace-only text means the line was deleted) into a bytecode.Program.
func Compile(source map[int]string) (*bytecode.Program, error) {
	c := newCompiler()

	lines := make([]int, 0, len(source))
	for ln := range source {
		lines = append(lines, ln)
	}
	sort.Ints(lines)

	for _, ln := range lines {
		text := source[ln]
		if strings.TrimSpace(text) == "" {
			continue
		}
		c.curLine = ln
		c.curLineText = text
		c.lineToPC[ln] = c.here()

		toks, err := lexer.Tokenize(text)
		if err != nil {
			return nil, c.wrapLexErr(err)
		}
		p := &parser{c: c, toks: toks}
		for {
			if p.cur().Kind == lexer.EOL || p.cur().Kind == lexer.EOF {
				break
			}
			if err := p.compileStatement(); err != nil {
				return nil, err
			}
			if p.cur().Kind == lexer.Colon {
				p.next()
				continue
			}
			break
		}
	}

	c.emit(bytecode.Op{Code: bytecode.HALT})

	if len(c.whileStack) > 0 {
		return nil, &Error{Msg: "SYNTAX ERROR: WHILE without matching WEND"}
	}
	if len(c.doStack) > 0 {
		return nil, &Error{Msg: "SYNTAX ERROR: DO without matching LOOP"}
	}

	if err := c.finalize(); err != nil {
		return nil, err
	}

	return &bytecode.Program{
		Code:       c.code,
		PCToLine:   c.pcToLine,
		LineToPC:   c.lineToPC,
		JumpTables: c.jumpTables,
		Data:       c.data,
		Symbols:    c.syms.Counts(),
	}, nil
}

func (c *Compiler) wrapLexErr(err error) error {
	if le, ok := err.(*lexer.Error); ok {
		return &Error{Line: c.curLine, Col: le.Col, Msg: "SYNTAX ERROR: " + le.Msg}
	}
	return &Error{Line: c.curLine, Msg: err.Error()}
}

// emit appends an instruction and records its originating line, returning
// its index (its PC).
func (c *Compiler) emit(op bytecode.Op) int {
	idx := len(c.code)
	c.code = append(c.code, op)
	c.pcToLine = append(c.pcToLine, c.curLine)
	return idx
}

// here returns the PC the next emitted instruction will occupy.
func (c *Compiler) here() int { return len(c.code) }

// patch overwrites the A operand of an already-emitted instruction with a
// now-known PC (used for the structured jumps IF/WHILE/DO/FOR patch
// directly, since their target is locally known within the same pass).
func (c *Compiler) patch(idx, target int) { c.code[idx].A = target }

// emitLineJump emits a JMP/GOSUB carrying a source line number and records
// it for line->PC resolution in finalize.
func (c *Compiler) emitLineJump(code bytecode.OpCode, targetLine int) int {
	idx := c.emit(bytecode.Op{Code: code, A: targetLine})
	c.pendingJumps = append(c.pendingJumps, idx)
	return idx
}

func (c *Compiler) finalize() error {
	for _, idx := range c.pendingJumps {
		lineNum := c.code[idx].A
		pc, ok := c.lineToPC[lineNum]
		if !ok {
			return &Error{Line: c.pcToLine[idx], Msg: fmt.Sprintf("UNDEF'D STATEMENT %d", lineNum)}
		}
		c.code[idx].A = pc
	}
	for ti, table := range c.jumpTables {
		for i, lineNum := range table {
			pc, ok := c.lineToPC[lineNum]
			if !ok {
				return &Error{Msg: fmt.Sprintf("UNDEF'D STATEMENT %d", lineNum)}
			}
			c.jumpTables[ti][i] = pc
		}
	}
	for _, op := range c.code {
		switch op.Code {
		case bytecode.JMP, bytecode.GOSUB:
			if op.A < 0 || op.A >= len(c.code) {
				return &Error{Msg: "BAD JUMP TARGET"}
			}
		}
	}
	return nil
}
