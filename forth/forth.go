// Package forth is an optional second front-end: a tiny threaded-style
// Forth dialect that compiles straight to the same bytecode.Program the
// BASIC compiler produces, running unmodified on vm.VM plus four raw
// stack opcodes (DUP/DROP/SWAP/OVER) the BASIC compiler never emits.
// Word definitions are expanded inline at each call site the way the
// BASIC compiler expands DEF FN, rather than compiled as real call/return
// threading.
//
// Grounded in unixdj-forego/forth (word set and stack-comment style) and
// hagna-eforth (the classic ANS core word names).
package forth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/retroterm/corebasic/bytecode"
	"github.com/retroterm/corebasic/symtab"
)

// Error is a compile-time error, reported without a source line since
// Forth source has no line numbers.
type Error struct {
	Word string
	Msg  string
}

func (e *Error) Error() string {
	if e.Word != "" {
		return fmt.Sprintf("%s: %s", e.Word, e.Msg)
	}
	return e.Msg
}

type wordDef struct {
	tokens []string
}

// rawStackOps maps the core stack-shuffling words straight onto the
// VM's raw stack opcodes.
var rawStackOps = map[string]bytecode.OpCode{
	"dup": bytecode.DUP, "drop": bytecode.DROP,
	"swap": bytecode.SWAP, "over": bytecode.OVER,
}

// doFrame tracks one active DO/LOOP: the PC the loop body starts at, and
// the hidden scalar slots (allocated through the same symtab.Table the
// BASIC compiler uses for DEF FN's hidden parameters) backing the loop
// index and its limit.
type doFrame struct {
	start int
	idx   symtab.Slot
	limit symtab.Slot
}

type compilerState struct {
	code     []bytecode.Op
	pcToLine []int
	words    map[string]wordDef
	ifStack  []int
	doStack  []doFrame
	syms     *symtab.Table
}

func (c *compilerState) emit(op bytecode.Op) int {
	idx := len(c.code)
	c.code = append(c.code, op)
	c.pcToLine = append(c.pcToLine, 0)
	return idx
}

func (c *compilerState) here() int { return len(c.code) }

func (c *compilerState) patch(idx, target int) { c.code[idx].A = target }

// Compile compiles Forth source text into a bytecode.Program. Arithmetic,
// comparison and logic words (+, -, *, /, mod, =, <, >, and, or, ...) and
// the output words (., cr) map directly onto the same opcodes the BASIC
// compiler emits; only dup, drop, swap and over need the raw stack
// opcodes the BASIC compiler never emits.
func Compile(source string) (*bytecode.Program, error) {
	c := &compilerState{words: make(map[string]wordDef), syms: symtab.New()}
	toks := tokenize(source)

	if err := c.compileTokens(toks); err != nil {
		return nil, err
	}
	c.emit(bytecode.Op{Code: bytecode.HALT})
	if len(c.doStack) != 0 {
		return nil, &Error{Word: "do", Msg: "DO without matching LOOP"}
	}

	lineToPC := map[int]int{}
	return &bytecode.Program{
		Code:     c.code,
		PCToLine: c.pcToLine,
		LineToPC: lineToPC,
		Symbols:  c.syms.Counts(),
	}, nil
}

func tokenize(source string) []string {
	return strings.Fields(source)
}

// compileTokens drives the word-definition (": name ... ;") and control
// structure (IF/ELSE/THEN, DO/LOOP) scanner, expanding every other token
// either as a number literal, a primitive, or a previously defined word.
func (c *compilerState) compileTokens(toks []string) error {
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok {
		case ":":
			end, def, err := parseDefinition(toks, i)
			if err != nil {
				return err
			}
			c.words[def.name] = wordDef{tokens: def.body}
			i = end
			continue
		}
		if err := c.compileWord(tok); err != nil {
			return err
		}
	}
	return nil
}

type parsedDef struct {
	name string
	body []string
}

// parseDefinition reads "name ... ;" starting right after the leading
// ':' at toks[start], returning the index of the closing ';'.
func parseDefinition(toks []string, start int) (int, parsedDef, error) {
	if start+1 >= len(toks) {
		return 0, parsedDef{}, &Error{Msg: "unterminated word definition"}
	}
	name := toks[start+1]
	for j := start + 2; j < len(toks); j++ {
		if toks[j] == ";" {
			return j, parsedDef{name: name, body: toks[start+2 : j]}, nil
		}
	}
	return 0, parsedDef{}, &Error{Word: name, Msg: "missing terminating ;"}
}

// compileWord compiles one token: a numeric literal, a primitive, a
// control-flow keyword, or an expansion of a user word's body.
func (c *compilerState) compileWord(tok string) error {
	if n, err := strconv.ParseFloat(tok, 64); err == nil {
		c.emit(bytecode.Op{Code: bytecode.PUSH_NUM, D: n})
		return nil
	}

	switch tok {
	case "+":
		c.emit(bytecode.Op{Code: bytecode.ADD})
		return nil
	case "-":
		c.emit(bytecode.Op{Code: bytecode.SUB})
		return nil
	case "*":
		c.emit(bytecode.Op{Code: bytecode.MUL})
		return nil
	case "/":
		c.emit(bytecode.Op{Code: bytecode.DIV})
		return nil
	case "mod":
		c.emit(bytecode.Op{Code: bytecode.MOD})
		return nil
	case "negate":
		c.emit(bytecode.Op{Code: bytecode.NEG})
		return nil
	case "=":
		c.emit(bytecode.Op{Code: bytecode.CEQ})
		return nil
	case "<":
		c.emit(bytecode.Op{Code: bytecode.CLT})
		return nil
	case ">":
		c.emit(bytecode.Op{Code: bytecode.CGT})
		return nil
	case "and":
		c.emit(bytecode.Op{Code: bytecode.AND})
		return nil
	case "or":
		c.emit(bytecode.Op{Code: bytecode.OR})
		return nil
	case "not", "invert":
		c.emit(bytecode.Op{Code: bytecode.NOT})
		return nil
	case ".":
		c.emit(bytecode.Op{Code: bytecode.PRINT})
		c.emit(bytecode.Op{Code: bytecode.PRINT_ZONE})
		return nil
	case "cr":
		c.emit(bytecode.Op{Code: bytecode.PRINT_NL})
		return nil
	case "if":
		jz := c.emit(bytecode.Op{Code: bytecode.JZ, A: -1})
		c.ifStack = append(c.ifStack, jz)
		return nil
	case "else":
		if len(c.ifStack) == 0 {
			return &Error{Word: "else", Msg: "ELSE without IF"}
		}
		top := len(c.ifStack) - 1
		jmp := c.emit(bytecode.Op{Code: bytecode.JMP, A: -1})
		c.patch(c.ifStack[top], c.here())
		c.ifStack[top] = jmp
		return nil
	case "then":
		if len(c.ifStack) == 0 {
			return &Error{Word: "then", Msg: "THEN without IF"}
		}
		top := len(c.ifStack) - 1
		c.patch(c.ifStack[top], c.here())
		c.ifStack = c.ifStack[:top]
		return nil
	case "do":
		// "limit index DO": index is pushed last, so it's on top.
		depth := len(c.doStack)
		idx := c.syms.ScalarSlot(fmt.Sprintf("DOIDX%d", depth))
		limit := c.syms.ScalarSlot(fmt.Sprintf("DOLIM%d", depth))
		c.emit(bytecode.Op{Code: bytecode.STORE, A: int(idx)})
		c.emit(bytecode.Op{Code: bytecode.STORE, A: int(limit)})
		c.doStack = append(c.doStack, doFrame{start: c.here(), idx: idx, limit: limit})
		return nil
	case "i":
		if len(c.doStack) == 0 {
			return &Error{Word: "i", Msg: "I outside DO LOOP"}
		}
		top := c.doStack[len(c.doStack)-1]
		c.emit(bytecode.Op{Code: bytecode.LOAD, A: int(top.idx)})
		return nil
	case "loop":
		if len(c.doStack) == 0 {
			return &Error{Word: "loop", Msg: "LOOP without DO"}
		}
		top := len(c.doStack) - 1
		frame := c.doStack[top]
		c.doStack = c.doStack[:top]
		c.emit(bytecode.Op{Code: bytecode.LOAD, A: int(frame.idx)})
		c.emit(bytecode.Op{Code: bytecode.PUSH_NUM, D: 1})
		c.emit(bytecode.Op{Code: bytecode.ADD})
		c.emit(bytecode.Op{Code: bytecode.DUP})
		c.emit(bytecode.Op{Code: bytecode.STORE, A: int(frame.idx)})
		c.emit(bytecode.Op{Code: bytecode.LOAD, A: int(frame.limit)})
		c.emit(bytecode.Op{Code: bytecode.CLT})
		jz := c.emit(bytecode.Op{Code: bytecode.JZ, A: -1})
		c.emit(bytecode.Op{Code: bytecode.JMP, A: frame.start})
		c.patch(jz, c.here())
		return nil
	}

	if op, ok := rawStackOps[tok]; ok {
		c.emit(bytecode.Op{Code: op})
		return nil
	}

	def, ok := c.words[tok]
	if !ok {
		return &Error{Word: tok, Msg: "undefined word"}
	}
	for _, t := range def.tokens {
		if err := c.compileWord(t); err != nil {
			return err
		}
	}
	return nil
}
