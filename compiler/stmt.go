package compiler

import (
	"fmt"
	"strings"

	"github.com/retroterm/corebasic/builtin"
	"github.com/retroterm/corebasic/bytecode"
	"github.com/retroterm/corebasic/lexer"
	"github.com/retroterm/corebasic/symtab"
)

// compileStatement dispatches a single statement by its leading keyword.
// If the leading token is an identifier that isn't a recognized keyword,
// the statement is an implicit assignment (LET omitted).
func (p *parser) compileStatement() error {
	tok := p.cur()
	if tok.Kind != lexer.Ident {
		return p.errf("SYNTAX ERROR: unexpected token %s", tok)
	}

	switch tok.Text {
	case "LET":
		p.next()
		return p.compileAssignment()
	case "PRINT":
		p.next()
		return p.compilePrint()
	case "INPUT":
		p.next()
		return p.compileInput()
	case "IF":
		p.next()
		return p.compileIf()
	case "GOTO":
		p.next()
		return p.compileGoto()
	case "GOSUB":
		p.next()
		return p.compileGosub()
	case "RETURN":
		p.next()
		p.c.emit(bytecode.Op{Code: bytecode.RETSUB})
		return nil
	case "ON":
		p.next()
		return p.compileOn()
	case "FOR":
		p.next()
		return p.compileFor()
	case "NEXT":
		p.next()
		return p.compileNext()
	case "WHILE":
		p.next()
		return p.compileWhile()
	case "WEND":
		p.next()
		return p.compileWend()
	case "DO":
		p.next()
		return p.compileDo()
	case "LOOP":
		p.next()
		return p.compileLoop()
	case "DIM":
		p.next()
		return p.compileDim()
	case "DEF":
		p.next()
		return p.compileDefFn()
	case "DATA":
		p.next()
		return p.compileData()
	case "READ":
		p.next()
		return p.compileRead()
	case "RESTORE":
		p.next()
		return p.compileRestore()
	case "END", "STOP":
		p.next()
		p.c.emit(bytecode.Op{Code: bytecode.HALT})
		return nil
	case "RUN", "LIST", "NEW":
		p.next()
		p.skipStatementRemainder()
		return nil
	}

	if builtin.StatementForm[tok.Text] {
		p.next()
		return p.compileGraphicsStatement(tok.Text)
	}

	return p.compileAssignment()
}

func (p *parser) compileAssignment() error {
	c := p.c
	nameTok, err := p.expect(lexer.Ident)
	if err != nil {
		return err
	}
	name := nameTok.Text

	if p.cur().Kind == lexer.LParen {
		p.next()
		dims, err := p.parseIndexList()
		if err != nil {
			return err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return err
		}
		if _, err := p.expectOp("="); err != nil {
			return err
		}
		if err := p.parseExpr(); err != nil {
			return err
		}
		slot := c.syms.ArraySlot(name)
		c.emit(bytecode.Op{Code: bytecode.STORE_ARR, A: int(slot), B: dims})
		return nil
	}

	if _, err := p.expectOp("="); err != nil {
		return err
	}
	if err := p.parseExpr(); err != nil {
		return err
	}
	slot := c.syms.ScalarSlot(name)
	c.emit(bytecode.Op{Code: bytecode.STORE, A: int(slot)})
	return nil
}

// compilePrint compiles a PRINT statement: ',' inserts zone padding, ';'
// suppresses the intervening space, and a trailing ';' or ',' suppresses
// the statement's terminal newline.
func (p *parser) compilePrint() error {
	c := p.c
	suppressNL := false
	for !p.atStatementEnd() {
		switch p.cur().Kind {
		case lexer.Comma:
			p.next()
			c.emit(bytecode.Op{Code: bytecode.PRINT_ZONE})
			suppressNL = true
		case lexer.Semicolon:
			p.next()
			suppressNL = true
		default:
			if err := p.parseExpr(); err != nil {
				return err
			}
			c.emit(bytecode.Op{Code: bytecode.PRINT})
			suppressNL = false
		}
	}
	if !suppressNL {
		c.emit(bytecode.Op{Code: bytecode.PRINT_NL})
	}
	return nil
}

func (p *parser) compileInput() error {
	c := p.c
	if p.cur().Kind == lexer.String {
		prompt := p.cur().Text
		p.next()
		if p.cur().Kind == lexer.Semicolon || p.cur().Kind == lexer.Comma {
			p.next()
		}
		c.emit(bytecode.Op{Code: bytecode.PUSH_STR, S: prompt})
		c.emit(bytecode.Op{Code: bytecode.PRINT})
	}
	c.emit(bytecode.Op{Code: bytecode.PRINT_SUPPRESS_NL})
	nameTok, err := p.expect(lexer.Ident)
	if err != nil {
		return err
	}
	slot := c.syms.ScalarSlot(nameTok.Text)
	c.emit(bytecode.Op{Code: bytecode.CALLFN, A: int(builtin.INPUT), B: int(slot)})
	return nil
}

// compileIf implements all four THEN/ELSE forms described in spec.md §4.3.
func (p *parser) compileIf() error {
	c := p.c
	if err := p.parseExpr(); err != nil {
		return err
	}
	jzIdx := c.emit(bytecode.Op{Code: bytecode.JZ, A: -1})

	if err := p.expectKeyword("THEN"); err != nil {
		return err
	}
	if err := p.compileThenOrElseBranch(); err != nil {
		return err
	}

	if p.cur().Kind == lexer.Ident && p.cur().Text == "ELSE" {
		jmpOverElse := c.emit(bytecode.Op{Code: bytecode.JMP, A: -1})
		c.patch(jzIdx, c.here())
		p.next() // consume ELSE
		if err := p.compileThenOrElseBranch(); err != nil {
			return err
		}
		c.patch(jmpOverElse, c.here())
		return nil
	}

	c.patch(jzIdx, c.here())
	return nil
}

func (p *parser) compileThenOrElseBranch() error {
	if p.cur().Kind == lexer.Number {
		lineNum := int(p.cur().Num)
		p.next()
		p.c.emitLineJump(bytecode.JMP, lineNum)
		return nil
	}
	return p.compileStatementListUntilElse()
}

// compileStatementListUntilElse compiles colon-separated statements until
// it sees ELSE (left unconsumed) or the end of the line.
func (p *parser) compileStatementListUntilElse() error {
	for {
		if p.cur().Kind == lexer.EOL || p.cur().Kind == lexer.EOF {
			return nil
		}
		if p.cur().Kind == lexer.Ident && p.cur().Text == "ELSE" {
			return nil
		}
		if err := p.compileStatement(); err != nil {
			return err
		}
		if p.cur().Kind == lexer.Colon {
			p.next()
			continue
		}
		return nil
	}
}

func (p *parser) compileGoto() error {
	numTok, err := p.expect(lexer.Number)
	if err != nil {
		return err
	}
	p.c.emitLineJump(bytecode.JMP, int(numTok.Num))
	return nil
}

func (p *parser) compileGosub() error {
	numTok, err := p.expect(lexer.Number)
	if err != nil {
		return err
	}
	p.c.emitLineJump(bytecode.GOSUB, int(numTok.Num))
	return nil
}

func (p *parser) compileOn() error {
	c := p.c
	if err := p.parseExpr(); err != nil {
		return err
	}
	kindTok := p.cur()
	var op bytecode.OpCode
	switch {
	case kindTok.Kind == lexer.Ident && kindTok.Text == "GOTO":
		op = bytecode.ON_GOTO
	case kindTok.Kind == lexer.Ident && kindTok.Text == "GOSUB":
		op = bytecode.ON_GOSUB
	default:
		return p.errf("SYNTAX ERROR: expected GOTO or GOSUB after ON")
	}
	p.next()

	var targets []int
	for {
		numTok, err := p.expect(lexer.Number)
		if err != nil {
			return err
		}
		targets = append(targets, int(numTok.Num))
		if p.cur().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	tableIdx := len(c.jumpTables)
	c.jumpTables = append(c.jumpTables, targets)
	c.emit(bytecode.Op{Code: op, A: tableIdx})
	return nil
}

func (p *parser) compileFor() error {
	c := p.c
	nameTok, err := p.expect(lexer.Ident)
	if err != nil {
		return err
	}
	if _, err := p.expectOp("="); err != nil {
		return err
	}
	if err := p.parseExpr(); err != nil {
		return err
	}
	slot := c.syms.ScalarSlot(nameTok.Text)
	c.emit(bytecode.Op{Code: bytecode.STORE, A: int(slot)})

	if err := p.expectKeyword("TO"); err != nil {
		return err
	}
	if err := p.parseExpr(); err != nil {
		return err
	}

	if p.cur().Kind == lexer.Ident && p.cur().Text == "STEP" {
		p.next()
		if err := p.parseExpr(); err != nil {
			return err
		}
	} else {
		c.emit(bytecode.Op{Code: bytecode.PUSH_NUM, D: 1.0})
	}

	c.emit(bytecode.Op{Code: bytecode.FOR_INIT, A: int(slot)})
	checkIdx := c.emit(bytecode.Op{Code: bytecode.FOR_CHECK, A: int(slot), B: -1})
	c.code[checkIdx].B = c.here()
	return nil
}

func (p *parser) compileNext() error {
	c := p.c
	slot := -1
	if p.cur().Kind == lexer.Ident {
		nameTok := p.next()
		slot = int(c.syms.ScalarSlot(nameTok.Text))
	}
	c.emit(bytecode.Op{Code: bytecode.FOR_INCR, A: slot})
	return nil
}

func (p *parser) compileWhile() error {
	c := p.c
	startPC := c.here()
	if err := p.parseExpr(); err != nil {
		return err
	}
	jzIdx := c.emit(bytecode.Op{Code: bytecode.JZ, A: -1})
	c.whileStack = append(c.whileStack, whileFrame{startPC: startPC, jzPC: jzIdx})
	return nil
}

func (p *parser) compileWend() error {
	c := p.c
	if len(c.whileStack) == 0 {
		return p.errf("SYNTAX ERROR: WEND without WHILE")
	}
	frame := c.whileStack[len(c.whileStack)-1]
	c.whileStack = c.whileStack[:len(c.whileStack)-1]
	c.emit(bytecode.Op{Code: bytecode.JMP, A: frame.startPC})
	c.patch(frame.jzPC, c.here())
	return nil
}

func (p *parser) compileDo() error {
	c := p.c
	c.doStack = append(c.doStack, doFrame{startPC: c.here()})
	return nil
}

// compileLoop implements LOOP and LOOP UNTIL cond exactly per the
// algorithm in spec.md §4.3: the UNTIL condition gates continuing the loop
// while it evaluates truthy, exiting once it evaluates to zero (the
// JZ-then-JMP-then-patch sequence spec.md spells out verbatim).
func (p *parser) compileLoop() error {
	c := p.c
	if len(c.doStack) == 0 {
		return p.errf("SYNTAX ERROR: LOOP without DO")
	}
	frame := c.doStack[len(c.doStack)-1]
	c.doStack = c.doStack[:len(c.doStack)-1]

	if p.cur().Kind == lexer.Ident && p.cur().Text == "UNTIL" {
		p.next()
		if err := p.parseExpr(); err != nil {
			return err
		}
		jzIdx := c.emit(bytecode.Op{Code: bytecode.JZ, A: -1})
		c.emit(bytecode.Op{Code: bytecode.JMP, A: frame.startPC})
		c.patch(jzIdx, c.here())
		return nil
	}
	c.emit(bytecode.Op{Code: bytecode.JMP, A: frame.startPC})
	return nil
}

func (p *parser) compileDim() error {
	c := p.c
	for {
		nameTok, err := p.expect(lexer.Ident)
		if err != nil {
			return err
		}
		if _, err := p.expect(lexer.LParen); err != nil {
			return err
		}
		dims, err := p.parseIndexList()
		if err != nil {
			return err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return err
		}
		slot := c.syms.ArraySlot(nameTok.Text)
		c.emit(bytecode.Op{Code: bytecode.DIM_ARR, A: int(slot), B: dims})
		if p.cur().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	return nil
}

// compileDefFn registers a DEF FN declaration. Per spec.md §4.3 it emits
// no opcodes at the definition site; the body is re-lexed and expanded
// inline at each call site (see expandUserFunc in expr.go).
func (p *parser) compileDefFn() error {
	c := p.c
	if err := p.expectKeyword("FN"); err != nil {
		return err
	}
	nameTok, err := p.expect(lexer.Ident)
	if err != nil {
		return err
	}
	fname := nameTok.Text

	if _, err := p.expect(lexer.LParen); err != nil {
		return err
	}
	var params []string
	if p.cur().Kind != lexer.RParen {
		for {
			pt, err := p.expect(lexer.Ident)
			if err != nil {
				return err
			}
			params = append(params, pt.Text)
			if p.cur().Kind == lexer.Comma {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return err
	}
	if _, err := p.expectOp("="); err != nil {
		return err
	}

	bodyCol := p.cur().Col
	for !p.atStatementEnd() {
		p.next()
	}
	bodyText := ""
	if bodyCol-1 <= len(c.curLineText) {
		bodyText = strings.TrimSpace(c.curLineText[bodyCol-1:])
	}

	paramSlots := make([]symtab.Slot, len(params))
	hiddenVars := make([]string, len(params))
	for i, pname := range params {
		isStr := strings.HasSuffix(pname, "$")
		hidden := fmt.Sprintf("FN%s%d", fname, i)
		if isStr {
			hidden += "$"
		}
		hiddenVars[i] = hidden
		paramSlots[i] = c.syms.ScalarSlot(hidden)
	}
	c.funcs[fname] = &userFunc{name: fname, params: params, hiddenVars: hiddenVars, paramSlots: paramSlots, body: bodyText}
	return nil
}

// compileData collects DATA literals at compile time; no opcode is
// emitted (a supplement over the base spec, see SPEC_FULL.md §6).
func (p *parser) compileData() error {
	c := p.c
	for {
		tok := p.cur()
		switch {
		case tok.Kind == lexer.Number:
			p.next()
			c.data = append(c.data, bytecode.DataItem{Num: tok.Num})
			c.dataLines = append(c.dataLines, c.curLine)
		case tok.Kind == lexer.String:
			p.next()
			c.data = append(c.data, bytecode.DataItem{Str: tok.Text, IsString: true})
			c.dataLines = append(c.dataLines, c.curLine)
		case tok.Kind == lexer.Op && tok.Text == "-":
			p.next()
			nt, err := p.expect(lexer.Number)
			if err != nil {
				return err
			}
			c.data = append(c.data, bytecode.DataItem{Num: -nt.Num})
			c.dataLines = append(c.dataLines, c.curLine)
		default:
			return p.errf("SYNTAX ERROR: bad DATA item")
		}
		if p.cur().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	return nil
}

func (p *parser) compileRead() error {
	c := p.c
	for {
		nameTok, err := p.expect(lexer.Ident)
		if err != nil {
			return err
		}
		slot := c.syms.ScalarSlot(nameTok.Text)
		c.emit(bytecode.Op{Code: bytecode.CALLFN, A: int(builtin.READ), B: int(slot)})
		if p.cur().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	return nil
}

func (p *parser) compileRestore() error {
	c := p.c
	idx := 0
	if p.cur().Kind == lexer.Number {
		lineNum := int(p.cur().Num)
		p.next()
		idx = c.dataIndexForLine(lineNum)
	}
	c.emit(bytecode.Op{Code: bytecode.CALLFN, A: int(builtin.RESTORE), B: idx})
	return nil
}

func (c *Compiler) dataIndexForLine(line int) int {
	for i, ln := range c.dataLines {
		if ln >= line {
			return i
		}
	}
	return len(c.data)
}

// compileGraphicsStatement handles the comma-argument-list graphics/IO
// statements that all compile to a single CALLFN, plus LINE's three
// sub-forms.
func (p *parser) compileGraphicsStatement(name string) error {
	c := p.c
	id, ok := builtin.Lookup(name)
	if !ok {
		return p.errf("SYNTAX ERROR: unknown statement %s", name)
	}
	if name == "LINE" {
		return p.compileLineStatement(id)
	}

	hasParen := p.cur().Kind == lexer.LParen
	if hasParen {
		p.next()
	}
	argc := 0
	endOfArgs := func() bool {
		if hasParen {
			return p.cur().Kind == lexer.RParen
		}
		return p.atStatementEnd()
	}
	if !endOfArgs() {
		for {
			if err := p.parseExpr(); err != nil {
				return err
			}
			argc++
			if p.cur().Kind == lexer.Comma {
				p.next()
				continue
			}
			break
		}
	}
	if hasParen {
		if _, err := p.expect(lexer.RParen); err != nil {
			return err
		}
	}
	c.emit(bytecode.Op{Code: bytecode.CALLFN, A: int(id), B: argc})
	return nil
}

// compileLineStatement implements the three LINE forms from spec.md §4.3:
// (a) LINE (x1,y1)-(x2,y2)[,color]
// (b) LINE -(x2,y2)[,color]           -- shorthand, sets bit 30 of argc
// (c) LINE x1,y1,x2,y2[,color]        -- flat form
func (p *parser) compileLineStatement(id builtin.ID) error {
	c := p.c
	argc := 0
	shorthand := false

	switch {
	case p.cur().Kind == lexer.Op && p.cur().Text == "-":
		shorthand = true
		p.next()
		if _, err := p.expect(lexer.LParen); err != nil {
			return err
		}
		if err := p.parseExpr(); err != nil {
			return err
		}
		argc++
		if _, err := p.expect(lexer.Comma); err != nil {
			return err
		}
		if err := p.parseExpr(); err != nil {
			return err
		}
		argc++
		if _, err := p.expect(lexer.RParen); err != nil {
			return err
		}
	case p.cur().Kind == lexer.LParen:
		p.next()
		if err := p.parseExpr(); err != nil {
			return err
		}
		argc++
		if _, err := p.expect(lexer.Comma); err != nil {
			return err
		}
		if err := p.parseExpr(); err != nil {
			return err
		}
		argc++
		if _, err := p.expect(lexer.RParen); err != nil {
			return err
		}
		if _, err := p.expectOp("-"); err != nil {
			return err
		}
		if _, err := p.expect(lexer.LParen); err != nil {
			return err
		}
		if err := p.parseExpr(); err != nil {
			return err
		}
		argc++
		if _, err := p.expect(lexer.Comma); err != nil {
			return err
		}
		if err := p.parseExpr(); err != nil {
			return err
		}
		argc++
		if _, err := p.expect(lexer.RParen); err != nil {
			return err
		}
	default:
		for i := 0; i < 4; i++ {
			if err := p.parseExpr(); err != nil {
				return err
			}
			argc++
			if i < 3 {
				if _, err := p.expect(lexer.Comma); err != nil {
					return err
				}
			}
		}
	}

	if p.cur().Kind == lexer.Comma {
		p.next()
		if err := p.parseExpr(); err != nil {
			return err
		}
		argc++
	}

	if shorthand {
		argc |= 1 << 30
	}
	c.emit(bytecode.Op{Code: bytecode.CALLFN, A: int(id), B: argc})
	return nil
}
