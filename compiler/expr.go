package compiler

import (
	"github.com/retroterm/corebasic/builtin"
	"github.com/retroterm/corebasic/bytecode"
	"github.com/retroterm/corebasic/lexer"
)

// parseExpr is the entry point of the Pratt-style precedence climb:
// OR < AND < comparison < + - < * / MOD < ^ < unary + - NOT < primary.
func (p *parser) parseExpr() error {
	return p.parseOr()
}

func (p *parser) parseOr() error {
	if err := p.parseAnd(); err != nil {
		return err
	}
	for p.cur().Kind == lexer.Ident && p.cur().Text == "OR" {
		p.next()
		if err := p.parseAnd(); err != nil {
			return err
		}
		p.c.emit(bytecode.Op{Code: bytecode.OR})
	}
	return nil
}

func (p *parser) parseAnd() error {
	if err := p.parseComparison(); err != nil {
		return err
	}
	for p.cur().Kind == lexer.Ident && p.cur().Text == "AND" {
		p.next()
		if err := p.parseComparison(); err != nil {
			return err
		}
		p.c.emit(bytecode.Op{Code: bytecode.AND})
	}
	return nil
}

var comparators = map[string]bytecode.OpCode{
	"=": bytecode.CEQ, "<>": bytecode.CNE,
	"<": bytecode.CLT, "<=": bytecode.CLE,
	">": bytecode.CGT, ">=": bytecode.CGE,
}

// parseComparison allows at most one comparator: comparisons do not chain.
func (p *parser) parseComparison() error {
	if err := p.parseAddSub(); err != nil {
		return err
	}
	if p.cur().Kind == lexer.Op {
		if op, ok := comparators[p.cur().Text]; ok {
			p.next()
			if err := p.parseAddSub(); err != nil {
				return err
			}
			p.c.emit(bytecode.Op{Code: op})
		}
	}
	return nil
}

func (p *parser) parseAddSub() error {
	if err := p.parseMulDiv(); err != nil {
		return err
	}
	for p.cur().Kind == lexer.Op && (p.cur().Text == "+" || p.cur().Text == "-") {
		op := p.next().Text
		if err := p.parseMulDiv(); err != nil {
			return err
		}
		if op == "+" {
			p.c.emit(bytecode.Op{Code: bytecode.ADD})
		} else {
			p.c.emit(bytecode.Op{Code: bytecode.SUB})
		}
	}
	return nil
}

func (p *parser) parseMulDiv() error {
	if err := p.parsePow(); err != nil {
		return err
	}
	for {
		if p.cur().Kind == lexer.Op && (p.cur().Text == "*" || p.cur().Text == "/") {
			op := p.next().Text
			if err := p.parsePow(); err != nil {
				return err
			}
			if op == "*" {
				p.c.emit(bytecode.Op{Code: bytecode.MUL})
			} else {
				p.c.emit(bytecode.Op{Code: bytecode.DIV})
			}
			continue
		}
		if p.cur().Kind == lexer.Op && p.cur().Text == "MOD" {
			p.next()
			if err := p.parsePow(); err != nil {
				return err
			}
			p.c.emit(bytecode.Op{Code: bytecode.MOD})
			continue
		}
		break
	}
	return nil
}

// parsePow is right-associative: 2^3^2 == 2^(3^2).
func (p *parser) parsePow() error {
	if err := p.parseUnary(); err != nil {
		return err
	}
	if p.cur().Kind == lexer.Op && p.cur().Text == "^" {
		p.next()
		if err := p.parsePow(); err != nil {
			return err
		}
		p.c.emit(bytecode.Op{Code: bytecode.POW})
	}
	return nil
}

func (p *parser) parseUnary() error {
	tok := p.cur()
	if tok.Kind == lexer.Op && tok.Text == "-" {
		p.next()
		if err := p.parseUnary(); err != nil {
			return err
		}
		p.c.emit(bytecode.Op{Code: bytecode.NEG})
		return nil
	}
	if tok.Kind == lexer.Op && tok.Text == "+" {
		p.next()
		return p.parseUnary()
	}
	if tok.Kind == lexer.Ident && tok.Text == "NOT" {
		p.next()
		if err := p.parseUnary(); err != nil {
			return err
		}
		p.c.emit(bytecode.Op{Code: bytecode.NOT})
		return nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() error {
	c := p.c
	tok := p.cur()

	switch tok.Kind {
	case lexer.Number:
		p.next()
		c.emit(bytecode.Op{Code: bytecode.PUSH_NUM, D: tok.Num})
		return nil
	case lexer.String:
		p.next()
		c.emit(bytecode.Op{Code: bytecode.PUSH_STR, S: tok.Text})
		return nil
	case lexer.LParen:
		p.next()
		if err := p.parseExpr(); err != nil {
			return err
		}
		_, err := p.expect(lexer.RParen)
		return err
	case lexer.Ident:
		return p.parseIdentPrimary()
	}
	return p.errf("SYNTAX ERROR: unexpected token %s", tok)
}

func (p *parser) parseIdentPrimary() error {
	c := p.c
	name := p.cur().Text

	if name == "FN" {
		p.next()
		return p.parsePrimary()
	}
	p.next()

	if builtin.Bareword[name] && p.cur().Kind != lexer.LParen {
		id, _ := builtin.Lookup(name)
		c.emit(bytecode.Op{Code: bytecode.CALLFN, A: int(id)})
		return nil
	}

	if p.cur().Kind == lexer.LParen {
		if uf, ok := c.funcs[name]; ok {
			return p.expandUserFunc(uf)
		}
		if id, ok := builtin.Lookup(name); ok {
			return p.parseBuiltinCall(id)
		}
		return p.parseArrayLoad(name)
	}

	slot := c.syms.ScalarSlot(name)
	c.emit(bytecode.Op{Code: bytecode.LOAD, A: int(slot)})
	return nil
}

func (p *parser) parseArrayLoad(name string) error {
	c := p.c
	p.next() // consume '('
	dims, err := p.parseIndexList()
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return err
	}
	slot := c.syms.ArraySlot(name)
	c.emit(bytecode.Op{Code: bytecode.LOAD_ARR, A: int(slot), B: dims})
	return nil
}

func (p *parser) parseBuiltinCall(id builtin.ID) error {
	c := p.c
	p.next() // consume '('
	argc := 0
	if p.cur().Kind != lexer.RParen {
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
	if _, err := p.expect(lexer.RParen); err != nil {
		return err
	}
	c.emit(bytecode.Op{Code: bytecode.CALLFN, A: int(id), B: argc})
	return nil
}

// parseIndexList compiles one or two comma-separated index expressions,
// pushing each in order, and returns the dimension count.
func (p *parser) parseIndexList() (int, error) {
	if err := p.parseExpr(); err != nil {
		return 0, err
	}
	dims := 1
	if p.cur().Kind == lexer.Comma {
		p.next()
		if err := p.parseExpr(); err != nil {
			return 0, err
		}
		dims = 2
	}
	return dims, nil
}

// expandUserFunc implements the DEF FN expansion: compile each argument,
// store them (in reverse) into the function's hidden parameter slots, then
// re-lex and compile the function body text in place.
func (p *parser) expandUserFunc(uf *userFunc) error {
	c := p.c
	p.next() // consume '('
	argc := 0
	if p.cur().Kind != lexer.RParen {
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
	if _, err := p.expect(lexer.RParen); err != nil {
		return err
	}
	if argc != len(uf.paramSlots) {
		return p.errf("ARGUMENT COUNT MISMATCH in call to FN %s", uf.name)
	}
	for i := len(uf.paramSlots) - 1; i >= 0; i-- {
		c.emit(bytecode.Op{Code: bytecode.STORE, A: int(uf.paramSlots[i])})
	}

	toks, err := lexer.Tokenize(uf.body)
	if err != nil {
		return c.wrapLexErr(err)
	}
	// The body text still refers to the formal parameter names; rewrite
	// every matching identifier to the hidden variable STORE just targeted,
	// so the body's LOADs read the argument instead of an unrelated global.
	for i, tok := range toks {
		if tok.Kind != lexer.Ident {
			continue
		}
		for j, pname := range uf.params {
			if tok.Text == pname {
				toks[i].Text = uf.hiddenVars[j]
				break
			}
		}
	}
	sub := &parser{c: c, toks: toks}
	if err := sub.parseExpr(); err != nil {
		return err
	}
	if sub.cur().Kind != lexer.EOL {
		return sub.errf("SYNTAX ERROR: trailing tokens in DEF FN %s body", uf.name)
	}
	return nil
}
