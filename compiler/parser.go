package compiler

import (
	"fmt"

	"github.com/retroterm/corebasic/lexer"
)

// parser walks the token stream for a single source line. Statement
// compilers and the expression climber are all methods on parser so they
// share cursor state without threading it through every call.
type parser struct {
	c    *Compiler
	toks []lexer.Token
	pos  int
}

func (p *parser) cur() lexer.Token {
	return p.toks[p.pos]
}

func (p *parser) next() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// atStatementEnd reports whether the cursor sits at a statement boundary:
// end of line, end of input, or the ':' that separates statements.
func (p *parser) atStatementEnd() bool {
	k := p.cur().Kind
	return k == lexer.EOL || k == lexer.EOF || k == lexer.Colon
}

func (p *parser) expect(k lexer.Kind) (lexer.Token, error) {
	if p.cur().Kind != k {
		return lexer.Token{}, p.errf("SYNTAX ERROR: unexpected token %s", p.cur())
	}
	return p.next(), nil
}

func (p *parser) expectOp(s string) (lexer.Token, error) {
	if p.cur().Kind != lexer.Op || p.cur().Text != s {
		return lexer.Token{}, p.errf("SYNTAX ERROR: expected %q", s)
	}
	return p.next(), nil
}

func (p *parser) expectKeyword(word string) error {
	tok := p.cur()
	if tok.Kind != lexer.Ident || tok.Text != word {
		return p.errf("SYNTAX ERROR: expected %s", word)
	}
	p.next()
	return nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	return &Error{Line: p.c.curLine, Col: p.cur().Col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipStatementRemainder() {
	for !p.atStatementEnd() {
		p.next()
	}
}
