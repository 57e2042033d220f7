package lexer

import "testing"

func TestTokenizeBasic(t *testing.T) {
	toks, err := Tokenize(`A$ = "HI" + STR$(3.5) : PRINT A$, B; NOT C<=D`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Kind{
		Ident, Op, String, Op, Ident, LParen, Number, RParen, Colon,
		Ident, Ident, Comma, Ident, Semicolon, Ident, Ident, Op, Ident,
		EOL, EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s (%v)", i, toks[i].Kind, k, toks[i])
		}
	}
	if toks[0].Text != "A$" {
		t.Errorf("identifier not canonicalized: %q", toks[0].Text)
	}
}

func TestTokenizeComment(t *testing.T) {
	for _, src := range []string{`10 REM this is ignored`, `PRINT 1 ' trailing comment`} {
		toks, err := Tokenize(src)
		if err != nil {
			t.Fatalf("%q: %v", src, err)
		}
		for _, tok := range toks {
			if tok.Text == "REM" {
				t.Errorf("%q: REM leaked into token stream", src)
			}
		}
	}
}

func TestTokenizeMod(t *testing.T) {
	toks, err := Tokenize("A MOD B")
	if err != nil {
		t.Fatal(err)
	}
	if toks[1].Kind != Op || toks[1].Text != "MOD" {
		t.Errorf("MOD not recognized as operator: %v", toks[1])
	}
}

func TestUnterminatedString(t *testing.T) {
	_, err := Tokenize(`PRINT "HELLO`)
	if err == nil {
		t.Fatal("expected an error for unterminated string")
	}
}

func TestTwoCharOperators(t *testing.T) {
	toks, err := Tokenize("A<=B A>=B A<>B")
	if err != nil {
		t.Fatal(err)
	}
	var ops []string
	for _, tok := range toks {
		if tok.Kind == Op && len(tok.Text) == 2 {
			ops = append(ops, tok.Text)
		}
	}
	want := []string{"<=", ">=", "<>"}
	if len(ops) != len(want) {
		t.Fatalf("got ops %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d: got %s, want %s", i, ops[i], want[i])
		}
	}
}
