package forth

import (
	"bytes"
	"strings"
	"testing"

	"github.com/retroterm/corebasic/vm"
)

func runForth(t *testing.T, src string) string {
	t.Helper()
	prog, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var out bytes.Buffer
	m := vm.New(nil, &out, strings.NewReader(""))
	m.Load(prog)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

// "." shares PRINT_ZONE with BASIC's comma, so every printed value is
// padded out to the next 14-column zone boundary rather than followed by
// a single space.
func zoned(s string) string {
	pad := 14 - len(s)%14
	if pad == 0 {
		pad = 14
	}
	return s + strings.Repeat(" ", pad)
}

func TestArithmeticAndPrint(t *testing.T) {
	got := runForth(t, "2 3 + .")
	if want := zoned("5"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStackShuffling(t *testing.T) {
	got := runForth(t, "1 2 swap - .")
	if want := zoned("1"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDupAndOver(t *testing.T) {
	got := runForth(t, "3 dup * .")
	if want := zoned("9"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWordDefinitionExpandsInline(t *testing.T) {
	got := runForth(t, ": square dup * ; 4 square .")
	if want := zoned("16"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestIfElseThen(t *testing.T) {
	got := runForth(t, "1 if 10 . else 20 . then")
	if want := zoned("10"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	got = runForth(t, "0 if 10 . else 20 . then")
	if want := zoned("20"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDoLoop(t *testing.T) {
	got := runForth(t, "5 0 do i . loop")
	want := zoned("0") + zoned("1") + zoned("2") + zoned("3") + zoned("4")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNestedDoLoop(t *testing.T) {
	got := runForth(t, "2 0 do 2 0 do i . loop loop")
	want := strings.Repeat(zoned("0")+zoned("1"), 2)
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLoopWithoutDoIsCompileError(t *testing.T) {
	_, err := Compile("loop")
	if err == nil {
		t.Fatalf("expected an error for LOOP without DO")
	}
}

func TestUndefinedWordIsCompileError(t *testing.T) {
	_, err := Compile("bogus")
	if err == nil {
		t.Fatalf("expected an error for an undefined word")
	}
}

func TestElseWithoutIfIsCompileError(t *testing.T) {
	_, err := Compile("else")
	if err == nil {
		t.Fatalf("expected an error for ELSE without IF")
	}
}
