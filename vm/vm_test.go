package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/retroterm/corebasic/compiler"
)

func runProgram(t *testing.T, src map[int]string, input string) string {
	t.Helper()
	prog, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var out bytes.Buffer
	m := New(nil, &out, strings.NewReader(input))
	m.Load(prog)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func TestAssignmentAndPrint(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `LET A = 5`,
		20: `PRINT A`,
	}, "")
	if got != "5\n" {
		t.Fatalf("got %q, want %q", got, "5\n")
	}
}

func TestMixedPrintWithZonePadding(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `PRINT "X",1`,
	}, "")
	want := "X" + strings.Repeat(" ", 13) + "1\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestForNextSum(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `LET S = 0`,
		20: `FOR I = 1 TO 5`,
		30: `LET S = S + I`,
		40: `NEXT I`,
		50: `PRINT S`,
	}, "")
	if got != "15\n" {
		t.Fatalf("got %q, want 15", got)
	}
}

func TestForZeroIterations(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `FOR I = 1 TO 0`,
		20: `PRINT "SHOULD NOT PRINT"`,
		30: `NEXT I`,
		40: `PRINT "DONE"`,
	}, "")
	if got != "DONE\n" {
		t.Fatalf("got %q, want loop body skipped entirely", got)
	}
}

func TestGosubReturn(t *testing.T) {
	got := runProgram(t, map[int]string{
		10:  `GOSUB 100`,
		20:  `PRINT "AFTER"`,
		30:  `END`,
		100: `PRINT "SUB"`,
		110: `RETURN`,
	}, "")
	if got != "SUB\nAFTER\n" {
		t.Fatalf("got %q", got)
	}
}

func TestIfThenElseLineTargets(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `IF 0 THEN 30 ELSE 40`,
		20: `END`,
		30: `PRINT "THEN": END`,
		40: `PRINT "ELSE": END`,
	}, "")
	if got != "ELSE\n" {
		t.Fatalf("got %q, want ELSE branch taken", got)
	}
}

func TestDefFn(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `DEF FN SQ(X) = X * X`,
		20: `PRINT FN SQ(4)`,
	}, "")
	if got != "16\n" {
		t.Fatalf("got %q, want 16", got)
	}
}

func TestValStrRoundTrip(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `PRINT VAL(STR$(42))`,
	}, "")
	if got != "42\n" {
		t.Fatalf("got %q, want 42", got)
	}
}

func TestAscChrRoundTrip(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `PRINT ASC(CHR$(65))`,
	}, "")
	if got != "65\n" {
		t.Fatalf("got %q, want 65", got)
	}
}

func TestLeftLenBounded(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `PRINT LEN(LEFT$("HI", 10))`,
	}, "")
	if got != "2\n" {
		t.Fatalf("got %q, want LEFT$ clamped to string length", got)
	}
}

func TestOnGotoOutOfRangeFallsThrough(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `ON 5 GOTO 30,40`,
		20: `PRINT "FELLTHROUGH": END`,
		30: `PRINT "A": END`,
		40: `PRINT "B": END`,
	}, "")
	if got != "FELLTHROUGH\n" {
		t.Fatalf("got %q, want silent fallthrough on out-of-range selector", got)
	}
}

func TestDivisionByZeroIsAnError(t *testing.T) {
	prog, err := compiler.Compile(map[int]string{10: `PRINT 1/0`})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var out bytes.Buffer
	m := New(nil, &out, strings.NewReader(""))
	m.Load(prog)
	err = m.Run()
	if err == nil {
		t.Fatalf("expected division by zero error")
	}
	ve, ok := err.(*Error)
	if !ok || ve.Kind != KindDivisionByZero {
		t.Fatalf("got %v, want KindDivisionByZero", err)
	}
}

func TestStringIntoNumericScalarIsAnError(t *testing.T) {
	prog, err := compiler.Compile(map[int]string{10: `LET A = "X"`})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var out bytes.Buffer
	m := New(nil, &out, strings.NewReader(""))
	m.Load(prog)
	err = m.Run()
	if err == nil {
		t.Fatalf("expected a type mismatch error")
	}
	ve, ok := err.(*Error)
	if !ok || ve.Kind != KindTypeMismatch {
		t.Fatalf("got %v, want KindTypeMismatch", err)
	}
}

func TestArrayDimAndAccess(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `DIM A(5)`,
		20: `LET A(3) = 99`,
		30: `PRINT A(3)`,
	}, "")
	if got != "99\n" {
		t.Fatalf("got %q, want 99", got)
	}
}

func TestArraySubscriptOutOfRange(t *testing.T) {
	prog, err := compiler.Compile(map[int]string{
		10: `DIM A(5)`,
		20: `PRINT A(99)`,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var out bytes.Buffer
	m := New(nil, &out, strings.NewReader(""))
	m.Load(prog)
	err = m.Run()
	if err == nil {
		t.Fatalf("expected subscript out of range error")
	}
	if ve, ok := err.(*Error); !ok || ve.Kind != KindSubscriptOutOfRange {
		t.Fatalf("got %v, want KindSubscriptOutOfRange", err)
	}
}

func TestDataReadRestore(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `DATA 1,2,3`,
		20: `READ A`,
		30: `READ B`,
		40: `RESTORE`,
		50: `READ C`,
		60: `PRINT A;B;C`,
	}, "")
	if got != "121\n" {
		t.Fatalf("got %q, want RESTORE resetting the DATA cursor to the start", got)
	}
}

func TestInputReadsLine(t *testing.T) {
	got := runProgram(t, map[int]string{
		10: `INPUT A`,
		20: `PRINT A*2`,
	}, "21\n")
	if got != "42\n" {
		t.Fatalf("got %q, want 42", got)
	}
}
