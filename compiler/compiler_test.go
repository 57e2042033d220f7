package compiler

import (
	"testing"

	"github.com/retroterm/corebasic/bytecode"
)

// everyJumpInRange is the compiler invariant every program must satisfy:
// every JMP/GOSUB operand resolves to a PC within [0, len(code)).
func everyJumpInRange(t *testing.T, prog *bytecode.Program) {
	t.Helper()
	for i, op := range prog.Code {
		switch op.Code {
		case bytecode.JMP, bytecode.GOSUB:
			if op.A < 0 || op.A >= len(prog.Code) {
				t.Fatalf("instruction %d (%s): operand %d out of range [0,%d)", i, op.Code, op.A, len(prog.Code))
			}
		}
	}
	for ti, table := range prog.JumpTables {
		for i, pc := range table {
			if pc < 0 || pc >= len(prog.Code) {
				t.Fatalf("jump table %d entry %d: pc %d out of range", ti, i, pc)
			}
		}
	}
}

func TestCompileAssignmentAndPrint(t *testing.T) {
	prog, err := Compile(map[int]string{
		10: `LET A = 5`,
		20: `PRINT A`,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	everyJumpInRange(t, prog)
	if prog.Code[len(prog.Code)-1].Code != bytecode.HALT {
		t.Fatalf("expected program to end with HALT")
	}
}

func TestCompileForNext(t *testing.T) {
	prog, err := Compile(map[int]string{
		10: `FOR I = 1 TO 10`,
		20: `PRINT I`,
		30: `NEXT I`,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	everyJumpInRange(t, prog)

	var hasInit, hasCheck, hasIncr bool
	for _, op := range prog.Code {
		switch op.Code {
		case bytecode.FOR_INIT:
			hasInit = true
		case bytecode.FOR_CHECK:
			hasCheck = true
		case bytecode.FOR_INCR:
			hasIncr = true
		}
	}
	if !hasInit || !hasCheck || !hasIncr {
		t.Fatalf("expected FOR_INIT/FOR_CHECK/FOR_INCR all present")
	}
}

func TestCompileGotoUndefinedLineFails(t *testing.T) {
	_, err := Compile(map[int]string{
		10: `GOTO 999`,
	})
	if err == nil {
		t.Fatalf("expected error for GOTO to undefined line")
	}
}

func TestCompileIfThenElseLineTargets(t *testing.T) {
	prog, err := Compile(map[int]string{
		10: `IF 1 THEN 30 ELSE 40`,
		20: `PRINT "UNREACHABLE"`,
		30: `PRINT "THEN"`,
		40: `PRINT "ELSE"`,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	everyJumpInRange(t, prog)
}

func TestCompileGosubReturn(t *testing.T) {
	prog, err := Compile(map[int]string{
		10: `GOSUB 100`,
		20: `END`,
		100: `PRINT "SUB"`,
		110: `RETURN`,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	everyJumpInRange(t, prog)
}

func TestCompileDefFn(t *testing.T) {
	prog, err := Compile(map[int]string{
		10: `DEF FN SQ(X) = X * X`,
		20: `PRINT FN SQ(3)`,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	everyJumpInRange(t, prog)
}

func TestCompileOnGotoOutOfRangeFallsThrough(t *testing.T) {
	prog, err := Compile(map[int]string{
		10: `ON 5 GOTO 20,30`,
		20: `PRINT "A"`,
		30: `PRINT "B"`,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	everyJumpInRange(t, prog)
}

func TestCompileMixedPrintZones(t *testing.T) {
	prog, err := Compile(map[int]string{
		10: `PRINT "X";1,"Y";2`,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var zones int
	for _, op := range prog.Code {
		if op.Code == bytecode.PRINT_ZONE {
			zones++
		}
	}
	if zones != 1 {
		t.Fatalf("expected exactly 1 PRINT_ZONE for the single comma, got %d", zones)
	}
}

func TestCompileDataReadRestore(t *testing.T) {
	prog, err := Compile(map[int]string{
		10: `DATA 1,2,3`,
		20: `READ A`,
		30: `RESTORE`,
		40: `READ B`,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(prog.Data) != 3 {
		t.Fatalf("expected 3 DATA items, got %d", len(prog.Data))
	}
	everyJumpInRange(t, prog)
}
