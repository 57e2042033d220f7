package basic

import (
	"bytes"
	"strings"
	"testing"
)

func TestEnterLineAndList(t *testing.T) {
	e := New(nil, &bytes.Buffer{}, strings.NewReader(""))
	e.EnterLine(20, `PRINT "B"`)
	e.EnterLine(10, `PRINT "A"`)
	want := "10 PRINT \"A\"\n20 PRINT \"B\"\n"
	if got := e.List(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEnterLineBlankDeletes(t *testing.T) {
	e := New(nil, &bytes.Buffer{}, strings.NewReader(""))
	e.EnterLine(10, `PRINT "A"`)
	e.EnterLine(10, "   ")
	if got := e.List(); got != "" {
		t.Fatalf("blank re-entry should delete the line, got %q", got)
	}
}

func TestRunExecutesStoredProgram(t *testing.T) {
	var out bytes.Buffer
	e := New(nil, &out, strings.NewReader(""))
	e.EnterLine(10, `PRINT 1+1`)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "2\n" {
		t.Fatalf("got %q, want 2\\n", out.String())
	}
}

func TestRunCachesCompileAcrossUnchangedRuns(t *testing.T) {
	var out bytes.Buffer
	e := New(nil, &out, strings.NewReader(""))
	e.EnterLine(10, `PRINT 1`)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := e.compiled
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.compiled != first {
		t.Fatalf("expected cached compile to be reused when source is unchanged")
	}
}

func TestRunRecompilesAfterEdit(t *testing.T) {
	var out bytes.Buffer
	e := New(nil, &out, strings.NewReader(""))
	e.EnterLine(10, `PRINT 1`)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := e.compiled
	e.EnterLine(10, `PRINT 2`)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.compiled == first {
		t.Fatalf("expected a fresh compile after editing a line")
	}
	if out.String() != "1\n2\n" {
		t.Fatalf("got %q, want 1\\n2\\n", out.String())
	}
}

func TestCompileErrorReportsLine(t *testing.T) {
	e := New(nil, &bytes.Buffer{}, strings.NewReader(""))
	e.EnterLine(10, `GOTO 999`)
	err := e.Run()
	if err == nil {
		t.Fatalf("expected a compile error for GOTO to an undefined line")
	}
	be, ok := err.(*Error)
	if !ok || be.Category != CategoryCompile || be.Line != 10 {
		t.Fatalf("got %v, want a CategoryCompile *Error for line 10", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src := New(nil, &bytes.Buffer{}, strings.NewReader(""))
	src.EnterLine(10, `LET A = 1`)
	src.EnterLine(20, `PRINT A`)

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := New(nil, &bytes.Buffer{}, strings.NewReader(""))
	if err := dst.Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if dst.List() != src.List() {
		t.Fatalf("got %q, want %q", dst.List(), src.List())
	}
}

func TestDispatchLineNumberedEntryAndRun(t *testing.T) {
	var out bytes.Buffer
	e := New(nil, &out, strings.NewReader(""))

	for _, line := range []string{`10 PRINT "HI"`, "RUN"} {
		exit, err := e.Dispatch(line, &out)
		if err != nil {
			t.Fatalf("Dispatch(%q): %v", line, err)
		}
		if exit {
			t.Fatalf("Dispatch(%q) unexpectedly requested exit", line)
		}
	}
	if out.String() != "HI\n" {
		t.Fatalf("got %q, want HI\\n", out.String())
	}
}

func TestDispatchListWritesToGivenWriter(t *testing.T) {
	e := New(nil, &bytes.Buffer{}, strings.NewReader(""))
	if _, err := e.Dispatch(`10 PRINT "A"`, nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	var listOut bytes.Buffer
	if _, err := e.Dispatch("LIST", &listOut); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if listOut.String() != "10 PRINT \"A\"\n" {
		t.Fatalf("got %q", listOut.String())
	}
}

func TestDispatchExitRequestsExit(t *testing.T) {
	e := New(nil, &bytes.Buffer{}, strings.NewReader(""))
	exit, err := e.Dispatch("EXIT", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !exit {
		t.Fatalf("expected Dispatch(\"EXIT\") to request exit")
	}
}

func TestDispatchUnrecognizedIsSyntaxError(t *testing.T) {
	e := New(nil, &bytes.Buffer{}, strings.NewReader(""))
	_, err := e.Dispatch("FROBNICATE", nil)
	if err == nil {
		t.Fatalf("expected an error for an unrecognized direct command")
	}
}

func TestNewProgramClearsState(t *testing.T) {
	e := New(nil, &bytes.Buffer{}, strings.NewReader(""))
	e.EnterLine(10, `PRINT 1`)
	e.NewProgram()
	if e.List() != "" {
		t.Fatalf("expected NewProgram to clear the stored program")
	}
}
