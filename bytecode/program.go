package bytecode

import "github.com/retroterm/corebasic/symtab"

// Program is the flat compiled form the compiler produces and the VM
// consumes. Compilation is a pure function from a stored program to a
// Program; a Program carries no references back to the source.
type Program struct {
	Code []Op

	// PCToLine maps each instruction index to the source line it came
	// from, for run-time error reporting.
	PCToLine []int

	// LineToPC maps a source line number to the index of the first
	// instruction emitted for it (the compiler's finalization pass
	// resolves GOTO/GOSUB/IF line-number operands and ON...GOTO/GOSUB
	// table entries through it).
	LineToPC map[int]int

	// JumpTables holds one resolved PC slice per ON...GOTO/GOSUB
	// statement, in the order they were compiled; ON_GOTO/ON_GOSUB
	// operands index into this slice.
	JumpTables [][]int

	// Data holds the literal values of every DATA statement, in program
	// order, consumed sequentially by READ/RESTORE (an addition beyond
	// the base spec; see SPEC_FULL.md §6).
	Data []DataItem

	Symbols symtab.Counts
}

// DataItem is one literal value parsed out of a DATA statement.
type DataItem struct {
	Str      string
	Num      float64
	IsString bool
}
