package vm

// zoneWidth is the PRINT comma column-alignment width, the classic
// 14-character BASIC print zone.
const zoneWidth = 14

// writeOut writes s to the program's output stream and advances the
// column counter, accounting for any embedded newlines.
func (vm *VM) writeOut(s string) {
	for _, r := range s {
		if r == '\n' {
			vm.col = 0
			continue
		}
		vm.col++
	}
	vm.outBuf.WriteString(s)
}

// printZone advances to the next print-zone boundary, the way a comma
// separator does in PRINT A,B,C (antibyte-retroterm/pkg/tinybasic/
// io_commands.go, cmdPrint).
func (vm *VM) printZone() {
	pad := zoneWidth - (vm.col % zoneWidth)
	if pad == 0 {
		pad = zoneWidth
	}
	vm.writeOut(spaces(pad))
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// tabTo implements the TAB(n) print function: pad with spaces up to
// column n (1-based, per classic BASIC); if already at or past that
// column, nothing is emitted (spec.md §4.4).
func (vm *VM) tabTo(n int) string {
	target := n - 1
	if target <= vm.col {
		return ""
	}
	return spaces(target - vm.col)
}
