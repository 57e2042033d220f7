package vm

import (
	"math"

	"github.com/retroterm/corebasic/bytecode"
	"github.com/retroterm/corebasic/symtab"
)

// execAdd implements BASIC's overloaded +: numeric addition for two
// numbers, concatenation for two strings. Mixing the two is a type
// mismatch (spec.md §7).
func (vm *VM) execAdd() error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if a.IsString != b.IsString {
		return vm.errorf(KindTypeMismatch, "cannot add string and number")
	}
	if a.IsString {
		vm.push(Str(a.Str + b.Str))
		return nil
	}
	vm.push(Num(a.Num + b.Num))
	return nil
}

func (vm *VM) execArith(f func(a, b float64) float64) error {
	b, err := vm.popNum()
	if err != nil {
		return err
	}
	a, err := vm.popNum()
	if err != nil {
		return err
	}
	vm.push(Num(f(a, b)))
	return nil
}

func (vm *VM) execDiv() error {
	b, err := vm.popNum()
	if err != nil {
		return err
	}
	a, err := vm.popNum()
	if err != nil {
		return err
	}
	if b == 0 {
		return vm.errorf(KindDivisionByZero, "division by zero")
	}
	vm.push(Num(a / b))
	return nil
}

func (vm *VM) execPow() error {
	b, err := vm.popNum()
	if err != nil {
		return err
	}
	a, err := vm.popNum()
	if err != nil {
		return err
	}
	r := math.Pow(a, b)
	if math.IsNaN(r) {
		return vm.errorf(KindDomainError, "%g ^ %g is undefined", a, b)
	}
	vm.push(Num(r))
	return nil
}

func (vm *VM) execMod() error {
	b, err := vm.popNum()
	if err != nil {
		return err
	}
	a, err := vm.popNum()
	if err != nil {
		return err
	}
	if b == 0 {
		return vm.errorf(KindDivisionByZero, "MOD by zero")
	}
	vm.push(Num(math.Mod(a, b)))
	return nil
}

// execCompare implements = <> < <= > >=. Two numbers compare numerically,
// two strings compare lexically, and a mixed pair coerces the number to
// its canonical string form before comparing (value.go, CanonicalString).
func (vm *VM) execCompare(code bytecode.OpCode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}

	var cmp int
	if !a.IsString && !b.IsString {
		switch {
		case a.Num < b.Num:
			cmp = -1
		case a.Num > b.Num:
			cmp = 1
		}
	} else {
		as, bs := a.CanonicalString(), b.CanonicalString()
		switch {
		case as < bs:
			cmp = -1
		case as > bs:
			cmp = 1
		}
	}

	var result bool
	switch code {
	case bytecode.CEQ:
		result = cmp == 0
	case bytecode.CNE:
		result = cmp != 0
	case bytecode.CLT:
		result = cmp < 0
	case bytecode.CLE:
		result = cmp <= 0
	case bytecode.CGT:
		result = cmp > 0
	case bytecode.CGE:
		result = cmp >= 0
	}
	vm.push(boolValue(result))
	return nil
}

func (vm *VM) execLogical(code bytecode.OpCode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	at, err := a.Truthy()
	if err != nil {
		return vm.errorf(KindTypeMismatch, "%s", err)
	}
	bt, err := b.Truthy()
	if err != nil {
		return vm.errorf(KindTypeMismatch, "%s", err)
	}
	var result bool
	if code == bytecode.AND {
		result = at && bt
	} else {
		result = at || bt
	}
	vm.push(boolValue(result))
	return nil
}

// execOnJump implements ON expr GOTO/GOSUB list: the expression selects a
// 1-based index into the resolved jump table; an out-of-range selector is
// not an error, it simply falls through to the next instruction
// (spec.md §4.3).
func (vm *VM) execOnJump(op bytecode.Op, isGosub bool) error {
	sel, err := vm.popNum()
	if err != nil {
		return err
	}
	k := int(sel)
	table := vm.prog.JumpTables[op.A]
	if k < 1 || k > len(table) {
		return nil
	}
	target := table[k-1]
	if isGosub {
		if len(vm.retStack) >= MaxGosubDepth {
			return vm.errorf(KindSyntax, "GOSUB nesting too deep")
		}
		vm.retStack = append(vm.retStack, vm.pc)
	}
	vm.pc = target
	return nil
}

// execForCheck runs once, right after FOR_INIT, before the loop body's
// first iteration. If the initial value already fails the loop condition
// (e.g. FOR I=1 TO 0), the body never executes: the frame is discarded
// and execution skips to the matching NEXT by bracket-counting forward
// over nested FOR_CHECK/FOR_INCR pairs.
func (vm *VM) execForCheck(op bytecode.Op) error {
	if len(vm.forFrames) == 0 {
		return vm.errorf(KindSyntax, "internal: FOR_CHECK with no active frame")
	}
	frame := &vm.forFrames[len(vm.forFrames)-1]
	frame.bodyPC = op.B

	cur := vm.st.loadScalar(frame.slot).Num
	if loopContinues(cur, frame.limit, frame.step) {
		return nil
	}

	vm.forFrames = vm.forFrames[:len(vm.forFrames)-1]
	return vm.skipToMatchingNext()
}

func loopContinues(cur, limit, step float64) bool {
	if step >= 0 {
		return cur <= limit
	}
	return cur >= limit
}

func (vm *VM) skipToMatchingNext() error {
	depth := 1
	for idx := vm.pc; idx < len(vm.prog.Code); idx++ {
		switch vm.prog.Code[idx].Code {
		case bytecode.FOR_CHECK:
			depth++
		case bytecode.FOR_INCR:
			depth--
			if depth == 0 {
				vm.pc = idx + 1
				return nil
			}
		}
	}
	return vm.errorf(KindBadJumpTarget, "NEXT without matching FOR")
}

// execForIncr implements NEXT [var]. A bare NEXT closes the innermost
// active loop; NEXT var searches outward for the frame bound to var,
// implicitly closing any more-nested loops it passes over (the compact
// "FOR I ... FOR J ... NEXT J,I" style some dialects allow one NEXT at a
// time for).
func (vm *VM) execForIncr(op bytecode.Op) error {
	idx := len(vm.forFrames) - 1
	if op.A >= 0 {
		target := symtab.Slot(op.A)
		idx = -1
		for i := len(vm.forFrames) - 1; i >= 0; i-- {
			if vm.forFrames[i].slot == target {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return vm.errorf(KindNextWithoutFor, "no matching FOR")
	}

	frame := vm.forFrames[idx]
	vm.forFrames = vm.forFrames[:idx+1]

	next := vm.st.loadScalar(frame.slot).Num + frame.step
	_ = vm.st.storeScalar(frame.slot, Num(next))

	if loopContinues(next, frame.limit, frame.step) {
		vm.pc = frame.bodyPC
		return nil
	}
	vm.forFrames = vm.forFrames[:idx]
	return nil
}

func arraySizeFromDim(v float64) (int, error) {
	n := int(v)
	if float64(n) != v || n < 0 {
		return 0, &Error{Kind: KindBadDim, Detail: "array dimension must be a non-negative integer"}
	}
	return n + 1, nil // classic BASIC: DIM A(10) allocates indices 0..10
}

func (vm *VM) execDimArr(op bytecode.Op) error {
	slot := symtab.Slot(op.A)
	dims := op.B

	var d2, d1 float64
	var err error
	if dims == 2 {
		d2, err = vm.popNum()
		if err != nil {
			return err
		}
	}
	d1, err = vm.popNum()
	if err != nil {
		return err
	}

	n1, err := arraySizeFromDim(d1)
	if err != nil {
		vm.setLine(err)
		return err
	}

	idx := slot.Index()
	if slot.IsString() {
		vm.st.growStrArr(idx)
		if dims == 2 {
			n2, err := arraySizeFromDim(d2)
			if err != nil {
				vm.setLine(err)
				return err
			}
			rows := make([][]string, n1)
			for i := range rows {
				rows[i] = make([]string, n2)
			}
			vm.st.strArrays[idx] = strArray{dim: 2, d2: rows}
		} else {
			vm.st.strArrays[idx] = strArray{dim: 1, d1: make([]string, n1)}
		}
		return nil
	}

	vm.st.growNumArr(idx)
	if dims == 2 {
		n2, err := arraySizeFromDim(d2)
		if err != nil {
			vm.setLine(err)
			return err
		}
		rows := make([][]float64, n1)
		for i := range rows {
			rows[i] = make([]float64, n2)
		}
		vm.st.numArrays[idx] = numArray{dim: 2, d2: rows}
	} else {
		vm.st.numArrays[idx] = numArray{dim: 1, d1: make([]float64, n1)}
	}
	return nil
}

// setLine stamps a bare *Error (constructed without VM context, as
// arraySizeFromDim does) with the current source line.
func (vm *VM) setLine(err error) {
	if e, ok := err.(*Error); ok {
		e.Line = vm.lastLine
	}
}

func (vm *VM) execLoadArr(op bytecode.Op) error {
	slot := symtab.Slot(op.A)
	dims := op.B

	var i2f, i1f float64
	var err error
	if dims == 2 {
		i2f, err = vm.popNum()
		if err != nil {
			return err
		}
	}
	i1f, err = vm.popNum()
	if err != nil {
		return err
	}
	i1 := int(i1f)
	i2 := int(i2f)

	idx := slot.Index()
	if slot.IsString() {
		if idx >= len(vm.st.strArrays) || vm.st.strArrays[idx].dim == 0 {
			return vm.errorf(KindUndefArray, "array not dimensioned")
		}
		arr := vm.st.strArrays[idx]
		if arr.dim != dims {
			return vm.errorf(KindBadSubscript, "wrong number of subscripts")
		}
		if dims == 2 {
			if i1 < 0 || i1 >= len(arr.d2) || i2 < 0 || i2 >= len(arr.d2[i1]) {
				return vm.errorf(KindSubscriptOutOfRange, "index (%d,%d) out of range", i1, i2)
			}
			vm.push(Str(arr.d2[i1][i2]))
			return nil
		}
		if i1 < 0 || i1 >= len(arr.d1) {
			return vm.errorf(KindSubscriptOutOfRange, "index %d out of range", i1)
		}
		vm.push(Str(arr.d1[i1]))
		return nil
	}

	if idx >= len(vm.st.numArrays) || vm.st.numArrays[idx].dim == 0 {
		return vm.errorf(KindUndefArray, "array not dimensioned")
	}
	arr := vm.st.numArrays[idx]
	if arr.dim != dims {
		return vm.errorf(KindBadSubscript, "wrong number of subscripts")
	}
	if dims == 2 {
		if i1 < 0 || i1 >= len(arr.d2) || i2 < 0 || i2 >= len(arr.d2[i1]) {
			return vm.errorf(KindSubscriptOutOfRange, "index (%d,%d) out of range", i1, i2)
		}
		vm.push(Num(arr.d2[i1][i2]))
		return nil
	}
	if i1 < 0 || i1 >= len(arr.d1) {
		return vm.errorf(KindSubscriptOutOfRange, "index %d out of range", i1)
	}
	vm.push(Num(arr.d1[i1]))
	return nil
}

func (vm *VM) execStoreArr(op bytecode.Op) error {
	slot := symtab.Slot(op.A)
	dims := op.B

	v, err := vm.pop()
	if err != nil {
		return err
	}

	var i2f, i1f float64
	if dims == 2 {
		i2f, err = vm.popNum()
		if err != nil {
			return err
		}
	}
	i1f, err = vm.popNum()
	if err != nil {
		return err
	}
	i1 := int(i1f)
	i2 := int(i2f)

	idx := slot.Index()
	if slot.IsString() {
		if idx >= len(vm.st.strArrays) || vm.st.strArrays[idx].dim == 0 {
			return vm.errorf(KindUndefArray, "array not dimensioned")
		}
		arr := &vm.st.strArrays[idx]
		if arr.dim != dims {
			return vm.errorf(KindBadSubscript, "wrong number of subscripts")
		}
		s := v.Str
		if !v.IsString {
			s = v.CanonicalString()
		}
		if dims == 2 {
			if i1 < 0 || i1 >= len(arr.d2) || i2 < 0 || i2 >= len(arr.d2[i1]) {
				return vm.errorf(KindSubscriptOutOfRange, "index (%d,%d) out of range", i1, i2)
			}
			arr.d2[i1][i2] = s
			return nil
		}
		if i1 < 0 || i1 >= len(arr.d1) {
			return vm.errorf(KindSubscriptOutOfRange, "index %d out of range", i1)
		}
		arr.d1[i1] = s
		return nil
	}

	if idx >= len(vm.st.numArrays) || vm.st.numArrays[idx].dim == 0 {
		return vm.errorf(KindUndefArray, "array not dimensioned")
	}
	arr := &vm.st.numArrays[idx]
	if arr.dim != dims {
		return vm.errorf(KindBadSubscript, "wrong number of subscripts")
	}
	if v.IsString {
		return vm.errorf(KindTypeMismatch, "cannot store string into numeric array")
	}
	if dims == 2 {
		if i1 < 0 || i1 >= len(arr.d2) || i2 < 0 || i2 >= len(arr.d2[i1]) {
			return vm.errorf(KindSubscriptOutOfRange, "index (%d,%d) out of range", i1, i2)
		}
		arr.d2[i1][i2] = v.Num
		return nil
	}
	if i1 < 0 || i1 >= len(arr.d1) {
		return vm.errorf(KindSubscriptOutOfRange, "index %d out of range", i1)
	}
	arr.d1[i1] = v.Num
	return nil
}
