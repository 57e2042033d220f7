package vm

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/retroterm/corebasic/builtin"
	"github.com/retroterm/corebasic/bytecode"
	"github.com/retroterm/corebasic/symtab"
)

const lineShorthandBit = 1 << 30

// popArgs pops n values off the stack and returns them in the order they
// were pushed (left to right), since the stack's top holds the last
// argument.
func (vm *VM) popArgs(n int) ([]Value, error) {
	args := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (vm *VM) argNum(args []Value, i int) (float64, error) {
	if args[i].IsString {
		return 0, vm.errorf(KindTypeMismatch, "expected number for argument %d", i+1)
	}
	return args[i].Num, nil
}

func (vm *VM) argStr(args []Value, i int) (string, error) {
	if !args[i].IsString {
		return "", vm.errorf(KindTypeMismatch, "expected string for argument %d", i+1)
	}
	return args[i].Str, nil
}

// execCallFn dispatches every CALLFN instruction: built-in math/string
// functions, INPUT/READ/RESTORE, and the graphics.Host delegation.
func (vm *VM) execCallFn(op bytecode.Op) error {
	id := builtin.ID(op.A)

	switch id {
	case builtin.INPUT:
		return vm.execInput(symtab.Slot(op.B))
	case builtin.READ:
		return vm.execRead(symtab.Slot(op.B))
	case builtin.RESTORE:
		vm.dataCursor = op.B
		return nil
	}

	if builtin.StatementForm[id.Name()] {
		return vm.execGraphicsCall(id, op.B)
	}

	return vm.execValueFn(id, op.B)
}

func (vm *VM) execInput(slot symtab.Slot) error {
	line, err := vm.in.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && line == "" {
		line = ""
	}
	if slot.IsString() {
		_ = vm.st.storeScalar(slot, Str(line))
	} else {
		_ = vm.st.storeScalar(slot, Num(parseNumeric(line)))
	}
	return nil
}

func (vm *VM) execRead(slot symtab.Slot) error {
	if vm.dataCursor >= len(vm.prog.Data) {
		return vm.errorf(KindOutOfData, "no more DATA to read")
	}
	item := vm.prog.Data[vm.dataCursor]
	vm.dataCursor++
	if item.IsString {
		_ = vm.st.storeScalar(slot, Str(item.Str))
	} else {
		_ = vm.st.storeScalar(slot, Num(item.Num))
	}
	return nil
}

// execValueFn evaluates the built-ins usable inside an expression: pops
// argc arguments, pushes exactly one result.
func (vm *VM) execValueFn(id builtin.ID, argc int) error {
	args, err := vm.popArgs(argc)
	if err != nil {
		return err
	}

	switch id {
	case builtin.ABS:
		n, err := vm.argNum(args, 0)
		if err != nil {
			return err
		}
		vm.push(Num(math.Abs(n)))
	case builtin.INT:
		n, err := vm.argNum(args, 0)
		if err != nil {
			return err
		}
		vm.push(Num(math.Floor(n)))
	case builtin.SGN:
		n, err := vm.argNum(args, 0)
		if err != nil {
			return err
		}
		switch {
		case n > 0:
			vm.push(Num(1))
		case n < 0:
			vm.push(Num(-1))
		default:
			vm.push(Num(0))
		}
	case builtin.SQR:
		n, err := vm.argNum(args, 0)
		if err != nil {
			return err
		}
		if n < 0 {
			return vm.errorf(KindDomainError, "SQR of negative number")
		}
		vm.push(Num(math.Sqrt(n)))
	case builtin.SIN:
		n, _ := vm.argNum(args, 0)
		vm.push(Num(math.Sin(n)))
	case builtin.COS:
		n, _ := vm.argNum(args, 0)
		vm.push(Num(math.Cos(n)))
	case builtin.TAN:
		n, _ := vm.argNum(args, 0)
		vm.push(Num(math.Tan(n)))
	case builtin.ATN:
		n, _ := vm.argNum(args, 0)
		vm.push(Num(math.Atan(n)))
	case builtin.LOG:
		n, err := vm.argNum(args, 0)
		if err != nil {
			return err
		}
		if n <= 0 {
			return vm.errorf(KindDomainError, "LOG of non-positive number")
		}
		vm.push(Num(math.Log(n)))
	case builtin.EXP:
		n, _ := vm.argNum(args, 0)
		vm.push(Num(math.Exp(n)))
	case builtin.PI:
		vm.push(Num(math.Pi))
	case builtin.RAD:
		n, _ := vm.argNum(args, 0)
		vm.push(Num(n * math.Pi / 180))
	case builtin.DEG:
		n, _ := vm.argNum(args, 0)
		vm.push(Num(n * 180 / math.Pi))
	case builtin.MIN:
		a, _ := vm.argNum(args, 0)
		b, _ := vm.argNum(args, 1)
		vm.push(Num(math.Min(a, b)))
	case builtin.MAX:
		a, _ := vm.argNum(args, 0)
		b, _ := vm.argNum(args, 1)
		vm.push(Num(math.Max(a, b)))
	case builtin.CLAMP:
		n, _ := vm.argNum(args, 0)
		lo, _ := vm.argNum(args, 1)
		hi, _ := vm.argNum(args, 2)
		vm.push(Num(math.Min(math.Max(n, lo), hi)))
	case builtin.MODFN:
		a, _ := vm.argNum(args, 0)
		b, err := vm.argNum(args, 1)
		if err != nil {
			return err
		}
		if b == 0 {
			return vm.errorf(KindDivisionByZero, "MOD by zero")
		}
		vm.push(Num(math.Mod(a, b)))

	case builtin.RND:
		vm.push(Num(vm.rng.Float64()))
	case builtin.RNDI:
		lo, _ := vm.argNum(args, 0)
		hi, _ := vm.argNum(args, 1)
		lo, hi = math.Floor(lo), math.Floor(hi)
		if hi < lo {
			lo, hi = hi, lo
		}
		vm.push(Num(lo + math.Floor(vm.rng.Float64()*(hi-lo+1))))
	case builtin.TIMER:
		vm.push(Num(time.Since(vm.startTime).Seconds()))

	case builtin.STRS:
		n, err := vm.argNum(args, 0)
		if err != nil {
			return err
		}
		vm.push(Str(Num(n).CanonicalString()))
	case builtin.VAL:
		s, err := vm.argStr(args, 0)
		if err != nil {
			return err
		}
		vm.push(Num(parseNumeric(strings.TrimSpace(s))))
	case builtin.LEN:
		s, err := vm.argStr(args, 0)
		if err != nil {
			return err
		}
		vm.push(Num(float64(len(s))))
	case builtin.CHRS:
		n, err := vm.argNum(args, 0)
		if err != nil {
			return err
		}
		vm.push(Str(string(rune(int(n)))))
	case builtin.ASC:
		s, err := vm.argStr(args, 0)
		if err != nil {
			return err
		}
		if s == "" {
			return vm.errorf(KindDomainError, "ASC of empty string")
		}
		vm.push(Num(float64(s[0])))
	case builtin.LEFTS:
		s, err := vm.argStr(args, 0)
		if err != nil {
			return err
		}
		n, _ := vm.argNum(args, 1)
		vm.push(Str(clampLeft(s, int(n))))
	case builtin.RIGHTS:
		s, err := vm.argStr(args, 0)
		if err != nil {
			return err
		}
		n, _ := vm.argNum(args, 1)
		vm.push(Str(clampRight(s, int(n))))
	case builtin.MIDS:
		s, err := vm.argStr(args, 0)
		if err != nil {
			return err
		}
		start, _ := vm.argNum(args, 1)
		length := len(s)
		if len(args) >= 3 {
			l, _ := vm.argNum(args, 2)
			length = int(l)
		}
		vm.push(Str(midString(s, int(start), length)))
	case builtin.SPC:
		n, _ := vm.argNum(args, 0)
		vm.push(Str(spaces(int(n))))
	case builtin.TAB:
		n, _ := vm.argNum(args, 0)
		vm.push(Str(vm.tabTo(int(n))))
	case builtin.INSTR:
		vm.push(Num(float64(execInstr(args))))
	case builtin.POINT:
		x, err := vm.argNum(args, 0)
		if err != nil {
			return err
		}
		y, err := vm.argNum(args, 1)
		if err != nil {
			return err
		}
		vm.push(boolValue(vm.host.PointNonBlack(x, y)))
	case builtin.STRINGS:
		n, _ := vm.argNum(args, 0)
		ch, err := vm.argStr(args, 1)
		if err != nil {
			cn, _ := vm.argNum(args, 1)
			ch = string(rune(int(cn)))
		}
		if ch == "" {
			ch = " "
		}
		vm.push(Str(strings.Repeat(ch[:1], int(n))))

	default:
		return vm.errorf(KindUndefFunction, "unimplemented function %s", id.Name())
	}
	return nil
}

func clampLeft(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if n >= len(s) {
		return s
	}
	return s[:n]
}

func clampRight(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// midString implements MID$(s, start, [length]) with BASIC's 1-based
// start index.
func midString(s string, start, length int) string {
	if start < 1 {
		start = 1
	}
	i := start - 1
	if i >= len(s) || length <= 0 {
		return ""
	}
	end := i + length
	if end > len(s) {
		end = len(s)
	}
	return s[i:end]
}

// execInstr implements INSTR(haystack, needle) and the three-argument
// INSTR(start, haystack, needle) form, returning a 1-based match position
// or 0 if not found.
func execInstr(args []Value) int {
	var start int
	var haystack, needle string
	if len(args) == 3 {
		start = int(args[0].Num)
		haystack = args[1].CanonicalString()
		needle = args[2].CanonicalString()
	} else {
		haystack = args[0].CanonicalString()
		needle = args[1].CanonicalString()
		start = 1
	}
	if start < 1 {
		start = 1
	}
	if start > len(haystack)+1 {
		return 0
	}
	idx := strings.Index(haystack[start-1:], needle)
	if idx < 0 {
		return 0
	}
	return start + idx
}

// execGraphicsCall dispatches the statement-form built-ins to the
// graphics.Host. Bit 30 of argc (lineShorthandBit) marks LINE's
// "-(x2,y2)" shorthand form.
func (vm *VM) execGraphicsCall(id builtin.ID, rawArgc int) error {
	shorthand := rawArgc&lineShorthandBit != 0
	argc := rawArgc &^ lineShorthandBit

	args, err := vm.popArgs(argc)
	if err != nil {
		return err
	}
	nums := make([]float64, len(args))
	for i, a := range args {
		if !a.IsString {
			nums[i] = a.Num
		}
	}

	switch id {
	case builtin.SCREEN:
		return vm.host.EnsureScreen(int(nums[0]), int(nums[1]))
	case builtin.CLS:
		vm.host.Cls()
	case builtin.COLOR:
		if len(nums) == 1 {
			vm.host.ColorPalette(int(nums[0]))
		} else {
			vm.host.ColorRGB(int(nums[0]), int(nums[1]), int(nums[2]))
		}
	case builtin.PSET:
		vm.host.PSet(nums[0], nums[1])
	case builtin.LINE:
		vm.execLine(nums, shorthand)
	case builtin.CIRCLE:
		vm.host.Circle(nums[0], nums[1], nums[2])
	case builtin.BOX:
		fill := len(nums) >= 5 && nums[4] != 0
		vm.host.Box(nums[0], nums[1], nums[2], nums[3], fill)
	case builtin.PAINT:
		vm.host.Paint(nums[0], nums[1])
	case builtin.FLUSH:
		vm.host.Flush()
	case builtin.COLORHSV:
		vm.host.ColorHSV(nums[0], nums[1], nums[2])
	case builtin.SAVEIMAGE:
		if len(args) > 0 && args[0].IsString {
			return vm.host.Save(args[0].Str)
		}
	case builtin.SLEEP:
		vm.host.SleepMS(int(nums[0]))
	case builtin.GLOCATE:
		vm.host.TextLocate(int(nums[0]), int(nums[1]))
	case builtin.GPRINT:
		if len(args) > 0 {
			vm.host.TextPrint(args[0].CanonicalString())
		}
	case builtin.LOCATE:
		if len(nums) > 0 {
			vm.col = int(nums[0])
		}
	case builtin.RANDOMIZE:
		seed := int64(1)
		if len(nums) > 0 {
			seed = int64(nums[0])
		} else {
			seed = time.Now().UnixNano()
		}
		vm.rng = rand.New(rand.NewSource(seed))
	default:
		return vm.errorf(KindUndefFunction, "unimplemented statement %s", id.Name())
	}
	return nil
}

// execLine implements all three LINE forms (spec.md §4.3): shorthand
// continues from the graphics pen, the parenthesized and flat forms both
// supply two explicit endpoints, and a trailing argument beyond the
// coordinates sets the draw color first.
func (vm *VM) execLine(nums []float64, shorthand bool) {
	if shorthand {
		if len(nums) >= 3 {
			vm.host.ColorPalette(int(nums[2]))
		}
		vm.host.LineTo(nums[0], nums[1])
		return
	}
	if len(nums) >= 5 {
		vm.host.ColorPalette(int(nums[4]))
	}
	vm.host.Line(nums[0], nums[1], nums[2], nums[3])
}

