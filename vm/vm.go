package vm

import (
	"bufio"
	"io"
	"math/rand"
	"time"

	"github.com/retroterm/corebasic/bytecode"
	"github.com/retroterm/corebasic/graphics"
	"github.com/retroterm/corebasic/symtab"
)

// forFrame tracks one active FOR/NEXT loop, the way the teacher's
// bytecode VM keeps a forLoops stack alongside its gosubStack
// (antibyte-retroterm/pkg/tinybasic/vm.go, tinybasic.go) rather than
// recursing.
type forFrame struct {
	slot   symtab.Slot
	limit  float64
	step   float64
	bodyPC int
}

// VM executes a compiled Program. A VM is reusable across successive RUNs
// of different programs; Load re-sizes its stores for a new Program
// while Import/Export on the stores carry scalar state forward when the
// caller wants that (spec.md §3, Lifecycle).
type VM struct {
	prog *bytecode.Program
	pc   int

	stack    []Value
	retStack []int
	forFrames []forFrame

	st *stores

	lastLine int

	host   graphics.Host
	out    io.Writer
	outBuf *bufio.Writer
	in     *bufio.Reader

	col int // current PRINT output column, for PRINT_ZONE / TAB

	dataCursor int

	rng       *rand.Rand
	startTime time.Time

	halted bool
}

// New builds a VM with no program loaded. Call Load before Run.
func New(host graphics.Host, out io.Writer, in io.Reader) *VM {
	if host == nil {
		host = &graphics.NullHost{}
	}
	bw := bufio.NewWriter(out)
	return &VM{
		host:      host,
		out:       out,
		outBuf:    bw,
		in:        bufio.NewReader(in),
		rng:       rand.New(rand.NewSource(1)),
		startTime: time.Now(),
	}
}

// Load installs prog, sizing fresh stores from its symbol counts. Any
// prior scalar/array state is discarded; callers that want RUN to
// preserve variables across a recompile should Export the old stores and
// Import them after Load.
func (vm *VM) Load(prog *bytecode.Program) {
	vm.prog = prog
	vm.pc = 0
	vm.stack = vm.stack[:0]
	vm.retStack = vm.retStack[:0]
	vm.forFrames = vm.forFrames[:0]
	vm.st = newStores(prog.Symbols)
	vm.col = 0
	vm.dataCursor = 0
	vm.halted = false
}

// Stores exposes the underlying variable stores so a caller can snapshot
// or restore them across runs.
func (vm *VM) Stores() *stores { return vm.st }

func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() (Value, error) {
	n := len(vm.stack)
	if n == 0 {
		return Value{}, vm.errorf(KindSyntax, "stack underflow")
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v, nil
}

func (vm *VM) popNum() (float64, error) {
	v, err := vm.pop()
	if err != nil {
		return 0, err
	}
	if v.IsString {
		return 0, vm.errorf(KindTypeMismatch, "expected number, got string")
	}
	return v.Num, nil
}

// Run executes the loaded program to completion (HALT, falling off the
// end of the code, or a runtime error).
func (vm *VM) Run() error {
	for vm.pc < len(vm.prog.Code) && !vm.halted {
		if err := vm.step(); err != nil {
			return err
		}
	}
	vm.outBuf.Flush()
	return nil
}

func (vm *VM) curLine() int {
	if vm.pc < len(vm.prog.PCToLine) {
		return vm.prog.PCToLine[vm.pc]
	}
	return vm.lastLine
}

func (vm *VM) step() error {
	op := vm.prog.Code[vm.pc]
	vm.lastLine = vm.curLine()
	vm.pc++

	switch op.Code {
	case bytecode.PUSH_NUM:
		vm.push(Num(op.D))
	case bytecode.PUSH_STR:
		vm.push(Str(op.S))

	case bytecode.LOAD:
		vm.push(vm.st.loadScalar(symtab.Slot(op.A)))
	case bytecode.STORE:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if err := vm.st.storeScalar(symtab.Slot(op.A), v); err != nil {
			return vm.errorf(KindTypeMismatch, "%s", err)
		}

	case bytecode.DIM_ARR:
		if err := vm.execDimArr(op); err != nil {
			return err
		}
	case bytecode.LOAD_ARR:
		if err := vm.execLoadArr(op); err != nil {
			return err
		}
	case bytecode.STORE_ARR:
		if err := vm.execStoreArr(op); err != nil {
			return err
		}

	case bytecode.ADD:
		if err := vm.execAdd(); err != nil {
			return err
		}
	case bytecode.SUB:
		if err := vm.execArith(func(a, b float64) float64 { return a - b }); err != nil {
			return err
		}
	case bytecode.MUL:
		if err := vm.execArith(func(a, b float64) float64 { return a * b }); err != nil {
			return err
		}
	case bytecode.DIV:
		if err := vm.execDiv(); err != nil {
			return err
		}
	case bytecode.POW:
		if err := vm.execPow(); err != nil {
			return err
		}
	case bytecode.MOD:
		if err := vm.execMod(); err != nil {
			return err
		}
	case bytecode.NEG:
		a, err := vm.popNum()
		if err != nil {
			return err
		}
		vm.push(Num(-a))

	case bytecode.CEQ, bytecode.CNE, bytecode.CLT, bytecode.CLE, bytecode.CGT, bytecode.CGE:
		if err := vm.execCompare(op.Code); err != nil {
			return err
		}

	case bytecode.AND, bytecode.OR:
		if err := vm.execLogical(op.Code); err != nil {
			return err
		}
	case bytecode.NOT:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		t, err := v.Truthy()
		if err != nil {
			return vm.errorf(KindTypeMismatch, "%s", err)
		}
		vm.push(boolValue(!t))

	case bytecode.JMP:
		vm.pc = op.A
	case bytecode.JZ:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		t, err := v.Truthy()
		if err != nil {
			return vm.errorf(KindTypeMismatch, "%s", err)
		}
		if !t {
			vm.pc = op.A
		}

	case bytecode.GOSUB:
		if len(vm.retStack) >= MaxGosubDepth {
			return vm.errorf(KindSyntax, "GOSUB nesting too deep")
		}
		vm.retStack = append(vm.retStack, vm.pc)
		vm.pc = op.A
	case bytecode.RETSUB:
		if len(vm.retStack) == 0 {
			return vm.errorf(KindReturnWithoutGosub, "no active GOSUB")
		}
		n := len(vm.retStack)
		vm.pc = vm.retStack[n-1]
		vm.retStack = vm.retStack[:n-1]

	case bytecode.ON_GOTO:
		if err := vm.execOnJump(op, false); err != nil {
			return err
		}
	case bytecode.ON_GOSUB:
		if err := vm.execOnJump(op, true); err != nil {
			return err
		}

	case bytecode.FOR_INIT:
		// Compile order pushes limit then step, so step is on top.
		step, err := vm.popNum()
		if err != nil {
			return err
		}
		limit, err := vm.popNum()
		if err != nil {
			return err
		}
		if len(vm.forFrames) >= MaxForLoopDepth {
			return vm.errorf(KindSyntax, "FOR nesting too deep")
		}
		vm.forFrames = append(vm.forFrames, forFrame{slot: symtab.Slot(op.A), limit: limit, step: step})
	case bytecode.FOR_CHECK:
		if err := vm.execForCheck(op); err != nil {
			return err
		}
	case bytecode.FOR_INCR:
		if err := vm.execForIncr(op); err != nil {
			return err
		}

	case bytecode.PRINT:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.writeOut(v.CanonicalString())
	case bytecode.PRINT_ZONE:
		vm.printZone()
	case bytecode.PRINT_NL:
		vm.writeOut("\n")
		vm.col = 0
	case bytecode.PRINT_SUPPRESS_NL:
		vm.outBuf.Flush()

	case bytecode.CALLFN:
		if err := vm.execCallFn(op); err != nil {
			return err
		}

	case bytecode.DUP:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(v)
		vm.push(v)
	case bytecode.DROP:
		if _, err := vm.pop(); err != nil {
			return err
		}
	case bytecode.SWAP:
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(b)
		vm.push(a)
	case bytecode.OVER:
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(a)
		vm.push(b)
		vm.push(a)

	case bytecode.HALT:
		vm.halted = true

	default:
		return vm.errorf(KindSyntax, "unimplemented opcode %s", op.Code)
	}
	return nil
}
