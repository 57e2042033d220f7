// Package symtab assigns stable slot numbers to BASIC variables and arrays.
//
// A Slot encodes both the dense index and the value's type in a single int:
// the low bit is the type tag (1 means string), the remaining bits are the
// index into the VM's scalar or array store. This is the teacher's
// type-tagged-slot idiom (antibyte-retroterm keeps numeric and string
// variables in one map keyed by name; here the same distinction is pushed
// into the slot number itself so opcodes carry it for free).
package symtab

import "strings"

// Slot is an opaque handle into one of the VM's four stores (numeric
// scalar, string scalar, numeric array, string array).
type Slot int

const typeBit = 1

// IsString reports whether slot refers to a string-typed value.
func (s Slot) IsString() bool { return int(s)&typeBit == typeBit }

// Index returns the dense index within the appropriate store.
func (s Slot) Index() int { return int(s) >> 1 }

func makeSlot(index int, isString bool) Slot {
	s := index << 1
	if isString {
		s |= typeBit
	}
	return Slot(s)
}

// Table assigns and remembers slot numbers for scalars and arrays,
// segregated into four independent dense counters.
type Table struct {
	scalars map[string]Slot
	arrays  map[string]Slot

	numScalarCount int
	strScalarCount int
	numArrayCount  int
	strArrayCount  int
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{
		scalars: make(map[string]Slot),
		arrays:  make(map[string]Slot),
	}
}

// Clear resets every counter and mapping, so a reused Table does not leak
// slot numbers from a previous program.
func (t *Table) Clear() {
	t.scalars = make(map[string]Slot)
	t.arrays = make(map[string]Slot)
	t.numScalarCount = 0
	t.strScalarCount = 0
	t.numArrayCount = 0
	t.strArrayCount = 0
}

func canon(name string) (string, bool) {
	name = strings.ToUpper(name)
	return name, strings.HasSuffix(name, "$")
}

// ScalarSlot returns the slot for a scalar variable, allocating one on
// first use. Repeated calls with the same name (case-insensitive) return
// the identical slot.
func (t *Table) ScalarSlot(name string) Slot {
	name, isStr := canon(name)
	if slot, ok := t.scalars[name]; ok {
		return slot
	}
	var slot Slot
	if isStr {
		slot = makeSlot(t.strScalarCount, true)
		t.strScalarCount++
	} else {
		slot = makeSlot(t.numScalarCount, false)
		t.numScalarCount++
	}
	t.scalars[name] = slot
	return slot
}

// ArraySlot is the same contract as ScalarSlot but for the independent
// array namespace: DIM A(10) and a plain scalar A never collide.
func (t *Table) ArraySlot(name string) Slot {
	name, isStr := canon(name)
	if slot, ok := t.arrays[name]; ok {
		return slot
	}
	var slot Slot
	if isStr {
		slot = makeSlot(t.strArrayCount, true)
		t.strArrayCount++
	} else {
		slot = makeSlot(t.numArrayCount, false)
		t.numArrayCount++
	}
	t.arrays[name] = slot
	return slot
}

// Counts reports the dense slot counts per store, used by the VM to size
// its scalar/array stores up front.
type Counts struct {
	NumScalars int
	StrScalars int
	NumArrays  int
	StrArrays  int
}

func (t *Table) Counts() Counts {
	return Counts{
		NumScalars: t.numScalarCount,
		StrScalars: t.strScalarCount,
		NumArrays:  t.numArrayCount,
		StrArrays:  t.strArrayCount,
	}
}
