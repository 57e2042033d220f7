package vm

import "github.com/retroterm/corebasic/symtab"

// numArray and strArray are the "polymorphic array by rank" representation
// spec.md §9 describes: a slot is undefined until DIM, then becomes
// exactly one of a 1D or 2D array of the matching element type.
type numArray struct {
	dim int // 0 = undefined, 1 or 2
	d1  []float64
	d2  [][]float64
}

type strArray struct {
	dim int
	d1  []string
	d2  [][]string
}

// stores holds every value the VM can address: two dense scalar arrays and
// two dense (per-rank) array lists, exactly as spec.md §3 describes.
type stores struct {
	numScalars []float64
	strScalars []string
	numArrays  []numArray
	strArrays  []strArray
}

func newStores(counts symtab.Counts) *stores {
	return &stores{
		numScalars: make([]float64, counts.NumScalars),
		strScalars: make([]string, counts.StrScalars),
		numArrays:  make([]numArray, counts.NumArrays),
		strArrays:  make([]strArray, counts.StrArrays),
	}
}

// growNum/growStr let the VM grow its stores on demand when a newly
// observed slot exceeds current capacity, so a VM can be reused across
// multiple compiled programs without losing prior values (spec.md §3,
// Lifecycle).
func (s *stores) growNum(idx int) {
	for idx >= len(s.numScalars) {
		s.numScalars = append(s.numScalars, 0)
	}
}

func (s *stores) growStr(idx int) {
	for idx >= len(s.strScalars) {
		s.strScalars = append(s.strScalars, "")
	}
}

func (s *stores) growNumArr(idx int) {
	for idx >= len(s.numArrays) {
		s.numArrays = append(s.numArrays, numArray{})
	}
}

func (s *stores) growStrArr(idx int) {
	for idx >= len(s.strArrays) {
		s.strArrays = append(s.strArrays, strArray{})
	}
}

func (s *stores) loadScalar(slot symtab.Slot) Value {
	idx := slot.Index()
	if slot.IsString() {
		if idx >= len(s.strScalars) {
			return Str("")
		}
		return Str(s.strScalars[idx])
	}
	if idx >= len(s.numScalars) {
		return Num(0)
	}
	return Num(s.numScalars[idx])
}

func (s *stores) storeScalar(slot symtab.Slot, v Value) error {
	idx := slot.Index()
	if slot.IsString() {
		s.growStr(idx)
		if v.IsString {
			s.strScalars[idx] = v.Str
		} else {
			s.strScalars[idx] = v.CanonicalString()
		}
		return nil
	}
	if v.IsString {
		return &Error{Kind: KindTypeMismatch, Detail: "cannot store string into numeric variable"}
	}
	s.growNum(idx)
	s.numScalars[idx] = v.Num
	return nil
}

// Snapshot is an export of all four stores, used to carry state across
// successive RUNs without recompiling (spec.md §3, Lifecycle; spec.md §5).
type Snapshot struct {
	NumScalars []float64
	StrScalars []string
	NumArrays  []numArray
	StrArrays  []strArray
}

func (s *stores) Export() Snapshot {
	return Snapshot{
		NumScalars: append([]float64(nil), s.numScalars...),
		StrScalars: append([]string(nil), s.strScalars...),
		NumArrays:  append([]numArray(nil), s.numArrays...),
		StrArrays:  append([]strArray(nil), s.strArrays...),
	}
}

func (s *stores) Import(snap Snapshot) {
	s.numScalars = append([]float64(nil), snap.NumScalars...)
	s.strScalars = append([]string(nil), snap.StrScalars...)
	s.numArrays = append([]numArray(nil), snap.NumArrays...)
	s.strArrays = append([]strArray(nil), snap.StrArrays...)
}
