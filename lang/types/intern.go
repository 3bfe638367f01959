package types

import (
	"github.com/dolthub/maphash"
	"github.com/dolthub/swiss"
)

// Interner owns the interned string table. It registers itself as a root
// set on the heap it is given, pinning every interned string for the
// lifetime of the run.
type Interner struct {
	heap        *Heap
	strings     *swiss.Map[string, *ObjString]
	hasher      maphash.Hasher[string]
	stringClass *ObjClass
}

// NewInterner returns an interner allocating on h.
func NewInterner(h *Heap) *Interner {
	in := &Interner{
		heap:    h,
		strings: swiss.NewMap[string, *ObjString](64),
		hasher:  maphash.NewHasher[string](),
	}
	h.AddRoots(in)
	return in
}

// Intern returns the unique ObjString for str, allocating it on first use.
func (in *Interner) Intern(str string) *ObjString {
	if s, ok := in.strings.Get(str); ok {
		return s
	}
	s := &ObjString{class: in.stringClass, str: str, hash: in.hasher.Hash(str)}
	in.heap.allocate(s, sizeString+len(str))
	in.strings.Put(str, s)
	return s
}

// SetStringClass binds the class methods are dispatched on, retroactively
// for strings interned during bootstrap.
func (in *Interner) SetStringClass(c *ObjClass) {
	in.stringClass = c
	in.strings.Iter(func(_ string, s *ObjString) bool {
		s.class = c
		return false
	})
}

// TraceRoots marks every interned string.
func (in *Interner) TraceRoots(mark func(Obj)) {
	in.strings.Iter(func(_ string, s *ObjString) bool {
		mark(s)
		return false
	})
}
