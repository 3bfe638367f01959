package types

import "unicode/utf8"

// ObjString is an immutable, interned UTF-8 string with a precomputed
// 64-bit hash. Two strings with equal bytes share one heap object, so
// identity comparison is byte comparison. Strings are only created through
// an Interner.
type ObjString struct {
	header
	class *ObjClass
	str   string
	hash  uint64
}

func (s *ObjString) String() string { return s.str }
func (s *ObjString) Type() string   { return "string" }

// Str returns the Go string backing s.
func (s *ObjString) Str() string { return s.str }

// Hash returns the precomputed hash of the string bytes.
func (s *ObjString) Hash() uint64 { return s.hash }

// Class returns the class methods are dispatched on, or nil before the core
// bindings run.
func (s *ObjString) Class() *ObjClass { return s.class }

func (s *ObjString) trace(mark func(Obj)) {
	if s.class != nil {
		mark(s.class)
	}
}

// ObjStringIter iterates the characters of a string, one rune per step.
type ObjStringIter struct {
	header
	Class    *ObjClass
	Iterable *ObjString
	pos      int
}

// NewStringIter allocates an iterator positioned at the start of str.
func NewStringIter(h *Heap, class *ObjClass, str *ObjString) *ObjStringIter {
	it := &ObjStringIter{Class: class, Iterable: str}
	h.allocate(it, sizeStringIter)
	return it
}

func (it *ObjStringIter) String() string { return "StringIter instance" }
func (it *ObjStringIter) Type() string   { return "iterator" }

// NextRange returns the byte range of the next character, or ok=false once
// the string is exhausted.
func (it *ObjStringIter) NextRange() (begin, end int, ok bool) {
	if it.pos >= len(it.Iterable.str) {
		return 0, 0, false
	}
	_, w := utf8.DecodeRuneInString(it.Iterable.str[it.pos:])
	begin = it.pos
	it.pos += w
	return begin, it.pos, true
}

func (it *ObjStringIter) trace(mark func(Obj)) {
	if it.Class != nil {
		mark(it.Class)
	}
	if it.Iterable != nil {
		mark(it.Iterable)
	}
}
