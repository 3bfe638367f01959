package types

import "strings"

// ObjVec is a growable ordered sequence of values.
type ObjVec struct {
	header
	Class    *ObjClass
	Elements []Value
}

// NewVec allocates an empty vector.
func NewVec(h *Heap, class *ObjClass) *ObjVec {
	v := &ObjVec{Class: class}
	h.allocate(v, sizeVec)
	return v
}

func (v *ObjVec) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range v.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		if e == Value(v) {
			sb.WriteString("[...]")
		} else {
			sb.WriteString(e.String())
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

func (v *ObjVec) Type() string { return "vec" }

func (v *ObjVec) trace(mark func(Obj)) {
	if v.Class != nil {
		mark(v.Class)
	}
	for _, e := range v.Elements {
		markValue(e, mark)
	}
}

// ObjVecIter iterates a vector by position.
type ObjVecIter struct {
	header
	Class    *ObjClass
	Iterable *ObjVec
	cursor   int
}

// NewVecIter allocates an iterator positioned at the start of vec.
func NewVecIter(h *Heap, class *ObjClass, vec *ObjVec) *ObjVecIter {
	it := &ObjVecIter{Class: class, Iterable: vec}
	h.allocate(it, sizeVecIter)
	return it
}

func (it *ObjVecIter) String() string { return "VecIter instance" }
func (it *ObjVecIter) Type() string   { return "iterator" }

// NextValue returns the next element, or the sentinel once exhausted.
func (it *ObjVecIter) NextValue() Value {
	if it.cursor >= len(it.Iterable.Elements) {
		return Sentinel
	}
	v := it.Iterable.Elements[it.cursor]
	it.cursor++
	return v
}

func (it *ObjVecIter) trace(mark func(Obj)) {
	if it.Class != nil {
		mark(it.Class)
	}
	if it.Iterable != nil {
		mark(it.Iterable)
	}
}

// ObjTuple is an immutable ordered sequence of values.
type ObjTuple struct {
	header
	Class    *ObjClass
	Elements []Value
}

// NewTuple allocates a tuple owning elems.
func NewTuple(h *Heap, class *ObjClass, elems []Value) *ObjTuple {
	t := &ObjTuple{Class: class, Elements: elems}
	h.allocate(t, sizeTuple+16*len(elems))
	return t
}

func (t *ObjTuple) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, e := range t.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (t *ObjTuple) Type() string { return "tuple" }

func (t *ObjTuple) trace(mark func(Obj)) {
	if t.Class != nil {
		mark(t.Class)
	}
	for _, e := range t.Elements {
		markValue(e, mark)
	}
}
