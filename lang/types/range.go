package types

import "strconv"

// ObjRange is an integer interval (Begin, End) whose iteration direction is
// derived from the relative order of its endpoints.
type ObjRange struct {
	header
	Class *ObjClass
	Begin int
	End   int
}

// NewRange allocates a range.
func NewRange(h *Heap, class *ObjClass, begin, end int) *ObjRange {
	r := &ObjRange{Class: class, Begin: begin, End: end}
	h.allocate(r, sizeRange)
	return r
}

func (r *ObjRange) String() string {
	return "Range(" + strconv.Itoa(r.Begin) + ", " + strconv.Itoa(r.End) + ")"
}

func (r *ObjRange) Type() string { return "range" }

// Len returns the number of values the range yields.
func (r *ObjRange) Len() int {
	if r.End >= r.Begin {
		return r.End - r.Begin
	}
	return r.Begin - r.End
}

// Bounded resolves the range against a sequence of the given length,
// normalising negative endpoints. It reports ok=false when an endpoint is
// out of bounds; an inverted range clamps to empty.
func (r *ObjRange) Bounded(limit int) (begin, end int, ok bool) {
	begin = r.Begin
	if begin < 0 {
		begin += limit
	}
	if begin < 0 || begin >= limit {
		return 0, 0, false
	}
	end = r.End
	if end < 0 {
		end += limit
	}
	if end < 0 || end > limit {
		return 0, 0, false
	}
	if end < begin {
		end = begin
	}
	return begin, end, true
}

func (r *ObjRange) trace(mark func(Obj)) {
	if r.Class != nil {
		mark(r.Class)
	}
}

// ObjRangeIter iterates a range, stepping towards its end.
type ObjRangeIter struct {
	header
	Class    *ObjClass
	Iterable *ObjRange
	current  int
	step     int
}

// NewRangeIter allocates an iterator positioned at the start of rng.
func NewRangeIter(h *Heap, class *ObjClass, rng *ObjRange) *ObjRangeIter {
	step := 1
	if rng.Begin > rng.End {
		step = -1
	}
	it := &ObjRangeIter{Class: class, Iterable: rng, current: rng.Begin, step: step}
	h.allocate(it, sizeRangeIter)
	return it
}

func (it *ObjRangeIter) String() string { return "RangeIter instance" }
func (it *ObjRangeIter) Type() string   { return "iterator" }

// NextValue returns the next number, or the sentinel once exhausted.
func (it *ObjRangeIter) NextValue() Value {
	if it.current == it.Iterable.End {
		return Sentinel
	}
	v := Number(it.current)
	it.current += it.step
	return v
}

func (it *ObjRangeIter) trace(mark func(Obj)) {
	if it.Class != nil {
		mark(it.Class)
	}
	if it.Iterable != nil {
		mark(it.Iterable)
	}
}
