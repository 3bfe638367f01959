package types

import (
	"fmt"
	"io"
)

// The collector below follows the mark-and-sweep design used by
// https://github.com/Darksecond/lox : objects carry a colour and a root
// count, root handles pin individual objects, and registered root sets are
// traced at mark time.

const (
	// heapInitBytesMax is the allocation threshold of a fresh heap.
	heapInitBytesMax = 1 << 20
	// heapGrowthFactor scales the next threshold from the live byte count
	// after a collection.
	heapGrowthFactor = 2
)

// Colour is the tri-colour marking state of a heap object.
type Colour uint8

const (
	White Colour = iota // not yet discovered, collected at sweep
	Grey                // discovered, outgoing references not yet scanned
	Black               // discovered and fully scanned
)

// header is embedded in every heap object and carries its GC state.
type header struct {
	colour Colour
	roots  int
	size   int
}

func (h *header) gcHeader() *header { return h }

// Obj is a heap-allocated value managed by the collector. All
// implementations live in this package. trace calls mark for each outgoing
// reference and must skip nil pointer fields: a typed nil boxed into the
// Obj interface is not the interface nil the collector rejects.
type Obj interface {
	Value
	gcHeader() *header
	trace(mark func(Obj))
}

// A RootSet contributes external roots to each collection. The machine, the
// interner and the compiler register themselves while they hold references
// the heap cannot see.
type RootSet interface {
	TraceRoots(mark func(Obj))
}

// Heap owns every managed object. Allocation may trigger a full collection;
// any reference held across an allocation point must be reachable from a
// registered root set or pinned by a Root handle.
type Heap struct {
	// Stress forces a collection before every allocation.
	Stress bool
	// TraceTo, when non-nil, receives a line per GC event.
	TraceTo io.Writer
	// Growth scales the next collection threshold from the live byte count
	// after each collection.
	Growth int

	threshold int
	allocated int
	objects   []Obj
	rootSets  []RootSet
}

// NewHeap returns an empty heap with the default collection threshold and
// growth factor.
func NewHeap() *Heap {
	return &Heap{threshold: heapInitBytesMax, Growth: heapGrowthFactor}
}

// SetThreshold overrides the byte count that triggers the next collection.
func (h *Heap) SetThreshold(bytes int) {
	h.threshold = bytes
}

// AddRoots registers a root set traced by every subsequent collection.
func (h *Heap) AddRoots(rs RootSet) {
	h.rootSets = append(h.rootSets, rs)
}

// RemoveRoots unregisters a previously added root set.
func (h *Heap) RemoveRoots(rs RootSet) {
	for i, r := range h.rootSets {
		if r == rs {
			h.rootSets = append(h.rootSets[:i], h.rootSets[i+1:]...)
			return
		}
	}
}

// NumObjects returns the number of live managed objects.
func (h *Heap) NumObjects() int { return len(h.objects) }

// BytesAllocated returns the managed byte count.
func (h *Heap) BytesAllocated() int { return h.allocated }

// A Root pins a single object for its lifetime. Release must be called
// exactly once; creating a root without releasing it (or the reverse)
// breaks collection safety.
type Root struct {
	obj Obj
}

// NewRoot returns a handle that keeps o alive until Release is called.
func (h *Heap) NewRoot(o Obj) *Root {
	o.gcHeader().roots++
	return &Root{obj: o}
}

// Release drops the pin. It is a no-op on the second and later calls.
func (r *Root) Release() {
	if r.obj != nil {
		r.obj.gcHeader().roots--
		r.obj = nil
	}
}

// allocate hands o to the heap. The collector may run first, so o's
// outgoing references must be rooted by the caller.
func (h *Heap) allocate(o Obj, size int) {
	if h.Stress || h.allocated >= h.threshold {
		h.Collect()
	}
	hd := o.gcHeader()
	hd.colour = White
	hd.size = size
	h.objects = append(h.objects, o)
	h.allocated += size
	if h.TraceTo != nil {
		fmt.Fprintf(h.TraceTo, "%p allocate %d for %s\n", o, size, o.Type())
	}
}

// Collect runs a full mark-and-sweep cycle.
func (h *Heap) Collect() {
	if h.TraceTo != nil {
		fmt.Fprintln(h.TraceTo, "-- gc begin")
	}

	for _, o := range h.objects {
		o.gcHeader().colour = White
	}

	var grey []Obj
	mark := func(o Obj) {
		if o == nil {
			return
		}
		if hd := o.gcHeader(); hd.colour == White {
			hd.colour = Grey
			grey = append(grey, o)
		}
	}

	for _, rs := range h.rootSets {
		rs.TraceRoots(mark)
	}
	for _, o := range h.objects {
		if o.gcHeader().roots > 0 {
			mark(o)
		}
	}

	for len(grey) > 0 {
		o := grey[len(grey)-1]
		grey = grey[:len(grey)-1]
		o.gcHeader().colour = Black
		o.trace(mark)
	}

	freed := 0
	live := h.objects[:0]
	for _, o := range h.objects {
		if o.gcHeader().colour == Black {
			live = append(live, o)
		} else {
			freed += o.gcHeader().size
			if h.TraceTo != nil {
				fmt.Fprintf(h.TraceTo, "%p free %s\n", o, o.Type())
			}
		}
	}
	for i := len(live); i < len(h.objects); i++ {
		h.objects[i] = nil
	}
	h.objects = live

	h.allocated -= freed
	h.threshold = h.allocated * h.Growth

	if h.TraceTo != nil {
		fmt.Fprintf(h.TraceTo, "-- gc end (freed %d bytes, %d live, next at %d)\n",
			freed, h.allocated, h.threshold)
	}
}
