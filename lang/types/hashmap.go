package types

import (
	"strings"

	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"
)

// ObjHashMap maps values to values. Keys follow the language's equality:
// primitives and interned strings by value, other heap objects by identity.
type ObjHashMap struct {
	header
	Class   *ObjClass
	entries *swiss.Map[Value, Value]
}

// NewHashMap allocates an empty map.
func NewHashMap(h *Heap, class *ObjClass) *ObjHashMap {
	m := &ObjHashMap{
		Class:   class,
		entries: swiss.NewMap[Value, Value](8),
	}
	h.allocate(m, sizeHashMap)
	return m
}

func (m *ObjHashMap) String() string {
	pairs := make([]string, 0, m.entries.Count())
	m.entries.Iter(func(k, v Value) bool {
		pairs = append(pairs, k.String()+": "+v.String())
		return false
	})
	// swiss iteration order is randomised; sort for stable rendering.
	slices.Sort(pairs)
	var sb strings.Builder
	sb.WriteByte('{')
	sb.WriteString(strings.Join(pairs, ", "))
	sb.WriteByte('}')
	return sb.String()
}

func (m *ObjHashMap) Type() string { return "hashmap" }

// Get returns the value stored under k, if any.
func (m *ObjHashMap) Get(k Value) (Value, bool) {
	return m.entries.Get(k)
}

// Put creates or updates an entry.
func (m *ObjHashMap) Put(k, v Value) {
	m.entries.Put(k, v)
}

// Has reports whether k is present.
func (m *ObjHashMap) Has(k Value) bool {
	return m.entries.Has(k)
}

// Len returns the number of entries.
func (m *ObjHashMap) Len() int { return m.entries.Count() }

// Keys returns a snapshot of the current keys.
func (m *ObjHashMap) Keys() []Value {
	keys := make([]Value, 0, m.entries.Count())
	m.entries.Iter(func(k, _ Value) bool {
		keys = append(keys, k)
		return false
	})
	return keys
}

func (m *ObjHashMap) trace(mark func(Obj)) {
	if m.Class != nil {
		mark(m.Class)
	}
	m.entries.Iter(func(k, v Value) bool {
		markValue(k, mark)
		markValue(v, mark)
		return false
	})
}

// ObjMapIter iterates a snapshot of a map's keys taken at creation time.
type ObjMapIter struct {
	header
	Class    *ObjClass
	Iterable *ObjHashMap
	keys     []Value
	cursor   int
}

// NewMapIter allocates an iterator over the map's current keys.
func NewMapIter(h *Heap, class *ObjClass, m *ObjHashMap) *ObjMapIter {
	it := &ObjMapIter{Class: class, Iterable: m, keys: m.Keys()}
	h.allocate(it, sizeMapIter+16*m.Len())
	return it
}

func (it *ObjMapIter) String() string { return "MapIter instance" }
func (it *ObjMapIter) Type() string   { return "iterator" }

// NextValue returns the next key, or the sentinel once exhausted.
func (it *ObjMapIter) NextValue() Value {
	if it.cursor >= len(it.keys) {
		return Sentinel
	}
	k := it.keys[it.cursor]
	it.cursor++
	return k
}

func (it *ObjMapIter) trace(mark func(Obj)) {
	if it.Class != nil {
		mark(it.Class)
	}
	if it.Iterable != nil {
		mark(it.Iterable)
	}
	for _, k := range it.keys {
		markValue(k, mark)
	}
}
