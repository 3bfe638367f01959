package types

import "github.com/dolthub/swiss"

// ObjClass is a class: an optional name, the metaclass whose methods act as
// the class's static methods, an optional superclass, and the method table
// keyed by interned name. Inheritance snapshots the parent's methods at
// class-creation time; later mutations of the parent do not propagate.
type ObjClass struct {
	header
	Name       *ObjString // nil for anonymous classes
	Metaclass  *ObjClass
	Superclass *ObjClass
	methods    *swiss.Map[*ObjString, Value]
}

// NewClass allocates a class with an empty method table.
func NewClass(h *Heap, name *ObjString, metaclass *ObjClass) *ObjClass {
	c := &ObjClass{
		Name:      name,
		Metaclass: metaclass,
		methods:   swiss.NewMap[*ObjString, Value](8),
	}
	h.allocate(c, sizeClass)
	return c
}

func (c *ObjClass) String() string {
	if c.Name == nil {
		return "<class>"
	}
	return c.Name.Str()
}

func (c *ObjClass) Type() string { return "class" }

// Method returns the method bound under name, if any.
func (c *ObjClass) Method(name *ObjString) (Value, bool) {
	return c.methods.Get(name)
}

// AddMethod binds (or replaces) a method.
func (c *ObjClass) AddMethod(name *ObjString, method Value) {
	c.methods.Put(name, method)
}

// InheritFrom copies the parent's current method table into c and records
// the parent. Must run before c's own methods are added so overrides win.
func (c *ObjClass) InheritFrom(parent *ObjClass) {
	c.Superclass = parent
	parent.methods.Iter(func(name *ObjString, m Value) bool {
		c.methods.Put(name, m)
		return false
	})
}

// NumMethods returns the number of bound methods.
func (c *ObjClass) NumMethods() int { return c.methods.Count() }

func (c *ObjClass) trace(mark func(Obj)) {
	// nil pointer fields must not reach mark: a typed nil stored in the
	// Obj interface is not the interface nil the collector checks for.
	if c.Name != nil {
		mark(c.Name)
	}
	if c.Metaclass != nil {
		mark(c.Metaclass)
	}
	if c.Superclass != nil {
		mark(c.Superclass)
	}
	c.methods.Iter(func(name *ObjString, m Value) bool {
		mark(name)
		markValue(m, mark)
		return false
	})
}

// ObjInstance is a user-class instance: a class reference plus a field map.
// Fields spring into existence on first assignment.
type ObjInstance struct {
	header
	Class  *ObjClass
	fields *swiss.Map[*ObjString, Value]
}

// NewInstance allocates an instance of class with no fields.
func NewInstance(h *Heap, class *ObjClass) *ObjInstance {
	inst := &ObjInstance{
		Class:  class,
		fields: swiss.NewMap[*ObjString, Value](4),
	}
	h.allocate(inst, sizeInstance)
	return inst
}

func (inst *ObjInstance) String() string { return inst.Class.String() + " instance" }
func (inst *ObjInstance) Type() string   { return "instance" }

// Field returns the field stored under name, if set.
func (inst *ObjInstance) Field(name *ObjString) (Value, bool) {
	return inst.fields.Get(name)
}

// SetField creates or updates a field.
func (inst *ObjInstance) SetField(name *ObjString, v Value) {
	inst.fields.Put(name, v)
}

func (inst *ObjInstance) trace(mark func(Obj)) {
	if inst.Class != nil {
		mark(inst.Class)
	}
	inst.fields.Iter(func(name *ObjString, v Value) bool {
		mark(name)
		markValue(v, mark)
		return false
	})
}

// ObjBoundMethod pairs a receiver with a method (closure or native); it is
// what evaluating instance.method yields when the name resolves to a method
// rather than a field.
type ObjBoundMethod struct {
	header
	Receiver Value
	Method   Value
}

// NewBoundMethod allocates a bound method.
func NewBoundMethod(h *Heap, receiver, method Value) *ObjBoundMethod {
	bm := &ObjBoundMethod{Receiver: receiver, Method: method}
	h.allocate(bm, sizeBoundMethod)
	return bm
}

func (bm *ObjBoundMethod) String() string { return bm.Method.String() }
func (bm *ObjBoundMethod) Type() string   { return "function" }

func (bm *ObjBoundMethod) trace(mark func(Obj)) {
	markValue(bm.Receiver, mark)
	markValue(bm.Method, mark)
}

// ClassStore holds the classes backing the built-in types. It is populated
// by the runtime's core bindings and registered as a GC root set so the
// core classes survive every collection.
type ClassStore struct {
	BaseMetaclass *ObjClass
	String        *ObjClass
	StringIter    *ObjClass
	Vec           *ObjClass
	VecIter       *ObjClass
	Range         *ObjClass
	RangeIter     *ObjClass
	HashMap       *ObjClass
	MapIter       *ObjClass
	Tuple         *ObjClass
}

// TraceRoots marks every bound core class.
func (cs *ClassStore) TraceRoots(mark func(Obj)) {
	for _, c := range []*ObjClass{
		cs.BaseMetaclass, cs.String, cs.StringIter, cs.Vec, cs.VecIter,
		cs.Range, cs.RangeIter, cs.HashMap, cs.MapIter, cs.Tuple,
	} {
		if c != nil {
			mark(c)
		}
	}
}
