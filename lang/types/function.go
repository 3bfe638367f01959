package types

import "io"

// ObjFunction is the immutable product of compiling one function body:
// arity, static upvalue count, name and bytecode chunk. Functions are never
// called directly; the machine always calls through a closure.
type ObjFunction struct {
	header
	Name         *ObjString // empty name denotes the top-level script
	Arity        int
	UpvalueCount int
	Chunk        Chunk
}

// NewFunction allocates an empty function shell; the compiler fills in the
// chunk and counts before sealing it behind a closure.
func NewFunction(h *Heap, name *ObjString) *ObjFunction {
	fn := &ObjFunction{Name: name}
	h.allocate(fn, sizeFunction)
	return fn
}

func (fn *ObjFunction) String() string {
	if fn.Name == nil || fn.Name.Str() == "" {
		return "<script>"
	}
	return "<fn " + fn.Name.Str() + ">"
}

func (fn *ObjFunction) Type() string { return "function" }

func (fn *ObjFunction) trace(mark func(Obj)) {
	if fn.Name != nil {
		mark(fn.Name)
	}
	for _, v := range fn.Chunk.Constants {
		markValue(v, mark)
	}
}

// ObjUpvalue is the capture mechanism for a closed-over variable. While the
// variable's stack slot is live the upvalue is open and Slot indexes the
// machine stack; when the scope exits the value is copied into Closed and
// every sharing closure observes the transition.
type ObjUpvalue struct {
	header
	Slot   int
	Closed Value
	Open   bool
}

// NewUpvalue allocates an open upvalue over the given stack slot.
func NewUpvalue(h *Heap, slot int) *ObjUpvalue {
	uv := &ObjUpvalue{Slot: slot, Open: true}
	h.allocate(uv, sizeUpvalue)
	return uv
}

func (uv *ObjUpvalue) String() string { return "upvalue" }
func (uv *ObjUpvalue) Type() string   { return "upvalue" }

// Close materialises the value off the stack; the upvalue no longer refers
// to a slot.
func (uv *ObjUpvalue) Close(v Value) {
	uv.Closed = v
	uv.Open = false
}

func (uv *ObjUpvalue) trace(mark func(Obj)) {
	if !uv.Open {
		markValue(uv.Closed, mark)
	}
}

// ObjClosure pairs a function with the upvalues it captured. Closures are
// the only callable form of user code.
type ObjClosure struct {
	header
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

// NewClosure allocates a closure whose upvalue slots are filled by the
// machine while decoding the closure instruction.
func NewClosure(h *Heap, fn *ObjFunction) *ObjClosure {
	cl := &ObjClosure{
		Function: fn,
		Upvalues: make([]*ObjUpvalue, fn.UpvalueCount),
	}
	h.allocate(cl, sizeClosure+16*fn.UpvalueCount)
	return cl
}

func (cl *ObjClosure) String() string { return cl.Function.String() }
func (cl *ObjClosure) Type() string   { return "function" }

func (cl *ObjClosure) trace(mark func(Obj)) {
	if cl.Function != nil {
		mark(cl.Function)
	}
	for _, uv := range cl.Upvalues {
		if uv != nil {
			mark(uv)
		}
	}
}

// Runtime is the view of the interpreter exposed to native functions: the
// heap and interner for allocation, the core class store, and the standard
// output the print builtin writes to.
type Runtime interface {
	Heap() *Heap
	Interner() *Interner
	Classes() *ClassStore
	Output() io.Writer
}

// NativeFn is a function implemented by the embedder. It receives the
// receiver (when invoked as a method) followed by the call arguments; the
// returned value replaces the whole call window. A returned error aborts
// execution like a machine-detected fault.
type NativeFn func(rt Runtime, args []Value) (Value, error)

// ObjNative wraps a NativeFn as a callable heap value.
type ObjNative struct {
	header
	Name *ObjString
	Fn   NativeFn
}

// NewNative allocates a native function value.
func NewNative(h *Heap, name *ObjString, fn NativeFn) *ObjNative {
	n := &ObjNative{Name: name, Fn: fn}
	h.allocate(n, sizeNative)
	return n
}

func (n *ObjNative) String() string { return "<native fn>" }
func (n *ObjNative) Type() string   { return "function" }

func (n *ObjNative) trace(mark func(Obj)) {
	if n.Name != nil {
		mark(n.Name)
	}
}
