// Package machine implements the virtual machine that executes the
// bytecode-compiled form of the source code: a register-less stack
// interpreter with call frames, shared upvalues, single-inheritance classes
// and native functions, running over a garbage-collected heap.
package machine

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dolthub/swiss"
	"github.com/mna/nymphea/lang/bytecode"
	"github.com/mna/nymphea/lang/compiler"
	"github.com/mna/nymphea/lang/types"
)

const (
	framesMax = 64
	localsMax = 256
	stackMax  = framesMax * localsMax
)

// callFrame records one active invocation: the closure being run, the
// instruction pointer into its chunk, and the stack index of slot zero (the
// callee, or the receiver for methods).
type callFrame struct {
	closure  *types.ObjClosure
	ip       int
	slotBase int
}

// VM is a nymphea virtual machine. A zero VM is not usable; create one with
// New.
type VM struct {
	// Stdout and Stderr are the machine's output streams. If nil, os.Stdout
	// and os.Stderr are used.
	Stdout io.Writer
	Stderr io.Writer

	heap     *types.Heap
	interner *types.Interner
	classes  *types.ClassStore

	frames       []callFrame
	stack        []types.Value
	globals      *swiss.Map[*types.ObjString, types.Value]
	openUpvalues []*types.ObjUpvalue

	initString *types.ObjString
}

// New returns a machine with the core library bound as globals.
func New(cfg Config) *VM {
	heap := types.NewHeap()
	heap.Stress = cfg.GCStress
	if cfg.GCInitThreshold > 0 {
		heap.SetThreshold(cfg.GCInitThreshold)
	}
	if cfg.GCGrowthFactor > 1 {
		heap.Growth = cfg.GCGrowthFactor
	}

	vm := &VM{
		heap:    heap,
		classes: &types.ClassStore{},
		frames:  make([]callFrame, 0, framesMax),
		stack:   make([]types.Value, 0, stackMax),
		globals: swiss.NewMap[*types.ObjString, types.Value](32),
	}
	heap.AddRoots(vm)
	heap.AddRoots(vm.classes)
	vm.interner = types.NewInterner(heap)
	vm.initString = vm.interner.Intern("init")

	if cfg.GCTrace {
		heap.TraceTo = vm.stderr()
	}

	bindCore(vm)
	return vm
}

// Heap returns the machine's heap.
func (vm *VM) Heap() *types.Heap { return vm.heap }

// Interner returns the machine's string interner.
func (vm *VM) Interner() *types.Interner { return vm.interner }

// Classes returns the classes of the built-in types.
func (vm *VM) Classes() *types.ClassStore { return vm.classes }

// Output returns the machine's output stream.
func (vm *VM) Output() io.Writer {
	if vm.Stdout != nil {
		return vm.Stdout
	}
	return os.Stdout
}

func (vm *VM) stderr() io.Writer {
	if vm.Stderr != nil {
		return vm.Stderr
	}
	return os.Stderr
}

// TraceRoots marks the execution state: the value stack, the frame stack,
// the globals and the open-upvalue list.
func (vm *VM) TraceRoots(mark func(types.Obj)) {
	for _, v := range vm.stack {
		if o, ok := v.(types.Obj); ok {
			mark(o)
		}
	}
	for i := range vm.frames {
		mark(vm.frames[i].closure)
	}
	vm.globals.Iter(func(name *types.ObjString, v types.Value) bool {
		mark(name)
		if o, ok := v.(types.Obj); ok {
			mark(o)
		}
		return false
	})
	for _, uv := range vm.openUpvalues {
		mark(uv)
	}
}

// Interpret compiles and runs source. Compile errors are returned as a
// *compiler.Error without executing anything; runtime faults as a *Error
// after printing the traceback.
func (vm *VM) Interpret(source string) error {
	fn, err := compiler.Compile(source, vm.heap, vm.interner)
	if err != nil {
		return err
	}
	return vm.Run(fn)
}

// Run executes a compiled top-level function.
func (vm *VM) Run(fn *types.ObjFunction) error {
	root := vm.heap.NewRoot(fn)
	defer root.Release()

	closure := types.NewClosure(vm.heap, fn)
	vm.push(closure)
	if err := vm.callClosure(closure, 0); err != nil {
		return err
	}
	return vm.run()
}

// DefineGlobal binds a value under name, replacing any previous binding.
// The embedder uses it to expose additional natives before running code.
func (vm *VM) DefineGlobal(name string, v types.Value) {
	vm.globals.Put(vm.interner.Intern(name), v)
}

// DefineNative binds a native function as a global.
func (vm *VM) DefineNative(name string, fn types.NativeFn) {
	s := vm.interner.Intern(name)
	vm.globals.Put(s, types.NewNative(vm.heap, s, fn))
}

// ----- stack -----

func (vm *VM) push(v types.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() types.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek(distance int) types.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) resetStack() {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.openUpvalues = vm.openUpvalues[:0]
}

// ----- errors -----

// runtimeError prints the message and a stack trace to the error stream,
// clears the execution state and returns the fault.
func (vm *VM) runtimeError(kind Kind, format string, args ...any) *Error {
	e := &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
	e.Traceback = append(e.Traceback, e.Message)

	for i := len(vm.frames) - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		fn := fr.closure.Function
		line := fn.Chunk.Lines[fr.ip-1]
		name := "script"
		if fn.Name != nil && fn.Name.Str() != "" {
			name = fn.Name.Str() + "()"
		}
		e.Traceback = append(e.Traceback, fmt.Sprintf("[line %d] in %s", line, name))
	}

	fmt.Fprintln(vm.stderr(), strings.Join(e.Traceback, "\n"))
	vm.resetStack()
	return e
}

// nativeError converts a fault returned by a native function, preserving
// its kind when it already is a machine error.
func (vm *VM) nativeError(err error) *Error {
	if e, ok := err.(*Error); ok {
		return vm.runtimeError(e.Kind, "%s", e.Message)
	}
	return vm.runtimeError(RuntimeError, "%s", err.Error())
}

// ----- dispatch -----

func (vm *VM) frame() *callFrame {
	return &vm.frames[len(vm.frames)-1]
}

func (vm *VM) readByte(frame *callFrame) byte {
	b := frame.closure.Function.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *callFrame) int {
	code := frame.closure.Function.Chunk.Code
	v := int(code[frame.ip])<<8 | int(code[frame.ip+1])
	frame.ip += 2
	return v
}

func (vm *VM) readConstant(frame *callFrame) types.Value {
	return frame.closure.Function.Chunk.Constants[vm.readByte(frame)]
}

func (vm *VM) readString(frame *callFrame) *types.ObjString {
	return vm.readConstant(frame).(*types.ObjString)
}

func (vm *VM) run() error {
	frame := vm.frame()

	for {
		op := bytecode.Opcode(vm.readByte(frame))
		switch op {
		case bytecode.CONSTANT:
			vm.push(vm.readConstant(frame))

		case bytecode.NIL:
			vm.push(types.Nil)

		case bytecode.TRUE:
			vm.push(types.True)

		case bytecode.FALSE:
			vm.push(types.False)

		case bytecode.POP:
			vm.pop()

		case bytecode.GETLOCAL:
			slot := int(vm.readByte(frame))
			vm.push(vm.stack[frame.slotBase+slot])

		case bytecode.SETLOCAL:
			slot := int(vm.readByte(frame))
			vm.stack[frame.slotBase+slot] = vm.peek(0)

		case bytecode.GETGLOBAL:
			name := vm.readString(frame)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError(RuntimeError, "Undefined variable '%s'.", name.Str())
			}
			vm.push(v)

		case bytecode.DEFGLOBAL:
			name := vm.readString(frame)
			vm.globals.Put(name, vm.peek(0))
			vm.pop()

		case bytecode.SETGLOBAL:
			name := vm.readString(frame)
			if !vm.globals.Has(name) {
				return vm.runtimeError(RuntimeError, "Undefined variable '%s'.", name.Str())
			}
			vm.globals.Put(name, vm.peek(0))

		case bytecode.GETUPVAL:
			uv := frame.closure.Upvalues[vm.readByte(frame)]
			if uv.Open {
				vm.push(vm.stack[uv.Slot])
			} else {
				vm.push(uv.Closed)
			}

		case bytecode.SETUPVAL:
			uv := frame.closure.Upvalues[vm.readByte(frame)]
			if uv.Open {
				vm.stack[uv.Slot] = vm.peek(0)
			} else {
				uv.Closed = vm.peek(0)
			}

		case bytecode.GETPROP:
			name := vm.readString(frame)
			if err := vm.getProperty(name); err != nil {
				return err
			}

		case bytecode.SETPROP:
			name := vm.readString(frame)
			inst, ok := vm.peek(1).(*types.ObjInstance)
			if !ok {
				return vm.runtimeError(TypeError, "Only instances have fields.")
			}
			inst.SetField(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case bytecode.GETSUPER:
			name := vm.readString(frame)
			super := vm.pop().(*types.ObjClass)
			method, ok := super.Method(name)
			if !ok {
				return vm.runtimeError(AttributeError, "Undefined property '%s'.", name.Str())
			}
			bound := types.NewBoundMethod(vm.heap, vm.peek(0), method)
			vm.stack[len(vm.stack)-1] = bound

		case bytecode.EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(types.Bool(types.Equal(a, b)))

		case bytecode.GREATER:
			a, b, ok := vm.popNumericOperands()
			if !ok {
				return vm.runtimeError(TypeError, "Operands must be numbers.")
			}
			vm.push(types.Bool(a > b))

		case bytecode.LESS:
			a, b, ok := vm.popNumericOperands()
			if !ok {
				return vm.runtimeError(TypeError, "Operands must be numbers.")
			}
			vm.push(types.Bool(a < b))

		case bytecode.ADD:
			if err := vm.add(); err != nil {
				return err
			}

		case bytecode.SUBTRACT:
			a, b, ok := vm.popNumericOperands()
			if !ok {
				return vm.runtimeError(TypeError, "Operands must be numbers.")
			}
			vm.push(a - b)

		case bytecode.MULTIPLY:
			a, b, ok := vm.popNumericOperands()
			if !ok {
				return vm.runtimeError(TypeError, "Operands must be numbers.")
			}
			vm.push(a * b)

		case bytecode.DIVIDE:
			// division by zero yields IEEE-754 infinities and NaN
			a, b, ok := vm.popNumericOperands()
			if !ok {
				return vm.runtimeError(TypeError, "Operands must be numbers.")
			}
			vm.push(a / b)

		case bytecode.NOT:
			vm.push(types.Bool(!types.Truth(vm.pop())))

		case bytecode.NEGATE:
			n, ok := vm.peek(0).(types.Number)
			if !ok {
				return vm.runtimeError(TypeError, "Operand must be a number.")
			}
			vm.stack[len(vm.stack)-1] = -n

		case bytecode.JUMP:
			offset := vm.readShort(frame)
			frame.ip += offset

		case bytecode.JUMPIFFALSE:
			offset := vm.readShort(frame)
			if !types.Truth(vm.peek(0)) {
				frame.ip += offset
			}

		case bytecode.LOOP:
			offset := vm.readShort(frame)
			frame.ip -= offset

		case bytecode.CALL:
			argCount := int(vm.readByte(frame))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = vm.frame()

		case bytecode.INVOKE:
			name := vm.readString(frame)
			argCount := int(vm.readByte(frame))
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
			frame = vm.frame()

		case bytecode.SUPERINVOKE:
			name := vm.readString(frame)
			argCount := int(vm.readByte(frame))
			super := vm.pop().(*types.ObjClass)
			if err := vm.invokeFromClass(super, name, argCount); err != nil {
				return err
			}
			frame = vm.frame()

		case bytecode.CLOSURE:
			fn := vm.readConstant(frame).(*types.ObjFunction)
			closure := types.NewClosure(vm.heap, fn)
			vm.push(closure)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame) != 0
				index := int(vm.readByte(frame))
				if isLocal {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slotBase + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}

		case bytecode.CLOSEUPVAL:
			vm.closeUpvalues(len(vm.stack) - 1)
			vm.pop()

		case bytecode.RETURN:
			result := vm.pop()
			vm.closeUpvalues(frame.slotBase)

			prevBase := frame.slotBase
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.pop()
				return nil
			}

			vm.stack = vm.stack[:prevBase]
			vm.push(result)
			frame = vm.frame()

		case bytecode.CLASS:
			name := vm.readString(frame)
			vm.push(types.NewClass(vm.heap, name, vm.classes.BaseMetaclass))

		case bytecode.INHERIT:
			super, ok := vm.peek(1).(*types.ObjClass)
			if !ok {
				return vm.runtimeError(TypeError, "Superclass must be a class.")
			}
			class := vm.peek(0).(*types.ObjClass)
			class.InheritFrom(super)
			vm.pop()

		case bytecode.METHOD:
			name := vm.readString(frame)
			method := vm.peek(0)
			class := vm.peek(1).(*types.ObjClass)
			class.AddMethod(name, method)
			vm.pop()

		case bytecode.MAKERANGE:
			hi, hok := vm.peek(0).(types.Number)
			lo, lok := vm.peek(1).(types.Number)
			if !hok || !lok || !hi.IsInt() || !lo.IsInt() {
				return vm.runtimeError(TypeError, "Range bounds must be integers.")
			}
			r := types.NewRange(vm.heap, vm.classes.Range, int(lo), int(hi))
			vm.pop()
			vm.pop()
			vm.push(r)

		case bytecode.BUILDSTRING:
			n := int(vm.readByte(frame))
			var sb strings.Builder
			for _, v := range vm.stack[len(vm.stack)-n:] {
				if s, ok := v.(*types.ObjString); ok {
					sb.WriteString(s.Str())
				} else {
					sb.WriteString(v.String())
				}
			}
			s := vm.interner.Intern(sb.String())
			vm.stack = vm.stack[:len(vm.stack)-n]
			vm.push(s)

		default:
			return vm.runtimeError(RuntimeError, "Unknown opcode %d.", byte(op))
		}
	}
}

func (vm *VM) popNumericOperands() (a, b types.Number, ok bool) {
	b, bok := vm.peek(0).(types.Number)
	a, aok := vm.peek(1).(types.Number)
	if !aok || !bok {
		return 0, 0, false
	}
	vm.pop()
	vm.pop()
	return a, b, true
}

func (vm *VM) add() error {
	switch b := vm.peek(0).(type) {
	case types.Number:
		if a, ok := vm.peek(1).(types.Number); ok {
			vm.pop()
			vm.pop()
			vm.push(a + b)
			return nil
		}
	case *types.ObjString:
		if a, ok := vm.peek(1).(*types.ObjString); ok {
			// interning may collect; operands stay rooted on the stack
			// until afterwards.
			s := vm.interner.Intern(a.Str() + b.Str())
			vm.pop()
			vm.pop()
			vm.push(s)
			return nil
		}
	}
	return vm.runtimeError(TypeError, "Operands must be two numbers or two strings.")
}

// ----- calls -----

func (vm *VM) callValue(callee types.Value, argCount int) error {
	switch callee := callee.(type) {
	case *types.ObjClosure:
		return vm.callClosure(callee, argCount)

	case *types.ObjClass:
		if init, ok := callee.Method(vm.initString); ok {
			switch init := init.(type) {
			case *types.ObjClosure:
				vm.stack[len(vm.stack)-argCount-1] = types.NewInstance(vm.heap, callee)
				return vm.callClosure(init, argCount)
			case *types.ObjNative:
				return vm.callNative(init, argCount)
			}
		}
		if argCount != 0 {
			return vm.runtimeError(RuntimeError, "Expected 0 arguments but got %d.", argCount)
		}
		vm.stack[len(vm.stack)-1] = types.NewInstance(vm.heap, callee)
		return nil

	case *types.ObjBoundMethod:
		vm.stack[len(vm.stack)-argCount-1] = callee.Receiver
		switch m := callee.Method.(type) {
		case *types.ObjClosure:
			return vm.callClosure(m, argCount)
		case *types.ObjNative:
			return vm.callNative(m, argCount)
		}

	case *types.ObjNative:
		return vm.callNative(callee, argCount)
	}
	return vm.runtimeError(TypeError, "Can only call functions and classes.")
}

func (vm *VM) callClosure(closure *types.ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError(RuntimeError, "Expected %d arguments but got %d.",
			closure.Function.Arity, argCount)
	}
	if len(vm.frames) == framesMax {
		return vm.runtimeError(RuntimeError, "Stack overflow.")
	}
	vm.frames = append(vm.frames, callFrame{
		closure:  closure,
		slotBase: len(vm.stack) - argCount - 1,
	})
	return nil
}

// callNative hands the native the slice [receiver, args...] and replaces
// that whole window with the returned value.
func (vm *VM) callNative(native *types.ObjNative, argCount int) error {
	frameStart := len(vm.stack) - argCount - 1
	result, err := native.Fn(vm, vm.stack[frameStart:])
	if err != nil {
		return vm.nativeError(err)
	}
	if result == nil {
		result = types.Nil
	}
	vm.stack = vm.stack[:frameStart]
	vm.push(result)
	return nil
}

func (vm *VM) invoke(name *types.ObjString, argCount int) error {
	receiver := vm.peek(argCount)

	if inst, ok := receiver.(*types.ObjInstance); ok {
		if field, ok := inst.Field(name); ok {
			vm.stack[len(vm.stack)-argCount-1] = field
			return vm.callValue(field, argCount)
		}
		return vm.invokeFromClass(inst.Class, name, argCount)
	}

	if class := vm.classOf(receiver); class != nil {
		return vm.invokeFromClass(class, name, argCount)
	}
	return vm.runtimeError(AttributeError, "Undefined property '%s'.", name.Str())
}

func (vm *VM) invokeFromClass(class *types.ObjClass, name *types.ObjString, argCount int) error {
	method, ok := class.Method(name)
	if !ok {
		return vm.runtimeError(AttributeError, "Undefined property '%s'.", name.Str())
	}
	switch m := method.(type) {
	case *types.ObjClosure:
		return vm.callClosure(m, argCount)
	case *types.ObjNative:
		return vm.callNative(m, argCount)
	}
	return vm.runtimeError(TypeError, "Can only call functions and classes.")
}

func (vm *VM) getProperty(name *types.ObjString) error {
	receiver := vm.peek(0)

	if inst, ok := receiver.(*types.ObjInstance); ok {
		if v, ok := inst.Field(name); ok {
			vm.stack[len(vm.stack)-1] = v
			return nil
		}
		if method, ok := inst.Class.Method(name); ok {
			bound := types.NewBoundMethod(vm.heap, receiver, method)
			vm.stack[len(vm.stack)-1] = bound
			return nil
		}
		return vm.runtimeError(AttributeError, "Undefined property '%s'.", name.Str())
	}

	if class := vm.classOf(receiver); class != nil {
		if method, ok := class.Method(name); ok {
			bound := types.NewBoundMethod(vm.heap, receiver, method)
			vm.stack[len(vm.stack)-1] = bound
			return nil
		}
		return vm.runtimeError(AttributeError, "Undefined property '%s'.", name.Str())
	}
	return vm.runtimeError(TypeError, "Only instances have properties.")
}

// classOf returns the class method lookup dispatches on for a non-instance
// receiver, or nil when the value has none. Classes dispatch on their
// metaclass, which is what gives them static methods.
func (vm *VM) classOf(v types.Value) *types.ObjClass {
	switch v := v.(type) {
	case *types.ObjString:
		return v.Class()
	case *types.ObjVec:
		return v.Class
	case *types.ObjVecIter:
		return v.Class
	case *types.ObjRange:
		return v.Class
	case *types.ObjRangeIter:
		return v.Class
	case *types.ObjStringIter:
		return v.Class
	case *types.ObjHashMap:
		return v.Class
	case *types.ObjMapIter:
		return v.Class
	case *types.ObjTuple:
		return v.Class
	case *types.ObjInstance:
		return v.Class
	case *types.ObjClass:
		return v.Metaclass
	}
	return nil
}

// ----- upvalues -----

// captureUpvalue returns the open upvalue over the given stack slot,
// creating one if no closure captured that slot yet. Sharing the object is
// what makes mutations through one closure visible through all.
func (vm *VM) captureUpvalue(slot int) *types.ObjUpvalue {
	for _, uv := range vm.openUpvalues {
		if uv.Open && uv.Slot == slot {
			return uv
		}
	}
	uv := types.NewUpvalue(vm.heap, slot)
	vm.openUpvalues = append(vm.openUpvalues, uv)
	return uv
}

// closeUpvalues closes every open upvalue at or above the given stack slot.
func (vm *VM) closeUpvalues(from int) {
	remaining := vm.openUpvalues[:0]
	for _, uv := range vm.openUpvalues {
		if uv.Open && uv.Slot >= from {
			uv.Close(vm.stack[uv.Slot])
		} else {
			remaining = append(remaining, uv)
		}
	}
	for i := len(remaining); i < len(vm.openUpvalues); i++ {
		vm.openUpvalues[i] = nil
	}
	vm.openUpvalues = remaining
}
