package machine

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mna/nymphea/lang/types"
)

// bindCore builds the base metaclass and the classes of the built-in types,
// binds their native methods, and defines the global functions every
// program sees. The metaclass arrangement is unified: every class dispatches
// static calls through the shared Type metaclass.
func bindCore(vm *VM) {
	h := vm.heap
	in := vm.interner
	cs := vm.classes

	meta := types.NewClass(h, in.Intern("Type"), nil)
	meta.Metaclass = meta
	cs.BaseMetaclass = meta

	cs.String = types.NewClass(h, in.Intern("String"), meta)
	cs.StringIter = types.NewClass(h, in.Intern("StringIter"), meta)
	cs.Vec = types.NewClass(h, in.Intern("Vec"), meta)
	cs.VecIter = types.NewClass(h, in.Intern("VecIter"), meta)
	cs.Range = types.NewClass(h, in.Intern("Range"), meta)
	cs.RangeIter = types.NewClass(h, in.Intern("RangeIter"), meta)
	cs.HashMap = types.NewClass(h, in.Intern("HashMap"), meta)
	cs.MapIter = types.NewClass(h, in.Intern("MapIter"), meta)
	cs.Tuple = types.NewClass(h, in.Intern("Tuple"), meta)
	in.SetStringClass(cs.String)

	bind := func(c *types.ObjClass, name string, fn types.NativeFn) {
		s := in.Intern(name)
		c.AddMethod(s, types.NewNative(h, s, fn))
	}

	bind(meta, "name", className)

	bind(cs.String, "init", stringInit)
	bind(cs.String, "len", stringLen)
	bind(cs.String, "count_chars", stringCountChars)
	bind(cs.String, "__getitem__", stringGetItem)
	bind(cs.String, "__iter__", stringIter)
	bind(cs.StringIter, "__next__", stringIterNext)
	bind(cs.StringIter, "__iter__", iterSelf)

	bind(cs.Vec, "init", vecInit)
	bind(cs.Vec, "push", vecPush)
	bind(cs.Vec, "pop", vecPop)
	bind(cs.Vec, "len", vecLen)
	bind(cs.Vec, "__getitem__", vecGetItem)
	bind(cs.Vec, "__setitem__", vecSetItem)
	bind(cs.Vec, "__iter__", vecIter)
	bind(cs.VecIter, "__next__", vecIterNext)
	bind(cs.VecIter, "__iter__", iterSelf)

	bind(cs.Range, "init", rangeInit)
	bind(cs.Range, "len", rangeLen)
	bind(cs.Range, "__iter__", rangeIter)
	bind(cs.RangeIter, "__next__", rangeIterNext)
	bind(cs.RangeIter, "__iter__", iterSelf)

	bind(cs.HashMap, "init", hashMapInit)
	bind(cs.HashMap, "len", hashMapLen)
	bind(cs.HashMap, "has", hashMapHas)
	bind(cs.HashMap, "__getitem__", hashMapGetItem)
	bind(cs.HashMap, "__setitem__", hashMapSetItem)
	bind(cs.HashMap, "__iter__", hashMapIter)
	bind(cs.MapIter, "__next__", mapIterNext)
	bind(cs.MapIter, "__iter__", iterSelf)

	bind(cs.Tuple, "init", tupleInit)
	bind(cs.Tuple, "len", tupleLen)
	bind(cs.Tuple, "__getitem__", tupleGetItem)

	vm.DefineNative("clock", clockNative)
	vm.DefineNative("print", printNative)
	vm.DefineNative("type", typeNative)
	vm.DefineNative("sentinel", sentinelNative)

	vm.DefineGlobal("String", cs.String)
	vm.DefineGlobal("StringIter", cs.StringIter)
	vm.DefineGlobal("Vec", cs.Vec)
	vm.DefineGlobal("VecIter", cs.VecIter)
	vm.DefineGlobal("Range", cs.Range)
	vm.DefineGlobal("RangeIter", cs.RangeIter)
	vm.DefineGlobal("HashMap", cs.HashMap)
	vm.DefineGlobal("MapIter", cs.MapIter)
	vm.DefineGlobal("Tuple", cs.Tuple)
}

// checkArgs validates the argument count of a native call; args[0] is the
// receiver (or the callee for plain function calls) and does not count.
func checkArgs(args []types.Value, want int) error {
	if got := len(args) - 1; got != want {
		return NewError(RuntimeError,
			fmt.Sprintf("Expected %d arguments but got %d.", want, got))
	}
	return nil
}

// boundedIndex validates an integral index against a sequence length,
// normalising negative indices from the end.
func boundedIndex(v types.Value, limit int, what string) (int, error) {
	n, ok := v.(types.Number)
	if !ok || !n.IsInt() {
		return 0, NewError(TypeError, fmt.Sprintf("%s index must be an integer.", what))
	}
	i := int(n)
	if i < 0 {
		i += limit
	}
	if i < 0 || i >= limit {
		return 0, NewError(IndexError, fmt.Sprintf("%s index out of range.", what))
	}
	return i, nil
}

// ----- global functions -----

func clockNative(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	return types.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

func printNative(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 1); err != nil {
		return nil, err
	}
	fmt.Fprintln(rt.Output(), args[1])
	return types.Nil, nil
}

func typeNative(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 1); err != nil {
		return nil, err
	}
	return rt.Interner().Intern(args[1].Type()), nil
}

func sentinelNative(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	return types.Sentinel, nil
}

// ----- metaclass -----

func className(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	c, ok := args[0].(*types.ObjClass)
	if !ok {
		return nil, NewError(TypeError, "Receiver must be a class.")
	}
	if c.Name == nil {
		return rt.Interner().Intern(""), nil
	}
	return c.Name, nil
}

// ----- iterators -----

func iterSelf(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	return args[0], nil
}

// ----- String -----

func asString(v types.Value) (*types.ObjString, error) {
	s, ok := v.(*types.ObjString)
	if !ok {
		return nil, NewError(TypeError, "Receiver must be a string.")
	}
	return s, nil
}

func stringInit(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 1); err != nil {
		return nil, err
	}
	if s, ok := args[1].(*types.ObjString); ok {
		return s, nil
	}
	return rt.Interner().Intern(args[1].String()), nil
}

func stringLen(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	s, err := asString(args[0])
	if err != nil {
		return nil, err
	}
	return types.Number(len(s.Str())), nil
}

func stringCountChars(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	s, err := asString(args[0])
	if err != nil {
		return nil, err
	}
	return types.Number(utf8.RuneCountInString(s.Str())), nil
}

func stringGetItem(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 1); err != nil {
		return nil, err
	}
	s, err := asString(args[0])
	if err != nil {
		return nil, err
	}
	str := s.Str()

	if r, ok := args[1].(*types.ObjRange); ok {
		begin, end, ok := r.Bounded(len(str))
		if !ok {
			return nil, NewError(IndexError, "String slice out of range.")
		}
		if !boundaryAt(str, begin) || !boundaryAt(str, end) {
			return nil, NewError(ValueError, "String slice not on a character boundary.")
		}
		return rt.Interner().Intern(str[begin:end]), nil
	}

	i, err := boundedIndex(args[1], len(str), "String")
	if err != nil {
		return nil, err
	}
	if !boundaryAt(str, i) {
		return nil, NewError(ValueError, "String index not on a character boundary.")
	}
	_, w := utf8.DecodeRuneInString(str[i:])
	return rt.Interner().Intern(str[i : i+w]), nil
}

func boundaryAt(s string, i int) bool {
	return i == 0 || i == len(s) || utf8.RuneStart(s[i])
}

func stringIter(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	s, err := asString(args[0])
	if err != nil {
		return nil, err
	}
	return types.NewStringIter(rt.Heap(), rt.Classes().StringIter, s), nil
}

func stringIterNext(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	it, ok := args[0].(*types.ObjStringIter)
	if !ok {
		return nil, NewError(TypeError, "Receiver must be a string iterator.")
	}
	begin, end, ok := it.NextRange()
	if !ok {
		return types.Sentinel, nil
	}
	return rt.Interner().Intern(it.Iterable.Str()[begin:end]), nil
}

// ----- Vec -----

func asVec(v types.Value) (*types.ObjVec, error) {
	vec, ok := v.(*types.ObjVec)
	if !ok {
		return nil, NewError(TypeError, "Receiver must be a Vec.")
	}
	return vec, nil
}

func vecInit(rt types.Runtime, args []types.Value) (types.Value, error) {
	v := types.NewVec(rt.Heap(), rt.Classes().Vec)
	v.Elements = append([]types.Value(nil), args[1:]...)
	return v, nil
}

func vecPush(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 1); err != nil {
		return nil, err
	}
	v, err := asVec(args[0])
	if err != nil {
		return nil, err
	}
	v.Elements = append(v.Elements, args[1])
	return v, nil
}

func vecPop(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	v, err := asVec(args[0])
	if err != nil {
		return nil, err
	}
	if len(v.Elements) == 0 {
		return nil, NewError(IndexError, "Cannot pop from an empty Vec.")
	}
	last := v.Elements[len(v.Elements)-1]
	v.Elements = v.Elements[:len(v.Elements)-1]
	return last, nil
}

func vecLen(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	v, err := asVec(args[0])
	if err != nil {
		return nil, err
	}
	return types.Number(len(v.Elements)), nil
}

func vecGetItem(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 1); err != nil {
		return nil, err
	}
	v, err := asVec(args[0])
	if err != nil {
		return nil, err
	}

	if r, ok := args[1].(*types.ObjRange); ok {
		begin, end, ok := r.Bounded(len(v.Elements))
		if !ok {
			return nil, NewError(IndexError, "Vec slice out of range.")
		}
		slice := types.NewVec(rt.Heap(), v.Class)
		slice.Elements = append([]types.Value(nil), v.Elements[begin:end]...)
		return slice, nil
	}

	i, err := boundedIndex(args[1], len(v.Elements), "Vec")
	if err != nil {
		return nil, err
	}
	return v.Elements[i], nil
}

func vecSetItem(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 2); err != nil {
		return nil, err
	}
	v, err := asVec(args[0])
	if err != nil {
		return nil, err
	}
	i, err := boundedIndex(args[1], len(v.Elements), "Vec")
	if err != nil {
		return nil, err
	}
	v.Elements[i] = args[2]
	return args[2], nil
}

func vecIter(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	v, err := asVec(args[0])
	if err != nil {
		return nil, err
	}
	return types.NewVecIter(rt.Heap(), rt.Classes().VecIter, v), nil
}

func vecIterNext(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	it, ok := args[0].(*types.ObjVecIter)
	if !ok {
		return nil, NewError(TypeError, "Receiver must be a Vec iterator.")
	}
	return it.NextValue(), nil
}

// ----- Range -----

func asRange(v types.Value) (*types.ObjRange, error) {
	r, ok := v.(*types.ObjRange)
	if !ok {
		return nil, NewError(TypeError, "Receiver must be a Range.")
	}
	return r, nil
}

func rangeInit(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 2); err != nil {
		return nil, err
	}
	lo, lok := args[1].(types.Number)
	hi, hok := args[2].(types.Number)
	if !lok || !hok || !lo.IsInt() || !hi.IsInt() {
		return nil, NewError(TypeError, "Range bounds must be integers.")
	}
	return types.NewRange(rt.Heap(), rt.Classes().Range, int(lo), int(hi)), nil
}

func rangeLen(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	r, err := asRange(args[0])
	if err != nil {
		return nil, err
	}
	return types.Number(r.Len()), nil
}

func rangeIter(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	r, err := asRange(args[0])
	if err != nil {
		return nil, err
	}
	return types.NewRangeIter(rt.Heap(), rt.Classes().RangeIter, r), nil
}

func rangeIterNext(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	it, ok := args[0].(*types.ObjRangeIter)
	if !ok {
		return nil, NewError(TypeError, "Receiver must be a Range iterator.")
	}
	return it.NextValue(), nil
}

// ----- HashMap -----

func asHashMap(v types.Value) (*types.ObjHashMap, error) {
	m, ok := v.(*types.ObjHashMap)
	if !ok {
		return nil, NewError(TypeError, "Receiver must be a HashMap.")
	}
	return m, nil
}

func hashMapInit(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	return types.NewHashMap(rt.Heap(), rt.Classes().HashMap), nil
}

func hashMapLen(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	m, err := asHashMap(args[0])
	if err != nil {
		return nil, err
	}
	return types.Number(m.Len()), nil
}

func hashMapHas(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 1); err != nil {
		return nil, err
	}
	m, err := asHashMap(args[0])
	if err != nil {
		return nil, err
	}
	return types.Bool(m.Has(args[1])), nil
}

func hashMapGetItem(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 1); err != nil {
		return nil, err
	}
	m, err := asHashMap(args[0])
	if err != nil {
		return nil, err
	}
	v, ok := m.Get(args[1])
	if !ok {
		return nil, NewError(IndexError, "Key not found.")
	}
	return v, nil
}

func hashMapSetItem(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 2); err != nil {
		return nil, err
	}
	m, err := asHashMap(args[0])
	if err != nil {
		return nil, err
	}
	m.Put(args[1], args[2])
	return args[2], nil
}

func hashMapIter(rt types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	m, err := asHashMap(args[0])
	if err != nil {
		return nil, err
	}
	return types.NewMapIter(rt.Heap(), rt.Classes().MapIter, m), nil
}

func mapIterNext(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	it, ok := args[0].(*types.ObjMapIter)
	if !ok {
		return nil, NewError(TypeError, "Receiver must be a HashMap iterator.")
	}
	return it.NextValue(), nil
}

// ----- Tuple -----

func asTuple(v types.Value) (*types.ObjTuple, error) {
	t, ok := v.(*types.ObjTuple)
	if !ok {
		return nil, NewError(TypeError, "Receiver must be a Tuple.")
	}
	return t, nil
}

func tupleInit(rt types.Runtime, args []types.Value) (types.Value, error) {
	elems := append([]types.Value(nil), args[1:]...)
	return types.NewTuple(rt.Heap(), rt.Classes().Tuple, elems), nil
}

func tupleLen(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 0); err != nil {
		return nil, err
	}
	t, err := asTuple(args[0])
	if err != nil {
		return nil, err
	}
	return types.Number(len(t.Elements)), nil
}

func tupleGetItem(_ types.Runtime, args []types.Value) (types.Value, error) {
	if err := checkArgs(args, 1); err != nil {
		return nil, err
	}
	t, err := asTuple(args[0])
	if err != nil {
		return nil, err
	}
	i, err := boundedIndex(args[1], len(t.Elements), "Tuple")
	if err != nil {
		return nil, err
	}
	return t.Elements[i], nil
}
