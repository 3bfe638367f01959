package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/nymphea/lang/types"
)

type testRoots struct {
	objs []types.Obj
}

func (tr *testRoots) TraceRoots(mark func(types.Obj)) {
	for _, o := range tr.objs {
		mark(o)
	}
}

func TestCollectFreesUnreachable(t *testing.T) {
	h := types.NewHeap()
	types.NewVec(h, nil)
	types.NewVec(h, nil)
	require.Equal(t, 2, h.NumObjects())
	require.Greater(t, h.BytesAllocated(), 0)

	h.Collect()
	assert.Equal(t, 0, h.NumObjects())
	assert.Equal(t, 0, h.BytesAllocated())
}

func TestRootHandlePins(t *testing.T) {
	h := types.NewHeap()
	v := types.NewVec(h, nil)
	root := h.NewRoot(v)

	h.Collect()
	require.Equal(t, 1, h.NumObjects())

	root.Release()
	h.Collect()
	assert.Equal(t, 0, h.NumObjects())

	// releasing twice must not unroot another handle's pin
	root.Release()
}

func TestCollectTracesTransitively(t *testing.T) {
	h := types.NewHeap()
	inner := types.NewVec(h, nil)
	outer := types.NewVec(h, nil)
	outer.Elements = append(outer.Elements, inner)

	root := h.NewRoot(outer)
	defer root.Release()

	h.Collect()
	assert.Equal(t, 2, h.NumObjects())
}

func TestCollectWithRootSet(t *testing.T) {
	h := types.NewHeap()
	kept := types.NewVec(h, nil)
	types.NewVec(h, nil) // garbage

	tr := &testRoots{objs: []types.Obj{kept}}
	h.AddRoots(tr)
	h.Collect()
	require.Equal(t, 1, h.NumObjects())

	h.RemoveRoots(tr)
	h.Collect()
	assert.Equal(t, 0, h.NumObjects())
}

func TestCollectHandlesCycles(t *testing.T) {
	h := types.NewHeap()
	v := types.NewVec(h, nil)
	v.Elements = append(v.Elements, v)

	root := h.NewRoot(v)
	h.Collect()
	require.Equal(t, 1, h.NumObjects())

	root.Release()
	h.Collect()
	assert.Equal(t, 0, h.NumObjects())
}

func TestStressModeCollectsOnAllocation(t *testing.T) {
	h := types.NewHeap()
	h.Stress = true

	keep := types.NewVec(h, nil)
	root := h.NewRoot(keep)
	defer root.Release()

	for i := 0; i < 10; i++ {
		types.NewVec(h, nil)
	}
	// each allocation collected first, so at most the newest garbage vec
	// and the rooted one remain
	assert.LessOrEqual(t, h.NumObjects(), 2)
}

func TestInterning(t *testing.T) {
	h := types.NewHeap()
	in := types.NewInterner(h)

	a := in.Intern("hello")
	b := in.Intern("hello")
	c := in.Intern("world")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, "hello", a.Str())

	// interned strings are pinned by the interner's root set
	h.Collect()
	assert.Equal(t, 2, h.NumObjects())
}

func TestUpvalueLifecycle(t *testing.T) {
	h := types.NewHeap()
	uv := types.NewUpvalue(h, 3)
	require.True(t, uv.Open)
	require.Equal(t, 3, uv.Slot)

	uv.Close(types.Number(42))
	assert.False(t, uv.Open)
	assert.Equal(t, types.Number(42), uv.Closed)
}

func TestInheritanceSnapshot(t *testing.T) {
	h := types.NewHeap()
	in := types.NewInterner(h)

	parent := types.NewClass(h, in.Intern("A"), nil)
	greet := in.Intern("greet")
	parent.AddMethod(greet, types.NewNative(h, greet, nil))

	child := types.NewClass(h, in.Intern("B"), nil)
	child.InheritFrom(parent)
	require.Equal(t, 1, child.NumMethods())
	require.Same(t, parent, child.Superclass)

	// adding to the parent after the snapshot must not affect the child
	other := in.Intern("other")
	parent.AddMethod(other, types.NewNative(h, other, nil))
	assert.Equal(t, 2, parent.NumMethods())
	assert.Equal(t, 1, child.NumMethods())
	_, ok := child.Method(other)
	assert.False(t, ok)
}

func TestInstanceFields(t *testing.T) {
	h := types.NewHeap()
	in := types.NewInterner(h)

	class := types.NewClass(h, in.Intern("C"), nil)
	inst := types.NewInstance(h, class)

	name := in.Intern("x")
	_, ok := inst.Field(name)
	require.False(t, ok)

	inst.SetField(name, types.Number(1))
	v, ok := inst.Field(name)
	require.True(t, ok)
	assert.Equal(t, types.Number(1), v)
}
