package types_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mna/nymphea/lang/types"
)

func TestTruth(t *testing.T) {
	assert.False(t, types.Truth(types.Nil))
	assert.False(t, types.Truth(types.False))
	assert.True(t, types.Truth(types.True))
	assert.True(t, types.Truth(types.Number(0)))
	assert.True(t, types.Truth(types.Sentinel))

	h := types.NewHeap()
	in := types.NewInterner(h)
	assert.True(t, types.Truth(in.Intern("")))
}

func TestEqual(t *testing.T) {
	h := types.NewHeap()
	in := types.NewInterner(h)

	assert.True(t, types.Equal(types.Number(1), types.Number(1)))
	assert.False(t, types.Equal(types.Number(1), types.Number(2)))
	assert.False(t, types.Equal(types.Number(1), types.True))
	assert.True(t, types.Equal(types.True, types.True))
	assert.True(t, types.Equal(types.Nil, types.Nil))
	assert.True(t, types.Equal(types.Sentinel, types.Sentinel))
	assert.False(t, types.Equal(types.Nil, types.Sentinel))

	nan := types.Number(math.NaN())
	assert.False(t, types.Equal(nan, nan))

	// strings compare by identity, sound because they are interned
	assert.True(t, types.Equal(in.Intern("a"), in.Intern("a")))
	assert.False(t, types.Equal(in.Intern("a"), in.Intern("b")))

	v1 := types.NewVec(h, nil)
	v2 := types.NewVec(h, nil)
	assert.True(t, types.Equal(v1, v1))
	assert.False(t, types.Equal(v1, v2))
}

func TestNumberString(t *testing.T) {
	assert.Equal(t, "3", types.Number(3).String())
	assert.Equal(t, "2.5", types.Number(2.5).String())
	assert.Equal(t, "0.5", types.Number(0.5).String())
	assert.Equal(t, "-1", types.Number(-1).String())
}

func TestNumberIsInt(t *testing.T) {
	assert.True(t, types.Number(3).IsInt())
	assert.True(t, types.Number(-2).IsInt())
	assert.False(t, types.Number(2.5).IsInt())
}

func TestVecString(t *testing.T) {
	h := types.NewHeap()
	v := types.NewVec(h, nil)
	assert.Equal(t, "[]", v.String())

	v.Elements = append(v.Elements, types.Number(1), types.Number(2))
	assert.Equal(t, "[1, 2]", v.String())

	v.Elements = append(v.Elements, v)
	assert.Equal(t, "[1, 2, [...]]", v.String())
}

func TestRangeBounded(t *testing.T) {
	h := types.NewHeap()
	r := types.NewRange(h, nil, 1, 3)
	begin, end, ok := r.Bounded(5)
	assert.True(t, ok)
	assert.Equal(t, 1, begin)
	assert.Equal(t, 3, end)

	neg := types.NewRange(h, nil, -3, -1)
	begin, end, ok = neg.Bounded(5)
	assert.True(t, ok)
	assert.Equal(t, 2, begin)
	assert.Equal(t, 4, end)

	_, _, ok = types.NewRange(h, nil, 0, 9).Bounded(5)
	assert.False(t, ok)
}
