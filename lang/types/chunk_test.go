package types_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/nymphea/lang/bytecode"
	"github.com/mna/nymphea/lang/types"
)

func TestChunkWriteMirrorsLines(t *testing.T) {
	var c types.Chunk
	c.WriteOp(bytecode.CONSTANT, 1)
	c.Write(0, 1)
	c.WriteOp(bytecode.RETURN, 2)

	require.Equal(t, len(c.Code), len(c.Lines))
	assert.Equal(t, []int{1, 1, 2}, c.Lines)
	assert.Equal(t, byte(bytecode.RETURN), c.Code[2])
}

func TestChunkAddConstant(t *testing.T) {
	var c types.Chunk
	assert.Equal(t, 0, c.AddConstant(types.Number(1)))
	assert.Equal(t, 1, c.AddConstant(types.Number(2)))
	assert.Equal(t, types.Number(2), c.Constants[1])
}

func TestDisassemble(t *testing.T) {
	var c types.Chunk
	c.Constants = append(c.Constants, types.Number(42))
	c.WriteOp(bytecode.CONSTANT, 1)
	c.Write(0, 1)
	c.WriteOp(bytecode.NIL, 1)
	c.WriteOp(bytecode.RETURN, 2)

	var buf bytes.Buffer
	types.Disassemble(&buf, &c, "test")
	out := buf.String()
	assert.Contains(t, out, "== test ==")
	assert.Contains(t, out, "constant")
	assert.Contains(t, out, "'42'")
	assert.Contains(t, out, "return")
}
