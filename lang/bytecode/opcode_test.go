package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodeNames(t *testing.T) {
	for op := CONSTANT; op < opcodeMax; op++ {
		require.NotEmpty(t, opcodeNames[op], "opcode %d has no name", uint8(op))
	}
	assert.Equal(t, "constant", CONSTANT.String())
	assert.Equal(t, "superinvoke", SUPERINVOKE.String())
	assert.Equal(t, "buildstring", BUILDSTRING.String())
}

func TestOpcodeStringIllegal(t *testing.T) {
	assert.Contains(t, Opcode(255).String(), "illegal op")
}
