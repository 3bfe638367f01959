package types

import "github.com/mna/nymphea/lang/bytecode"

// A Chunk is the bytecode buffer of one function: the encoded instruction
// stream, a parallel slice holding the source line of every byte, and the
// constant pool the instructions index into.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// Write appends one byte of code, mirroring the current source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op bytecode.Opcode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index. The
// compiler enforces the one-byte index limit and reports the diagnostic.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}
