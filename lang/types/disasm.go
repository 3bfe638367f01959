package types

import (
	"fmt"
	"io"

	"github.com/mna/nymphea/lang/bytecode"
)

// Disassemble writes a human-readable listing of the chunk to w.
func Disassemble(w io.Writer, c *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction writes one instruction and returns the offset of
// the next one.
func DisassembleInstruction(w io.Writer, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[offset])
	}

	op := bytecode.Opcode(c.Code[offset])
	switch op {
	case bytecode.CONSTANT, bytecode.GETGLOBAL, bytecode.DEFGLOBAL,
		bytecode.SETGLOBAL, bytecode.GETPROP, bytecode.SETPROP,
		bytecode.GETSUPER, bytecode.CLASS, bytecode.METHOD:
		return constantInstruction(w, c, op, offset)

	case bytecode.GETLOCAL, bytecode.SETLOCAL, bytecode.GETUPVAL,
		bytecode.SETUPVAL, bytecode.CALL, bytecode.BUILDSTRING:
		return byteInstruction(w, c, op, offset)

	case bytecode.JUMP, bytecode.JUMPIFFALSE:
		return jumpInstruction(w, c, op, 1, offset)
	case bytecode.LOOP:
		return jumpInstruction(w, c, op, -1, offset)

	case bytecode.INVOKE, bytecode.SUPERINVOKE:
		return invokeInstruction(w, c, op, offset)

	case bytecode.CLOSURE:
		return closureInstruction(w, c, offset)

	default:
		fmt.Fprintf(w, "%s\n", op)
		return offset + 1
	}
}

func constantInstruction(w io.Writer, c *Chunk, op bytecode.Opcode, offset int) int {
	index := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, index, c.Constants[index])
	return offset + 2
}

func byteInstruction(w io.Writer, c *Chunk, op bytecode.Opcode, offset int) int {
	fmt.Fprintf(w, "%-16s %4d\n", op, c.Code[offset+1])
	return offset + 2
}

func jumpInstruction(w io.Writer, c *Chunk, op bytecode.Opcode, sign, offset int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}

func invokeInstruction(w io.Writer, c *Chunk, op bytecode.Opcode, offset int) int {
	index := c.Code[offset+1]
	argCount := c.Code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %4d '%s'\n", op, argCount, index, c.Constants[index])
	return offset + 3
}

func closureInstruction(w io.Writer, c *Chunk, offset int) int {
	index := c.Code[offset+1]
	fn := c.Constants[index].(*ObjFunction)
	fmt.Fprintf(w, "%-16s %4d %s\n", bytecode.CLOSURE, index, fn)
	offset += 2
	for i := 0; i < fn.UpvalueCount; i++ {
		kind := "upvalue"
		if c.Code[offset] != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset, kind, c.Code[offset+1])
		offset += 2
	}
	return offset
}
