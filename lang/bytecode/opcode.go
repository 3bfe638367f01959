// Package bytecode defines the instruction set shared by the compiler, the
// disassembler and the virtual machine.
package bytecode

import "fmt"

type Opcode uint8

// "x ADD y" style stack pictures describe the state of the operand stack
// before and after execution of the instruction.
//
// OP<const> indicates an immediate operand that is an index into the current
// chunk's constant pool; OP<slot> a local stack slot; OP<upval> an upvalue
// index; OP<n> a count; OP<off> a 16-bit jump offset.
const ( //nolint:revive
	CONSTANT Opcode = iota // - CONSTANT<const> value
	NIL                    // - NIL nil
	TRUE                   // - TRUE true
	FALSE                  // - FALSE false
	POP                    // x POP -

	GETLOCAL   //     - GETLOCAL<slot>    value
	SETLOCAL   // value SETLOCAL<slot>    value
	GETGLOBAL  //     - GETGLOBAL<const>  value
	DEFGLOBAL  // value DEFGLOBAL<const>  -
	SETGLOBAL  // value SETGLOBAL<const>  value
	GETUPVAL   //     - GETUPVAL<upval>   value
	SETUPVAL   // value SETUPVAL<upval>   value
	GETPROP    //     x GETPROP<const>    value
	SETPROP    //   x y SETPROP<const>    y
	GETSUPER   // x cls GETSUPER<const>   method

	EQUAL    // x y EQUAL    bool
	GREATER  // x y GREATER  bool
	LESS     // x y LESS     bool
	ADD      // x y ADD      x+y
	SUBTRACT // x y SUBTRACT x-y
	MULTIPLY // x y MULTIPLY x*y
	DIVIDE   // x y DIVIDE   x/y
	NOT      //   x NOT      bool
	NEGATE   //   x NEGATE   -x

	JUMP        //    - JUMP<off>        -
	JUMPIFFALSE // cond JUMPIFFALSE<off> cond
	LOOP        //    - LOOP<off>        -      (backward jump)

	CALL        // fn a1..an CALL<n>                 result
	INVOKE      //  x a1..an INVOKE<const><n>        result
	SUPERINVOKE // x a1..an cls SUPERINVOKE<const><n> result

	CLOSURE      // - CLOSURE<const> {islocal,index}*  closure
	CLOSEUPVAL   // x CLOSEUPVAL -      (close topmost stack slot)
	RETURN       // x RETURN -

	CLASS   //          - CLASS<const>  class
	INHERIT // super sub INHERIT        super
	METHOD  // cls meth  METHOD<const>  cls

	MAKERANGE   // lo hi MAKERANGE      range
	BUILDSTRING // s1..sn BUILDSTRING<n> string

	opcodeMax
)

var opcodeNames = [...]string{
	CONSTANT:    "constant",
	NIL:         "nil",
	TRUE:        "true",
	FALSE:       "false",
	POP:         "pop",
	GETLOCAL:    "getlocal",
	SETLOCAL:    "setlocal",
	GETGLOBAL:   "getglobal",
	DEFGLOBAL:   "defglobal",
	SETGLOBAL:   "setglobal",
	GETUPVAL:    "getupval",
	SETUPVAL:    "setupval",
	GETPROP:     "getprop",
	SETPROP:     "setprop",
	GETSUPER:    "getsuper",
	EQUAL:       "equal",
	GREATER:     "greater",
	LESS:        "less",
	ADD:         "add",
	SUBTRACT:    "subtract",
	MULTIPLY:    "multiply",
	DIVIDE:      "divide",
	NOT:         "not",
	NEGATE:      "negate",
	JUMP:        "jump",
	JUMPIFFALSE: "jumpiffalse",
	LOOP:        "loop",
	CALL:        "call",
	INVOKE:      "invoke",
	SUPERINVOKE: "superinvoke",
	CLOSURE:     "closure",
	CLOSEUPVAL:  "closeupval",
	RETURN:      "return",
	CLASS:       "class",
	INHERIT:     "inherit",
	METHOD:      "method",
	MAKERANGE:   "makerange",
	BUILDSTRING: "buildstring",
}

func (op Opcode) String() string {
	if op < opcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", uint8(op))
}

// NumOpcodes returns the number of defined opcodes.
func NumOpcodes() int { return int(opcodeMax) }
