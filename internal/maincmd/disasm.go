package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/nymphea/lang/compiler"
	"github.com/mna/nymphea/lang/machine"
	"github.com/mna/nymphea/lang/types"
)

// Disasm compiles each script file and prints the bytecode of the top-level
// function and every function nested in its constant pools.
func (c *Cmd) Disasm(_ context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := c.machineConfig(stdio)
	if err != nil {
		return err
	}

	for _, file := range args {
		b, err := os.ReadFile(file)
		if err != nil {
			return printError(stdio, err)
		}

		vm := machine.New(cfg)
		fn, err := compiler.Compile(string(b), vm.Heap(), vm.Interner())
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err.Error())
			return err
		}
		disasmFunc(stdio, fn, file)
	}
	return nil
}

func disasmFunc(stdio mainer.Stdio, fn *types.ObjFunction, name string) {
	if fn.Name != nil && fn.Name.Str() != "" {
		name = fn.Name.Str()
	}
	types.Disassemble(stdio.Stdout, &fn.Chunk, name)
	for _, v := range fn.Chunk.Constants {
		if nested, ok := v.(*types.ObjFunction); ok {
			disasmFunc(stdio, nested, name)
		}
	}
}
