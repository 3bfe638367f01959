package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/nymphea/lang/compiler"
	"github.com/mna/nymphea/lang/machine"
)

func (c *Cmd) machineConfig(stdio mainer.Stdio) (machine.Config, error) {
	cfg, err := machine.ConfigFromEnv()
	if err != nil {
		return cfg, printError(stdio, err)
	}
	if c.GCStress {
		cfg.GCStress = true
	}
	if c.GCTrace {
		cfg.GCTrace = true
	}
	return cfg, nil
}

// Run compiles and executes each script file in its own machine.
func (c *Cmd) Run(_ context.Context, stdio mainer.Stdio, args []string) error {
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
		vm.Stdout = stdio.Stdout
		vm.Stderr = stdio.Stderr
		if err := vm.Interpret(string(b)); err != nil {
			// runtime faults already printed their traceback; compile
			// diagnostics have not been shown yet.
			if cerr, ok := err.(*compiler.Error); ok {
				fmt.Fprintln(stdio.Stderr, cerr.Error())
			}
			return err
		}
	}
	return nil
}
