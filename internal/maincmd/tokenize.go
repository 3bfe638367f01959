package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/nymphea/lang/scanner"
	"github.com/mna/nymphea/lang/token"
)

// Tokenize prints the token stream of each script file.
func (c *Cmd) Tokenize(_ context.Context, stdio mainer.Stdio, args []string) error {
	for _, file := range args {
		b, err := os.ReadFile(file)
		if err != nil {
			return printError(stdio, err)
		}

		var s scanner.Scanner
		s.Init(string(b))
		for {
			tok := s.Scan()
			fmt.Fprintf(stdio.Stdout, "%s:%d: %s %q\n", file, tok.Line, tok.Kind, tok.Lit)
			if tok.Kind == token.EOF {
				break
			}
		}
	}
	return nil
}
