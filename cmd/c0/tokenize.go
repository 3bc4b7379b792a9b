package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cursive0/internal/diag"
	"cursive0/internal/lexer"
	"cursive0/internal/source"
)

func tokenizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize <file>",
		Short: "Dump the token stream for one source file (debugging aid)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := source.NewFileSet()
			id, warns, err := fs.Load(args[0])
			for _, w := range warns {
				fmt.Fprintf(os.Stderr, "%s: %s\n", w.Code, w.Msg)
			}
			if err != nil {
				return err
			}
			toks, diags := lexer.Tokenize(fs, id)
			for _, t := range toks {
				lc := fs.Locate(id, t.Span.Start)
				fmt.Printf("%4d:%-3d %-4d %q\n", lc.Line, lc.Col, t.Kind, t.Text)
			}
			for _, d := range diags {
				fmt.Fprintln(os.Stderr, diag.Render(fs, d))
			}
			if diag.NewStream().EmitAll(diags).HasError() {
				return fmt.Errorf("tokenize failed")
			}
			return nil
		},
	}
}
