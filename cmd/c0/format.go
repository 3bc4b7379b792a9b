package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cursive0/internal/diag"
	"cursive0/internal/format"
	"cursive0/internal/parser"
	"cursive0/internal/source"
)

func formatCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "format <file>...",
		Short: "Pretty-print source files (stdout by default, -w rewrites in place)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, path := range args {
				fs := source.NewFileSet()
				id, _, err := fs.Load(path)
				if err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
					failed = true
					continue
				}
				f, diags := parser.ParseFile(fs, id)
				stream := diag.NewStream().EmitAll(diags)
				for _, d := range stream.Items() {
					fmt.Fprintln(os.Stderr, diag.Render(fs, d))
				}
				if stream.HasError() {
					// Never rewrite a file the parser could not fully
					// understand.
					failed = true
					continue
				}
				printed := format.File(f)
				if write {
					if err := os.WriteFile(path, []byte(printed), 0o644); err != nil {
						fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
						failed = true
					}
					continue
				}
				fmt.Fprint(os.Stdout, printed)
			}
			if failed {
				return fmt.Errorf("format failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite files in place")
	return cmd
}
