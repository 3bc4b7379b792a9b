package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cursive0/internal/project"
)

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [dir]",
		Short: "Remove build outputs and the module cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			root, err := project.FindRoot(dir)
			if err != nil {
				return err
			}
			p, diags := project.Load(dir, "")
			_ = diags
			if p != nil {
				for i := range p.Assemblies {
					os.RemoveAll(p.Assemblies[i].OutDir)
				}
			}
			os.RemoveAll(filepath.Join(root, ".cursive-cache"))
			return nil
		},
	}
}
