package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cursive0/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the compiler version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("c0 %s", version.Version)
			if version.GitCommit != "" {
				fmt.Printf(" (%s)", version.GitCommit)
			}
			if version.BuildDate != "" {
				fmt.Printf(" built %s", version.BuildDate)
			}
			fmt.Println()
		},
	}
}
