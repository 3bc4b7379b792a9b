package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cursive0/internal/driver"
)

func diagnoseCmd() *cobra.Command {
	var assembly string
	cmd := &cobra.Command{
		Use:   "diagnose [dir]",
		Short: "Run the analysis phases (P0-P3) and report diagnostics without producing output",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			opts := driver.Options{
				Dir:         dir,
				Assembly:    assembly,
				CheckOnly:   true,
				DebugPhases: os.Getenv("CURSIVE0_DEBUG_PHASES") != "",
			}
			res, err := runPipeline(opts)
			if err != nil {
				return err
			}
			printDiagnostics(res)
			if !res.Success {
				return errors.New("diagnose found errors")
			}
			if !flagQuiet {
				fmt.Fprintln(os.Stdout, "no errors")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&assembly, "assembly", "", "diagnose only the named assembly")
	return cmd
}
