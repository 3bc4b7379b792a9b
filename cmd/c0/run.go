package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"cursive0/internal/driver"
	"cursive0/internal/project"
)

func runCmd() *cobra.Command {
	var (
		assembly   string
		runtimeLib string
	)
	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Compile an executable assembly and run it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			opts := driver.Options{
				Dir:         dir,
				Assembly:    assembly,
				LinkRuntime: runtimeLib,
				DebugPhases: os.Getenv("CURSIVE0_DEBUG_PHASES") != "",
			}
			res, err := runPipeline(opts)
			if err != nil {
				return err
			}
			printDiagnostics(res)
			if !res.Success {
				return errors.New("compilation failed")
			}
			if res.ExePath == "" {
				return errors.New("run requires an executable assembly (kind = " + string(project.KindExecutable) + ")")
			}

			// The entry point takes no arguments and returns i32; its
			// exit status becomes ours.
			child := exec.Command(res.ExePath)
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr
			child.Stdin = os.Stdin
			if err := child.Run(); err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					os.Exit(exitErr.ExitCode())
				}
				return fmt.Errorf("run %s: %w", res.ExePath, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&assembly, "assembly", "", "run the named assembly")
	cmd.Flags().StringVar(&runtimeLib, "runtime", "", "runtime archive to link against")
	return cmd
}
