package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cursive0/internal/driver"
	"cursive0/internal/ui"
)

func buildCmd() *cobra.Command {
	var (
		assembly    string
		emitIR      string
		runtimeLib  string
		skipObjects bool
	)
	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Compile a Cursive0 project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			opts := driver.Options{
				Dir:         dir,
				Assembly:    assembly,
				EmitIR:      emitIR,
				LinkRuntime: runtimeLib,
				SkipObjects: skipObjects,
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
			if !flagQuiet && res.ExePath != "" {
				fmt.Fprintf(os.Stdout, "wrote %s\n", res.ExePath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&assembly, "assembly", "", "build only the named assembly")
	cmd.Flags().StringVar(&emitIR, "emit-ir", "", "write per-module IR: ll or bc")
	cmd.Flags().StringVar(&runtimeLib, "runtime", "", "runtime archive to link against")
	cmd.Flags().BoolVar(&skipObjects, "skip-objects", false, "stop after writing textual IR")
	return cmd
}

// useTUI enables the interactive progress view only on a terminal, when
// not quiet, and when the plain phase log is not requested.
func useTUI(opts driver.Options) bool {
	if flagQuiet || opts.DebugPhases {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// runPipeline runs the driver with the progress view attached and the
// --timeout deadline applied. On timeout the process is about to exit,
// so the abandoned pipeline goroutine is not reaped.
func runPipeline(opts driver.Options) (*driver.Result, error) {
	var progress *ui.Progress
	if useTUI(opts) {
		progress = ui.StartProgress()
		opts.Observer = progress
	}

	done := make(chan *driver.Result, 1)
	go func() { done <- driver.Run(opts) }()

	var res *driver.Result
	if flagTimeout > 0 {
		select {
		case res = <-done:
		case <-time.After(flagTimeout):
			if progress != nil {
				progress.Finish(false)
			}
			return nil, fmt.Errorf("pipeline exceeded --timeout of %s", flagTimeout)
		}
	} else {
		res = <-done
	}
	if progress != nil {
		progress.Finish(res.Success)
	}
	return res, nil
}
