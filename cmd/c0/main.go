// Command c0 is the Cursive0 bootstrap compiler driver.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"cursive0/internal/trace"
)

var (
	flagQuiet          bool
	flagColor          string
	flagMaxDiagnostics int
	flagTimeout        time.Duration
	flagTracePath      string
	flagTraceLevel     string
	flagTraceFormat    string
	flagTraceMode      string
)

func main() {
	root := &cobra.Command{
		Use:           "c0",
		Short:         "Cursive0 bootstrap compiler",
		Long:          "c0 compiles Cursive0 projects to native Win64 executables.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupTrace()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			trace.Get().Close()
		},
	}
	root.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress progress output")
	root.PersistentFlags().StringVar(&flagColor, "color", "auto", "colorize diagnostics: auto, always, never")
	root.PersistentFlags().IntVar(&flagMaxDiagnostics, "max-diagnostics", 0, "cap rendered diagnostics (0 = unlimited)")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "abort the pipeline after this duration (0 = none)")
	root.PersistentFlags().StringVar(&flagTracePath, "trace", "", "write a SpecTrace log to this path")
	root.PersistentFlags().StringVar(&flagTraceLevel, "trace-level", "phase", "trace level: error, phase, detail, debug")
	root.PersistentFlags().StringVar(&flagTraceFormat, "trace-format", "text", "trace format: text, ndjson")
	root.PersistentFlags().StringVar(&flagTraceMode, "trace-mode", "stream", "trace storage: stream, ring, both")

	root.AddCommand(buildCmd())
	root.AddCommand(runCmd())
	root.AddCommand(diagnoseCmd())
	root.AddCommand(formatCmd())
	root.AddCommand(tokenizeCmd())
	root.AddCommand(cleanCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(2)
	}
}

func setupTrace() {
	if flagTracePath == "" {
		return
	}
	level := trace.ParseLevel(flagTraceLevel)
	format := trace.Text
	if flagTraceFormat == "ndjson" {
		format = trace.NDJSON
	}
	mode := trace.Stream
	switch flagTraceMode {
	case "ring":
		mode = trace.Ring
	case "both":
		mode = trace.Both
	}
	trace.Open(flagTracePath, level, format, mode, 4096)
}
