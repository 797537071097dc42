package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darach/fionn-sub000"
	"github.com/darach/fionn-sub000/formats"
)

var (
	formatCompact bool
	formatInput   string
	formatOutput  string

	formatCmd = &cobra.Command{
		Use:   "format FILE",
		Short: "Re-emit FILE in its own (or a different) format",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFormat,
	}
)

func init() {
	formatCmd.Flags().BoolVarP(&formatCompact, "compact", "c", false, "has no effect; accepted for CLI symmetry with gron -c")
	formatCmd.Flags().StringVar(&formatInput, "from", "", "input format (default: inferred from extension, else json)")
	formatCmd.Flags().StringVar(&formatOutput, "to", "", "output format (default: same as input)")
	rootCmd.AddCommand(formatCmd)
}

func runFormat(cmd *cobra.Command, args []string) error {
	buf, path, err := readInput(args)
	if err != nil {
		return diagnose("format", err)
	}
	in := formatFor(formatInput, path)
	out := formatOutput
	if out == "" {
		out = in
	}

	t, err := formats.Parse(in, buf, fionn.DefaultLimits)
	if err != nil {
		return diagnose("format", err)
	}
	emitted, err := formats.Emit(out, t)
	if err != nil {
		return diagnose("format", err)
	}
	fmt.Println(string(emitted))
	return nil
}
