package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darach/fionn-sub000"
	"github.com/darach/fionn-sub000/formats"
)

var diffFormat string

var diffCmd = &cobra.Command{
	Use:   "diff A B",
	Short: "Compute an RFC 6902 patch turning A into B",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffFormat, "format", "", "input format for both A and B (default: inferred per-file)")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	tapeA, err := parseFileArg(args[0], diffFormat)
	if err != nil {
		return diagnose("diff", err)
	}
	tapeB, err := parseFileArg(args[1], diffFormat)
	if err != nil {
		return diagnose("diff", err)
	}

	patch := fionn.Diff(tapeA, tapeB)
	out, err := json.MarshalIndent(patch, "", "  ")
	if err != nil {
		return diagnose("diff", err)
	}
	fmt.Println(string(out))
	return nil
}

func parseFileArg(path, explicitFormat string) (*fionn.Tape, error) {
	buf, resolvedPath, err := readInput([]string{path})
	if err != nil {
		return nil, err
	}
	format := formatFor(explicitFormat, resolvedPath)
	return formats.Parse(format, buf, fionn.DefaultLimits)
}
