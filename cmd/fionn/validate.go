package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darach/fionn-sub000"
	"github.com/darach/fionn-sub000/formats"
)

var validateFormat string

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Parse FILE and report whether it is well-formed",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateFormat, "format", "", "input format (default: inferred from extension, else json)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	buf, path, err := readInput(args)
	if err != nil {
		return diagnose("validate", err)
	}
	format := formatFor(validateFormat, path)
	t, err := formats.Parse(format, buf, fionn.DefaultLimits)
	if err != nil {
		return diagnose("validate", err)
	}
	fmt.Printf("ok: %d nodes\n", t.Len())
	return nil
}
