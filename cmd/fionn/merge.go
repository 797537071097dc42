package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darach/fionn-sub000"
	"github.com/darach/fionn-sub000/formats"
)

var (
	mergeFormat string
	mergeDeep   bool

	mergeCmd = &cobra.Command{
		Use:   "merge A B [B...]",
		Short: "Fold each B into A under RFC 7396 merge patch semantics",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runMerge,
	}
)

func init() {
	mergeCmd.Flags().StringVar(&mergeFormat, "format", "", "input/output format (default: inferred from the first file's extension, else json)")
	mergeCmd.Flags().BoolVar(&mergeDeep, "deep", false, "concatenate arrays present on both sides instead of replacing")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	baseTape, err := parseFileArg(args[0], mergeFormat)
	if err != nil {
		return diagnose("merge", err)
	}
	format := formatFor(mergeFormat, args[0])

	result := baseTape
	for _, overlayPath := range args[1:] {
		overlayTape, err := parseFileArg(overlayPath, mergeFormat)
		if err != nil {
			return diagnose("merge", err)
		}
		result, err = fionn.MergeTapes(result, overlayTape, mergeDeep)
		if err != nil {
			return diagnose("merge", err)
		}
	}

	out, err := formats.Emit(format, result)
	if err != nil {
		return diagnose("merge", err)
	}
	fmt.Println(string(out))
	return nil
}
