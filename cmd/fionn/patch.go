package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/darach/fionn-sub000"
	"github.com/darach/fionn-sub000/formats"
)

var patchFormat string

var patchCmd = &cobra.Command{
	Use:   "patch FILE PATCH",
	Short: "Apply an RFC 6902 patch to FILE",
	Args:  cobra.ExactArgs(2),
	RunE:  runPatch,
}

func init() {
	patchCmd.Flags().StringVar(&patchFormat, "format", "", "FILE's format (default: inferred from extension, else json)")
	rootCmd.AddCommand(patchCmd)
}

func runPatch(cmd *cobra.Command, args []string) error {
	docPath, patchPath := args[0], args[1]

	docBuf, resolvedPath, err := readInput([]string{docPath})
	if err != nil {
		return diagnose("patch", err)
	}
	format := formatFor(patchFormat, resolvedPath)
	t, err := formats.Parse(format, docBuf, fionn.DefaultLimits)
	if err != nil {
		return diagnose("patch", err)
	}

	patchBuf, err := os.ReadFile(patchPath)
	if err != nil {
		return diagnose("patch", err)
	}
	var patch fionn.Patch
	if err := json.Unmarshal(patchBuf, &patch); err != nil {
		return diagnose("patch", fionn.NewError(fionn.Malformed, "patch", 0, err.Error()))
	}

	result, err := fionn.ApplyToTape(t, patch)
	if err != nil {
		return diagnose("patch", err)
	}

	out, err := formats.Emit(format, result)
	if err != nil {
		return diagnose("patch", err)
	}
	fmt.Println(string(out))
	return nil
}
