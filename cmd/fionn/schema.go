package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darach/fionn-sub000"
	"github.com/darach/fionn-sub000/formats"
)

var schemaFormat string

var schemaCmd = &cobra.Command{
	Use:   "schema FILE",
	Short: "Print FILE's top-level field names, one per line, as a stream schema",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchema,
}

func init() {
	schemaCmd.Flags().StringVar(&schemaFormat, "format", "", "input format (default: inferred from extension, else json)")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	buf, path, err := readInput(args)
	if err != nil {
		return diagnose("schema", err)
	}
	format := formatFor(schemaFormat, path)
	t, err := formats.Parse(format, buf, fionn.DefaultLimits)
	if err != nil {
		return diagnose("schema", err)
	}

	root := t.NodeAt(t.Root())
	if root.Kind != fionn.KindObjectStart {
		return diagnose("schema", fionn.NewError(fionn.TypeMismatch, format, t.Root(), "root is not an object"))
	}
	for _, c := range t.Children(t.Root()) {
		k, _ := t.KeyAt(c)
		fmt.Println(k)
	}
	return nil
}
