package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darach/fionn-sub000"
)

var queryFormat string

var queryCmd = &cobra.Command{
	Use:   "query EXPR FILE",
	Short: "Resolve a path expression against FILE and print the value",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryFormat, "format", "", "FILE's format (default: inferred from extension, else json)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	expr, path := args[0], args[1]
	t, err := parseFileArg(path, queryFormat)
	if err != nil {
		return diagnose("query", err)
	}
	idx, err := fionn.ResolveString(fionn.DefaultPathCache(), t, expr)
	if err != nil {
		return diagnose("query", err)
	}
	fmt.Println(fionn.ValueAt(t, idx))
	return nil
}
