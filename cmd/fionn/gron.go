package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/darach/fionn-sub000"
	"github.com/darach/fionn-sub000/formats"
)

var (
	gronUngron     bool
	gronCompact    bool
	gronPathsOnly  bool
	gronValuesOnly bool
	gronPrefix     string
	gronJSONL      bool
	gronQuery      string
	gronFormat     string

	gronCmd = &cobra.Command{
		Use:   "gron [FILE]",
		Short: "Flatten a document into path = value assignments, or reverse with -u",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGron,
	}
)

func init() {
	gronCmd.Flags().BoolVarP(&gronUngron, "ungron", "u", false, "reverse gron lines back into a document")
	gronCmd.Flags().BoolVarP(&gronCompact, "compact", "c", false, "no spaces around '='")
	gronCmd.Flags().BoolVar(&gronPathsOnly, "paths", false, "print only the path of each line")
	gronCmd.Flags().BoolVar(&gronValuesOnly, "values", false, "print only the value of each line")
	gronCmd.Flags().StringVarP(&gronPrefix, "prefix", "p", "", "path prefix (default \"json\")")
	gronCmd.Flags().BoolVar(&gronJSONL, "jsonl", false, "treat input as newline-delimited records, one gron group per line")
	gronCmd.Flags().StringVarP(&gronQuery, "query", "q", "", "resolve a single path instead of flattening the whole document")
	gronCmd.Flags().StringVar(&gronFormat, "format", "", "input format (default: inferred from file extension, else json)")
	rootCmd.AddCommand(gronCmd)
}

func runGron(cmd *cobra.Command, args []string) error {
	buf, path, err := readInput(args)
	if err != nil {
		return diagnose("gron", err)
	}

	opts := fionn.GronOptions{
		Prefix:     gronPrefix,
		Compact:    gronCompact,
		PathsOnly:  gronPathsOnly,
		ValuesOnly: gronValuesOnly,
	}

	if gronUngron {
		return runUngron(buf, opts)
	}

	format := formatFor(gronFormat, path)
	if gronJSONL {
		return runGronJSONL(buf, opts)
	}

	t, err := formats.Parse(format, buf, fionn.DefaultLimits)
	if err != nil {
		return diagnose("gron", err)
	}

	if gronQuery != "" {
		return runGronQuery(t, gronQuery)
	}

	return fionn.GronStream(t, opts, os.Stdout)
}

// runGronJSONL emits one gron group per newline-delimited JSON record,
// reusing the stream processor's line splitter (SPEC_FULL.md's --jsonl
// supplement) rather than the single-document gron path.
func runGronJSONL(buf []byte, opts fionn.GronOptions) error {
	for _, line := range fionn.SplitLines(buf) {
		if len(line) == 0 {
			continue
		}
		t, err := formats.Parse("json", line, fionn.DefaultLimits)
		if err != nil {
			return diagnose("gron", err)
		}
		if err := fionn.GronStream(t, opts, os.Stdout); err != nil {
			return diagnose("gron", err)
		}
	}
	return nil
}

func runGronQuery(t *fionn.Tape, query string) error {
	idx, err := fionn.ResolveString(fionn.DefaultPathCache(), t, query)
	if err != nil {
		return diagnose("gron", err)
	}
	fmt.Println(fionn.ValueAt(t, idx))
	return nil
}

func runUngron(buf []byte, opts fionn.GronOptions) error {
	lines := splitNonEmptyLines(buf)
	t, err := fionn.Ungron(lines, opts)
	if err != nil {
		return diagnose("gron", err)
	}
	out, err := formats.Emit("json", t)
	if err != nil {
		return diagnose("gron", err)
	}
	fmt.Println(string(out))
	return nil
}

func splitNonEmptyLines(buf []byte) []string {
	var lines []string
	for _, l := range fionn.SplitLines(buf) {
		if len(l) == 0 {
			continue
		}
		lines = append(lines, string(l))
	}
	return lines
}
