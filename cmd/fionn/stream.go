package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/darach/fionn-sub000"
)

var (
	streamSchemaPath string
	streamFields     []string
	streamStatsOnly  bool

	streamCmd = &cobra.Command{
		Use:   "stream [FILE]",
		Short: "Extract schema-matched fields from a newline-delimited JSON stream",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStream,
	}
)

func init() {
	streamCmd.Flags().StringVar(&streamSchemaPath, "schema", "", "file with one field pattern per line")
	streamCmd.Flags().StringSliceVar(&streamFields, "field", nil, "a field pattern to match; repeatable, combined with --schema")
	streamCmd.Flags().BoolVar(&streamStatsOnly, "stats", false, "print only the batch statistics, not the records")
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	buf, _, err := readInput(args)
	if err != nil {
		return diagnose("stream", err)
	}

	fields := append([]string(nil), streamFields...)
	if streamSchemaPath != "" {
		fromFile, err := readSchemaFile(streamSchemaPath)
		if err != nil {
			return diagnose("stream", err)
		}
		fields = append(fields, fromFile...)
	}
	if len(fields) == 0 {
		return diagnose("stream", fionn.NewError(fionn.Malformed, "stream", 0, "no schema fields given (use --schema or --field)"))
	}

	schema := fionn.NewSchema(fields...)

	var printErr error
	stats := fionn.ProcessStreamChunked(buf, schema, fionn.DefaultLimits, fionn.StreamFull, func(rec fionn.StreamRecord) bool {
		if streamStatsOnly {
			return true
		}
		if err := printStreamRecord(rec); err != nil {
			printErr = err
			return false
		}
		return true
	})
	if printErr != nil {
		return diagnose("stream", printErr)
	}
	fmt.Fprintf(os.Stderr, "total=%d ok=%d failed=%d avg_bytes_per_ok=%.1f match_ratio=%.3f\n",
		stats.Total, stats.OK, stats.Failed, stats.AvgBytesPerOK, stats.MatchRatio)
	return nil
}

func readSchemaFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var fields []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields = append(fields, line)
	}
	return fields, sc.Err()
}

func printStreamRecord(rec fionn.StreamRecord) error {
	if !rec.OK {
		fmt.Printf("line %d: error: %v\n", rec.Line, rec.Err)
		return nil
	}
	out := make(map[string]any, len(rec.Fields)+len(rec.Subs))
	for k, n := range rec.Fields {
		out[k] = fionn.NodeScalarValue(n)
	}
	for k, sub := range rec.Subs {
		out[k] = fionn.ValueAt(sub, sub.Root())
	}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
