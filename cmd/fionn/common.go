package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/darach/fionn-sub000"
	"github.com/darach/fionn-sub000/formats"
)

// cliError is the sentinel RunE returns once diagnose has already printed
// the "fionn: <subcommand>: <kind>: <detail>" line, so cobra and main.go
// don't print the error a second time; only its exit code matters.
type cliError struct{ code int }

func (e *cliError) Error() string { return "" }

// diagnose prints the standard diagnostic line and returns the *cliError
// Execute maps to a process exit code.
func diagnose(sub string, err error) *cliError {
	if fe, ok := fionn.AsError(err); ok {
		fmt.Fprintf(os.Stderr, "fionn: %s: %s: %s\n", sub, fe.Kind, fe.Detail)
		code := 1
		if fe.Kind == fionn.CapacityExceeded {
			code = 2
		}
		return &cliError{code: code}
	}
	fmt.Fprintf(os.Stderr, "fionn: %s: %s\n", sub, err)
	return &cliError{code: 2}
}

// readInput reads args[0], or stdin if args is empty or args[0] is "-". It
// returns the bytes read and a source path used only for format inference
// (empty when reading stdin).
func readInput(args []string) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		buf, err := io.ReadAll(os.Stdin)
		return buf, "", err
	}
	buf, err := os.ReadFile(args[0])
	return buf, args[0], err
}

var extFormats = map[string]string{
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".csv":  "csv",
	".ison": "ison",
	".toon": "toon",
}

// formatFor resolves the format a subcommand should parse/emit with:
// an explicit --format flag wins, otherwise the source file's extension,
// otherwise "json".
func formatFor(explicit, path string) string {
	if explicit != "" {
		return explicit
	}
	if f, ok := extFormats[strings.ToLower(filepath.Ext(path))]; ok {
		return f
	}
	return "json"
}

func knownFormatsUsage() string {
	names := formats.Names()
	return strings.Join(names, ", ")
}
