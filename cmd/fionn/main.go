// Command fionn is the CLI adapter over the core package: one cobra
// subcommand per operation (gron, diff, patch, merge, query, format,
// validate, schema, stream), each a thin translation of flags into calls
// against fionn and formats.
package main

import "os"

func main() {
	os.Exit(Execute())
}
