package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "fionn",
		Short:         "fionn",
		Long:          `fionn inspects, flattens, diffs, patches, and streams structured data (JSON, YAML, TOML, CSV, ISON, TOON) through a shared tape representation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	verbose bool
	log     = logrus.StandardLogger()
)

// Execute runs the root command and returns the process exit code: 0 on
// success, and otherwise whatever the failing subcommand's *cliError
// carried (1 for user error, 2 for internal error).
func Execute() int {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable diagnostic logging")
	cobra.OnInitialize(func() {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		} else {
			log.SetLevel(logrus.WarnLevel)
		}
	})

	if err := rootCmd.Execute(); err != nil {
		if ce, ok := err.(*cliError); ok {
			return ce.code
		}
		return 2
	}
	return 0
}
