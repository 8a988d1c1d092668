package commands

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const APP = "spreadsheet-offset-tool"

// VERSION is overridden at build time via -ldflags.
var VERSION = "dev"

var log = logrus.New()

// Root assembles the command tree.
func Root() *cobra.Command {
	debug := false

	root := cobra.Command{
		Use:   APP,
		Short: "Offset emissions based on spreadsheet contents",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(os.Stdout)
			if debug {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", debug, "Enables debugging information")

	root.AddCommand(runCmd())
	root.AddCommand(versionCmd())

	return &root
}
