package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Displays the current version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s\n", VERSION)
		},
	}
}
