package main

import (
	"fmt"
	"os"

	"github.com/lune-climate/spreadsheet-offset-tool/commands"
)

func main() {
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
