// Package main is the entry point for the pwnet CLI.
package main

import (
	"os"

	"pwnet/cmd/cli/cmd"
	"pwnet/internal/logging"
)

func main() {
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
