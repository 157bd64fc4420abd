package main

import (
	"os"

	"statement_engine/cmd/engine/commands"
)

// main is the entry point for the statement engine CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
