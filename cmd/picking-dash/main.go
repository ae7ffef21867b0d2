package main

import (
	"fmt"
	"os"

	"picking-dash/cmd/picking-dash/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
