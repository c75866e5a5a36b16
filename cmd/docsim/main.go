// Package main provides the entry point for the docsim CLI.
package main

import (
	"fmt"
	"os"

	"github.com/kirillkom/docsim/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
