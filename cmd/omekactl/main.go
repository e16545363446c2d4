// Package main provides omekactl, a command line client that reads and writes
// Omeka S items through their resource templates.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "omekactl:", err)
		os.Exit(1)
	}
}
