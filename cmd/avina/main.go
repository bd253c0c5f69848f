// Package main is the entry point of the avina accounting service.
package main

import (
	"os"

	"github.com/LRZ-BADW/avina/cmd/avina/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
