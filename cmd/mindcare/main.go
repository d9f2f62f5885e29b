package main

import (
	"os"

	"github.com/mindcareai/mindcare/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
