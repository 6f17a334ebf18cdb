package main

import (
	"os"

	"github.com/alignlab/styletrain/cmd/styletrain/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
