package main

import (
	"os"

	"github.com/xb1002/FactorFrameworkV2/cmd/quant/commands"
)

// main is the entry point for the factor evaluation CLI: go run ./cmd/quant [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
