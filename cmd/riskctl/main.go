package main

import (
	"os"

	"github.com/atmx/risk-engine/cmd/riskctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
