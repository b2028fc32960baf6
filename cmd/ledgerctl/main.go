package main

import (
	"os"

	"studioledger/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
