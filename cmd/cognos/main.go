package main

import (
	"os"

	"github.com/cognos-ai/cognos/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
