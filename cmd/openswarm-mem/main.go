package main

import (
	"os"

	"github.com/yte121/openswarm-sub022/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
