package main

import (
	"os"

	"github.com/pterm/pterm"

	"touchctl/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
