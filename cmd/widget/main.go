package main

import (
	"os"

	"github.com/RichardoC/support-widget/cmd/widget/cmds"
)

func main() {
	if err := cmds.Execute(); err != nil {
		os.Exit(1)
	}
}
