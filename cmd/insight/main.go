package main

import (
	"os"

	"github.com/MateusRestier/insight-invest/cmd/insight/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
