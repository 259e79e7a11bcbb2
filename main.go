package main

import (
	"os"

	"github.com/creativepipe/cap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
