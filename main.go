package main

import (
	"os"

	"github.com/robalobadob/wordlink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
