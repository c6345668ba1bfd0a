package main

import (
	"os"

	"github.com/droidcore/sdkbridge/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
