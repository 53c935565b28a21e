package main

import (
	"fmt"
	"os"

	"github.com/tesselslate/imitator/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "imitator:", err)
		os.Exit(1)
	}
}
