package main

import (
	"fmt"
	"os"

	"segsieve/internal/cli"
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
