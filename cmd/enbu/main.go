package main

import (
	"fmt"
	"os"

	"github.com/enbu-dev/enbu/cmd/enbu/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "enbu: %v\n", err)
	}
	os.Exit(cmd.ExitCode(err))
}
