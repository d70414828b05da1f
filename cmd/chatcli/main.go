package main

import (
	"fmt"
	"os"
)

func main() {
	if err := buildRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chatcli:", err)
		os.Exit(1)
	}
}
