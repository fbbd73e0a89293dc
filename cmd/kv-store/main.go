// Package main is the entry point for kv-store.
package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
