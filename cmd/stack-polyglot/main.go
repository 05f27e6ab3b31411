package main

import "os"

// main runs the root command. Cobra prints the error; the exit code is all
// that is left to set.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
