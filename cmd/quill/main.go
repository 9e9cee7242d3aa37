package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Stderr))
}

func run(stderr *os.File) int {
	err := newRootCommand().Execute()
	if err == nil {
		return 0
	}
	// Ctrl-C during a follow or wait is a normal exit path, not a failure
	// worth reprinting.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, err)
	}
	return 1
}
