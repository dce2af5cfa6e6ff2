package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes the command line in args, writing results to outW.
func run(outW io.Writer, args []string) error {
	root := newRootCmd()
	root.SetOut(outW)
	root.SetArgs(args)

	return root.Execute()
}
