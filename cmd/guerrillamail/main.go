// Command guerrillamail creates and reads GuerrillaMail disposable inboxes
// from the shell.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
)

// Config holds the streams the command writes to.
type Config struct {
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns a Config bound to the process streams.
func DefaultConfig() Config {
	return Config{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// run executes the command line in args, where args[0] is the program name.
func run(args []string, cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{cfg: cfg}
	root := newRootCmd(a)
	root.SetArgs(args[1:])
	root.SetOut(cfg.Stdout)
	root.SetErr(cfg.Stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := a.close(context.Background()); err == nil {
		err = closeErr
	}
	return err
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
