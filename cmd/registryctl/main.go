// Command registryctl submits trained models to a champion/challenger
// registry and reports on its state.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"modelregistry/internal/registry"
)

var exitFunc = os.Exit

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// main runs the command-line interface using the program arguments and exits
// the process with the status code returned by cli.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

// cli executes one command and maps its error to an exit code. Usage errors
// exit 2, a locked registry 3, a missing champion 4 and other failures 1.
func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp()
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if ferr := a.finish(); ferr != nil && err == nil {
		err = ferr
	}
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			_, _ = fmt.Fprintln(stderr, ee.msg)
		}
		return ee.code
	}
	_, _ = fmt.Fprintf(stderr, "registryctl: %v\n", err)
	switch {
	case a.usageErr:
		return 2
	case errors.Is(err, registry.ErrLocked):
		return 3
	default:
		return 1
	}
}
