package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/waabox/unreleased/internal/auth"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

const notProvided = "<NOT PROVIDED>"

// app carries the process-level dependencies shared by every command.
type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	runner auth.Runner
	now    func() time.Time
	// terminal reports whether w is an interactive terminal.
	terminal func(w io.Writer) bool

	debug  bool
	logger *slog.Logger
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:   stdout,
		stderr:   stderr,
		getenv:   os.Getenv,
		runner:   auth.ExecRunner,
		now:      time.Now,
		terminal: isTerminal,
		logger:   slog.New(slog.DiscardHandler),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "unreleased",
		Short:         "View the commits to your GitHub repos since their last release",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd, a.stderr)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Output debug information without doing anything")
	registerLoggingFlags(root)

	root.AddCommand(a.reportCommand(), a.addCommand())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(os.Stdout, os.Stderr).rootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
