package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/spacemeshos/quicksync/internal/debug"
	"github.com/spacemeshos/quicksync/internal/errors"
)

func init() {
	// don't import `go.uber.org/automaxprocs` to disable the log output
	_, _ = maxprocs.Set()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quicksync",
		Short: "Bootstrap and resynchronize a go-spacemesh node database",
		Long: `
quicksync brings a node's state database up to date without replaying the
network history: either by downloading the latest published snapshot, or by
applying a sequence of incremental, hash-chain-verified diffs.
`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,

		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			globalOptions.PreRun()
		},
	}

	globalOptions.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newCheckCommand(),
		newDownloadCommand(),
		newPartialCommand(),
		newVersionCommand(),
	)

	return cmd
}

// exitError carries the process exit code for failures that external tooling
// tells apart by code (disk full, checksum mismatch, ...).
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	if err == nil {
		return
	}

	debug.Log("error: %v", err)
	fmt.Fprintf(os.Stderr, "%v\n", err)

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	os.Exit(1)
}
