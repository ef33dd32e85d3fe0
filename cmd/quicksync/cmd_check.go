package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spacemeshos/quicksync/internal/node"
	"github.com/spacemeshos/quicksync/internal/restore"
	"github.com/spacemeshos/quicksync/internal/ui/progress"
)

// A node further behind than this many layers should quicksync instead of
// catching up on its own.
const maxLayersBehind = 100

func newCheckCommand() *cobra.Command {
	var opts CheckOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether quicksync is recommended",
		Long: `
The "check" command compares the last layer in the local state database with
the layer the network should be at according to the wall clock, and reports
whether downloading a snapshot is recommended.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), opts, globalOptions.Printer())
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}

// CheckOptions collects all options for the check command.
type CheckOptions struct {
	NodeData      string
	GenesisTime   string
	LayerDuration time.Duration
}

func (opts *CheckOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.NodeData, "node-data", "d", "", "`directory` holding the node's data (state.sql)")
	f.StringVarP(&opts.GenesisTime, "genesis-time", "g", "2023-07-14T08:00:00Z", "genesis `time` in ISO format")
	f.DurationVarP(&opts.LayerDuration, "layer-duration", "l", 5*time.Minute, "duration of a single layer")
	_ = cobra.MarkFlagRequired(f, "node-data")
}

func runCheck(ctx context.Context, opts CheckOptions, printer progress.Printer) error {
	genesis, err := time.Parse(time.RFC3339, opts.GenesisTime)
	if err != nil {
		return err
	}

	dbPath := filepath.Join(opts.NodeData, "state.sql")
	printer.P("Checking database: %v", dbPath)

	dbLayer, err := restore.LatestLayer(ctx, dbPath)
	if err != nil {
		return err
	}
	timeLayer := node.CurrentLayer(genesis, opts.LayerDuration, time.Now())

	printer.P("Latest layer in db: %d", dbLayer)
	printer.P("Latest calculated layer: %d", timeLayer)

	if timeLayer-int64(dbLayer) > maxLayersBehind {
		printer.P("Too far behind")
	} else {
		printer.P("OK!")
	}
	return nil
}
