package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spacemeshos/quicksync/internal/fetch"
	"github.com/spacemeshos/quicksync/internal/restore"
)

func newPartialCommand() *cobra.Command {
	var opts PartialOptions

	cmd := &cobra.Command{
		Use:   "partial",
		Short: "Incrementally restore the state database from published diffs",
		Long: `
The "partial" command brings an existing state database up to date by
downloading and applying the incremental diffs published for its schema
generation. Each diff is verified against the database's hash chain before it
is applied; applied diffs stay committed even if a later step fails, so an
interrupted restore can simply be re-run.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := &restore.Restorer{
				BaseURL:         strings.TrimRight(opts.BaseURL, "/"),
				Client:          fetch.NewClient(0),
				ScratchDir:      opts.ScratchDir,
				UntrustedLayers: opts.UntrustedLayers,
				JumpBack:        opts.JumpBack,
				Printer:         globalOptions.Printer(),
			}
			return r.Run(cmd.Context(), filepath.Join(opts.NodeData, "state.sql"))
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}

// PartialOptions collects all options for the partial command.
type PartialOptions struct {
	NodeData        string
	BaseURL         string
	ScratchDir      string
	UntrustedLayers uint32
	JumpBack        int
}

func (opts *PartialOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.NodeData, "node-data", "d", "", "`directory` holding the node's data (state.sql)")
	f.StringVarP(&opts.BaseURL, "base-url", "u", "https://quicksync.spacemesh.network/partials", "`url` of the diff distribution service")
	f.StringVar(&opts.ScratchDir, "scratch-dir", ".", "`directory` for transient diff files, must match the path the restore script expects")
	f.Uint32Var(&opts.UntrustedLayers, "untrusted-layers", 0, "`margin` of recently applied layers to re-download and re-apply defensively")
	f.IntVar(&opts.JumpBack, "jump-back", 0, "`amount` of already-covered restore points to re-apply for continuity verification")
	_ = cobra.MarkFlagRequired(f, "node-data")
}
