package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spacemeshos/quicksync/internal/checksum"
	"github.com/spacemeshos/quicksync/internal/download"
	"github.com/spacemeshos/quicksync/internal/errors"
	"github.com/spacemeshos/quicksync/internal/extract"
	"github.com/spacemeshos/quicksync/internal/fetch"
	"github.com/spacemeshos/quicksync/internal/node"
	"github.com/spacemeshos/quicksync/internal/ui/progress"
)

func newDownloadCommand() *cobra.Command {
	var opts DownloadOptions

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the latest published state database",
		Long: `
The "download" command fetches the latest full snapshot of the state database
for the installed node version, verifies its checksum and moves it into
place, backing up any existing database. An interrupted download is resumed
on the next invocation.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if the download failed.
Exit status is 2 if the disk ran full while unpacking the archive.
Exit status is 3 if unpacking the archive failed.
Exit status is 4 if the checksums do not match.
Exit status is 5 if the checksum could not be verified.
`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownload(cmd.Context(), opts, globalOptions.Printer())
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}

// DownloadOptions collects all options for the download command.
type DownloadOptions struct {
	NodeData    string
	GoSpacemesh string
	DownloadURL string
	MaxRetries  uint64
	RetryDelay  time.Duration
}

func (opts *DownloadOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.NodeData, "node-data", "d", "", "`directory` holding the node's data (state.sql)")
	f.StringVarP(&opts.GoSpacemesh, "go-spacemesh", "g", defaultGoSpacemeshPath(), "`path` to the go-spacemesh binary")
	f.StringVarP(&opts.DownloadURL, "download-url", "u", "https://quicksync.spacemesh.network/", "`url` to download the database from, the node version is appended")
	f.Uint64VarP(&opts.MaxRetries, "max-retries", "r", 5, "maximum `amount` of retries when downloading (or resuming a download)")
	f.DurationVar(&opts.RetryDelay, "retry-delay", 5*time.Second, "`delay` between download attempts")
	_ = cobra.MarkFlagRequired(f, "node-data")
}

func defaultGoSpacemeshPath() string {
	if runtime.GOOS == "windows" {
		return "./go-spacemesh.exe"
	}
	return "./go-spacemesh"
}

func runDownload(ctx context.Context, opts DownloadOptions, printer progress.Printer) error {
	var (
		tempPath     = filepath.Join(opts.NodeData, "state.download")
		redirectPath = filepath.Join(opts.NodeData, "state.url")
		archivePath  = filepath.Join(opts.NodeData, "state.zip")
		unpackedPath = filepath.Join(opts.NodeData, "state_downloaded.sql")
		finalPath    = filepath.Join(opts.NodeData, "state.sql")
	)

	if _, err := os.Stat(archivePath); os.IsNotExist(err) {
		printer.P("Downloading the latest database...")

		url, err := snapshotURL(opts)
		if err != nil {
			return err
		}

		if err := downloadArchive(ctx, opts, url, tempPath, redirectPath, printer); err != nil {
			return &exitError{code: 1,
				err: errors.Wrapf(err, "failed to download a file after %d attempts", opts.MaxRetries+1)}
		}

		if err := os.Rename(tempPath, archivePath); err != nil {
			return errors.Wrap(err, "rename downloaded archive")
		}
		printer.P("Archive downloaded!")
	}

	switch err := extract.Extract(archivePath, unpackedPath, "state.sql", printer); {
	case err == nil:
		printer.P("Archive unpacked successfully")
	case extract.IsDiskFull(err):
		_ = os.Remove(unpackedPath)
		return &exitError{code: 2, err: errors.New("cannot unpack archive: not enough disk space")}
	default:
		_ = os.Remove(unpackedPath)
		_ = os.Remove(archivePath)
		return &exitError{code: 3, err: errors.Wrap(err, "cannot unpack archive")}
	}

	printer.P("Verifying MD5 checksum...")
	archiveURL, err := os.ReadFile(redirectPath)
	if err != nil {
		return &exitError{code: 5, err: errors.Wrap(err, "cannot verify checksum")}
	}
	switch ok, err := checksum.Verify(ctx, fetch.NewClient(30*time.Second), unpackedPath,
		strings.TrimSpace(string(archiveURL))); {
	case err != nil:
		return &exitError{code: 5, err: errors.Wrap(err, "cannot verify checksum")}
	case !ok:
		_ = os.Remove(unpackedPath)
		_ = os.Remove(archivePath)
		return &exitError{code: 4, err: errors.New("MD5 checksums are not equal, deleting archive and unpacked state.sql")}
	}
	printer.P("Checksum is valid")

	if _, err := os.Stat(finalPath); err == nil {
		printer.P("Backing up current state.sql file")
		backup, err := backupFile(finalPath)
		if err != nil {
			printer.E("Cannot create a backup file: %v", err)
		} else {
			printer.P("File backed up to: %v", backup)
		}
	}

	if err := os.Rename(unpackedPath, finalPath); err != nil {
		return errors.Wrap(err, "rename downloaded file into state.sql")
	}
	_ = os.Remove(redirectPath)
	_ = os.Remove(archivePath)

	printer.P("Done!")
	printer.P("Now you can run go-spacemesh as usual.")
	return nil
}

// snapshotURL resolves the snapshot location from the installed node
// version.
func snapshotURL(opts DownloadOptions) (string, error) {
	version, err := node.Version(opts.GoSpacemesh)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(opts.DownloadURL, "/") + "/" + version + "/state.zip", nil
}

func downloadArchive(ctx context.Context, opts DownloadOptions, url, tempPath, redirectPath string, printer progress.Printer) error {
	sink, err := download.CreateFileSink(tempPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = sink.Close()
	}()

	d := &download.Downloader{
		// no client timeout, a snapshot download takes hours
		Client: fetch.NewClient(0),
		Report: downloadReport(printer),
	}

	policy := download.Policy{MaxRetries: opts.MaxRetries, Delay: opts.RetryDelay}
	return download.WithRetries(ctx, d, url, sink, redirectPath, policy, printer)
}

// downloadReport throttles progress reports to whole percent steps, or to
// steps of ten when output is not going to a terminal.
func downloadReport(printer progress.Printer) progress.Func {
	step := 1
	if !stdoutIsTerminal() {
		step = 10
	}
	lastPercent := -1
	return func(s progress.Status) {
		percent := int(s.Percent) / step * step
		if percent == lastPercent {
			return
		}
		lastPercent = percent
		printer.P("Downloading... %d%% (%.2f MB/%.2f MB) ETA: %v",
			percent, float64(s.Bytes)/(1<<20), float64(s.Total)/(1<<20), s.ETA)
	}
}

// backupFile moves the file at path aside to the first free backup name
// (state.sql.bak, state.sql.bak.1, ...) and returns the chosen name.
func backupFile(path string) (string, error) {
	backup := path + ".bak"
	for counter := 1; ; counter++ {
		if _, err := os.Stat(backup); os.IsNotExist(err) {
			break
		}
		backup = fmt.Sprintf("%s.bak.%d", path, counter)
	}

	if err := os.Rename(path, backup); err != nil {
		return "", errors.Wrap(err, "rename into backup")
	}
	return backup, nil
}
