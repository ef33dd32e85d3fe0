package restore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spacemeshos/quicksync/internal/debug"
	"github.com/spacemeshos/quicksync/internal/errors"
	"github.com/spacemeshos/quicksync/internal/extract"
	"github.com/spacemeshos/quicksync/internal/fetch"
	"github.com/spacemeshos/quicksync/internal/ui/progress"
)

// Scratch file names inside the scratch directory. The restore script
// references the plaintext name by convention, so the scratch directory must
// be the process working directory unless the script says otherwise.
const (
	scratchName    = "backup_source.db"
	scratchZstName = "backup_source.db.zst"
)

// ErrHashMismatch signals a hash-chain discontinuity: a planned diff's
// published hash does not extend the hash stored in the local database. A
// broken link invalidates every later diff too, so the restore aborts.
var ErrHashMismatch = errors.New("unexpected hash: chain discontinuity")

// A Restorer plans and applies incremental diffs against a local state
// database.
type Restorer struct {
	// BaseURL of the diff distribution service, without trailing slash.
	BaseURL string

	// Client used for all requests. If nil, a default client is used.
	Client *http.Client

	// ScratchDir holds the transient diff files. Defaults to ".".
	ScratchDir string

	// UntrustedLayers is the safety margin of recently applied layers that
	// are re-downloaded and re-applied defensively.
	UntrustedLayers uint32

	// JumpBack re-includes that many already-covered restore points in the
	// plan to re-verify continuity.
	JumpBack int

	Printer progress.Printer
}

func (r *Restorer) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return fetch.NewClient(0)
}

func (r *Restorer) printer() progress.Printer {
	if r.Printer != nil {
		return r.Printer
	}
	return &progress.NoopPrinter{}
}

func (r *Restorer) scratchPath(name string) string {
	dir := r.ScratchDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}

// Run restores the database at targetDB up to the manifest head. Completed
// diffs stay committed even if a later one fails, re-running Run resumes
// from the new position. An already-synced database is a successful no-op.
func (r *Restorer) Run(ctx context.Context, targetDB string) error {
	userVersion, err := UserVersion(ctx, targetDB)
	if err != nil {
		return err
	}

	// Fetch manifest and restore script once, before any mutation. A
	// manifest changing mid-run must not affect an in-flight restore.
	manifestText, err := fetch.GetText(ctx, r.client(),
		fmt.Sprintf("%s/%d/metadata.csv", r.BaseURL, userVersion))
	if err != nil {
		return errors.Wrap(err, "fetch manifest")
	}
	script, err := fetch.GetText(ctx, r.client(),
		fmt.Sprintf("%s/%d/restore.sql", r.BaseURL, userVersion))
	if err != nil {
		return errors.Wrap(err, "fetch restore script")
	}

	points, err := ParseManifest(manifestText)
	if err != nil {
		return err
	}

	latest, err := LatestLayer(ctx, targetDB)
	if err != nil {
		return err
	}

	layerFrom := int64(latest) + 1 - int64(r.UntrustedLayers)
	if layerFrom < 0 {
		layerFrom = 0
	}
	debug.Log("latest layer %d, untrusted %d, planning from layer %d", latest, r.UntrustedLayers, layerFrom)

	plan, err := Plan(uint32(layerFrom), points, r.JumpBack)
	if err != nil {
		return err
	}
	if len(plan) == 0 {
		r.printer().P("Database is up to date, nothing to restore")
		return nil
	}

	r.printer().P("Found %d restore points", len(plan))

	for _, point := range plan {
		if err := r.apply(ctx, targetDB, userVersion, point, script); err != nil {
			return err
		}
	}

	return nil
}

// apply runs one restore step. The connection is opened fresh and closed
// before the scratch file is deleted, so a crash between steps leaves the
// database at the last committed diff, safe to resume.
func (r *Restorer) apply(ctx context.Context, targetDB string, userVersion int64, point RestorePoint, script string) error {
	db, err := openDB(targetDB)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if point.From != 0 {
		previous, err := previousHash(ctx, db, point.From)
		if err != nil {
			return err
		}
		if previous != point.Hash[:hashPrefixLen] {
			return errors.Wrapf(ErrHashMismatch,
				"layers %d-%d: database has %s, restore point has %s",
				point.From, point.To, previous, point.Hash[:hashPrefixLen])
		}
	}

	scratch := r.scratchPath(scratchName)
	if err := r.fetchDiff(ctx, userVersion, point, scratch); err != nil {
		return err
	}

	r.printer().P("Restoring layers %d to %d...", point.From, point.To)
	start := time.Now()

	if _, err := db.ExecContext(ctx, script); err != nil {
		return errors.Wrapf(err, "execute restore script for layers %d-%d", point.From, point.To)
	}

	// Durability boundary: close the connection before deleting the scratch
	// file.
	if err := db.Close(); err != nil {
		return errors.Wrap(err, "close database")
	}
	if err := os.Remove(scratch); err != nil {
		return errors.Wrap(err, "remove scratch file")
	}

	r.printer().P("Restored layers %d to %d in %v", point.From, point.To, time.Since(start).Round(time.Millisecond))
	return nil
}

// fetchDiff downloads the diff for point into scratch, preferring the
// zstd-compressed artifact and falling back to the plain one.
func (r *Restorer) fetchDiff(ctx context.Context, userVersion int64, point RestorePoint, scratch string) error {
	compressed := r.scratchPath(scratchZstName)

	if err := r.downloadFile(ctx, r.diffURL(userVersion, point, true), compressed); err != nil {
		debug.Log("compressed diff failed (%v), falling back to plain", err)
		return r.downloadFile(ctx, r.diffURL(userVersion, point, false), scratch)
	}

	if err := extract.Extract(compressed, scratch, "", r.printer()); err != nil {
		return err
	}
	return errors.Wrap(os.Remove(compressed), "remove compressed scratch")
}

func (r *Restorer) diffURL(userVersion int64, point RestorePoint, compressed bool) string {
	url := fmt.Sprintf("%s/%d/%d_%d_%s/state.sql_diff.%d_%d.sql",
		r.BaseURL, userVersion, point.From, point.To, point.Hash, point.From, point.To)
	if compressed {
		url += ".zst"
	}
	return url
}

// downloadFile is the simplified, non-resuming downloader used for the
// comparatively small diff artifacts.
func (r *Restorer) downloadFile(ctx context.Context, url, path string) error {
	r.printer().V("Downloading from %v", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "NewRequest")
	}

	resp, err := r.client().Do(req)
	if err != nil {
		return errors.Wrap(err, "Get")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fetch.NewStatusError(url, resp)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write file")
	}
	return errors.Wrap(f.Close(), "close file")
}
