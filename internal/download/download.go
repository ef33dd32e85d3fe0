// Package download implements the resumable range download protocol used to
// fetch multi-gigabyte snapshot archives: each attempt continues at the byte
// offset the sink has already confirmed, and the followed redirect URL is
// pinned to disk so a restarted process resumes against the same origin.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spacemeshos/quicksync/internal/debug"
	"github.com/spacemeshos/quicksync/internal/errors"
	"github.com/spacemeshos/quicksync/internal/fetch"
	"github.com/spacemeshos/quicksync/internal/ui/progress"
)

const (
	// chunkSize is the read granularity of the body stream. Each chunk also
	// contributes one throughput sample.
	chunkSize = 16 * 1024

	// reportStep is the minimum advance of the completion fraction between
	// two progress reports.
	reportStep = 0.001
)

// ErrNotResumable is returned when the server answers a Range request with a
// success status other than 206 Partial Content. Such a server would restart
// the transfer from scratch on every attempt, silently corrupting the resumed
// sink, so the download is aborted instead.
var ErrNotResumable = errors.New("server does not support resumable downloads")

// A Downloader performs single resumable download attempts.
type Downloader struct {
	// Client used for requests. Fetching a snapshot takes longer than any
	// sane request timeout, so the client should only bound connection setup.
	Client *http.Client

	// Report is called with progress updates, may be nil.
	Report progress.Func
}

// Download resumes (or starts) fetching url into sink. The finally followed
// URL is pinned to redirectPath before any body byte is streamed; if a pin
// from an earlier attempt exists it takes precedence over url, so a restarted
// transfer keeps talking to the same physical origin. An interrupted attempt
// leaves all confirmed bytes in the sink and is safe to repeat.
func (d *Downloader) Download(ctx context.Context, url string, sink Sink, redirectPath string) error {
	if pinned, err := os.ReadFile(redirectPath); err == nil {
		url = strings.TrimSpace(string(pinned))
		debug.Log("using pinned redirect %v", url)
	}

	offset, err := sink.Len()
	if err != nil {
		return errors.Wrap(err, "sink length")
	}
	if _, err := sink.Seek(0, io.SeekEnd); err != nil {
		return errors.Wrap(err, "seek sink")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "NewRequest")
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))

	client := d.Client
	if client == nil {
		client = fetch.NewClient(0)
	}

	resp, err := client.Do(req)
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
	if resp.StatusCode != http.StatusPartialContent {
		return errors.Wrapf(ErrNotResumable, "unexpected status %v", resp.Status)
	}

	// Pin the followed URL before streaming, so a crash mid-transfer still
	// resumes against the same origin.
	finalURL := resp.Request.URL.String()
	if err := os.WriteFile(redirectPath, []byte(finalURL), 0600); err != nil {
		return errors.Wrap(err, "pin redirect")
	}

	var total uint64
	if resp.ContentLength >= 0 {
		total = uint64(resp.ContentLength) + uint64(offset)
	}

	debug.Log("resuming %v at offset %d, total %d", finalURL, offset, total)

	return d.stream(resp.Body, sink, uint64(offset), total)
}

func (d *Downloader) stream(body io.Reader, sink Sink, downloaded, total uint64) error {
	tracker := progress.NewSpeedTracker(time.Now())
	lastReported := -1.0

	buf := make([]byte, chunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				return errors.Wrap(werr, "write to sink")
			}
			downloaded += uint64(n)
			tracker.Observe(n, time.Now())

			if d.Report != nil && total > 0 {
				fraction := float64(downloaded) / float64(total)
				if fraction-lastReported > reportStep {
					lastReported = fraction
					d.Report(progress.Status{
						Percent: fraction * 100,
						Bytes:   downloaded,
						Total:   total,
						ETA:     tracker.ETA(total - downloaded),
					})
				}
			}
		}
		if err == io.EOF {
			if d.Report != nil && total > 0 && lastReported < 1.0 {
				d.Report(progress.Status{
					Percent: float64(downloaded) / float64(total) * 100,
					Bytes:   downloaded,
					Total:   total,
					ETA:     tracker.ETA(total - downloaded),
				})
			}
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read body")
		}
	}
}
