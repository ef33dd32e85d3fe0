package download

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/spacemeshos/quicksync/internal/ui/progress"
)

// A Policy bounds the retry behavior of WithRetries: up to MaxRetries
// additional attempts after the first one, with a fixed Delay in between.
// Tests inject a zero Delay to run deterministically.
type Policy struct {
	MaxRetries uint64
	Delay      time.Duration
}

// WithRetries runs d.Download until it succeeds or the retry budget is
// exhausted, in which case the last error is returned. Every failure counts
// against the budget. No bytes are lost or duplicated between attempts: each
// attempt resumes at the sink's confirmed length.
func WithRetries(ctx context.Context, d *Downloader, url string, sink Sink, redirectPath string, policy Policy, printer progress.Printer) error {
	attempt := 0

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), policy.MaxRetries),
		ctx)

	return backoff.RetryNotify(
		func() error {
			attempt++
			return d.Download(ctx, url, sink, redirectPath)
		},
		bo,
		func(err error, _ time.Duration) {
			printer.E("Download error: %v. Attempt %d / %d", err, attempt, policy.MaxRetries+1)
		})
}
