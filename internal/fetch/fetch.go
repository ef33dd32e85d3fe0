// Package fetch holds the HTTP plumbing shared by the download, checksum and
// restore packages: a common transport, a typed error for non-2xx responses
// and a helper for fetching small text resources such as manifests and
// checksum companions.
package fetch

import (
	"context"
	"io"
	"net/http"

	"github.com/spacemeshos/quicksync/internal/debug"
	"github.com/spacemeshos/quicksync/internal/errors"
)

// maxErrorBody limits how much of an error response body is read when
// extracting the error message.
const maxErrorBody = 4096

// NewStatusError consumes (part of) the response body and builds a
// StatusError for a non-2xx response.
func NewStatusError(url string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		URL:        url,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    ParseErrorBody(body),
	}
}

// GetText fetches a small plain-text resource, such as a manifest or a
// checksum companion. A non-2xx response is returned as a *StatusError.
func GetText(ctx context.Context, client *http.Client, url string) (string, error) {
	debug.Log("GetText(%v)", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "NewRequest")
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "Get")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", NewStatusError(url, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "ReadAll")
	}

	return string(body), nil
}
