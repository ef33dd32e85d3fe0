// Package checksum verifies downloaded archives and databases against the
// MD5 companions published by the distribution service. The algorithm choice
// is the service's, not ours.
package checksum

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spacemeshos/quicksync/internal/debug"
	"github.com/spacemeshos/quicksync/internal/errors"
	"github.com/spacemeshos/quicksync/internal/fetch"
)

// readBufferSize is the buffer used while digesting multi-gigabyte database
// files.
const readBufferSize = 16 * 1024 * 1024

// Calculate returns the hex-encoded MD5 digest of the file at path. The file
// is streamed, never loaded into memory as a whole.
func Calculate(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "Open")
	}
	defer func() {
		_ = f.Close()
	}()

	h := md5.New()
	if _, err := io.Copy(h, bufio.NewReaderSize(f, readBufferSize)); err != nil {
		return "", errors.Wrap(err, "read file")
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// CompanionURL derives the URL of the MD5 companion for a published archive
// or database URL.
func CompanionURL(url string) string {
	switch {
	case strings.HasSuffix(url, ".sql.zip"):
		return strings.TrimSuffix(url, ".sql.zip") + ".sql.md5"
	case strings.HasSuffix(url, ".sql.zst"):
		return strings.TrimSuffix(url, ".sql.zst") + ".sql.md5"
	default:
		return url + ".md5"
	}
}

// Fetch downloads the digest published for contentURL. A single trailing
// newline is stripped from the response.
func Fetch(ctx context.Context, client *http.Client, contentURL string) (string, error) {
	text, err := fetch.GetText(ctx, client, CompanionURL(contentURL))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(text, "\r\n"), nil
}

// Verify reports whether the file at path matches the digest published for
// contentURL. A mismatch is a normal false result; errors are reserved for
// I/O and network failures.
func Verify(ctx context.Context, client *http.Client, path, contentURL string) (bool, error) {
	expected, err := Fetch(ctx, client, contentURL)
	if err != nil {
		return false, err
	}

	actual, err := Calculate(path)
	if err != nil {
		return false, err
	}

	debug.Log("expected %v, actual %v", expected, actual)

	return strings.EqualFold(expected, actual), nil
}
