package checksum_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spacemeshos/quicksync/internal/checksum"
	rtest "github.com/spacemeshos/quicksync/internal/test"
)

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.sql")
	rtest.OK(t, os.WriteFile(path, content, 0600))
	return path
}

func TestCalculate(t *testing.T) {
	path := writeTempFile(t, []byte("hello world"))

	digest, err := checksum.Calculate(path)
	rtest.OK(t, err)
	rtest.Equals(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", digest)
}

func TestCalculateDeterministic(t *testing.T) {
	content := rtest.Random(23, 1<<20)
	path := writeTempFile(t, content)

	first, err := checksum.Calculate(path)
	rtest.OK(t, err)
	second, err := checksum.Calculate(path)
	rtest.OK(t, err)
	rtest.Equals(t, first, second)

	independent := md5.Sum(content)
	rtest.Equals(t, hex.EncodeToString(independent[:]), first)
}

func TestCompanionURL(t *testing.T) {
	for _, tc := range []struct {
		url, want string
	}{
		{"https://example.com/v1/state.sql.zip", "https://example.com/v1/state.sql.md5"},
		{"https://example.com/v1/state.sql.zst", "https://example.com/v1/state.sql.md5"},
		{"https://example.com/v1/state.zip", "https://example.com/v1/state.zip.md5"},
	} {
		rtest.Equals(t, tc.want, checksum.CompanionURL(tc.url))
	}
}

func TestVerify(t *testing.T) {
	content := []byte("hello world")
	path := writeTempFile(t, content)

	digest := md5.Sum(content)
	published := hex.EncodeToString(digest[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/state.sql.md5" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		// companions carry a trailing newline
		_, _ = w.Write([]byte(published + "\n"))
	}))
	defer srv.Close()

	ok, err := checksum.Verify(context.Background(), srv.Client(), path, srv.URL+"/v1/state.sql.zip")
	rtest.OK(t, err)
	rtest.Assert(t, ok, "expected checksums to match")
}

func TestVerifyMismatch(t *testing.T) {
	path := writeTempFile(t, []byte("hello world"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("00000000000000000000000000000000\n"))
	}))
	defer srv.Close()

	// a mismatch is a normal false result, not an error
	ok, err := checksum.Verify(context.Background(), srv.Client(), path, srv.URL+"/v1/state.sql.zst")
	rtest.OK(t, err)
	rtest.Assert(t, !ok, "expected checksum mismatch")
}

func TestVerifyFetchError(t *testing.T) {
	path := writeTempFile(t, []byte("hello world"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := checksum.Verify(context.Background(), srv.Client(), path, srv.URL+"/v1/state.sql.zip")
	rtest.Assert(t, err != nil, "expected error for failing companion endpoint")
}
