package extract_test

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/spacemeshos/quicksync/internal/errors"
	"github.com/spacemeshos/quicksync/internal/extract"
	rtest "github.com/spacemeshos/quicksync/internal/test"
	"github.com/spacemeshos/quicksync/internal/ui/progress"
)

func writeZipArchive(t *testing.T, entryName string, content []byte) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(entryName)
	rtest.OK(t, err)
	_, err = w.Write(content)
	rtest.OK(t, err)
	rtest.OK(t, zw.Close())

	path := filepath.Join(t.TempDir(), "state.zip")
	rtest.OK(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

func writeZstdArchive(t *testing.T, content []byte) string {
	t.Helper()

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	rtest.OK(t, err)
	_, err = enc.Write(content)
	rtest.OK(t, err)
	rtest.OK(t, enc.Close())

	path := filepath.Join(t.TempDir(), "state.zst")
	rtest.OK(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

func TestExtractZip(t *testing.T) {
	content := rtest.Random(5, 512*1024)
	// the entry may be nested below a directory prefix, it is matched by suffix
	archive := writeZipArchive(t, "some/dir/state.sql", content)
	output := filepath.Join(t.TempDir(), "out", "state.sql")

	rtest.OK(t, extract.Extract(archive, output, "state.sql", &progress.NoopPrinter{}))

	got, err := os.ReadFile(output)
	rtest.OK(t, err)
	rtest.Assert(t, bytes.Equal(content, got), "extracted content differs")
}

func TestExtractZipEntryNotFound(t *testing.T) {
	archive := writeZipArchive(t, "README.md", []byte("nothing here"))
	output := filepath.Join(t.TempDir(), "state.sql")

	err := extract.Extract(archive, output, "state.sql", &progress.NoopPrinter{})
	rtest.Assert(t, errors.Is(err, extract.ErrEntryNotFound), "expected ErrEntryNotFound, got %v", err)
}

func TestExtractZstd(t *testing.T) {
	content := rtest.Random(17, 2<<20)
	archive := writeZstdArchive(t, content)
	output := filepath.Join(t.TempDir(), "out", "state.sql")

	rtest.OK(t, extract.Extract(archive, output, "state.sql", &progress.NoopPrinter{}))

	got, err := os.ReadFile(output)
	rtest.OK(t, err)
	rtest.Assert(t, bytes.Equal(content, got), "extracted content differs")
}

func TestExtractUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.tar")
	rtest.OK(t, os.WriteFile(path, []byte("not an archive"), 0600))

	err := extract.Extract(path, filepath.Join(t.TempDir(), "out"), "state.sql", &progress.NoopPrinter{})
	rtest.Assert(t, err != nil, "expected error for unsupported format")
}

func TestIsDiskFull(t *testing.T) {
	enospc := &os.PathError{Op: "write", Path: "state.sql", Err: syscall.ENOSPC}
	rtest.Assert(t, extract.IsDiskFull(enospc), "ENOSPC not detected as disk full")
	rtest.Assert(t, extract.IsDiskFull(errors.Wrap(enospc, "extract")), "wrapped ENOSPC not detected")
	rtest.Assert(t, !extract.IsDiskFull(errors.New("some error")), "generic error misdetected as disk full")
	rtest.Assert(t, !extract.IsDiskFull(nil), "nil error misdetected as disk full")
}
