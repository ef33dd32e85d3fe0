// Package extract unpacks downloaded snapshot archives. Two container
// formats are published: a zip archive holding the database file (possibly
// under a directory prefix) and a raw zstd stream of the database itself.
package extract

import (
	"archive/zip"
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/klauspost/compress/zstd"

	"github.com/spacemeshos/quicksync/internal/errors"
	"github.com/spacemeshos/quicksync/internal/ui/progress"
)

// ErrEntryNotFound is returned when a zip archive does not contain the
// requested entry.
var ErrEntryNotFound = errors.New("file not found in archive")

// IsDiskFull reports whether err was caused by the disk running out of
// space. Callers use this to delete partial output and stop instead of
// retrying.
func IsDiskFull(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}

// Extract unpacks the archive at archivePath into outputPath, creating
// parent directories as needed. The container format is chosen by file
// extension: ".zip" archives must contain an entry whose name ends in
// entryName, ".zst" archives are decoded as a single zstd stream.
func Extract(archivePath, outputPath, entryName string, printer progress.Printer) error {
	switch filepath.Ext(archivePath) {
	case ".zip":
		return extractZip(archivePath, outputPath, entryName, printer)
	case ".zst":
		return extractZstd(archivePath, outputPath, printer)
	default:
		return errors.Errorf("unsupported archive format %q", filepath.Ext(archivePath))
	}
}

func extractZip(archivePath, outputPath, entryName string, printer progress.Printer) error {
	archive, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrap(err, "open zip")
	}
	defer func() {
		_ = archive.Close()
	}()

	// Match by suffix, archives may nest the file under a directory prefix.
	var entry *zip.File
	for _, f := range archive.File {
		if strings.HasSuffix(f.Name, entryName) {
			entry = f
			break
		}
	}
	if entry == nil {
		return errors.Wrapf(ErrEntryNotFound, "%q", entryName)
	}

	rc, err := entry.Open()
	if err != nil {
		return errors.Wrap(err, "open zip entry")
	}
	defer func() {
		_ = rc.Close()
	}()

	rd := newFractionReader(bufio.NewReaderSize(rc, 1<<20), entry.UncompressedSize64, printer)
	return writeOutput(outputPath, rd)
}

func extractZstd(archivePath, outputPath string, printer progress.Printer) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrap(err, "open archive")
	}
	defer func() {
		_ = f.Close()
	}()

	// High-ratio archives are encoded with very large windows, raise the
	// decoder limit to its maximum.
	dec, err := zstd.NewReader(bufio.NewReader(f), zstd.WithDecoderMaxWindow(zstd.MaxWindowSize))
	if err != nil {
		return errors.Wrap(err, "create zstd reader")
	}
	defer dec.Close()

	return writeOutput(outputPath, newCountingReader(dec.IOReadCloser(), printer))
}

func writeOutput(outputPath string, rd io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0700); err != nil {
		return errors.Wrap(err, "MkdirAll")
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return errors.Wrap(err, "create output")
	}

	w := bufio.NewWriterSize(out, 1<<20)
	if _, err := io.Copy(w, rd); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "extract")
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "flush output")
	}

	return errors.Wrap(out.Close(), "close output")
}
