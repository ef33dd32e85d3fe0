package extract

import (
	"io"

	"github.com/spacemeshos/quicksync/internal/ui/progress"
)

const megabyte = 1 << 20

// countingReader reports extraction progress by absolute MB extracted. Used
// for zstd streams, where the decoded size is not known up front.
type countingReader struct {
	rd      io.Reader
	printer progress.Printer

	read         uint64
	lastReported uint64
}

func newCountingReader(rd io.Reader, printer progress.Printer) *countingReader {
	return &countingReader{rd: rd, printer: printer}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.rd.Read(p)
	c.read += uint64(n)

	if c.read/megabyte > c.lastReported/megabyte {
		c.printer.P("Unpacking... %d MB extracted", c.read/megabyte)
		c.lastReported = c.read
	}

	return n, err
}

// fractionReader reports extraction progress as a percentage of a known
// total. Used for zip entries, whose uncompressed size is in the archive
// directory.
type fractionReader struct {
	rd      io.Reader
	total   uint64
	printer progress.Printer

	read        uint64
	lastPercent uint64
}

func newFractionReader(rd io.Reader, total uint64, printer progress.Printer) *fractionReader {
	return &fractionReader{rd: rd, total: total, printer: printer}
}

func (f *fractionReader) Read(p []byte) (int, error) {
	n, err := f.rd.Read(p)
	f.read += uint64(n)

	if f.total > 0 {
		percent := f.read * 100 / f.total
		if percent != f.lastPercent {
			f.printer.P("Unzipping... %d%%", percent)
			f.lastPercent = percent
		}
	}

	return n, err
}
