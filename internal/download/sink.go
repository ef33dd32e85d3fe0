package download

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spacemeshos/quicksync/internal/errors"
)

// A Sink receives downloaded bytes. It is the minimal capability set the
// resumable downloader needs: sequential writes, seeking and reporting how
// many bytes it already holds. The confirmed length is what makes resuming
// work: a new attempt continues exactly after the last byte the sink has.
type Sink interface {
	io.Writer
	io.Seeker

	// Len returns the number of bytes currently held by the sink.
	Len() (int64, error)
}

// FileSink is a Sink backed by a file on disk.
type FileSink struct {
	f *os.File
}

var _ Sink = (*FileSink)(nil)

// CreateFileSink opens path for a (possibly resumed) download, creating the
// file and its parent directories as needed. Existing content is kept, it
// counts as already-confirmed bytes.
func CreateFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "MkdirAll")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "OpenFile")
	}

	return &FileSink{f: f}, nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

func (s *FileSink) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}

func (s *FileSink) Len() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "Stat")
	}
	return fi.Size(), nil
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	return s.f.Close()
}

// BufferSink is an in-memory Sink for deterministic tests.
type BufferSink struct {
	buf []byte
	pos int64
}

var _ Sink = (*BufferSink)(nil)

func (s *BufferSink) Write(p []byte) (int, error) {
	if grow := s.pos + int64(len(p)) - int64(len(s.buf)); grow > 0 {
		s.buf = append(s.buf, make([]byte, grow)...)
	}
	copy(s.buf[s.pos:], p)
	s.pos += int64(len(p))
	return len(p), nil
}

func (s *BufferSink) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		abs = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	s.pos = abs
	return abs, nil
}

func (s *BufferSink) Len() (int64, error) {
	return int64(len(s.buf)), nil
}

// Bytes returns the sink's content.
func (s *BufferSink) Bytes() []byte {
	return s.buf
}
