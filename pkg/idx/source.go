package idx

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/gzip"
)

const gzipMagic = "\x1f\x8b"

// source is a forward-only byte stream over one IDX file that tracks the
// offset of the next unread byte in the decoded (decompressed) stream.
type source struct {
	path string
	f    *os.File
	gz   *gzip.Reader
	r    *bufio.Reader
	off  int64
}

func openSource(path string) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, decodeErr(ErrFileNotFound, path, 0, err)
		}
		return nil, fmt.Errorf("idx: open %s: %w", path, err)
	}

	s := &source{path: path, f: f, r: bufio.NewReader(f)}
	head, err := s.r.Peek(len(gzipMagic))
	if err == nil && string(head) == gzipMagic {
		gz, gzErr := gzip.NewReader(s.r)
		if gzErr != nil {
			_ = f.Close()
			return nil, decodeErr(ErrTruncatedHeader, path, 0, gzErr)
		}
		s.gz = gz
		s.r = bufio.NewReader(gz)
	}
	return s, nil
}

func (s *source) compressed() bool {
	return s.gz != nil
}

// readFull reads exactly len(buf) bytes. A short read reports kind with the
// offset the read started at.
func (s *source) readFull(buf []byte, kind error) error {
	n, err := io.ReadFull(s.r, buf)
	start := s.off
	s.off += int64(n)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return decodeErr(kind, s.path, start, err)
	}
	return decodeErr(kind, s.path, start, fmt.Errorf("read %d bytes: %w", len(buf), err))
}

func (s *source) readU32(kind error) (uint32, error) {
	var b [4]byte
	if err := s.readFull(b[:], kind); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// discard skips n bytes forward.
func (s *source) discard(n int64, kind error) error {
	if n <= 0 {
		return nil
	}
	start := s.off
	got, err := io.CopyN(io.Discard, s.r, n)
	s.off += got
	if err != nil {
		return decodeErr(kind, s.path, start, err)
	}
	return nil
}

// size returns the file size of an uncompressed stream. It reports false for
// gzip streams, whose decoded size is unknown up front.
func (s *source) size() (int64, bool) {
	if s.compressed() {
		return 0, false
	}
	fi, err := s.f.Stat()
	if err != nil {
		return 0, false
	}
	return fi.Size(), true
}

// seekTo repositions an uncompressed stream at an absolute offset. It reports
// false when the stream cannot seek.
func (s *source) seekTo(off int64) (bool, error) {
	if s.compressed() {
		return false, nil
	}
	if _, err := s.f.Seek(off, io.SeekStart); err != nil {
		return true, fmt.Errorf("idx: seek %s to %d: %w", s.path, off, err)
	}
	s.r.Reset(s.f)
	s.off = off
	return true, nil
}

func (s *source) Close() error {
	if s == nil || s.f == nil {
		return nil
	}
	var gzErr error
	if s.gz != nil {
		gzErr = s.gz.Close()
		s.gz = nil
	}
	err := s.f.Close()
	s.f = nil
	s.r = nil
	if err != nil {
		return err
	}
	return gzErr
}
