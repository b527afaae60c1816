package idx

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound        = errors.New("idx: file not found")
	ErrTruncatedHeader     = errors.New("idx: truncated header")
	ErrInvalidHeader       = errors.New("idx: invalid header")
	ErrInvalidMagicNumber  = errors.New("idx: invalid magic number")
	ErrTruncatedRecord     = errors.New("idx: truncated record")
	ErrSeekOutOfRange      = errors.New("idx: seek out of range")
	ErrRecordCountMismatch = errors.New("idx: record count mismatch")
	ErrClosed              = errors.New("idx: cursor closed")
)

// DecodeError reports which file and byte offset a decode failure happened at.
// Kind is one of the package sentinels; Err is the underlying cause, if any.
type DecodeError struct {
	Path   string
	Offset int64
	Kind   error
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%v: %s at offset %d", e.Kind, e.Path, e.Offset)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func decodeErr(kind error, path string, off int64, cause error) error {
	return &DecodeError{Path: path, Offset: off, Kind: kind, Err: cause}
}

func fmtMagic(got, want uint32) error {
	if want == 0 {
		return fmt.Errorf("got magic %d (0x%08x)", got, got)
	}
	return fmt.Errorf("got magic %d (0x%08x), want %d", got, got, want)
}
