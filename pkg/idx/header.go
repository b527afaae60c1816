package idx

import "fmt"

// IDX files start with a big-endian magic number whose third byte is the
// element type (0x08 = unsigned byte) and fourth byte the number of
// dimensions, followed by one big-endian uint32 per dimension.
const (
	MagicLabels uint32 = 0x00000801 // 2049
	MagicImages uint32 = 0x00000803 // 2051

	LabelHeaderSize = 8
	ImageHeaderSize = 16

	// MaxRecordSize bounds rows*cols so a corrupt header cannot force a
	// huge allocation.
	MaxRecordSize = 1 << 24
)

// Header describes an IDX file. Rows and Cols are zero for label files.
type Header struct {
	Magic uint32 `json:"magic"`
	Count uint32 `json:"count"`
	Rows  uint32 `json:"rows,omitempty"`
	Cols  uint32 `json:"cols,omitempty"`
}

// IsImages reports whether the header belongs to an image file.
func (h Header) IsImages() bool {
	return h.Magic == MagicImages
}

// Size is the encoded size of the header in bytes.
func (h Header) Size() int64 {
	if h.IsImages() {
		return ImageHeaderSize
	}
	return LabelHeaderSize
}

// RecordSize is the number of payload bytes per record.
func (h Header) RecordSize() int64 {
	if h.IsImages() {
		return int64(h.Rows) * int64(h.Cols)
	}
	return 1
}

func expectedMagic(images bool) uint32 {
	if images {
		return MagicImages
	}
	return MagicLabels
}

// ReadMagic returns the first four bytes of path as a big-endian uint32.
func ReadMagic(path string) (uint32, error) {
	s, err := openSource(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = s.Close() }()
	return s.readU32(ErrTruncatedHeader)
}

// IsValidMnistFile reports whether path starts with the image (expectImage)
// or label magic number. Any I/O failure counts as not valid. Gzipped files
// are checked after decompression, so a valid .gz dataset is reported as
// valid even though its first raw bytes are the gzip magic.
func IsValidMnistFile(path string, expectImage bool) bool {
	magic, err := ReadMagic(path)
	if err != nil {
		return false
	}
	return magic == expectedMagic(expectImage)
}

// ReadHeader reads the header of path for whichever role its magic names.
func ReadHeader(path string) (Header, error) {
	s, err := openSource(path)
	if err != nil {
		return Header{}, err
	}
	defer func() { _ = s.Close() }()

	magic, err := s.readU32(ErrTruncatedHeader)
	if err != nil {
		return Header{}, err
	}
	switch magic {
	case MagicImages:
		return readHeaderBody(s, magic, true)
	case MagicLabels:
		return readHeaderBody(s, magic, false)
	default:
		return Header{}, &DecodeError{
			Path: path,
			Kind: ErrInvalidMagicNumber,
			Err:  fmtMagic(magic, 0),
		}
	}
}

// readHeader reads and validates the header at the start of s.
func readHeader(s *source, images bool) (Header, error) {
	magic, err := s.readU32(ErrTruncatedHeader)
	if err != nil {
		return Header{}, err
	}
	want := expectedMagic(images)
	if magic != want {
		return Header{}, &DecodeError{
			Path: s.path,
			Kind: ErrInvalidMagicNumber,
			Err:  fmtMagic(magic, want),
		}
	}
	return readHeaderBody(s, magic, images)
}

func readHeaderBody(s *source, magic uint32, images bool) (Header, error) {
	h := Header{Magic: magic}
	var err error
	if h.Count, err = s.readU32(ErrTruncatedHeader); err != nil {
		return Header{}, err
	}
	if !images {
		return h, nil
	}
	if h.Rows, err = s.readU32(ErrTruncatedHeader); err != nil {
		return Header{}, err
	}
	if h.Cols, err = s.readU32(ErrTruncatedHeader); err != nil {
		return Header{}, err
	}
	if n := uint64(h.Rows) * uint64(h.Cols); n > MaxRecordSize {
		return Header{}, &DecodeError{
			Path:   s.path,
			Offset: 8,
			Kind:   ErrInvalidHeader,
			Err:    fmt.Errorf("%dx%d record is %d bytes, limit %d", h.Rows, h.Cols, n, MaxRecordSize),
		}
	}
	return h, nil
}
