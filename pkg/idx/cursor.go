package idx

import (
	"errors"
	"fmt"
)

// Option configures a Cursor.
type Option func(*options)

type options struct {
	directSeek bool
	countCheck bool
}

// WithDirectSeek repositions uncompressed files at the computed byte offset
// instead of re-reading them from the start. Gzip inputs always re-scan.
func WithDirectSeek() Option {
	return func(o *options) { o.directSeek = true }
}

// WithoutCountCheck trusts the image header's record count and skips the
// comparison against the label header.
func WithoutCountCheck() Option {
	return func(o *options) { o.countCheck = false }
}

// Cursor walks a pair of IDX image and label files in lockstep.
//
// The cursor keeps two positions: the logical index returned by Index, and
// the physical position pos, which is the record whose bytes come next in
// both streams. Record brings pos to index before reading, so Advance never
// needs to touch the streams. A negative pos means the streams are in an
// unknown state and must be re-scanned.
//
// A Cursor is not safe for concurrent use.
type Cursor struct {
	imagePath string
	labelPath string
	opts      options

	images *source
	labels *source

	imageHdr   Header
	labelHdr   Header
	recordSize int64
	count      int

	index   int
	pos     int
	current *Record
	closed  bool
}

// Open opens an image file and its label file and positions the cursor on
// record 0.
func Open(imagePath, labelPath string, opts ...Option) (*Cursor, error) {
	c := &Cursor{
		imagePath: imagePath,
		labelPath: labelPath,
		opts:      options{countCheck: true},
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

// init (re)opens both streams at byte 0 and parses their headers.
func (c *Cursor) init() error {
	c.closeSources()

	images, err := openSource(c.imagePath)
	if err != nil {
		return err
	}
	labels, err := openSource(c.labelPath)
	if err != nil {
		_ = images.Close()
		return err
	}
	cleanup := func(err error) error {
		_ = images.Close()
		_ = labels.Close()
		return err
	}

	ih, err := readHeader(images, true)
	if err != nil {
		return cleanup(err)
	}
	lh, err := readHeader(labels, false)
	if err != nil {
		return cleanup(err)
	}
	if c.opts.countCheck && lh.Count != ih.Count {
		return cleanup(&DecodeError{
			Path:   c.labelPath,
			Offset: 4,
			Kind:   ErrRecordCountMismatch,
			Err:    fmt.Errorf("%d labels for %d images", lh.Count, ih.Count),
		})
	}

	if size, ok := images.size(); ok && ih.Count > 0 && ImageHeaderSize+ih.RecordSize() > size {
		return cleanup(&DecodeError{
			Path:   c.imagePath,
			Offset: 8,
			Kind:   ErrInvalidHeader,
			Err:    fmt.Errorf("%dx%d record does not fit in a %d byte file", ih.Rows, ih.Cols, size),
		})
	}

	c.images, c.labels = images, labels
	c.imageHdr, c.labelHdr = ih, lh
	c.recordSize = ih.RecordSize()
	c.count = int(ih.Count)
	c.pos = 0
	return nil
}

func (c *Cursor) closeSources() {
	if c.images != nil {
		_ = c.images.Close()
		c.images = nil
	}
	if c.labels != nil {
		_ = c.labels.Close()
		c.labels = nil
	}
	c.pos = -1
}

// RecordCount returns the number of records declared by the image header.
func (c *Cursor) RecordCount() int {
	return c.count
}

// Index returns the logical cursor position.
func (c *Cursor) Index() int {
	return c.index
}

// Header returns the image file header.
func (c *Cursor) Header() Header {
	return c.imageHdr
}

// LabelHeader returns the label file header.
func (c *Cursor) LabelHeader() Header {
	return c.labelHdr
}

// Dims returns the width and height of every record.
func (c *Cursor) Dims() (cols, rows int) {
	return int(c.imageHdr.Cols), int(c.imageHdr.Rows)
}

// Record decodes the record at the current index. Repeated calls without
// moving the cursor return the same record without reading.
func (c *Cursor) Record() (*Record, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.current != nil {
		return c.current, nil
	}
	if err := c.checkRange(c.index); err != nil {
		return nil, err
	}
	if err := c.syncTo(c.index); err != nil {
		return nil, err
	}

	raw := make([]byte, c.recordSize)
	if err := c.images.readFull(raw, ErrTruncatedRecord); err != nil {
		c.pos = -1
		return nil, err
	}
	var lb [1]byte
	if err := c.labels.readFull(lb[:], ErrTruncatedRecord); err != nil {
		c.pos = -1
		return nil, err
	}

	cols, rows := c.Dims()
	c.current = &Record{
		Index:  c.index,
		Pixels: newPixelBuffer(raw, cols, rows),
		Label:  labelString(lb[0]),
		Digit:  lb[0],
	}
	c.pos = c.index + 1
	return c.current, nil
}

// Advance moves the logical index to the next record, wrapping to 0 after
// the last one, and returns the new index. It does not read.
func (c *Cursor) Advance() int {
	if c.closed || c.count == 0 {
		return c.index
	}
	c.index = (c.index + 1) % c.count
	c.current = nil
	return c.index
}

// NextRecord decodes the current record and then advances past it.
// The cursor does not move when decoding fails.
func (c *Cursor) NextRecord() (*Record, error) {
	rec, err := c.Record()
	if err != nil {
		return nil, err
	}
	c.Advance()
	return rec, nil
}

// Seek moves the cursor to target by re-opening both files and skipping
// forward from the first record. Out of range targets leave the cursor
// untouched.
func (c *Cursor) Seek(target int) error {
	if c.closed {
		return ErrClosed
	}
	if err := c.checkRange(target); err != nil {
		return err
	}
	if err := c.rescan(target); err != nil {
		return err
	}
	c.index = target
	c.current = nil
	return nil
}

// Skip moves the cursor to target by skipping forward from the current
// stream position without re-opening the files. It cannot move backwards
// past the next unread record; skipping to the current index is a no-op.
func (c *Cursor) Skip(target int) error {
	if c.closed {
		return ErrClosed
	}
	if err := c.checkRange(target); err != nil {
		return err
	}
	if target == c.index {
		return nil
	}
	if c.pos < 0 || target < c.pos {
		return &DecodeError{
			Path:   c.imagePath,
			Offset: c.imageOffset(target),
			Kind:   ErrSeekOutOfRange,
			Err:    fmt.Errorf("cannot skip back to record %d from stream position %d", target, c.pos),
		}
	}
	if err := c.skipForward(target); err != nil {
		return err
	}
	c.index = target
	c.current = nil
	return nil
}

// Close releases both files. It is safe to call more than once.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.current = nil
	var errs []error
	if c.images != nil {
		errs = append(errs, c.images.Close())
		c.images = nil
	}
	if c.labels != nil {
		errs = append(errs, c.labels.Close())
		c.labels = nil
	}
	return errors.Join(errs...)
}

func (c *Cursor) checkRange(target int) error {
	if target >= 0 && target < c.count {
		return nil
	}
	return &DecodeError{
		Path:   c.imagePath,
		Offset: c.imageOffset(target),
		Kind:   ErrSeekOutOfRange,
		Err:    fmt.Errorf("record %d not in [0, %d)", target, c.count),
	}
}

func (c *Cursor) imageOffset(record int) int64 {
	return ImageHeaderSize + int64(record)*c.recordSize
}

func (c *Cursor) labelOffset(record int) int64 {
	return LabelHeaderSize + int64(record)
}

// syncTo brings the physical stream position to target.
func (c *Cursor) syncTo(target int) error {
	if c.images == nil || c.labels == nil || c.pos < 0 || c.pos > target {
		return c.rescan(target)
	}
	return c.skipForward(target)
}

// rescan positions both streams at target from a known state: a direct seek
// when enabled and possible, otherwise a re-open and skip from byte 0.
func (c *Cursor) rescan(target int) error {
	if c.opts.directSeek && c.images != nil && c.labels != nil &&
		!c.images.compressed() && !c.labels.compressed() {
		if _, err := c.images.seekTo(c.imageOffset(target)); err != nil {
			c.pos = -1
			return err
		}
		if _, err := c.labels.seekTo(c.labelOffset(target)); err != nil {
			c.pos = -1
			return err
		}
		c.pos = target
		return nil
	}
	if err := c.init(); err != nil {
		return err
	}
	return c.skipForward(target)
}

func (c *Cursor) skipForward(target int) error {
	n := target - c.pos
	if err := c.images.discard(int64(n)*c.recordSize, ErrTruncatedRecord); err != nil {
		c.pos = -1
		return err
	}
	if err := c.labels.discard(int64(n), ErrTruncatedRecord); err != nil {
		c.pos = -1
		return err
	}
	c.pos = target
	return nil
}
