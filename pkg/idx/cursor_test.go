package idx_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/mnistpng/pkg/idx"
	"github.com/samcharles93/mnistpng/pkg/idx/idxtest"
)

const (
	white    uint32 = 0xFFFFFFFF
	black    uint32 = 0xFF000000
	midGray  uint32 = 0xFF7F7F7F
	darkGray uint32 = 0xFFBFBFBF
)

func openCursor(t *testing.T, d idxtest.Dataset, opts ...idx.Option) *idx.Cursor {
	t.Helper()
	images, labels := idxtest.Write(t, t.TempDir(), d)
	c, err := idx.Open(images, labels, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestTwoByTwoScenario(t *testing.T) {
	t.Parallel()

	d := idxtest.Dataset{
		Rows: 2,
		Cols: 2,
		Pixels: [][]byte{
			{0, 255, 128, 64},
			{1, 2, 3, 4},
		},
		Labels: []byte{3, 7},
	}
	c := openCursor(t, d)

	assert.Equal(t, 2, c.RecordCount())
	cols, rows := c.Dims()
	assert.Equal(t, 2, cols)
	assert.Equal(t, 2, rows)

	rec, err := c.Record()
	require.NoError(t, err)
	assert.Equal(t, "3", rec.Label)
	assert.Equal(t, uint8(3), rec.Digit)
	// 255-128 = 127, 255-64 = 191
	assert.Equal(t, []uint32{white, black, midGray, darkGray}, rec.Pixels.Pix)
	assert.Equal(t, black, rec.Pixels.At(1, 0))
	assert.Equal(t, uint8(191), rec.Pixels.Gray(3))
}

func TestInvertGray(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(255), idx.InvertGray(0))
	assert.Equal(t, uint8(0), idx.InvertGray(255))
	for b := 0; b < 256; b++ {
		g := idx.InvertGray(byte(b))
		assert.Equal(t, byte(b), idx.InvertGray(g))
		p := idx.PackGray(g)
		assert.Equal(t, uint32(0xFF), p>>24, "alpha must be opaque")
		assert.Equal(t, uint32(g), p&0xFF)
		assert.Equal(t, uint32(g), (p>>8)&0xFF)
		assert.Equal(t, uint32(g), (p>>16)&0xFF)
	}
}

func TestRecordIsCached(t *testing.T) {
	t.Parallel()

	c := openCursor(t, idxtest.Sequential(3, 2, 2))

	first, err := c.Record()
	require.NoError(t, err)
	second, err := c.Record()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 0, c.Index())
}

func TestNextRecordWrapsAround(t *testing.T) {
	t.Parallel()

	const n = 5
	c := openCursor(t, idxtest.Sequential(n, 3, 3))

	for i := 0; i < n; i++ {
		rec, err := c.NextRecord()
		require.NoError(t, err)
		assert.Equal(t, i, rec.Index)
		assert.Equal(t, idx.PackGray(idx.InvertGray(byte(i))), rec.Pixels.Pix[0])
	}
	assert.Equal(t, 0, c.Index())

	// the second lap re-reads from the start of the streams
	rec, err := c.NextRecord()
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Index)
	assert.Equal(t, "0", rec.Label)
}

func TestSeekMatchesSequentialAdvance(t *testing.T) {
	t.Parallel()

	const n = 7
	d := idxtest.Sequential(n, 2, 3)

	for _, opts := range [][]idx.Option{nil, {idx.WithDirectSeek()}} {
		for i := 0; i < n; i++ {
			walker := openCursor(t, d, opts...)
			for j := 0; j < i; j++ {
				_, err := walker.NextRecord()
				require.NoError(t, err)
			}
			want, err := walker.Record()
			require.NoError(t, err)

			seeker := openCursor(t, d, opts...)
			require.NoError(t, seeker.Seek(i))
			got, err := seeker.Record()
			require.NoError(t, err)

			assert.Equal(t, want.Pixels, got.Pixels, "record %d", i)
			assert.Equal(t, want.Label, got.Label, "record %d", i)
			assert.Equal(t, i, seeker.Index())
		}
	}
}

func TestSeekBackwards(t *testing.T) {
	t.Parallel()

	c := openCursor(t, idxtest.Sequential(4, 1, 1))
	require.NoError(t, c.Seek(3))
	rec, err := c.Record()
	require.NoError(t, err)
	assert.Equal(t, "3", rec.Label)

	require.NoError(t, c.Seek(1))
	rec, err = c.Record()
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Label)
}

func TestSeekOutOfRange(t *testing.T) {
	t.Parallel()

	c := openCursor(t, idxtest.Sequential(3, 1, 1))
	require.NoError(t, c.Seek(2))
	before, err := c.Record()
	require.NoError(t, err)

	for _, target := range []int{-1, 3, 100} {
		err := c.Seek(target)
		require.ErrorIs(t, err, idx.ErrSeekOutOfRange, "target %d", target)
		assert.Equal(t, 2, c.Index())
	}

	after, err := c.Record()
	require.NoError(t, err)
	assert.Same(t, before, after)
}

func TestAdvanceWithoutRecordStaysInSync(t *testing.T) {
	t.Parallel()

	c := openCursor(t, idxtest.Sequential(6, 2, 2))

	c.Advance()
	c.Advance()
	rec, err := c.Record()
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Index)
	assert.Equal(t, "2", rec.Label)

	// skip the rest of the lap without reading, landing back on 0
	for c.Advance() != 0 {
	}
	rec, err = c.Record()
	require.NoError(t, err)
	assert.Equal(t, "0", rec.Label)
}

func TestSkip(t *testing.T) {
	t.Parallel()

	c := openCursor(t, idxtest.Sequential(5, 2, 2))
	require.NoError(t, c.Skip(2))
	rec, err := c.Record()
	require.NoError(t, err)
	assert.Equal(t, "2", rec.Label)

	require.NoError(t, c.Skip(4))
	rec, err = c.Record()
	require.NoError(t, err)
	assert.Equal(t, "4", rec.Label)

	err = c.Skip(1)
	require.ErrorIs(t, err, idx.ErrSeekOutOfRange)
	assert.Equal(t, 4, c.Index())

	err = c.Skip(5)
	require.ErrorIs(t, err, idx.ErrSeekOutOfRange)
}

func TestOpenInvalidMagic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	images, labels := idxtest.Write(t, dir, idxtest.Sequential(1, 1, 1))
	bogus := idxtest.WriteFile(t, filepath.Join(dir, "bogus"), []byte{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 9})

	_, err := idx.Open(bogus, labels)
	require.ErrorIs(t, err, idx.ErrInvalidMagicNumber)

	_, err = idx.Open(images, bogus)
	require.ErrorIs(t, err, idx.ErrInvalidMagicNumber)

	// swapped roles
	_, err = idx.Open(labels, images)
	require.ErrorIs(t, err, idx.ErrInvalidMagicNumber)
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	images, labels := idxtest.Write(t, dir, idxtest.Sequential(1, 1, 1))

	_, err := idx.Open(filepath.Join(dir, "nope"), labels)
	require.ErrorIs(t, err, idx.ErrFileNotFound)

	_, err = idx.Open(images, filepath.Join(dir, "nope"))
	require.ErrorIs(t, err, idx.ErrFileNotFound)
}

func TestOpenTruncatedHeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, labels := idxtest.Write(t, dir, idxtest.Sequential(1, 1, 1))
	short := idxtest.WriteFile(t, filepath.Join(dir, "short"), []byte{0, 0, 8, 3, 0, 0, 0, 1, 0, 0, 0, 1})

	_, err := idx.Open(short, labels)
	require.ErrorIs(t, err, idx.ErrTruncatedHeader)
}

func TestShortLabelFile(t *testing.T) {
	t.Parallel()

	d := idxtest.Sequential(3, 2, 2)
	d.Labels = d.Labels[:2]
	c := openCursor(t, d)

	for i := 0; i < 2; i++ {
		_, err := c.NextRecord()
		require.NoError(t, err)
	}
	_, err := c.NextRecord()
	require.ErrorIs(t, err, idx.ErrTruncatedRecord)
	assert.Equal(t, 2, c.Index(), "failed reads do not advance")

	var de *idx.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Path, "labels")
	assert.EqualValues(t, 10, de.Offset)
}

func TestShortImageFile(t *testing.T) {
	t.Parallel()

	d := idxtest.Sequential(2, 2, 2)
	d.Pixels[1] = d.Pixels[1][:3]
	c := openCursor(t, d)

	require.NoError(t, c.Seek(1))
	_, err := c.Record()
	require.ErrorIs(t, err, idx.ErrTruncatedRecord)

	// the cursor recovers by re-scanning
	require.NoError(t, c.Seek(0))
	rec, err := c.Record()
	require.NoError(t, err)
	assert.Equal(t, "0", rec.Label)
}

func TestRecordCountMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	images, _ := idxtest.Write(t, dir, idxtest.Sequential(3, 1, 1))
	labels := idxtest.WriteFile(t, filepath.Join(dir, "two-labels"), []byte{0, 0, 8, 1, 0, 0, 0, 2, 5, 6})

	_, err := idx.Open(images, labels)
	require.ErrorIs(t, err, idx.ErrRecordCountMismatch)

	c, err := idx.Open(images, labels, idx.WithoutCountCheck())
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	assert.Equal(t, 3, c.RecordCount())
	assert.EqualValues(t, 2, c.LabelHeader().Count)

	rec, err := c.Record()
	require.NoError(t, err)
	assert.Equal(t, "5", rec.Label)
}

func TestGzipInput(t *testing.T) {
	t.Parallel()

	d := idxtest.Sequential(4, 3, 3)
	images, labels := idxtest.WriteGzip(t, t.TempDir(), d)

	c, err := idx.Open(images, labels, idx.WithDirectSeek())
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, 4, c.RecordCount())
	require.NoError(t, c.Seek(3))
	rec, err := c.Record()
	require.NoError(t, err)
	assert.Equal(t, "3", rec.Label)

	require.NoError(t, c.Seek(1))
	rec, err = c.NextRecord()
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Label)
	assert.Equal(t, 2, c.Index())
}

func TestClosedCursor(t *testing.T) {
	t.Parallel()

	images, labels := idxtest.Write(t, t.TempDir(), idxtest.Sequential(2, 1, 1))
	c, err := idx.Open(images, labels)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Record()
	require.ErrorIs(t, err, idx.ErrClosed)
	require.ErrorIs(t, c.Seek(0), idx.ErrClosed)
	require.ErrorIs(t, c.Skip(1), idx.ErrClosed)
	assert.Equal(t, 0, c.Advance())
}

func TestEmptyDataset(t *testing.T) {
	t.Parallel()

	c := openCursor(t, idxtest.Dataset{Rows: 2, Cols: 2})
	assert.Equal(t, 0, c.RecordCount())
	assert.Equal(t, 0, c.Advance())

	_, err := c.Record()
	require.ErrorIs(t, err, idx.ErrSeekOutOfRange)
}

func TestPixelBufferImage(t *testing.T) {
	t.Parallel()

	c := openCursor(t, idxtest.Dataset{
		Rows:   2,
		Cols:   3,
		Pixels: [][]byte{{0, 10, 20, 30, 40, 255}},
		Labels: []byte{9},
	})
	rec, err := c.Record()
	require.NoError(t, err)

	img := rec.Pixels.Image()
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.Equal(t, uint8(255), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(215), img.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(0), img.GrayAt(2, 1).Y)
}

func imageHeader(count, rows, cols uint32) []byte {
	b := []byte{0, 0, 8, 3}
	for _, v := range []uint32{count, rows, cols} {
		b = append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return b
}

func TestOpenRejectsOversizedDimensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, labels := idxtest.Write(t, dir, idxtest.Sequential(1, 1, 1))

	tests := []struct {
		name       string
		rows, cols uint32
	}{
		{"max uint32", 0xFFFFFFFF, 0xFFFFFFFF},
		{"over the limit", 65536, 65536},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := idxtest.WriteFile(t, filepath.Join(t.TempDir(), "images"),
				append(imageHeader(1, tt.rows, tt.cols), 0, 0, 0, 0))

			_, err := idx.Open(path, labels)
			require.ErrorIs(t, err, idx.ErrInvalidHeader)

			var de *idx.DecodeError
			require.ErrorAs(t, err, &de)
			assert.EqualValues(t, 8, de.Offset)
		})
	}
}

func TestOpenRejectsRecordLargerThanFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, labels := idxtest.Write(t, dir, idxtest.Sequential(1, 1, 1))
	raw := append(imageHeader(1, 1024, 1024), 0, 0, 0, 0)

	plain := idxtest.WriteFile(t, filepath.Join(dir, "images"), raw)
	_, err := idx.Open(plain, labels)
	require.ErrorIs(t, err, idx.ErrInvalidHeader)

	// gzip sizes are unknown until read, so the short record surfaces on read
	gz := idxtest.WriteFile(t, filepath.Join(dir, "images.gz"), idxtest.Gzip(t, raw))
	c, err := idx.Open(gz, labels)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	_, err = c.Record()
	require.ErrorIs(t, err, idx.ErrTruncatedRecord)
}

func TestSkipToCurrentIndex(t *testing.T) {
	t.Parallel()

	c := openCursor(t, idxtest.Sequential(4, 2, 2))
	require.NoError(t, c.Seek(2))
	rec, err := c.Record()
	require.NoError(t, err)

	require.NoError(t, c.Skip(2))
	again, err := c.Record()
	require.NoError(t, err)
	assert.Same(t, rec, again)
	assert.Equal(t, 2, c.Index())

	require.NoError(t, c.Skip(3))
	rec, err = c.Record()
	require.NoError(t, err)
	assert.Equal(t, "3", rec.Label)
}
