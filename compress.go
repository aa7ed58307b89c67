package imtool

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

const (
	compressedMagic = "C6"

	// maxTableSize is the largest color table a 4-byte index can address.
	maxTableSize = 1 << 32
)

// ColorTable assigns dense indices to the distinct colors of a buffer in the
// order they are first seen during a scan-order pass.
type ColorTable struct {
	index  map[Pixel]uint32
	colors []Pixel
}

// BuildColorTable scans b left to right, top to bottom and indexes each new color.
func BuildColorTable(b *Buffer) (*ColorTable, error) {
	t := &ColorTable{index: make(map[Pixel]uint32)}
	for _, p := range b.Pixels() {
		if _, ok := t.index[p]; ok {
			continue
		}
		if uint64(len(t.colors)) >= maxTableSize {
			return nil, fmt.Errorf("%w: more than %d distinct colors", ErrTooManyColors, uint64(maxTableSize))
		}
		t.index[p] = uint32(len(t.colors))
		t.colors = append(t.colors, p)
	}
	return t, nil
}

// Len returns the number of distinct colors.
func (t *ColorTable) Len() int { return len(t.colors) }

// Colors returns the table entries in index order. The slice must not be modified.
func (t *ColorTable) Colors() []Pixel { return t.colors }

// Index returns the index assigned to p.
func (t *ColorTable) Index(p Pixel) (uint32, bool) {
	i, ok := t.index[p]
	return i, ok
}

// IndexWidth returns the bytes per pixel index needed for a table of the given
// size: 1 up to 2^8 entries, 2 up to 2^16, 4 up to 2^32.
func IndexWidth(tableSize int) (int, error) {
	switch {
	case tableSize <= 1<<8:
		return 1, nil
	case tableSize <= 1<<16:
		return 2, nil
	case uint64(tableSize) <= maxTableSize:
		return 4, nil
	default:
		return 0, fmt.Errorf("%w: %d entries", ErrTooManyColors, tableSize)
	}
}

// Compress writes b to w as a C6 indexed container:
//
//	C6 <width> <height> <maxColorValue> <tableSize>\n
//	<tableSize colors, 3 samples each at the P6 sample width, big-endian>
//	<width*height indices, little-endian, 1, 2 or 4 bytes each>
func Compress(w io.Writer, b *Buffer) error {
	t, err := BuildColorTable(b)
	if err != nil {
		return err
	}
	return t.encode(w, b)
}

// encode writes the C6 container for b, which must be the buffer t was built from.
func (t *ColorTable) encode(w io.Writer, b *Buffer) error {
	iw, err := IndexWidth(t.Len())
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s %d %d %d %d\n",
		compressedMagic, b.width, b.height, b.maxColorValue, t.Len()); err != nil {
		return err
	}

	sw := sampleWidth(b.maxColorValue)
	entry := make([]byte, 0, 3*sw)
	for _, c := range t.colors {
		entry = appendSample(entry[:0], c.Red, sw)
		entry = appendSample(entry, c.Green, sw)
		entry = appendSample(entry, c.Blue, sw)
		if _, err := bw.Write(entry); err != nil {
			return err
		}
	}

	row := make([]byte, 0, b.width*iw)
	for y := 0; y < b.height; y++ {
		row = row[:0]
		base := y * b.width
		for x := 0; x < b.width; x++ {
			row = appendIndex(row, t.index[b.at(base+x)], iw)
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// CompressBytes returns the C6 encoding of b.
func CompressBytes(b *Buffer) ([]byte, error) {
	var buf bytes.Buffer
	if err := Compress(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// appendIndex appends idx little-endian in width bytes.
func appendIndex(dst []byte, idx uint32, width int) []byte {
	for i := 0; i < width; i++ {
		dst = append(dst, byte(idx>>(byteShift*i)))
	}
	return dst
}

// compressedSize predicts the length of the C6 encoding without producing it.
func compressedSize(h Header, tableSize int) (int64, error) {
	iw, err := IndexWidth(tableSize)
	if err != nil {
		return 0, err
	}
	header := len(fmt.Sprintf("%s %d %d %d %d\n", compressedMagic, h.Width, h.Height, h.MaxColorValue, tableSize))
	return int64(header) +
		int64(tableSize)*3*int64(h.SampleWidth()) +
		int64(h.Width)*int64(h.Height)*int64(iw), nil
}
