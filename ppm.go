package imtool

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

const (
	ppmMagic = "P6"

	byteShift = 8
	byteMask  = 0xff

	// decodePreallocPixels caps the plane capacity reserved from the header alone.
	decodePreallocPixels = 1 << 20
)

// headerReader tokenizes a netpbm-style ASCII header: tokens separated by
// whitespace, with '#' comments running to the end of the line.
type headerReader struct {
	r *bufio.Reader
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// token returns the next token and consumes the single whitespace byte that
// terminates it, so the reader sits on the first payload byte after the last
// header field.
func (hr *headerReader) token() (string, error) {
	var c byte
	var err error
	for {
		c, err = hr.r.ReadByte()
		if err != nil {
			return "", err
		}
		if c == '#' {
			if _, err := hr.r.ReadString('\n'); err != nil {
				return "", err
			}
			continue
		}
		if !isSpace(c) {
			break
		}
	}

	tok := []byte{c}
	for {
		c, err = hr.r.ReadByte()
		if err == io.EOF {
			return string(tok), nil
		}
		if err != nil {
			return "", err
		}
		if isSpace(c) {
			return string(tok), nil
		}
		tok = append(tok, c)
	}
}

func (hr *headerReader) number(field string) (int, error) {
	tok, err := hr.token()
	if err != nil {
		return 0, headerErr(field, err)
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return 0, fmt.Errorf("%w: %s %q", ErrInvalidHeader, field, tok)
		}
	}
	n, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidHeader, field, tok)
	}
	return int(n), nil
}

func headerErr(field string, err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: header ended before %s", ErrTruncatedData, field)
	}
	return fmt.Errorf("%w: reading %s: %v", ErrIO, field, err)
}

func readHeader(r *bufio.Reader) (Header, error) {
	hr := headerReader{r: r}

	magic, err := hr.token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, fmt.Errorf("%w: empty input", ErrTruncatedData)
		}
		return Header{}, headerErr("magic", err)
	}
	if magic != ppmMagic {
		return Header{}, fmt.Errorf("%w: magic %q", ErrUnsupportedFormat, magic)
	}

	var h Header
	if h.Width, err = hr.number("width"); err != nil {
		return Header{}, err
	}
	if h.Height, err = hr.number("height"); err != nil {
		return Header{}, err
	}
	if h.Width < 1 || h.Height < 1 {
		return Header{}, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidHeader, h.Width, h.Height)
	}
	if h.MaxColorValue, err = hr.number("max color value"); err != nil {
		if errors.Is(err, ErrInvalidHeader) {
			// Out-of-range numbers are a max color problem, not a syntax one.
			return Header{}, fmt.Errorf("%w: %v", ErrInvalidMaxColor, err)
		}
		return Header{}, err
	}
	if !validMaxColor(h.MaxColorValue) {
		return Header{}, fmt.Errorf("%w: %d (must be between %d and %d)",
			ErrInvalidMaxColor, h.MaxColorValue, MinColorValue, MaxColorValue16Bit)
	}
	if uint64(h.Width)*uint64(h.Height) > math.MaxInt32 {
		return Header{}, fmt.Errorf("%w: %dx%d is too large", ErrInvalidHeader, h.Width, h.Height)
	}
	return h, nil
}

// DecodeHeader reads only the P6 header from r.
func DecodeHeader(r io.Reader) (Header, error) {
	return readHeader(bufio.NewReader(r))
}

// Decode reads a P6 image from r. Samples are one byte wide when the max color
// value is at most 255 and two bytes, big-endian, otherwise. Bytes after the
// last pixel are ignored.
//
// The planes grow as pixels arrive, so a header that promises more data than
// the input holds fails with ErrTruncatedData without a matching allocation.
func Decode(r io.Reader) (*Buffer, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	n := min(h.Width*h.Height, decodePreallocPixels)
	b := &Buffer{
		width:         h.Width,
		height:        h.Height,
		maxColorValue: h.MaxColorValue,
		red:           make([]uint16, 0, n),
		green:         make([]uint16, 0, n),
		blue:          make([]uint16, 0, n),
	}
	sw := h.SampleWidth()
	maxv := uint16(h.MaxColorValue)
	var raw [6]byte
	px := raw[:3*sw]

	for y := 0; y < h.Height; y++ {
		for x := 0; x < h.Width; x++ {
			if _, err := io.ReadFull(br, px); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					return nil, fmt.Errorf("%w: payload ends in row %d of %d", ErrTruncatedData, y, h.Height)
				}
				return nil, fmt.Errorf("%w: reading row %d: %v", ErrIO, y, err)
			}
			var p Pixel
			if sw == 1 {
				p = Pixel{Red: uint16(px[0]), Green: uint16(px[1]), Blue: uint16(px[2])}
			} else {
				p = Pixel{
					Red:   uint16(px[0])<<byteShift | uint16(px[1]),
					Green: uint16(px[2])<<byteShift | uint16(px[3]),
					Blue:  uint16(px[4])<<byteShift | uint16(px[5]),
				}
			}
			if p.Red > maxv || p.Green > maxv || p.Blue > maxv {
				return nil, fmt.Errorf("%w: %v at (%d,%d) exceeds %d", ErrSampleRange, p, x, y, maxv)
			}
			b.red = append(b.red, p.Red)
			b.green = append(b.green, p.Green)
			b.blue = append(b.blue, p.Blue)
		}
	}
	return b, nil
}

// DecodeBytes decodes a P6 image held in memory.
func DecodeBytes(data []byte) (*Buffer, error) {
	return Decode(bytes.NewReader(data))
}

// appendSample appends v at the given sample width, high byte first.
func appendSample(dst []byte, v uint16, sw int) []byte {
	if sw == 1 {
		return append(dst, byte(v))
	}
	return append(dst, byte(v>>byteShift), byte(v&byteMask))
}

// Encode writes b to w as a P6 image.
func Encode(w io.Writer, b *Buffer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n%d\n", ppmMagic, b.width, b.height, b.maxColorValue); err != nil {
		return err
	}

	sw := sampleWidth(b.maxColorValue)
	row := make([]byte, 0, b.width*3*sw)
	for y := 0; y < b.height; y++ {
		row = row[:0]
		base := y * b.width
		for x := 0; x < b.width; x++ {
			i := base + x
			row = appendSample(row, b.red[i], sw)
			row = appendSample(row, b.green[i], sw)
			row = appendSample(row, b.blue[i], sw)
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodeBytes returns the P6 encoding of b.
func EncodeBytes(b *Buffer) []byte {
	var buf bytes.Buffer
	buf.Grow(32 + b.Len()*3*sampleWidth(b.maxColorValue))
	// Writes to a bytes.Buffer cannot fail.
	_ = Encode(&buf, b)
	return buf.Bytes()
}
