package imtool

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
)

const (
	// MinColorValue is the smallest max color value a P6 image may declare.
	MinColorValue = 1
	// MaxColorValue8Bit is the largest max color value stored with one byte per sample.
	MaxColorValue8Bit = 255
	// MaxColorValue16Bit is the largest max color value a P6 image may declare.
	MaxColorValue16Bit = 65535
)

// Pixel is one RGB color. It is comparable, so it can key maps directly.
type Pixel struct {
	Red, Green, Blue uint16
}

// Compare orders pixels lexicographically by (red, green, blue).
func (p Pixel) Compare(o Pixel) int {
	if c := cmp.Compare(p.Red, o.Red); c != 0 {
		return c
	}
	if c := cmp.Compare(p.Green, o.Green); c != 0 {
		return c
	}
	return cmp.Compare(p.Blue, o.Blue)
}

// distanceSquared is the squared Euclidean distance over the three channels.
// It needs 35 bits for 16-bit samples.
func (p Pixel) distanceSquared(o Pixel) int64 {
	dr := int64(p.Red) - int64(o.Red)
	dg := int64(p.Green) - int64(o.Green)
	db := int64(p.Blue) - int64(o.Blue)
	return dr*dr + dg*dg + db*db
}

func (p Pixel) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.Red, p.Green, p.Blue)
}

// Header is the metadata carried by a P6 header.
type Header struct {
	Width         int
	Height        int
	MaxColorValue int
}

// SampleWidth returns the bytes per channel sample: 1 up to 255, otherwise 2.
func (h Header) SampleWidth() int {
	return sampleWidth(h.MaxColorValue)
}

func (h Header) String() string {
	return fmt.Sprintf("%dx%d maxval=%d", h.Width, h.Height, h.MaxColorValue)
}

func sampleWidth(maxColorValue int) int {
	if maxColorValue <= MaxColorValue8Bit {
		return 1
	}
	return 2
}

func validMaxColor(v int) bool {
	return v >= MinColorValue && v <= MaxColorValue16Bit
}

// Buffer is an RGB raster held as three parallel channel planes in scan order.
// Every plane always has Width*Height samples, each within [0, MaxColorValue].
type Buffer struct {
	width, height int
	maxColorValue int

	red, green, blue []uint16
}

// NewBuffer allocates a black buffer of the given size.
func NewBuffer(width, height, maxColorValue int) (*Buffer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if !validMaxColor(maxColorValue) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxColor, maxColorValue)
	}
	return newBuffer(width, height, maxColorValue), nil
}

// newBuffer skips validation; callers have already checked the arguments.
func newBuffer(width, height, maxColorValue int) *Buffer {
	n := width * height
	return &Buffer{
		width:         width,
		height:        height,
		maxColorValue: maxColorValue,
		red:           make([]uint16, n),
		green:         make([]uint16, n),
		blue:          make([]uint16, n),
	}
}

func (b *Buffer) Width() int         { return b.width }
func (b *Buffer) Height() int        { return b.height }
func (b *Buffer) MaxColorValue() int { return b.maxColorValue }

// Len returns the number of pixels.
func (b *Buffer) Len() int { return len(b.red) }

// Header returns the buffer's P6 metadata.
func (b *Buffer) Header() Header {
	return Header{Width: b.width, Height: b.height, MaxColorValue: b.maxColorValue}
}

func (b *Buffer) offset(x, y int) (int, error) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, x, y, b.width, b.height)
	}
	return y*b.width + x, nil
}

// Pixel returns the color at (x, y).
func (b *Buffer) Pixel(x, y int) (Pixel, error) {
	i, err := b.offset(x, y)
	if err != nil {
		return Pixel{}, err
	}
	return b.at(i), nil
}

// SetPixel stores p at (x, y). Samples above MaxColorValue are rejected.
func (b *Buffer) SetPixel(x, y int, p Pixel) error {
	i, err := b.offset(x, y)
	if err != nil {
		return err
	}
	maxv := uint16(b.maxColorValue)
	if p.Red > maxv || p.Green > maxv || p.Blue > maxv {
		return fmt.Errorf("%w: %v exceeds %d", ErrSampleRange, p, b.maxColorValue)
	}
	b.set(i, p)
	return nil
}

func (b *Buffer) at(i int) Pixel {
	return Pixel{Red: b.red[i], Green: b.green[i], Blue: b.blue[i]}
}

func (b *Buffer) set(i int, p Pixel) {
	b.red[i] = p.Red
	b.green[i] = p.Green
	b.blue[i] = p.Blue
}

// Pixels yields every pixel in scan order with its linear index.
func (b *Buffer) Pixels() iter.Seq2[int, Pixel] {
	return func(yield func(int, Pixel) bool) {
		for i := range b.red {
			if !yield(i, b.at(i)) {
				return
			}
		}
	}
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{
		width:         b.width,
		height:        b.height,
		maxColorValue: b.maxColorValue,
		red:           slices.Clone(b.red),
		green:         slices.Clone(b.green),
		blue:          slices.Clone(b.blue),
	}
}

// Equal reports whether both buffers have the same metadata and samples.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.Header() == o.Header() &&
		slices.Equal(b.red, o.red) &&
		slices.Equal(b.green, o.green) &&
		slices.Equal(b.blue, o.blue)
}

// String returns a short description such as "640x480 maxval=255".
func (b *Buffer) String() string {
	return b.Header().String()
}
