package imtool

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF for Import
	_ "image/jpeg" // register JPEG for Import
	_ "image/png"  // register PNG for Import
	"io"
	"math"

	_ "golang.org/x/image/bmp"  // register BMP for Import
	_ "golang.org/x/image/tiff" // register TIFF for Import
	_ "golang.org/x/image/webp" // register WebP for Import
)

// Image returns b as an *image.RGBA64 with every sample scaled to 16 bits.
// Scaling rounds to nearest, so a buffer with max color value 65535 maps
// exactly.
func (b *Buffer) Image() *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, b.width, b.height))
	maxv := uint32(b.maxColorValue)
	widen := func(s uint16) uint16 {
		return uint16((uint32(s)*0xffff + maxv/2) / maxv)
	}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			p := b.at(y*b.width + x)
			img.SetRGBA64(x, y, color.RGBA64{
				R: widen(p.Red),
				G: widen(p.Green),
				B: widen(p.Blue),
				A: 0xffff,
			})
		}
	}
	return img
}

// FromImage converts any image.Image into a Buffer with the given max color
// value. Alpha is discarded after un-premultiplying; 16-bit samples are
// scaled down with the same truncation as Rescale.
func FromImage(img image.Image, maxColorValue int) (*Buffer, error) {
	bounds := img.Bounds()
	b, err := NewBuffer(bounds.Dx(), bounds.Dy(), maxColorValue)
	if err != nil {
		return nil, err
	}

	maxv := uint64(maxColorValue)
	narrow := func(s uint32) uint16 {
		return uint16(uint64(s) * maxv / 0xffff)
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			b.set((y-bounds.Min.Y)*b.width+(x-bounds.Min.X), Pixel{
				Red:   narrow(uint32(c.R)),
				Green: narrow(uint32(c.G)),
				Blue:  narrow(uint32(c.B)),
			})
		}
	}
	return b, nil
}

// Import decodes a PNG, JPEG, GIF, BMP, TIFF or WebP image from r into a
// Buffer with the given max color value. JPEG images are turned upright
// according to their EXIF orientation.
func Import(r io.Reader, maxColorValue int) (*Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("imtool: import: %w: %w", ErrIO, err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imtool: import: %w", err)
	}
	b, err := FromImage(img, maxColorValue)
	if err != nil {
		return nil, fmt.Errorf("imtool: import %s: %w", format, err)
	}
	if format == "jpeg" {
		b = b.Orient(ReadOrientation(bytes.NewReader(data)))
	}
	return b, nil
}

// clampSample rounds x half away from zero and clamps it to [0, maxv].
func clampSample(x, maxv float64) uint16 {
	v := math.Round(x)
	if v < 0 {
		return 0
	}
	if v > maxv {
		return uint16(maxv)
	}
	return uint16(v)
}

// humanBytes formats a byte count for human reading.
func humanBytes(b int64) string {
	if b == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	i := 0
	bf := float64(b)
	for bf >= 1024 && i < len(units)-1 {
		bf /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", b)
	}
	return fmt.Sprintf("%.1f %s", bf, units[i])
}
