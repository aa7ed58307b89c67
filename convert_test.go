package imtool

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImageRoundTrip(t *testing.T) {
	for _, maxv := range []int{255, 65535} {
		orig := makeRandomBuffer(t, 10, 6, maxv, uint64(maxv))
		got, err := FromImage(orig.Image(), maxv)
		require.NoError(t, err)
		require.True(t, orig.Equal(got), "maxval %d", maxv)
	}
}

func TestImageWidensSamples(t *testing.T) {
	b := bufferFromPixels(t, 2, 1, 255, Pixel{255, 0, 1}, Pixel{128, 128, 128})
	img := b.Image()
	require.Equal(t, image.Rect(0, 0, 2, 1), img.Bounds())
	require.Equal(t, color.RGBA64{0xffff, 0, 257, 0xffff}, img.RGBA64At(0, 0))
	require.Equal(t, color.RGBA64{128 * 257, 128 * 257, 128 * 257, 0xffff}, img.RGBA64At(1, 0))
}

func TestFromImageNarrowsWithinOneStep(t *testing.T) {
	orig := makeRandomBuffer(t, 12, 12, 1000, 8)
	got, err := FromImage(orig.Image(), 1000)
	require.NoError(t, err)
	for i, p := range got.Pixels() {
		o := orig.at(i)
		require.InDelta(t, float64(o.Red), float64(p.Red), 1)
		require.InDelta(t, float64(o.Green), float64(p.Green), 1)
		require.InDelta(t, float64(o.Blue), float64(p.Blue), 1)
	}
}

func TestFromImageOffsetBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	img.SetNRGBA(6, 5, color.NRGBA{R: 10, G: 20, B: 30, A: 0xff})
	b, err := FromImage(img, 255)
	require.NoError(t, err)
	require.Equal(t, Header{2, 1, 255}, b.Header())
	p, err := b.Pixel(1, 0)
	require.NoError(t, err)
	require.Equal(t, Pixel{10, 20, 30}, p)
}

func TestFromImageRejectsBadMaxColor(t *testing.T) {
	_, err := FromImage(image.NewGray(image.Rect(0, 0, 1, 1)), 0)
	require.ErrorIs(t, err, ErrInvalidMaxColor)
}

func TestImportPNG(t *testing.T) {
	orig := makeRandomBuffer(t, 9, 7, 65535, 99)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, orig.Image()))

	got, err := Import(&buf, 65535)
	require.NoError(t, err)
	require.True(t, orig.Equal(got))
}

func TestImportUnknownFormat(t *testing.T) {
	_, err := Import(bytes.NewReader([]byte("P6 1 1 255\n\x00\x00\x00")), 255)
	require.ErrorIs(t, err, image.ErrFormat)
}

func TestClampSample(t *testing.T) {
	require.Equal(t, uint16(0), clampSample(-3, 255))
	require.Equal(t, uint16(3), clampSample(2.5, 255))
	require.Equal(t, uint16(2), clampSample(2.49, 255))
	require.Equal(t, uint16(255), clampSample(300, 255))
}

func TestHumanBytes(t *testing.T) {
	require.Equal(t, "0 B", humanBytes(0))
	require.Equal(t, "512 B", humanBytes(512))
	require.Equal(t, "1.5 KB", humanBytes(1536))
	require.Equal(t, "2.0 MB", humanBytes(2<<20))
}
