package imtool

import (
	"bytes"
	"errors"
	"io"
	"runtime"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

// ── Round Trip ──────────────────────────────────────────────────────────────

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, maxv := range []int{1, 15, 255, 256, 1000, 65535} {
		orig := makeRandomBuffer(t, 13, 7, maxv, uint64(maxv))
		data := EncodeBytes(orig)

		got, err := DecodeBytes(data)
		require.NoError(t, err, "maxval %d", maxv)
		require.True(t, orig.Equal(got), "maxval %d", maxv)
		require.Equal(t, data, EncodeBytes(got), "re-encoding must be byte-identical")
	}
}

func TestEncodeLayout(t *testing.T) {
	b := bufferFromPixels(t, 2, 1, 255, Pixel{1, 2, 3}, Pixel{255, 0, 128})
	require.Equal(t, append([]byte("P6\n2 1\n255\n"), 1, 2, 3, 255, 0, 128), EncodeBytes(b))

	b16 := bufferFromPixels(t, 1, 1, 65535, Pixel{0x1234, 0x00ff, 0xff00})
	require.Equal(t, append([]byte("P6\n1 1\n65535\n"), 0x12, 0x34, 0x00, 0xff, 0xff, 0x00), EncodeBytes(b16))
}

func TestDecodeSixteenBitBigEndian(t *testing.T) {
	data := append([]byte("P6 1 1 1000\n"), 0x03, 0xe8, 0x00, 0x01, 0x01, 0x00)
	b, err := DecodeBytes(data)
	require.NoError(t, err)
	p, err := b.Pixel(0, 0)
	require.NoError(t, err)
	require.Equal(t, Pixel{Red: 1000, Green: 1, Blue: 256}, p)
}

// ── Header Parsing ──────────────────────────────────────────────────────────

func TestDecodeHeaderWhitespaceAndComments(t *testing.T) {
	payload := []byte{10, 20, 30, 40, 50, 60}
	headers := []string{
		"P6\n2 1\n255\n",
		"P6 2 1 255 ",
		"P6\t2\r\n1\n255\n",
		"P6\n# created by hand\n2 1\n255\n",
		"P6 # trailing comment\n2\n# between\n1 255\n",
		"  P6\n2 1\n255\n",
	}
	for _, hdr := range headers {
		b, err := DecodeBytes(append([]byte(hdr), payload...))
		require.NoError(t, err, "%q", hdr)
		require.Equal(t, Header{2, 1, 255}, b.Header(), "%q", hdr)
		p, err := b.Pixel(1, 0)
		require.NoError(t, err)
		require.Equal(t, Pixel{40, 50, 60}, p, "%q", hdr)
	}
}

func TestDecodeConsumesOneWhitespaceAfterMaxval(t *testing.T) {
	// The payload's first byte is itself whitespace (10 = '\n').
	data := append([]byte("P6 1 1 255\n"), '\n', ' ', '\t')
	b, err := DecodeBytes(data)
	require.NoError(t, err)
	p, err := b.Pixel(0, 0)
	require.NoError(t, err)
	require.Equal(t, Pixel{'\n', ' ', '\t'}, p)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	data := append([]byte("P6 1 1 255\n"), 1, 2, 3, 4, 5, 6, 7)
	b, err := DecodeBytes(data)
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())
}

func TestDecodeHeaderOnly(t *testing.T) {
	h, err := DecodeHeader(bytes.NewReader([]byte("P6\n# c\n640 480\n65535\n")))
	require.NoError(t, err)
	require.Equal(t, Header{640, 480, 65535}, h)
	require.Equal(t, 2, h.SampleWidth())
}

// ── Errors ──────────────────────────────────────────────────────────────────

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncatedData},
		{"only whitespace", []byte("  \n"), ErrTruncatedData},
		{"ascii ppm", []byte("P3\n1 1\n255\n0 0 0\n"), ErrUnsupportedFormat},
		{"pgm", []byte("P5\n1 1\n255\n\x00"), ErrUnsupportedFormat},
		{"compressed container", []byte("C6 1 1 255 1\n\x00\x00\x00\x00"), ErrUnsupportedFormat},
		{"header ends after width", []byte("P6\n2"), ErrTruncatedData},
		{"header ends in comment", []byte("P6 2 2 # no newline"), ErrTruncatedData},
		{"non-numeric width", []byte("P6 x 1 255\n"), ErrInvalidHeader},
		{"negative height", []byte("P6 1 -1 255\n"), ErrInvalidHeader},
		{"zero width", []byte("P6 0 1 255\n"), ErrInvalidHeader},
		{"too large", []byte("P6 65536 65536 255\n"), ErrInvalidHeader},
		{"maxval zero", []byte("P6 1 1 0\n\x00\x00\x00"), ErrInvalidMaxColor},
		{"maxval above 16 bits", []byte("P6 1 1 65536\n"), ErrInvalidMaxColor},
		{"maxval huge", []byte("P6 1 1 99999999999\n"), ErrInvalidMaxColor},
		{"maxval not a number", []byte("P6 1 1 abc\n"), ErrInvalidMaxColor},
		{"payload short", append([]byte("P6 2 1 255\n"), 1, 2, 3, 4), ErrTruncatedData},
		{"payload missing", []byte("P6 2 1 255\n"), ErrTruncatedData},
		{"16-bit payload short", append([]byte("P6 1 1 1000\n"), 0, 1, 0, 1, 0), ErrTruncatedData},
		{"sample above maxval", append([]byte("P6 1 1 100\n"), 50, 101, 0), ErrSampleRange},
		{"16-bit sample above maxval", append([]byte("P6 1 1 1000\n"), 0x03, 0xe9, 0, 0, 0, 0), ErrSampleRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes(tt.data)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeShortInputWithHugeHeader(t *testing.T) {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := DecodeBytes([]byte("P6\n20000 20000\n65535\n"))
	runtime.ReadMemStats(&after)

	require.ErrorIs(t, err, ErrTruncatedData)
	// 20000x20000 at 16 bits would need 2.4 GB of planes.
	require.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20))
}

func TestDecodeGrowsPastPreallocation(t *testing.T) {
	orig := makeRandomBuffer(t, decodePreallocPixels/512+3, 512, 255, 31)
	got, err := DecodeBytes(EncodeBytes(orig))
	require.NoError(t, err)
	require.True(t, orig.Equal(got))
}

func TestDecodeReaderError(t *testing.T) {
	boom := errors.New("boom")
	r := iotest.ErrReader(boom)
	_, err := Decode(r)
	require.ErrorIs(t, err, ErrIO)

	// A failure inside the payload is an I/O error, not truncation.
	body := append([]byte("P6 4 4 255\n"), make([]byte, 10)...)
	_, err = Decode(io.MultiReader(bytes.NewReader(body), iotest.ErrReader(boom)))
	require.ErrorIs(t, err, ErrIO)
}

func TestDecodeOneByteReader(t *testing.T) {
	orig := makeTestBuffer(t, 9, 5, 300)
	got, err := Decode(iotest.OneByteReader(bytes.NewReader(EncodeBytes(orig))))
	require.NoError(t, err)
	require.True(t, orig.Equal(got))
}

func TestEncodeWriterError(t *testing.T) {
	b := makeTestBuffer(t, 64, 64, 255)
	err := Encode(failingWriter{}, b)
	require.Error(t, err)
}
