package imtool

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

func readZstd(t *testing.T, path string) []byte {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()
	data, err := io.ReadAll(dec)
	require.NoError(t, err)
	return data
}

func TestSaveFraming(t *testing.T) {
	b := makeTestBuffer(t, 20, 20, 255)
	dir := t.TempDir()
	tests := []struct {
		name     string
		file     string
		framing  Framing
		wantZstd bool
	}{
		{"auto plain", "a.ppm", FrameAuto, false},
		{"auto zstd by suffix", "a.ppm.zst", FrameAuto, true},
		{"auto zstd suffix is case-insensitive", "b.PPM.ZST", FrameAuto, true},
		{"forced zstd", "c.ppm", FrameZstd, true},
		{"forced plain", "d.ppm.zst", FrameNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, Save(path, b, tt.framing))

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, tt.wantZstd, bytes.HasPrefix(raw, zstdMagic))
			if tt.wantZstd {
				require.Equal(t, EncodeBytes(b), readZstd(t, path))
			} else {
				require.Equal(t, EncodeBytes(b), raw)
			}

			// Open detects the framing from content, not the name.
			got, err := Open(path)
			require.NoError(t, err)
			require.True(t, b.Equal(got))

			h, err := ReadInfo(path)
			require.NoError(t, err)
			require.Equal(t, b.Header(), h)
		})
	}
}

func TestSaveCompressed(t *testing.T) {
	b := makeTestBuffer(t, 15, 9, 1000)
	want, err := CompressBytes(b)
	require.NoError(t, err)

	dir := t.TempDir()
	plain := filepath.Join(dir, "out.c6")
	require.NoError(t, SaveCompressed(plain, b, FrameAuto))
	raw, err := os.ReadFile(plain)
	require.NoError(t, err)
	require.Equal(t, want, raw)

	framed := filepath.Join(dir, "out.c6.zst")
	require.NoError(t, SaveCompressed(framed, b, FrameAuto))
	require.Equal(t, want, readZstd(t, framed))
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.ppm"))
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, fs.ErrNotExist)

	truncated := filepath.Join(dir, "truncated.ppm")
	data := EncodeBytes(makeTestBuffer(t, 8, 8, 255))
	require.NoError(t, os.WriteFile(truncated, data[:len(data)-5], 0o644))
	_, err = Open(truncated)
	require.ErrorIs(t, err, ErrTruncatedData)

	text := filepath.Join(dir, "text.ppm")
	require.NoError(t, os.WriteFile(text, []byte("P3\n1 1\n255\n0 0 0\n"), 0o644))
	_, err = Open(text)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ReadInfo(text)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOpenTruncatedZstdPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.ppm.zst")
	data := EncodeBytes(makeTestBuffer(t, 8, 8, 255))
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, enc.EncodeAll(data[:len(data)-1], nil), 0o644))
	require.NoError(t, enc.Close())

	_, err = Open(path)
	require.ErrorIs(t, err, ErrTruncatedData)
}

func TestSaveErrors(t *testing.T) {
	b := makeTestBuffer(t, 2, 2, 255)
	missingDir := filepath.Join(t.TempDir(), "no", "such", "dir", "out.ppm")
	require.ErrorIs(t, Save(missingDir, b, FrameAuto), ErrIO)
	require.ErrorIs(t, SaveCompressed(missingDir, b, FrameAuto), ErrIO)
}

func TestSavedSizeMatchesFile(t *testing.T) {
	b := makeTestBuffer(t, 33, 17, 65535)
	path := filepath.Join(t.TempDir(), "out.ppm.zst")
	size, err := saveSized(path, b, FrameAuto)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, info.Size(), size)
}
