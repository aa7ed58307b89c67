package imtool

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func ioErr(op, path string, err error) error {
	return fmt.Errorf("imtool: %s %q: %w: %w", op, path, ErrIO, err)
}

// openStream opens path and returns a reader over its image stream. Inputs
// that start with a zstd frame are decompressed transparently. The returned
// closer releases both the decoder and the file.
func openStream(path string) (io.Reader, int64, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, nil, ioErr("open", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, nil, ioErr("stat", path, err)
	}

	br := bufio.NewReader(f)
	magic, _ := br.Peek(len(zstdMagic))
	if !bytes.Equal(magic, zstdMagic) {
		return br, stat.Size(), func() { f.Close() }, nil
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		f.Close()
		return nil, 0, nil, ioErr("zstd open", path, err)
	}
	return dec, stat.Size(), func() {
		dec.Close()
		f.Close()
	}, nil
}

// Open loads a P6 image from a file, decompressing zstd-framed files.
func Open(path string) (*Buffer, error) {
	b, _, err := openSized(path)
	return b, err
}

func openSized(path string) (*Buffer, int64, error) {
	r, size, closeFn, err := openStream(path)
	if err != nil {
		return nil, 0, err
	}
	defer closeFn()

	b, err := Decode(r)
	if err != nil {
		return nil, 0, fmt.Errorf("imtool: decode %q: %w", path, err)
	}
	return b, size, nil
}

// ReadInfo reads just the P6 header of a file.
func ReadInfo(path string) (Header, error) {
	h, _, err := readInfoSized(path)
	return h, err
}

func readInfoSized(path string) (Header, int64, error) {
	r, size, closeFn, err := openStream(path)
	if err != nil {
		return Header{}, 0, err
	}
	defer closeFn()

	h, err := DecodeHeader(r)
	if err != nil {
		return Header{}, 0, fmt.Errorf("imtool: decode %q: %w", path, err)
	}
	return h, size, nil
}

// useZstd resolves the framing for an output path.
func useZstd(path string, framing Framing) bool {
	switch framing {
	case FrameZstd:
		return true
	case FrameNone:
		return false
	default:
		return strings.HasSuffix(strings.ToLower(path), ".zst")
	}
}

// writeFile creates path and streams encode's output into it, optionally
// through a zstd encoder, and returns the size of the written file. The file
// is closed on every path; a failed write leaves whatever was already flushed.
func writeFile(path string, framing Framing, encode func(io.Writer) error) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, ioErr("create", path, err)
	}
	werr := writeStream(f, path, framing, encode)
	cerr := f.Close()
	if werr != nil {
		return 0, werr
	}
	if cerr != nil {
		return 0, ioErr("close", path, cerr)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return 0, ioErr("stat", path, err)
	}
	return stat.Size(), nil
}

func writeStream(w io.Writer, path string, framing Framing, encode func(io.Writer) error) error {
	if !useZstd(path, framing) {
		if err := encode(w); err != nil {
			return ioErr("write", path, err)
		}
		return nil
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return ioErr("zstd create", path, err)
	}
	if err := encode(enc); err != nil {
		enc.Close()
		return ioErr("write", path, err)
	}
	if err := enc.Close(); err != nil {
		return ioErr("zstd flush", path, err)
	}
	return nil
}

// Save writes b to path as a P6 image. framing decides whether the file is
// wrapped in a zstd frame.
func Save(path string, b *Buffer, framing Framing) error {
	_, err := saveSized(path, b, framing)
	return err
}

func saveSized(path string, b *Buffer, framing Framing) (int64, error) {
	return writeFile(path, framing, func(w io.Writer) error { return Encode(w, b) })
}

// SaveCompressed writes b to path as a C6 container.
func SaveCompressed(path string, b *Buffer, framing Framing) error {
	_, _, err := saveCompressedSized(path, b, framing)
	return err
}

func saveCompressedSized(path string, b *Buffer, framing Framing) (int64, int, error) {
	// Build the table before creating the file so a table overflow leaves
	// no partial output behind.
	t, err := BuildColorTable(b)
	if err != nil {
		return 0, 0, fmt.Errorf("imtool: compress %q: %w", path, err)
	}
	size, err := writeFile(path, framing, func(w io.Writer) error { return t.encode(w, b) })
	return size, t.Len(), err
}
