package imtool

import (
	"encoding/binary"
	"io"
)

// Orientation is an EXIF orientation tag value.
type Orientation int

const (
	OrientNormal      Orientation = 1
	OrientFlipH       Orientation = 2
	OrientRotate180   Orientation = 3
	OrientFlipV       Orientation = 4
	OrientTranspose   Orientation = 5 // mirror across the main diagonal
	OrientRotate90CW  Orientation = 6
	OrientTransverse  Orientation = 7 // mirror across the anti-diagonal
	OrientRotate270CW Orientation = 8
)

const (
	jpegMarkerAPP1 = 0xE1
	jpegMarkerSOS  = 0xDA
	exifTagOrient  = 0x0112
	tiffTypeShort  = 3
	tiffMagic      = 42
)

// ReadOrientation reads the EXIF orientation tag from a JPEG stream. Anything
// that is not a JPEG with a well-formed orientation tag yields OrientNormal.
func ReadOrientation(r io.ReadSeeker) Orientation {
	var soi [2]byte
	if _, err := io.ReadFull(r, soi[:]); err != nil || soi[0] != 0xFF || soi[1] != 0xD8 {
		return OrientNormal
	}

	for {
		var marker [2]byte
		if _, err := io.ReadFull(r, marker[:]); err != nil || marker[0] != 0xFF {
			return OrientNormal
		}
		for marker[1] == 0xFF {
			if _, err := io.ReadFull(r, marker[1:]); err != nil {
				return OrientNormal
			}
		}

		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return OrientNormal
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf[:])) - 2
		if segLen < 0 {
			return OrientNormal
		}

		switch marker[1] {
		case jpegMarkerAPP1:
			return exifOrientation(r, segLen)
		case jpegMarkerSOS:
			// Entropy-coded data follows; no metadata past this point.
			return OrientNormal
		}
		if _, err := r.Seek(int64(segLen), io.SeekCurrent); err != nil {
			return OrientNormal
		}
	}
}

// exifOrientation finds the orientation entry in IFD0 of an APP1 segment.
func exifOrientation(r io.Reader, segLen int) Orientation {
	if segLen < 14 {
		return OrientNormal
	}
	data := make([]byte, segLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return OrientNormal
	}
	if string(data[:6]) != "Exif\x00\x00" {
		return OrientNormal
	}

	tiff := data[6:]
	var bo binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return OrientNormal
	}
	if bo.Uint16(tiff[2:4]) != tiffMagic {
		return OrientNormal
	}

	ifd := int(bo.Uint32(tiff[4:8]))
	if ifd < 8 || ifd+2 > len(tiff) {
		return OrientNormal
	}
	entries := int(bo.Uint16(tiff[ifd:]))
	ifd += 2

	for i := 0; i < entries; i++ {
		e := ifd + i*12
		if e+12 > len(tiff) {
			break
		}
		if bo.Uint16(tiff[e:]) != exifTagOrient {
			continue
		}
		if bo.Uint16(tiff[e+2:]) != tiffTypeShort {
			return OrientNormal
		}
		if v := Orientation(bo.Uint16(tiff[e+8:])); v >= OrientNormal && v <= OrientRotate270CW {
			return v
		}
		return OrientNormal
	}
	return OrientNormal
}

// Orient returns b transformed so that an image stored with orientation o is
// upright. OrientNormal and unknown values return b itself.
func (b *Buffer) Orient(o Orientation) *Buffer {
	w, h := b.width, b.height
	var src func(x, y int) int
	switch o {
	case OrientFlipH:
		src = func(x, y int) int { return y*w + (w - 1 - x) }
	case OrientRotate180:
		src = func(x, y int) int { return (h-1-y)*w + (w - 1 - x) }
	case OrientFlipV:
		src = func(x, y int) int { return (h-1-y)*w + x }
	case OrientTranspose:
		src = func(x, y int) int { return x*w + y }
	case OrientRotate90CW:
		src = func(x, y int) int { return (h-1-x)*w + y }
	case OrientTransverse:
		src = func(x, y int) int { return (h-1-x)*w + (w - 1 - y) }
	case OrientRotate270CW:
		src = func(x, y int) int { return x*w + (w - 1 - y) }
	default:
		return b
	}

	dw, dh := w, h
	if o >= OrientTranspose {
		dw, dh = h, w
	}
	dst := newBuffer(dw, dh, b.maxColorValue)
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			dst.set(y*dw+x, b.at(src(x, y)))
		}
	}
	return dst
}
