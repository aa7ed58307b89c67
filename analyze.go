package imtool

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ImageStats contains analysis results for an image.
type ImageStats struct {
	Header

	// SampleWidth is the bytes per channel sample in P6 and C6 (1 or 2).
	SampleWidth int

	// UniqueColors is the number of distinct colors.
	UniqueColors int

	// IsGrayscale indicates all pixels have R == G == B.
	IsGrayscale bool

	// IndexWidth is the bytes per pixel index Compress would choose.
	IndexWidth int

	// RawSize is the length of the P6 encoding in bytes.
	RawSize int64

	// CompressedSize is the length of the C6 encoding in bytes.
	CompressedSize int64

	// MostFrequent and LeastFrequent are the extremes of the frequency order
	// CutFreq uses, so LeastFrequent is the first color it would remove.
	MostFrequent  ColorCount
	LeastFrequent ColorCount
}

// Analyze reports sizes and color statistics for b without modifying it.
func Analyze(b *Buffer) (ImageStats, error) {
	h := b.Header()
	stats := ImageStats{
		Header:      h,
		SampleWidth: h.SampleWidth(),
		RawSize:     int64(len(fmt.Sprintf("%s\n%d %d\n%d\n", ppmMagic, h.Width, h.Height, h.MaxColorValue))) + int64(b.Len())*3*int64(h.SampleWidth()),
	}

	sorted := SortColorsByFrequency(CountColorFrequencies(b))
	stats.UniqueColors = len(sorted)
	stats.LeastFrequent = sorted[0]
	stats.MostFrequent = sorted[len(sorted)-1]
	stats.IsGrayscale = lo.EveryBy(sorted, func(cc ColorCount) bool {
		return cc.Color.Red == cc.Color.Green && cc.Color.Green == cc.Color.Blue
	})

	var err error
	if stats.IndexWidth, err = IndexWidth(stats.UniqueColors); err != nil {
		return stats, err
	}
	if stats.CompressedSize, err = compressedSize(h, stats.UniqueColors); err != nil {
		return stats, err
	}
	return stats, nil
}

// Ratio returns RawSize / CompressedSize.
func (s ImageStats) Ratio() float64 {
	if s.CompressedSize == 0 {
		return 0
	}
	return float64(s.RawSize) / float64(s.CompressedSize)
}

// String returns a multi-line report of the statistics.
func (s ImageStats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Image size: %dx%d\n", s.Width, s.Height)
	fmt.Fprintf(&sb, "Max level: %d (%d byte samples)\n", s.MaxColorValue, s.SampleWidth)
	fmt.Fprintf(&sb, "Colors: %d (grayscale: %v)\n", s.UniqueColors, s.IsGrayscale)
	fmt.Fprintf(&sb, "Most frequent: %v x%d\n", s.MostFrequent.Color, s.MostFrequent.Count)
	fmt.Fprintf(&sb, "Least frequent: %v x%d\n", s.LeastFrequent.Color, s.LeastFrequent.Count)
	fmt.Fprintf(&sb, "P6 size: %s\n", humanBytes(s.RawSize))
	fmt.Fprintf(&sb, "C6 size: %s (%d byte indices, %.2fx)", humanBytes(s.CompressedSize), s.IndexWidth, s.Ratio())
	return sb.String()
}
