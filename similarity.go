package imtool

import (
	"fmt"
	"math"
)

// SSIM constants from Wang et al., for luminance on a 0..255 scale.
const (
	ssimK1 = 0.01
	ssimK2 = 0.03
	ssimL  = 255.0
	ssimC1 = (ssimK1 * ssimL) * (ssimK1 * ssimL)
	ssimC2 = (ssimK2 * ssimL) * (ssimK2 * ssimL)

	ssimWindow = 8
)

// Similarity computes the Structural Similarity Index between two buffers of
// the same dimensions. It returns 1.0 for identical images and values near 0
// for unrelated ones.
//
// Both buffers are reduced to BT.601 luminance on a 0..255 scale first, so
// buffers with different max color values compare by appearance rather than
// by raw sample value. Images smaller than the 8x8 window fall back to a
// single global comparison.
func Similarity(a, b *Buffer) (float64, error) {
	if a.width != b.width || a.height != b.height {
		return 0, fmt.Errorf("%w: cannot compare %dx%d with %dx%d",
			ErrInvalidDimensions, a.width, a.height, b.width, b.height)
	}

	lumA := a.luminance()
	lumB := b.luminance()
	if a.width < ssimWindow || a.height < ssimWindow {
		return globalSSIM(lumA, lumB), nil
	}
	return windowedSSIM(lumA, lumB, a.width, a.height), nil
}

// luminance returns the BT.601 luma of every pixel scaled to 0..255.
func (b *Buffer) luminance() []float64 {
	scale := ssimL / float64(b.maxColorValue)
	lum := make([]float64, b.Len())
	for i := range lum {
		lum[i] = (0.299*float64(b.red[i]) + 0.587*float64(b.green[i]) + 0.114*float64(b.blue[i])) * scale
	}
	return lum
}

func ssimTerm(muA, muB, sigAA, sigBB, sigAB float64) float64 {
	num := (2*muA*muB + ssimC1) * (2*sigAB + ssimC2)
	den := (muA*muA + muB*muB + ssimC1) * (sigAA + sigBB + ssimC2)
	return num / den
}

// windowedSSIM averages SSIM over every 8x8 window, Gaussian weighted.
// Window rows are spread over all CPUs; each row sums into its own slot so
// the result does not depend on scheduling.
func windowedSSIM(lumA, lumB []float64, w, h int) float64 {
	const half = ssimWindow / 2
	kernel := gaussianKernel(ssimWindow, 1.5)

	rows := h - ssimWindow + 1
	cols := w - ssimWindow + 1
	rowSums := make([]float64, rows)

	parallelDo(0, rows, func(r int) {
		y := r + half
		var sum float64
		for x := half; x <= w-half; x++ {
			var muA, muB float64
			ki := 0
			for wy := -half; wy < half; wy++ {
				base := (y + wy) * w
				for wx := -half; wx < half; wx++ {
					k := kernel[ki]
					muA += lumA[base+x+wx] * k
					muB += lumB[base+x+wx] * k
					ki++
				}
			}

			var sigAA, sigBB, sigAB float64
			ki = 0
			for wy := -half; wy < half; wy++ {
				base := (y + wy) * w
				for wx := -half; wx < half; wx++ {
					k := kernel[ki]
					da := lumA[base+x+wx] - muA
					db := lumB[base+x+wx] - muB
					sigAA += da * da * k
					sigBB += db * db * k
					sigAB += da * db * k
					ki++
				}
			}
			sum += ssimTerm(muA, muB, sigAA, sigBB, sigAB)
		}
		rowSums[r] = sum
	})

	var total float64
	for _, s := range rowSums {
		total += s
	}
	return total / float64(rows*cols)
}

// globalSSIM compares two luminance planes as a single window.
func globalSSIM(lumA, lumB []float64) float64 {
	n := float64(len(lumA))
	var muA, muB float64
	for i := range lumA {
		muA += lumA[i]
		muB += lumB[i]
	}
	muA /= n
	muB /= n

	var sigAA, sigBB, sigAB float64
	for i := range lumA {
		da := lumA[i] - muA
		db := lumB[i] - muB
		sigAA += da * da
		sigBB += db * db
		sigAB += da * db
	}
	return ssimTerm(muA, muB, sigAA/n, sigBB/n, sigAB/n)
}

// gaussianKernel creates a normalized size x size Gaussian kernel.
func gaussianKernel(size int, sigma float64) []float64 {
	kernel := make([]float64, size*size)
	half := size / 2
	var sum float64

	idx := 0
	for y := -half; y < half; y++ {
		for x := -half; x < half; x++ {
			v := math.Exp(-float64(x*x+y*y) / (2 * sigma * sigma))
			kernel[idx] = v
			sum += v
			idx++
		}
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}
