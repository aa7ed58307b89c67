package imtool

import (
	"fmt"
	"math"
	"runtime"
	"sync"
)

// Resize returns a new buffer of newWidth x newHeight resampled from b with
// bilinear interpolation. b is left untouched.
//
// Destination pixel (x', y') samples the source at
// x = x' * (width-1)/(newWidth-1) and y = y' * (height-1)/(newHeight-1), with
// the ratio taken as 0 when the target dimension is 1. The four neighbours
// around (x, y) are blended horizontally then vertically, and the result is
// rounded half away from zero and clamped to [0, MaxColorValue].
func Resize(b *Buffer, newWidth, newHeight int) (*Buffer, error) {
	return resize(b, newWidth, newHeight, false)
}

func resize(b *Buffer, newWidth, newHeight int, parallel bool) (*Buffer, error) {
	if newWidth < 1 || newHeight < 1 {
		return nil, fmt.Errorf("%w: resize to %dx%d", ErrInvalidDimensions, newWidth, newHeight)
	}
	if uint64(newWidth)*uint64(newHeight) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: resize to %dx%d is too large", ErrInvalidDimensions, newWidth, newHeight)
	}

	dst := newBuffer(newWidth, newHeight, b.maxColorValue)
	xs := axisTaps(b.width, newWidth)
	ys := axisTaps(b.height, newHeight)
	maxv := float64(b.maxColorValue)

	row := func(dy int) {
		ty := ys[dy]
		lo := ty.lo * b.width
		hi := ty.hi * b.width
		out := dy * newWidth
		for dx, tx := range xs {
			ll, hl := lo+tx.lo, lo+tx.hi
			lh, hh := hi+tx.lo, hi+tx.hi
			i := out + dx
			dst.red[i] = bilerp(b.red, ll, hl, lh, hh, tx.w, ty.w, maxv)
			dst.green[i] = bilerp(b.green, ll, hl, lh, hh, tx.w, ty.w, maxv)
			dst.blue[i] = bilerp(b.blue, ll, hl, lh, hh, tx.w, ty.w, maxv)
		}
	}

	if parallel {
		parallelDo(0, newHeight, row)
	} else {
		for dy := 0; dy < newHeight; dy++ {
			row(dy)
		}
	}
	return dst, nil
}

// tap holds the two source indices bracketing a destination coordinate along
// one axis and the weight of the upper one.
type tap struct {
	lo, hi int
	w      float64
}

// axisTaps precomputes the neighbours and weights for every destination
// coordinate along one axis.
func axisTaps(srcLen, dstLen int) []tap {
	ratio := 0.0
	if dstLen > 1 {
		ratio = float64(srcLen-1) / float64(dstLen-1)
	}

	taps := make([]tap, dstLen)
	last := srcLen - 1
	for d := range taps {
		pos := float64(d) * ratio
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		// (dstLen-1)*ratio can land a hair above srcLen-1.
		if lo > last {
			lo = last
		}
		if hi > last {
			hi = last
		}
		taps[d] = tap{lo: lo, hi: hi, w: pos - float64(lo)}
		if lo == hi {
			taps[d].w = 0
		}
	}
	return taps
}

func lerp(a, b, w float64) float64 {
	return a*(1-w) + b*w
}

func bilerp(plane []uint16, ll, hl, lh, hh int, wx, wy, maxv float64) uint16 {
	low := lerp(float64(plane[ll]), float64(plane[hl]), wx)
	high := lerp(float64(plane[lh]), float64(plane[hh]), wx)
	return clampSample(lerp(low, high, wy), maxv)
}

// parallelDo executes fn(i) for i in [start, stop) across multiple goroutines.
// Each index is handled by exactly one goroutine, so fn may write to disjoint
// output rows without locking.
func parallelDo(start, stop int, fn func(i int)) {
	count := stop - start
	if count <= 0 {
		return
	}

	procs := runtime.GOMAXPROCS(0)
	if procs > count {
		procs = count
	}
	if procs <= 1 {
		for i := start; i < stop; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	batchSize := (count + procs - 1) / procs

	for p := 0; p < procs; p++ {
		batchStart := start + p*batchSize
		batchEnd := batchStart + batchSize
		if batchEnd > stop {
			batchEnd = stop
		}
		if batchStart >= batchEnd {
			continue
		}

		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			for i := from; i < to; i++ {
				fn(i)
			}
		}(batchStart, batchEnd)
	}
	wg.Wait()
}
