// Package imtool transforms raster images stored as binary PPM (P6).
//
// An image is loaded into a Buffer, transformed by exactly one operation and
// written back:
//
//   - Rescale (maxlevel): linear, truncating rescale of every sample to a new max color value
//   - Resize: bilinear resampling to arbitrary dimensions
//   - CutFreq: replaces the N least frequent colors with their nearest surviving color
//   - Compress: writes a lossless indexed "C6" container instead of P6
//
// Every operation is deterministic: identical input produces identical bytes.
// Files ending in ".zst" are read and written through zstd transparently.
package imtool

import (
	"context"
	"fmt"
)

// Apply runs a pixel transform on b and returns the resulting buffer. OpMaxLevel
// and OpCutFreq modify b in place and return it; OpResize returns a new buffer.
// OpInfo and OpCompress do not alter pixels and return b unchanged.
func Apply(b *Buffer, op Operation, args []int, opts Options) (*Buffer, error) {
	if want := op.Arity(); len(args) != want {
		return nil, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrInvalidArgument, op, want, len(args))
	}
	switch op {
	case OpInfo, OpCompress:
		return b, nil
	case OpMaxLevel:
		if err := Rescale(b, args[0]); err != nil {
			return nil, err
		}
		return b, nil
	case OpResize:
		return resize(b, args[0], args[1], opts.Parallel)
	case OpCutFreq:
		CutFreq(b, args[0])
		return b, nil
	default:
		return nil, fmt.Errorf("%w: unknown operation %s", ErrInvalidArgument, op)
	}
}

// Process loads req.Input, runs req.Operation and writes req.Output. The
// context is checked between stages; a transform that has started runs to
// completion.
func Process(ctx context.Context, req Request, opts Options) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	result := &Result{Request: req}

	if err := opts.reportProgress(ctx, StageReading, 0); err != nil {
		return nil, err
	}

	if req.Operation == OpInfo {
		h, size, err := readInfoSized(req.Input)
		if err != nil {
			opts.logf("Process", req.Input, err, "failed to read header")
			return nil, err
		}
		result.Before, result.After, result.InputSize = h, h, size
		opts.logf("Process", req.Input, nil, "%s", h)
		return result, nil
	}

	b, size, err := openSized(req.Input)
	if err != nil {
		opts.logf("Process", req.Input, err, "failed to load image")
		return nil, err
	}
	result.Before = b.Header()
	result.InputSize = size
	opts.logf("Process", req.Input, nil, "loaded %s (%s)", b, humanBytes(size))

	if err := opts.reportProgress(ctx, StageTransforming, 0.3); err != nil {
		return nil, err
	}

	var before *Buffer
	if opts.MeasureSimilarity && (req.Operation == OpMaxLevel || req.Operation == OpCutFreq) {
		before = b.Clone()
	}

	b, err = Apply(b, req.Operation, req.Args, opts)
	if err != nil {
		opts.logf("Process", req.Input, err, "%s failed", req.Operation)
		return nil, err
	}
	result.After = b.Header()
	if before != nil {
		if result.Similarity, err = Similarity(before, b); err != nil {
			return nil, err
		}
		result.HasSimilarity = true
	}
	if req.Operation == OpCutFreq {
		result.Colors = len(CountColorFrequencies(b))
	}

	if err := opts.reportProgress(ctx, StageWriting, 0.8); err != nil {
		return nil, err
	}

	if req.Operation == OpCompress {
		result.OutputSize, result.Colors, err = saveCompressedSized(req.Output, b, opts.Framing)
	} else {
		result.OutputSize, err = saveSized(req.Output, b, opts.Framing)
	}
	if err != nil {
		opts.logf("Process", req.Output, err, "failed to write %s output", req.Operation)
		return nil, err
	}
	opts.logf("Process", req.Output, nil, "wrote %s (%s)", result.After, humanBytes(result.OutputSize))

	if err := opts.reportProgress(ctx, StageWriting, 1.0); err != nil {
		return nil, err
	}
	return result, nil
}
