package imtool

import (
	"context"
	"fmt"
	"strings"

	"github.com/shamspias/imtool/internal/imlog"
)

// Operation is one of the transforms a Request can ask for.
type Operation int

const (
	// OpInfo reads the header and reports the image metadata; nothing is written.
	OpInfo Operation = iota
	// OpMaxLevel rescales all samples to a new max color value. Args: [maxColorValue].
	OpMaxLevel
	// OpResize resamples the image with bilinear interpolation. Args: [width, height].
	OpResize
	// OpCutFreq replaces the N least frequent colors. Args: [n].
	OpCutFreq
	// OpCompress writes the image as a C6 indexed container. No args.
	OpCompress
)

var operationNames = [...]string{
	OpInfo:     "info",
	OpMaxLevel: "maxlevel",
	OpResize:   "resize",
	OpCutFreq:  "cutfreq",
	OpCompress: "compress",
}

func (op Operation) String() string {
	if op < 0 || int(op) >= len(operationNames) {
		return fmt.Sprintf("Operation(%d)", int(op))
	}
	return operationNames[op]
}

// Arity returns the number of integer arguments the operation takes.
func (op Operation) Arity() int {
	switch op {
	case OpMaxLevel, OpCutFreq:
		return 1
	case OpResize:
		return 2
	default:
		return 0
	}
}

// ParseOperation maps a name such as "maxlevel" to its Operation.
func ParseOperation(name string) (Operation, error) {
	for i, n := range operationNames {
		if strings.EqualFold(name, n) {
			return Operation(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown operation %q", ErrInvalidArgument, name)
}

// Request describes one operation on one input file.
type Request struct {
	Operation Operation
	Input     string
	// Output is where the result is written. OpInfo ignores it.
	Output string
	// Args holds the operation's integer arguments, already range checked.
	Args []int
}

func (r Request) validate() error {
	if r.Input == "" {
		return fmt.Errorf("%w: missing input path", ErrInvalidArgument)
	}
	if r.Operation != OpInfo && r.Output == "" {
		return fmt.Errorf("%w: missing output path", ErrInvalidArgument)
	}
	if want := r.Operation.Arity(); len(r.Args) != want {
		return fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrInvalidArgument, r.Operation, want, len(r.Args))
	}
	return nil
}

func (r Request) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", r.Operation, r.Input)
	if r.Output != "" {
		fmt.Fprintf(&sb, " -> %s", r.Output)
	}
	for _, a := range r.Args {
		fmt.Fprintf(&sb, " %d", a)
	}
	return sb.String()
}

// Framing selects how output files are wrapped.
type Framing int

const (
	// FrameAuto uses zstd when the output path ends in ".zst".
	FrameAuto Framing = iota
	// FrameNone always writes the plain P6 or C6 stream.
	FrameNone
	// FrameZstd always wraps the stream in a zstd frame.
	FrameZstd
)

func (f Framing) String() string {
	switch f {
	case FrameNone:
		return "none"
	case FrameZstd:
		return "zstd"
	default:
		return "auto"
	}
}

// ProgressStage describes what the pipeline is currently doing.
type ProgressStage string

const (
	StageReading      ProgressStage = "reading"
	StageTransforming ProgressStage = "transforming"
	StageWriting      ProgressStage = "writing"
)

// ProgressFunc is called between pipeline stages. percent is 0.0–1.0.
// Return a non-nil error to abort before the next stage.
type ProgressFunc func(stage ProgressStage, percent float64) error

// Options configures Process and ProcessBatch.
type Options struct {
	// Logger receives one line per completed stage. Nil disables logging.
	Logger *imlog.Logger

	// OnProgress is called between stages. Optional.
	OnProgress ProgressFunc

	// Parallel spreads resize rows over GOMAXPROCS goroutines. The output
	// is identical to the sequential path.
	Parallel bool

	// Framing selects plain or zstd-framed output files.
	Framing Framing

	// MeasureSimilarity makes Process compare the image before and after
	// OpMaxLevel and OpCutFreq and report the SSIM in Result.Similarity.
	MeasureSimilarity bool
}

// DefaultOptions returns sensible defaults for general use.
func DefaultOptions() Options {
	return Options{Framing: FrameAuto}
}

// reportProgress checks the context, then invokes the progress callback if set.
func (o *Options) reportProgress(ctx context.Context, stage ProgressStage, percent float64) error {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	if o.OnProgress != nil {
		return o.OnProgress(stage, percent)
	}
	return nil
}

func (o *Options) logf(funcName, actor string, err error, template string, values ...interface{}) {
	if o.Logger != nil {
		o.Logger.Info(funcName, actor, err, template, values...)
	}
}

// Result describes a completed Request.
type Result struct {
	Request Request

	// Before is the input header; After the header of what was written.
	// After equals Before for OpInfo.
	Before Header
	After  Header

	// InputSize and OutputSize are file sizes in bytes. OutputSize is 0 for OpInfo.
	InputSize  int64
	OutputSize int64

	// Colors is the distinct color count after the operation, when it was
	// computed (OpCutFreq and OpCompress); otherwise 0.
	Colors int

	// Similarity is the SSIM between input and output. It is only set when
	// HasSimilarity is true.
	Similarity    float64
	HasSimilarity bool
}

// String returns a human-readable summary of the result.
func (r *Result) String() string {
	s := fmt.Sprintf("%s: %s | %dx%d → %dx%d | maxval %d → %d",
		r.Request.Operation, r.Request.Input,
		r.Before.Width, r.Before.Height, r.After.Width, r.After.Height,
		r.Before.MaxColorValue, r.After.MaxColorValue)
	if r.Colors > 0 {
		s += fmt.Sprintf(" | %d colors", r.Colors)
	}
	if r.HasSimilarity {
		s += fmt.Sprintf(" | SSIM %.4f", r.Similarity)
	}
	if r.OutputSize > 0 {
		s += fmt.Sprintf(" | %s → %s", humanBytes(r.InputSize), humanBytes(r.OutputSize))
	}
	return s
}
