// Command imtool applies one transform to a binary PPM (P6) image.
//
// Usage:
//
//	imtool [flags] <input> <output> <operation> [args...]
//	imtool [flags] -batch <file>
//
// Operations:
//
//	info                 print width, height and max level
//	maxlevel <n>         rescale samples to max level n (0-65535)
//	resize <w> <h>       bilinear resize to w x h
//	cutfreq <n>          replace the n least frequent colors
//	compress             write a C6 indexed container
//
// Examples:
//
//	imtool in.ppm out.ppm maxlevel 65535
//	imtool in.ppm out.ppm resize 640 480
//	imtool in.ppm out.cppm compress
//	imtool in.ppm.zst out.ppm.zst cutfreq 100
//	imtool -batch jobs.txt -workers 4
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/shamspias/imtool"
	"github.com/shamspias/imtool/internal/imlog"
)

const (
	exitFailure     = 1
	exitInvalidArgs = 255

	maxLevelMin = 0
	maxLevelMax = 65535
)

// usageError reports a command line that was rejected before any file was touched.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	var (
		batchFile string
		workers   int
		quiet     bool
		parallel  bool
		stats     bool
		ssim      bool
	)

	flag.StringVar(&batchFile, "batch", "", "Read one request per line from `file` (\"-\" for stdin)")
	flag.IntVar(&workers, "workers", 0, "Concurrent requests in batch mode (0 = number of CPUs)")
	flag.BoolVar(&quiet, "quiet", false, "Only log failures")
	flag.BoolVar(&parallel, "parallel", false, "Spread resize rows over all CPUs")
	flag.BoolVar(&stats, "stats", false, "With info: load the whole image and print color statistics")
	flag.BoolVar(&ssim, "ssim", false, "Report the structural similarity between input and output (maxlevel, cutfreq)")
	flag.Usage = usage
	flag.Parse()

	logger := newLogger(quiet)
	opts := imtool.DefaultOptions()
	opts.Logger = logger
	opts.Parallel = parallel
	opts.MeasureSimilarity = ssim

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	if batchFile != "" {
		err = runBatch(ctx, batchFile, workers, opts)
	} else {
		err = runSingle(ctx, flag.Args(), stats, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			os.Exit(exitInvalidArgs)
		}
		os.Exit(exitFailure)
	}
}

// newLogger returns a copy of the default logger writing to stderr.
func newLogger(quiet bool) *imlog.Logger {
	l := *imlog.DefaultLogger
	l.Output = log.New(os.Stderr, "", log.LstdFlags)
	l.Quiet = quiet
	return &l
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: imtool [flags] <input> <output> <operation> [args...]")
	fmt.Fprintln(os.Stderr, "       imtool [flags] -batch <file>")
	fmt.Fprintln(os.Stderr, "Operations: info | maxlevel <n> | resize <w> <h> | cutfreq <n> | compress")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func runSingle(ctx context.Context, args []string, stats bool, opts imtool.Options) error {
	req, err := parseRequest(args)
	if err != nil {
		return err
	}

	result, err := imtool.Process(ctx, req, opts)
	if err != nil {
		return err
	}

	if req.Operation != imtool.OpInfo {
		fmt.Println(result)
		return nil
	}
	printInfo(os.Stdout, req, result.Before)
	if stats {
		b, err := imtool.Open(req.Input)
		if err != nil {
			return err
		}
		s, err := imtool.Analyze(b)
		if err != nil {
			return err
		}
		fmt.Println(s)
	}
	return nil
}

func printInfo(w io.Writer, req imtool.Request, h imtool.Header) {
	fmt.Fprintf(w, "Input: %s\n", req.Input)
	fmt.Fprintf(w, "Output: %s\n", req.Output)
	fmt.Fprintf(w, "Operation: %s\n", req.Operation)
	fmt.Fprintf(w, "Image size: %dx%d\n", h.Width, h.Height)
	fmt.Fprintf(w, "Max level: %d\n", h.MaxColorValue)
}

func runBatch(ctx context.Context, path string, workers int, opts imtool.Options) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	reqs, err := parseBatch(r)
	if err != nil {
		return err
	}

	results := imtool.ProcessBatch(ctx, reqs, imtool.BatchOptions{
		Workers: workers,
		Options: opts,
	})
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("[%d] FAILED %s: %v\n", res.Index, res.Request, res.Err)
			continue
		}
		fmt.Printf("[%d] %s\n", res.Index, res.Result)
	}

	summary := imtool.Summarize(results)
	fmt.Println(summary)
	return summary.FirstError
}

// parseBatch reads one request per line. Blank lines and lines starting
// with '#' are skipped.
func parseBatch(r io.Reader) ([]imtool.Request, error) {
	var reqs []imtool.Request
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		req, err := parseRequest(strings.Fields(text))
		if err != nil {
			return nil, usagef("line %d: %v", line, err)
		}
		reqs = append(reqs, req)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return reqs, nil
}

// parseRequest validates <input> <output> <operation> [args...].
func parseRequest(args []string) (imtool.Request, error) {
	if len(args) < 3 {
		return imtool.Request{}, usagef("Invalid number of arguments: %d", len(args))
	}
	req := imtool.Request{Input: args[0], Output: args[1]}
	extra := args[3:]

	op, err := imtool.ParseOperation(args[2])
	if err != nil {
		return imtool.Request{}, usagef("Invalid option: %s", args[2])
	}
	req.Operation = op

	if len(extra) != op.Arity() {
		return imtool.Request{}, usagef("Invalid number of extra arguments for %s: %d", op, len(extra))
	}

	switch op {
	case imtool.OpMaxLevel:
		n, err := strconv.Atoi(extra[0])
		if err != nil || n < maxLevelMin || n > maxLevelMax {
			return imtool.Request{}, usagef("Invalid maxlevel: %s", extra[0])
		}
		req.Args = []int{n}
	case imtool.OpResize:
		w, err := strconv.Atoi(extra[0])
		if err != nil || w <= 0 {
			return imtool.Request{}, usagef("Invalid resize width: %s", extra[0])
		}
		h, err := strconv.Atoi(extra[1])
		if err != nil || h <= 0 {
			return imtool.Request{}, usagef("Invalid resize height: %s", extra[1])
		}
		req.Args = []int{w, h}
	case imtool.OpCutFreq:
		n, err := strconv.Atoi(extra[0])
		if err != nil || n <= 0 {
			return imtool.Request{}, usagef("Invalid cutfreq: %s", extra[0])
		}
		req.Args = []int{n}
	}
	return req, nil
}
