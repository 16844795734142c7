// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/cpureducer/pkg/core/dtypes"
	"github.com/gomlx/cpureducer/pkg/core/halfprec"
	"github.com/gomlx/cpureducer/pkg/reducer"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

// benchOptions holds the flags of the bench subcommand.
type benchOptions struct {
	*rootOptions
	op         string
	dtype      string
	size       string
	numWorkers int
	iterations int
	scalar     bool
	progress   bool
}

// benchOps maps the operation names to the call being benchmarked. src holds numWorkers buffers of length bytes.
var benchOps = map[string]func(r *reducer.Reducer, dst, src []byte, length int, dtype dtypes.DType, numWorkers int) error{
	"accumulate": func(r *reducer.Reducer, dst, src []byte, length int, dtype dtypes.DType, _ int) error {
		return r.Accumulate(dst, src, length, dtype)
	},
	"accumulate_scaled": func(r *reducer.Reducer, dst, src []byte, length int, dtype dtypes.DType, _ int) error {
		return r.AccumulateScaled(dst, src, length, dtype, 0.5)
	},
	"combine": func(r *reducer.Reducer, dst, src []byte, length int, dtype dtypes.DType, _ int) error {
		return r.Combine(dst, src[:length], src[length:], length, dtype)
	},
	"combine_scaled": func(r *reducer.Reducer, dst, src []byte, length int, dtype dtypes.DType, _ int) error {
		return r.CombineScaled(dst, src[:length], src[length:], length, dtype, 0.5)
	},
	"sum_serial": func(r *reducer.Reducer, dst, src []byte, length int, dtype dtypes.DType, numWorkers int) error {
		return r.SumSerial(dst, src, length, dtype, numWorkers)
	},
	"median": func(r *reducer.Reducer, dst, src []byte, length int, dtype dtypes.DType, numWorkers int) error {
		return r.Median(dst, src, length, dtype, numWorkers)
	},
	"hybrid": func(r *reducer.Reducer, dst, src []byte, length int, dtype dtypes.DType, numWorkers int) error {
		return r.Hybrid(dst, src, length, dtype, numWorkers, 0.5, 1, true)
	},
	"copy": func(r *reducer.Reducer, dst, src []byte, length int, _ dtypes.DType, _ int) error {
		return r.Copy(dst, src, length)
	},
}

// benchOpNames returns the sorted names of the operations that can be benchmarked.
func benchOpNames() []string {
	names := make([]string, 0, len(benchOps))
	for name := range benchOps {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func newBenchCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &benchOptions{rootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark one of the reduction operations",
		Long: `Benchmark one of the reduction operations on synthetic buffers, and report its throughput.

The throughput is measured over the bytes read by the operation: numWorkers*size for the
cross-worker reductions (sum_serial, median, hybrid), 2*size for combine and size otherwise.

Example:
  cpureducer bench --op=accumulate --dtype=float16 --size=64MiB
  cpureducer bench --op=median --workers=8 --iters=10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.op, "op", "accumulate",
		fmt.Sprintf("Operation to benchmark, one of: %s.", strings.Join(benchOpNames(), ", ")))
	flags.StringVar(&opts.dtype, "dtype", "float32", "Data type of the buffers, e.g. float32, float16, int64.")
	flags.StringVar(&opts.size, "size", "4MiB", "Size of the (per worker) buffer, e.g. 512KiB or 1GB.")
	flags.IntVar(&opts.numWorkers, "workers", 4, "Number of workers for the cross-worker reductions.")
	flags.IntVar(&opts.iterations, "iters", 100, "Number of iterations.")
	flags.BoolVar(&opts.scalar, "scalar", false, "Disable the float16 vector conversion.")
	flags.BoolVar(&opts.progress, "progress", true, "Display a progress bar.")
	return cmd
}

// benchResult is the outcome of a benchmark.
type benchResult struct {
	op            string
	dtype         dtypes.DType
	length        int
	bytesPerIter  int
	iterations    int
	elapsed       time.Duration
	numThreads    int
	vectorEnabled bool
}

func runBench(stdout, stderr io.Writer, opts *benchOptions) error {
	opFn, found := benchOps[opts.op]
	if !found {
		return errors.Errorf("unknown --op=%q, valid values: %s", opts.op, strings.Join(benchOpNames(), ", "))
	}
	dtype, err := dtypes.FromName(opts.dtype)
	if err != nil {
		return errors.WithMessage(err, "invalid --dtype")
	}
	size, err := humanize.ParseBytes(opts.size)
	if err != nil {
		return errors.Wrapf(err, "invalid --size=%q", opts.size)
	}
	length := int(size) / dtype.Size() * dtype.Size()
	if length == 0 {
		return errors.Errorf("--size=%q is smaller than one %s element", opts.size, dtype)
	}
	if opts.numWorkers <= 0 || opts.iterations <= 0 {
		return errors.Errorf("--workers=%d and --iters=%d must be positive", opts.numWorkers, opts.iterations)
	}
	r, err := newReducer(opts.rootOptions)
	if err != nil {
		return err
	}
	if opts.scalar {
		previous := halfprec.SetVectorized(false)
		defer halfprec.SetVectorized(previous)
	}

	numSources := 1
	switch opts.op {
	case "combine", "combine_scaled":
		numSources = 2
	case "sum_serial", "median", "hybrid":
		numSources = opts.numWorkers
	}
	dst := make([]byte, length)
	src := make([]byte, numSources*length)
	fillBuffer(dst, dtype)
	fillBuffer(src, dtype)
	klog.V(1).Infof("benchmarking %s on %s: %s per buffer, %d source buffers",
		opts.op, dtype, humanize.IBytes(uint64(length)), numSources)

	bar := progressbar.NewOptions(opts.iterations,
		progressbar.OptionSetDescription(opts.op),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("iters"),
		progressbar.OptionSetVisibility(opts.progress),
		progressbar.OptionClearOnFinish(),
	)
	start := time.Now()
	for range opts.iterations {
		// Accumulate grows dst at each iteration: with integer types it wraps around, which is fine here.
		if err := opFn(r, dst, src, length, dtype, opts.numWorkers); err != nil {
			return err
		}
		_ = bar.Add(1)
	}
	elapsed := time.Since(start)
	_ = bar.Finish()

	reportBench(stdout, benchResult{
		op:            opts.op,
		dtype:         dtype,
		length:        length,
		bytesPerIter:  numSources * length,
		iterations:    opts.iterations,
		elapsed:       elapsed,
		numThreads:    r.NumThreads(),
		vectorEnabled: halfprec.IsVectorized(),
	})
	return nil
}

func reportBench(w io.Writer, result benchResult) {
	perIter := result.elapsed / time.Duration(result.iterations)
	throughput := float64(result.bytesPerIter) * float64(result.iterations) / result.elapsed.Seconds()
	fmt.Fprintln(w, titleStyle.Render("Benchmark"))
	table := newPlainTable().Headers("Operation", "DType", "Size", "Threads", "Iterations", "Time/iter", "Throughput")
	dtypeDesc := result.dtype.String()
	if result.dtype == dtypes.Float16 && !result.vectorEnabled {
		dtypeDesc += " (scalar)"
	}
	table.Row(result.op, dtypeDesc, humanize.IBytes(uint64(result.length)),
		humanize.Comma(int64(result.numThreads)), humanize.Comma(int64(result.iterations)),
		perIter.String(), humanize.IBytes(uint64(throughput))+"/s")
	fmt.Fprintln(w, table.Render())
}

// fillBuffer fills buf with small random values of dtype, avoiding NaNs and denormals.
func fillBuffer(buf []byte, dtype dtypes.DType) {
	rng := rand.New(rand.NewPCG(uint64(len(buf)), uint64(dtype)))
	numElements := len(buf) / dtype.Size()
	if numElements == 0 {
		return
	}
	ptr := unsafe.Pointer(unsafe.SliceData(buf))
	switch dtype {
	case dtypes.Float32:
		values := unsafe.Slice((*float32)(ptr), numElements)
		for i := range values {
			values[i] = rng.Float32()*2 - 1
		}
	case dtypes.Float64:
		values := unsafe.Slice((*float64)(ptr), numElements)
		for i := range values {
			values[i] = rng.Float64()*2 - 1
		}
	case dtypes.Float16:
		values := unsafe.Slice((*float16.Float16)(ptr), numElements)
		for i := range values {
			values[i] = float16.Fromfloat32(rng.Float32()*2 - 1)
		}
	default:
		for i := range buf {
			buf[i] = byte(rng.IntN(256))
		}
	}
}
