// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package reducer implements the CPU reduction engine used to aggregate the gradients of
// distributed training workers.
//
// Buffers are plain []byte, interpreted according to a dtypes.DType, with an explicit length in bytes.
// It provides:
//
//   - Elementwise kernels: Accumulate, Combine, AccumulateScaled and CombineScaled, split across threads.
//   - Cross-worker reductions over a worker-major buffer: SumSerial, Median and the Byzantine-tolerant Hybrid.
//   - Copy, a thread-parallel memory copy.
//
// Float16 values have no native arithmetic: they are converted to float32 (with vector instructions
// if the CPU supports it, see package halfprec), combined and converted back.
//
// Invalid arguments (lengths, buffer sizes, overlapping buffers) are returned as errors. An unknown
// dtype is a programming error and terminates the process.
//
// Example:
//
//	r, err := reducer.New()
//	if err != nil { ... }
//	err = r.Accumulate(dst, src, len(src), dtypes.Float32)
package reducer

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sync/atomic"

	"github.com/gomlx/cpureducer/internal/workerspool"
	"github.com/gomlx/cpureducer/pkg/core/distributed"
	"github.com/gomlx/cpureducer/pkg/core/halfprec"
	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Reducer is the reduction engine. It is safe for concurrent use, and calls are independent of each other.
//
// Create it with New or Build.
type Reducer struct {
	id         uuid.UUID
	numThreads atomic.Int64
	pool       *workerspool.Pool

	// seed and numCalls derive the generator of each Hybrid call.
	seed     uint64
	numCalls atomic.Uint64

	// comm is optional.
	comm      distributed.Communicator
	localRank int
}

// New returns a Reducer configured from the environment: the number of threads from $BYTEPS_OMP_THREAD_PER_GPU
// and then the configuration string in $CPUREDUCER_CONFIG (see Builder.Config).
//
// It is a shortcut to Build().FromEnv().Done().
func New() (*Reducer, error) {
	return Build().FromEnv().Done()
}

// Builder for a Reducer. Create it with Build, set the options and call Done.
//
// Settings are applied in order: defaults, environment (if FromEnv is set), the Config string and
// finally the explicitly set NumThreads and Seed.
type Builder struct {
	fromEnv    bool
	configStr  string
	numThreads int
	seed       uint64
	seedSet    bool
	comm       distributed.Communicator
	localRank  int
	err        error
}

// Build returns a Builder for a Reducer.
func Build() *Builder {
	return &Builder{}
}

// FromEnv reads $BYTEPS_OMP_THREAD_PER_GPU and $CPUREDUCER_CONFIG.
func (b *Builder) FromEnv() *Builder {
	b.fromEnv = true
	return b
}

// Config sets a configuration string: comma-separated "key=value" pairs.
//
// Keys:
//
//   - "threads": number of threads used by the parallel kernels.
//   - "seed": seed of the random number generator used by Hybrid.
//
// Example: "threads=8,seed=42".
func (b *Builder) Config(configStr string) *Builder {
	b.configStr = configStr
	return b
}

// NumThreads sets the number of threads used by the parallel kernels. It must be positive.
func (b *Builder) NumThreads(numThreads int) *Builder {
	if numThreads <= 0 && b.err == nil {
		b.err = errors.Wrapf(ErrInvalidConfig, "NumThreads(%d) must be positive", numThreads)
	}
	b.numThreads = numThreads
	return b
}

// Seed sets the seed of the random number generator used by Hybrid.
// If not set, a random seed is used.
func (b *Builder) Seed(seed uint64) *Builder {
	b.seed = seed
	b.seedSet = true
	return b
}

// Communicator binds the Reducer to a communicator, with localRank the rank of this process.
// It is used by IsRoot.
func (b *Builder) Communicator(comm distributed.Communicator, localRank int) *Builder {
	b.comm = comm
	b.localRank = localRank
	return b
}

// Done creates the Reducer.
func (b *Builder) Done() (*Reducer, error) {
	if b.err != nil {
		return nil, b.err
	}
	cfg := config{numThreads: DefaultNumThreads}
	if b.fromEnv {
		if numThreads, found := threadsFromEnv(); found {
			cfg.numThreads = numThreads
		}
		if configStr, found := os.LookupEnv(ConfigEnv); found {
			if err := cfg.parse(configStr); err != nil {
				return nil, errors.WithMessagef(err, "parsing $%s", ConfigEnv)
			}
		}
	}
	if err := cfg.parse(b.configStr); err != nil {
		return nil, err
	}
	if b.numThreads > 0 {
		cfg.numThreads = b.numThreads
	}
	if b.seedSet {
		cfg.seed, cfg.seedSet = b.seed, true
	}
	if !cfg.seedSet {
		cfg.seed = rand.Uint64()
	}

	r := &Reducer{
		id:        uuid.New(),
		pool:      workerspool.New(cfg.numThreads),
		seed:      cfg.seed,
		comm:      b.comm,
		localRank: b.localRank,
	}
	r.numThreads.Store(int64(cfg.numThreads))
	klog.V(1).Infof("cpureducer %s: created with %d threads, float16 vector conversion=%v",
		r.id, cfg.numThreads, halfprec.IsVectorized())
	return r, nil
}

// ID returns the unique id of the Reducer, used in its log lines.
func (r *Reducer) ID() uuid.UUID {
	return r.id
}

// Seed returns the seed from which the generators of the Hybrid calls are derived.
func (r *Reducer) Seed() uint64 {
	return r.seed
}

// NumThreads returns the number of threads used by the parallel kernels.
func (r *Reducer) NumThreads() int {
	return int(r.numThreads.Load())
}

// Configure changes the number of threads used by the parallel kernels.
// Calls already running are not affected.
func (r *Reducer) Configure(numThreads int) error {
	if numThreads <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "Configure(%d): number of threads must be positive", numThreads)
	}
	r.numThreads.Store(int64(numThreads))
	r.pool.SetMaxParallelism(numThreads)
	klog.V(1).Infof("cpureducer %s: configured to %d threads", r.id, numThreads)
	return nil
}

// IsRoot returns whether this process is the root of the communicator the Reducer is bound to.
// It returns false if there is no communicator.
func (r *Reducer) IsRoot() bool {
	if r.comm == nil {
		return false
	}
	return r.comm.Root() == r.localRank
}

// String implements fmt.Stringer.
func (r *Reducer) String() string {
	return fmt.Sprintf("Reducer(id=%s, threads=%d)", r.id, r.NumThreads())
}

// minElementsPerChunk is the smallest number of elements worth handing to a separate goroutine.
const minElementsPerChunk = 1024

// parallelFor splits [0, numItems) across at most numThreads chunks aligned to halfprec.VectorWidth,
// and runs fn on each of them.
func (r *Reducer) parallelFor(numItems, numThreads int, fn func(start, end int)) {
	numChunks := min(numThreads, (numItems+minElementsPerChunk-1)/minElementsPerChunk)
	r.pool.ParallelFor(numItems, numChunks, halfprec.VectorWidth, fn)
}

// run executes the kernel fn, converting panics with an error into a returned error.
func (r *Reducer) run(op string, fn func()) error {
	if err := exceptions.TryCatch[error](fn); err != nil {
		return errors.WithMessagef(err, "cpureducer %s: %s failed", r.id, op)
	}
	return nil
}
