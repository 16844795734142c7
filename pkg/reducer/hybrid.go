// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"math/rand/v2"
	"slices"

	"github.com/gomlx/cpureducer/pkg/core/dtypes"
	"k8s.io/klog/v2"
)

// Hybrid reduces the contributions of numWorkers workers with an estimator that blends the sum and the
// rescaled median (see Median):
//
//	dst[i] = (1-alpha)*sum + alpha*n*median
//
// For robustness experiments, if isByzantine is set one worker (drawn at random once per call) has its
// values replaced by samples of a normal distribution N(0, sigma), converted to dtype.
//
// The randomness comes from a generator derived from the Reducer seed and a per-call counter, so
// concurrent calls are safe, and a Reducer built with a fixed Seed reproduces the same results.
// Use HybridWithRand to provide the generator.
//
// The layout of src and the aliasing rules are the same as Median.
func (r *Reducer) Hybrid(dst, src []byte, length int, dtype dtypes.DType, numWorkers int,
	alpha, sigma float32, isByzantine bool) error {
	return r.HybridWithRand(dst, src, length, dtype, numWorkers, alpha, sigma, isByzantine, nil)
}

// HybridWithRand is like Hybrid, but draws the Byzantine worker and the noise from rng.
// If rng is nil, it is derived from the Reducer seed as in Hybrid.
//
// rng is not safe for concurrent use: don't share it across concurrent calls.
func (r *Reducer) HybridWithRand(dst, src []byte, length int, dtype dtypes.DType, numWorkers int,
	alpha, sigma float32, isByzantine bool, rng *rand.Rand) error {
	const op = "Hybrid"
	numElements, err := checkCrossWorker(op, dst, src, length, dtype, numWorkers)
	if err != nil {
		return err
	}
	if numElements == 0 {
		return nil
	}
	if rng == nil {
		rng = r.newRand()
	}
	params := &hybridParams{
		alpha:         alpha,
		sigma:         sigma,
		byzantineSlot: -1,
		rng:           rng,
	}
	slot := rng.IntN(numWorkers)
	if isByzantine {
		params.byzantineSlot = slot
	}
	kernel := hybridDispatcher.get(dtype)
	klog.V(2).Infof("cpureducer %s: %s(%s, %d elements, %d workers, alpha=%g, sigma=%g, byzantine slot=%d)",
		r.id, op, dtype, numElements, numWorkers, alpha, sigma, params.byzantineSlot)
	return r.run(op, func() { kernel(dst, src, numElements, numWorkers, params) })
}

// newRand returns a new generator for one call, seeded with the Reducer seed and call counter.
func (r *Reducer) newRand() *rand.Rand {
	return rand.New(rand.NewPCG(r.seed, r.numCalls.Add(1)))
}

// hybridParams are the per-call parameters of the hybrid kernels.
type hybridParams struct {
	alpha, sigma float32

	// byzantineSlot is the worker whose values are replaced by noise, or -1 for none.
	byzantineSlot int
	rng           *rand.Rand

	// roundNoise, if set, rounds the noise samples to the precision of the dtype being reduced.
	roundNoise func(float32) float32
}

// noise returns the next sample of N(0, sigma).
func (p *hybridParams) noise() float32 {
	sample := p.sigma * float32(p.rng.NormFloat64())
	if p.roundNoise != nil {
		sample = p.roundNoise(sample)
	}
	return sample
}

func hybrid[T dtypes.Number](dst, src []T, numWorkers int, params *hybridParams) {
	count := len(dst)
	values := make([]T, numWorkers)
	for i := range dst {
		gatherWorkers(values, src, i, count)
		if params.byzantineSlot >= 0 {
			values[params.byzantineSlot] = T(params.noise())
		}
		slices.Sort(values)
		var sum float32
		for _, v := range values {
			sum = addToSum(sum, v)
		}
		dst[i] = blend(values, sum, params.alpha)
	}
}

// blend returns (1-alpha)*sum + alpha*n*median of the sorted values.
//
// alpha*n is computed in float32. The median term is float64 for float64 values, and float32 otherwise,
// with the sum of the even pair taken in int64 for integer types.
func blend[T dtypes.Number](sorted []T, sum, alpha float32) T {
	n := len(sorted)
	mid := n / 2
	alphaN := alpha * float32(n)
	sumTerm := float32((1 - alpha) * sum)
	if _, ok := any(sorted[0]).(float64); ok {
		var medianTerm float64
		if n%2 == 0 {
			medianTerm = float64(alphaN) * (float64(sorted[mid-1]) + float64(sorted[mid])) / 2
		} else {
			medianTerm = float64(alphaN) * float64(sorted[mid])
		}
		return T(float64(sumTerm) + medianTerm)
	}
	var medianTerm float32
	if n%2 == 0 {
		medianTerm = float32(alphaN*pairSum(sorted[mid-1], sorted[mid])) / 2
	} else {
		medianTerm = float32(alphaN * float32(sorted[mid]))
	}
	return T(sumTerm + medianTerm)
}

// pairSum returns a+b as float32: float32 values are added in float32, integers in int64.
func pairSum[T dtypes.Number](a, b T) float32 {
	if _, ok := any(a).(float32); ok {
		return float32(a) + float32(b)
	}
	return float32(int64(a) + int64(b))
}
