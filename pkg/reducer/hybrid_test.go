// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/gomlx/cpureducer/pkg/core/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

// workerValues returns a worker-major buffer with small non-negative integer values.
func workerValues[T dtypes.Number](numWorkers, count int) []T {
	src := make([]T, numWorkers*count)
	for worker := range numWorkers {
		for i := range count {
			src[worker*count+i] = T((i*7 + worker*3) % 10)
		}
	}
	return src
}

// testHybridLimits checks that Hybrid with alpha=1 is the rescaled median, and with alpha=0 the sum.
func testHybridLimits[T dtypes.Number](t *testing.T, r *Reducer) {
	dtype := dtypes.FromGenericsType[T]()
	const count = 37
	length := count * dtype.Size()
	for _, numWorkers := range []int{1, 3, 4} {
		t.Run(fmt.Sprintf("workers=%d", numWorkers), func(t *testing.T) {
			src := workerValues[T](numWorkers, count)
			want, got := make([]T, count), make([]T, count)

			require.NoError(t, r.Median(asBytes(want), asBytes(src), length, dtype, numWorkers))
			require.NoError(t, r.Hybrid(asBytes(got), asBytes(src), length, dtype, numWorkers, 1, 0, false))
			require.Equal(t, want, got, "alpha=1 must match Median")

			require.NoError(t, r.SumSerial(asBytes(want), asBytes(src), length, dtype, numWorkers))
			require.NoError(t, r.Hybrid(asBytes(got), asBytes(src), length, dtype, numWorkers, 0, 0, false))
			require.Equal(t, want, got, "alpha=0 must match SumSerial")
		})
	}
}

func TestHybridLimits(t *testing.T) {
	r := newTestReducer(1)
	t.Run("Float32", func(t *testing.T) { testHybridLimits[float32](t, r) })
	t.Run("Float64", func(t *testing.T) { testHybridLimits[float64](t, r) })
	t.Run("Uint8", func(t *testing.T) { testHybridLimits[uint8](t, r) })
	t.Run("Int32", func(t *testing.T) { testHybridLimits[int32](t, r) })
	t.Run("Int8", func(t *testing.T) { testHybridLimits[int8](t, r) })
	t.Run("Int64", func(t *testing.T) { testHybridLimits[int64](t, r) })
	t.Run("Float16", func(t *testing.T) {
		const numWorkers, count = 4, 37
		src32 := workerValues[float32](numWorkers, count)
		src := make([]float16.Float16, len(src32))
		for i, v := range src32 {
			src[i] = float16.Fromfloat32(v)
		}
		want, got := make([]float16.Float16, count), make([]float16.Float16, count)
		require.NoError(t, r.Median(asBytes(want), asBytes(src), 2*count, dtypes.Float16, numWorkers))
		require.NoError(t, r.Hybrid(asBytes(got), asBytes(src), 2*count, dtypes.Float16, numWorkers, 1, 0, false))
		require.Equal(t, want, got)
		require.NoError(t, r.SumSerial(asBytes(want), asBytes(src), 2*count, dtypes.Float16, numWorkers))
		require.NoError(t, r.Hybrid(asBytes(got), asBytes(src), 2*count, dtypes.Float16, numWorkers, 0, 0, false))
		require.Equal(t, want, got)
	})
}

func TestHybridBlend(t *testing.T) {
	r := newTestReducer(1)
	// Sorted values [1, 2, 3, 10]: sum=16, median pair average 2.5 -> 0.5*16 + 0.5*4*2.5 = 13.
	dst := make([]float32, 1)
	require.NoError(t, r.Hybrid(asBytes(dst), asBytes([]float32{10, 2, 3, 1}), 4, dtypes.Float32, 4, 0.5, 0, false))
	assert.Equal(t, float32(13), dst[0])

	dst32 := make([]int32, 1)
	require.NoError(t, r.Hybrid(asBytes(dst32), asBytes([]int32{10, 2, 3, 1}), 4, dtypes.Int32, 4, 0.5, 0, false))
	assert.Equal(t, int32(13), dst32[0])

	// Odd: sorted [-1, 4, 6]: sum=9, median 4 -> 0.25*9 + 0.75*3*4 = 11.25.
	dst64 := make([]float64, 1)
	require.NoError(t, r.Hybrid(asBytes(dst64), asBytes([]float64{6, -1, 4}), 8, dtypes.Float64, 3, 0.75, 0, false))
	assert.InDelta(t, 11.25, dst64[0], 1e-6)
}

// TestHybridByzantineZeroNoise uses sigma=0, so the values of the Byzantine worker are replaced by 0.
func TestHybridByzantineZeroNoise(t *testing.T) {
	r := newTestReducer(1)
	const numWorkers, count = 5, 16
	src := make([]float32, numWorkers*count)
	for worker := range numWorkers {
		for i := range count {
			src[worker*count+i] = float32(worker*10 + i + 1)
		}
	}
	newRng := func() *rand.Rand { return rand.New(rand.NewPCG(5, 6)) }
	slot := newRng().IntN(numWorkers)

	// alpha=0: the sum of all workers except the Byzantine one.
	dst := make([]float32, count)
	require.NoError(t, r.HybridWithRand(asBytes(dst), asBytes(src), 4*count, dtypes.Float32, numWorkers,
		0, 0, true, newRng()))
	for i := range count {
		var want float32
		for worker := range numWorkers {
			if worker != slot {
				want += src[worker*count+i]
			}
		}
		require.Equalf(t, want, dst[i], "element %d, byzantine worker %d", i, slot)
	}

	// alpha=1: the rescaled median of the values with the substitution, within [0, n*max].
	require.NoError(t, r.HybridWithRand(asBytes(dst), asBytes(src), 4*count, dtypes.Float32, numWorkers,
		1, 0, true, newRng()))
	values := make([]float32, numWorkers)
	for i := range count {
		for worker := range numWorkers {
			values[worker] = src[worker*count+i]
		}
		values[slot] = 0
		slices.Sort(values)
		require.Equalf(t, float32(numWorkers)*values[numWorkers/2], dst[i], "element %d", i)
		require.GreaterOrEqual(t, dst[i], float32(0))
		require.LessOrEqual(t, dst[i], float32(numWorkers)*values[numWorkers-1])
	}

	// Same for integers and Float16.
	src32 := make([]int32, len(src))
	src16 := make([]float16.Float16, len(src))
	for i, v := range src {
		src32[i] = int32(v)
		src16[i] = float16.Fromfloat32(v)
	}
	dst32 := make([]int32, count)
	dst16 := make([]float16.Float16, count)
	require.NoError(t, r.HybridWithRand(asBytes(dst32), asBytes(src32), 4*count, dtypes.Int32, numWorkers,
		1, 0, true, newRng()))
	require.NoError(t, r.HybridWithRand(asBytes(dst16), asBytes(src16), 2*count, dtypes.Float16, numWorkers,
		1, 0, true, newRng()))
	for i := range count {
		assert.Equalf(t, int32(dst[i]), dst32[i], "Int32 element %d", i)
		assert.Equalf(t, dst[i], dst16[i].Float32(), "Float16 element %d", i)
	}
}

func TestHybridReproducible(t *testing.T) {
	const numWorkers, count = 4, 100
	src := workerValues[float32](numWorkers, count)
	run := func(r *Reducer) []float32 {
		dst := make([]float32, count)
		require.NoError(t, r.Hybrid(asBytes(dst), asBytes(src), 4*count, dtypes.Float32, numWorkers, 0.5, 1, true))
		return dst
	}
	r1 := must.M1(Build().Seed(7).Done())
	r2 := must.M1(Build().Seed(7).Done())
	first := run(r1)
	require.Equal(t, first, run(r2))

	// Each call draws new noise.
	require.NotEqual(t, first, run(r1))

	// Without noise the result doesn't depend on the generator.
	clean1, clean2 := make([]float32, count), make([]float32, count)
	require.NoError(t, r1.Hybrid(asBytes(clean1), asBytes(src), 4*count, dtypes.Float32, numWorkers, 0.5, 1, false))
	require.NoError(t, r2.Hybrid(asBytes(clean2), asBytes(src), 4*count, dtypes.Float32, numWorkers, 0.5, 1, false))
	require.Equal(t, clean1, clean2)
}

func TestHybridNoiseFloat16(t *testing.T) {
	// A Float16 value substituted by noise is rounded to Float16 before the reduction: with a single
	// worker and alpha=1 the output is exactly the rounded sample.
	rng := rand.New(rand.NewPCG(9, 9))
	_ = rng.IntN(1)
	const sigma = float32(3)
	sample := float16.Fromfloat32(sigma * float32(rng.NormFloat64()))

	r := newTestReducer(1)
	dst := make([]float16.Float16, 1)
	require.NoError(t, r.HybridWithRand(asBytes(dst), asBytes([]float16.Float16{0}), 2, dtypes.Float16, 1,
		1, sigma, true, rand.New(rand.NewPCG(9, 9))))
	assert.Equal(t, sample, dst[0])
}

func TestHybridErrors(t *testing.T) {
	r := newTestReducer(1)
	src := make([]float32, 8)
	dst := make([]float32, 2)
	require.ErrorIs(t, r.Hybrid(asBytes(dst), asBytes(src), 8, dtypes.Float32, 0, 0.5, 0, false), ErrInvalidNumWorkers)
	require.ErrorIs(t, r.Hybrid(asBytes(dst), asBytes(src), 8, dtypes.Float32, 5, 0.5, 0, false), ErrBufferTooSmall)
	require.ErrorIs(t, r.Hybrid(asBytes(src[2:]), asBytes(src), 8, dtypes.Float32, 4, 0.5, 0, false), ErrAliasing)
	require.ErrorIs(t, r.Hybrid(asBytes(dst), asBytes(src), 7, dtypes.Float32, 4, 0.5, 0, false), ErrLengthNotMultiple)
}
