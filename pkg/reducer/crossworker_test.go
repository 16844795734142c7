// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"testing"

	"github.com/gomlx/cpureducer/pkg/core/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

// signedNumber are the Number types that can hold negative values.
type signedNumber interface {
	float32 | float64 | int32 | int8 | int64
}

func testMedian[T dtypes.Number](t *testing.T, r *Reducer) {
	dtype := dtypes.FromGenericsType[T]()
	size := dtype.Size()

	// 3 workers, 2 elements: element 0 has values {9, 1, 5}, element 1 has {4, 4, 4}.
	src := []T{9, 4, 1, 4, 5, 4}
	dst := make([]T, 2)
	require.NoError(t, r.Median(asBytes(dst), asBytes(src), 2*size, dtype, 3))
	assert.Equal(t, []T{15, 12}, dst)

	// 4 workers, 1 element.
	src = []T{8, 2, 6, 4}
	dst = make([]T, 1)
	require.NoError(t, r.Median(asBytes(dst), asBytes(src), size, dtype, 4))
	assert.Equal(t, []T{20}, dst)

	// 1 worker: the median is the value itself.
	require.NoError(t, r.Median(asBytes(dst), asBytes([]T{7}), size, dtype, 1))
	assert.Equal(t, []T{7}, dst)
}

func testMedianSigned[T signedNumber](t *testing.T, r *Reducer) {
	dtype := dtypes.FromGenericsType[T]()
	size := dtype.Size()
	src := []T{5, -10, -1, -6, 2, -2, -3, -2}
	dst := make([]T, 2)
	require.NoError(t, r.Median(asBytes(dst), asBytes(src), 2*size, dtype, 4))
	assert.Equal(t, []T{2, -16}, dst)
}

func TestMedian(t *testing.T) {
	r := newTestReducer(2)
	t.Run("Float32", func(t *testing.T) { testMedian[float32](t, r); testMedianSigned[float32](t, r) })
	t.Run("Float64", func(t *testing.T) { testMedian[float64](t, r); testMedianSigned[float64](t, r) })
	t.Run("Uint8", func(t *testing.T) { testMedian[uint8](t, r) })
	t.Run("Int32", func(t *testing.T) { testMedian[int32](t, r); testMedianSigned[int32](t, r) })
	t.Run("Int8", func(t *testing.T) { testMedian[int8](t, r); testMedianSigned[int8](t, r) })
	t.Run("Int64", func(t *testing.T) { testMedian[int64](t, r); testMedianSigned[int64](t, r) })

	// Float types keep the fraction of the even case.
	dst := make([]float32, 1)
	require.NoError(t, r.Median(asBytes(dst), asBytes([]float32{1, 2}), 4, dtypes.Float32, 2))
	assert.Equal(t, float32(3), dst[0])
	dst[0] = 0
	require.NoError(t, r.Median(asBytes(dst), asBytes([]float32{1, 2, 2, 4}), 4, dtypes.Float32, 4))
	assert.Equal(t, float32(8), dst[0])
	dst64 := make([]float64, 1)
	require.NoError(t, r.Median(asBytes(dst64), asBytes([]float64{0.5, 1, 2, 3}), 8, dtypes.Float64, 4))
	assert.Equal(t, 6.0, dst64[0])
}

func TestMedianFloat16(t *testing.T) {
	withVectorized(t, func(t *testing.T) {
		r := newTestReducer(1)
		count := float16BlockSize + 9
		for _, numWorkers := range []int{3, 4} {
			src := make([]float16.Float16, numWorkers*count)
			for worker := range numWorkers {
				for i := range count {
					src[worker*count+i] = float16.Fromfloat32(float32((i+worker*5)%13) - 4)
				}
			}
			want := make([]float32, count)
			srcFloat32 := make([]float32, len(src))
			for i, v := range src {
				srcFloat32[i] = v.Float32()
			}
			require.NoError(t, r.Median(asBytes(want), asBytes(srcFloat32), 4*count, dtypes.Float32, numWorkers))

			dst := make([]float16.Float16, count)
			require.NoError(t, r.Median(asBytes(dst), asBytes(src), 2*count, dtypes.Float16, numWorkers))
			for i := range dst {
				require.Equalf(t, want[i], dst[i].Float32(), "numWorkers=%d, element %d", numWorkers, i)
			}
		}
	})
}

func testSumSerial[T dtypes.Number](t *testing.T, r *Reducer) {
	dtype := dtypes.FromGenericsType[T]()
	const numWorkers, count = 3, 4
	src := []T{
		1, 2, 3, 4,
		10, 20, 30, 40,
		5, 0, 9, 1,
	}
	dst := make([]T, count)
	require.NoError(t, r.SumSerial(asBytes(dst), asBytes(src), count*dtype.Size(), dtype, numWorkers))
	assert.Equal(t, []T{16, 22, 42, 45}, dst)
}

func TestSumSerial(t *testing.T) {
	r := newTestReducer(2)
	t.Run("Float32", func(t *testing.T) { testSumSerial[float32](t, r) })
	t.Run("Float64", func(t *testing.T) { testSumSerial[float64](t, r) })
	t.Run("Uint8", func(t *testing.T) { testSumSerial[uint8](t, r) })
	t.Run("Int32", func(t *testing.T) { testSumSerial[int32](t, r) })
	t.Run("Int8", func(t *testing.T) { testSumSerial[int8](t, r) })
	t.Run("Int64", func(t *testing.T) { testSumSerial[int64](t, r) })

	t.Run("Float16", func(t *testing.T) {
		src := []float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(2.25), float16.Fromfloat32(3)}
		dst := make([]float16.Float16, 1)
		require.NoError(t, r.SumSerial(asBytes(dst), asBytes(src), 2, dtypes.Float16, 3))
		assert.Equal(t, float32(6.75), dst[0].Float32())
	})
}

// TestSumSerialPrecision documents the float32 accumulator of SumSerial: it narrows wide types.
func TestSumSerialPrecision(t *testing.T) {
	r := newTestReducer(1)

	// The low bits of large int64 values are lost.
	const large = int64(1)<<40 + 1
	dst := make([]int64, 1)
	require.NoError(t, r.SumSerial(asBytes(dst), asBytes([]int64{large, large}), 8, dtypes.Int64, 2))
	assert.Equal(t, int64(1)<<41, dst[0])
	assert.NotEqual(t, 2*large, dst[0])

	// Float64 values are added in float64, but the partial sum is narrowed to float32 after each step.
	dst64 := make([]float64, 1)
	require.NoError(t, r.SumSerial(asBytes(dst64), asBytes([]float64{0.1, 0.2}), 8, dtypes.Float64, 2))
	want := float64(float32(float64(float32(0.1)) + 0.2))
	assert.Equal(t, want, dst64[0])
	assert.NotEqual(t, 0.1+0.2, dst64[0])
}

func TestCrossWorkerErrors(t *testing.T) {
	r := newTestReducer(1)
	src := make([]int32, 12)
	dst := make([]int32, 4)

	require.ErrorIs(t, r.Median(asBytes(dst), asBytes(src), 16, dtypes.Int32, 0), ErrInvalidNumWorkers)
	require.ErrorIs(t, r.SumSerial(asBytes(dst), asBytes(src), 16, dtypes.Int32, -1), ErrInvalidNumWorkers)
	require.ErrorIs(t, r.Median(asBytes(dst), asBytes(src), 16, dtypes.Int32, 4), ErrBufferTooSmall)
	require.ErrorIs(t, r.Median(asBytes(dst[:2]), asBytes(src), 16, dtypes.Int32, 3), ErrBufferTooSmall)
	require.ErrorIs(t, r.Median(asBytes(dst), asBytes(src), 15, dtypes.Int32, 3), ErrLengthNotMultiple)
	require.ErrorIs(t, r.SumSerial(asBytes(dst), asBytes(src), -4, dtypes.Int32, 3), ErrInvalidLength)

	// dst must not overlap any of the workers' segments.
	require.ErrorIs(t, r.Median(asBytes(src[8:]), asBytes(src), 16, dtypes.Int32, 3), ErrAliasing)
	require.ErrorIs(t, r.SumSerial(asBytes(src[:4]), asBytes(src), 16, dtypes.Int32, 3), ErrAliasing)

	require.NoError(t, r.Median(asBytes(dst), asBytes(src), 16, dtypes.Int32, 3))
	require.NoError(t, r.Median(nil, nil, 0, dtypes.Int32, 3))
}
