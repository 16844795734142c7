// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"slices"

	"github.com/gomlx/cpureducer/pkg/core/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// SumSerial reduces the contributions of numWorkers workers by summing them: dst[i] = sum_j src[j*count+i],
// where count = length/dtype.Size().
//
// src holds numWorkers segments of length bytes, worker-major (see Median). The sum is accumulated in
// float32 (float64 values are added in float64 and narrowed after each step) and converted back to dtype.
// dst must not overlap src.
func (r *Reducer) SumSerial(dst, src []byte, length int, dtype dtypes.DType, numWorkers int) error {
	const op = "SumSerial"
	numElements, err := checkCrossWorker(op, dst, src, length, dtype, numWorkers)
	if err != nil {
		return err
	}
	kernel := sumSerialDispatcher.get(dtype)
	klog.V(2).Infof("cpureducer %s: %s(%s, %d elements, %d workers)", r.id, op, dtype, numElements, numWorkers)
	return r.run(op, func() { kernel(dst, src, numElements, numWorkers) })
}

// Median reduces the contributions of numWorkers workers with the rescaled median of each element.
//
// src holds numWorkers segments of length bytes: element i of worker j is at index j*count+i, with
// count = length/dtype.Size(). For each element the workers' values are sorted and, with n = numWorkers:
//
//   - n odd: dst[i] = n * v[n/2]
//   - n even: dst[i] = n * (v[n/2-1] + v[n/2]) / 2
//
// The result is on the scale of a sum, so it can replace a SumSerial. Float types are computed in their
// own precision (Float16 in float32), integer types in int64 and truncated.
// dst must not overlap src.
func (r *Reducer) Median(dst, src []byte, length int, dtype dtypes.DType, numWorkers int) error {
	const op = "Median"
	numElements, err := checkCrossWorker(op, dst, src, length, dtype, numWorkers)
	if err != nil {
		return err
	}
	kernel := medianDispatcher.get(dtype)
	klog.V(2).Infof("cpureducer %s: %s(%s, %d elements, %d workers)", r.id, op, dtype, numElements, numWorkers)
	return r.run(op, func() { kernel(dst, src, numElements, numWorkers) })
}

// checkCrossWorker validates the arguments of the cross-worker reductions, and returns the number of
// elements per worker.
func checkCrossWorker(op string, dst, src []byte, length int, dtype dtypes.DType, numWorkers int) (int, error) {
	checkDType(op, dtype)
	numElements, err := checkLength(length, dtype, namedBuffer{"dst", dst})
	if err != nil {
		return 0, errors.WithMessage(err, op)
	}
	if err = checkWorkers(src, length, numWorkers); err != nil {
		return 0, errors.WithMessage(err, op)
	}
	if overlaps(dst[:length], src[:numWorkers*length]) {
		return 0, errors.Wrapf(ErrAliasing, "%s: dst and src", op)
	}
	return numElements, nil
}

// gatherWorkers copies the value of element i of every worker into values.
func gatherWorkers[T dtypes.Number](values, src []T, i, count int) {
	for worker := range values {
		values[worker] = src[worker*count+i]
	}
}

// addToSum adds value to the float32 accumulator. float64 values are added in float64 precision.
func addToSum[T dtypes.Number](sum float32, value T) float32 {
	if v, ok := any(value).(float64); ok {
		return float32(float64(sum) + v)
	}
	return sum + float32(value)
}

// isFloat returns whether T is a float type.
func isFloat[T dtypes.Number]() bool {
	var t T
	switch any(t).(type) {
	case float32, float64:
		return true
	}
	return false
}

func sumSerial[T dtypes.Number](dst, src []T, numWorkers int) {
	count := len(dst)
	for i := range dst {
		var sum float32
		for worker := range numWorkers {
			sum = addToSum(sum, src[worker*count+i])
		}
		dst[i] = T(sum)
	}
}

func median[T dtypes.Number](dst, src []T, numWorkers int) {
	count := len(dst)
	values := make([]T, numWorkers)
	floatType := isFloat[T]()
	for i := range dst {
		gatherWorkers(values, src, i, count)
		slices.Sort(values)
		dst[i] = rescaledMedian(values, floatType)
	}
}

// rescaledMedian returns n times the median of the sorted values.
func rescaledMedian[T dtypes.Number](sorted []T, floatType bool) T {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return T(n) * sorted[mid]
	}
	if floatType {
		return T(n) * (sorted[mid-1] + sorted[mid]) / 2
	}
	return T(int64(n) * (int64(sorted[mid-1]) + int64(sorted[mid])) / 2)
}
