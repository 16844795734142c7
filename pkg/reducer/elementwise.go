// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"github.com/gomlx/cpureducer/pkg/core/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Accumulate adds src into dst elementwise: dst[i] += src[i], for the first length bytes of both
// buffers, interpreted as dtype.
//
// Integer types wrap around on overflow. dst and src must not overlap.
func (r *Reducer) Accumulate(dst, src []byte, length int, dtype dtypes.DType) error {
	const op = "Accumulate"
	checkDType(op, dtype)
	if _, err := checkLength(length, dtype, namedBuffer{"dst", dst}, namedBuffer{"src", src}); err != nil {
		return errors.WithMessage(err, op)
	}
	if overlaps(dst[:length], src[:length]) {
		return errors.Wrapf(ErrAliasing, "%s: dst and src", op)
	}
	return r.elementwise(op, dst, dst, src, length, dtype, 0, false)
}

// Combine sets dst to the elementwise sum of src1 and src2: dst[i] = src1[i] + src2[i].
//
// dst may be exactly src1 or src2 (in-place), but it must not partially overlap them.
func (r *Reducer) Combine(dst, src1, src2 []byte, length int, dtype dtypes.DType) error {
	const op = "Combine"
	checkDType(op, dtype)
	if err := checkCombine(dst, src1, src2, length, dtype); err != nil {
		return errors.WithMessage(err, op)
	}
	return r.elementwise(op, dst, src1, src2, length, dtype, 0, false)
}

// AccumulateScaled adds src scaled by alpha into dst: dst[i] += alpha*src[i].
//
// For integer types alpha*src[i] is computed in float32 and the result truncated back to the integer type.
// dst and src must not overlap.
func (r *Reducer) AccumulateScaled(dst, src []byte, length int, dtype dtypes.DType, alpha float32) error {
	const op = "AccumulateScaled"
	checkDType(op, dtype)
	if _, err := checkLength(length, dtype, namedBuffer{"dst", dst}, namedBuffer{"src", src}); err != nil {
		return errors.WithMessage(err, op)
	}
	if overlaps(dst[:length], src[:length]) {
		return errors.Wrapf(ErrAliasing, "%s: dst and src", op)
	}
	return r.elementwise(op, dst, dst, src, length, dtype, alpha, true)
}

// CombineScaled sets dst = src1 + alpha*src2, elementwise.
//
// The same aliasing rules of Combine apply.
func (r *Reducer) CombineScaled(dst, src1, src2 []byte, length int, dtype dtypes.DType, alpha float32) error {
	const op = "CombineScaled"
	checkDType(op, dtype)
	if err := checkCombine(dst, src1, src2, length, dtype); err != nil {
		return errors.WithMessage(err, op)
	}
	return r.elementwise(op, dst, src1, src2, length, dtype, alpha, true)
}

// checkCombine validates the arguments of the 3-buffer elementwise operations.
func checkCombine(dst, src1, src2 []byte, length int, dtype dtypes.DType) error {
	_, err := checkLength(length, dtype,
		namedBuffer{"dst", dst}, namedBuffer{"src1", src1}, namedBuffer{"src2", src2})
	if err != nil {
		return err
	}
	dst = dst[:length]
	for _, src := range []namedBuffer{{"src1", src1[:length]}, {"src2", src2[:length]}} {
		if overlaps(dst, src.buf) && !sameBuffer(dst, src.buf) {
			return errors.Wrapf(ErrAliasing, "dst partially overlaps %s", src.name)
		}
	}
	return nil
}

// elementwise runs the kernel for dtype over the validated buffers, split across the worker pool.
func (r *Reducer) elementwise(op string, dst, src1, src2 []byte, length int, dtype dtypes.DType,
	alpha float32, scaled bool) error {
	kernel := elementwiseDispatcher.get(dtype)
	width := dtype.Size()
	numElements := length / width
	numThreads := r.NumThreads()
	klog.V(2).Infof("cpureducer %s: %s(%s, %d elements, alpha=%g) on %d threads",
		r.id, op, dtype, numElements, alpha, numThreads)
	return r.run(op, func() {
		r.parallelFor(numElements, numThreads, func(start, end int) {
			byteStart, byteEnd := start*width, end*width
			kernel(dst[byteStart:byteEnd], src1[byteStart:byteEnd], src2[byteStart:byteEnd], end-start, alpha, scaled)
		})
	})
}

// combine is the generic kernel: dst = src1 + src2.
func combine[T dtypes.Number](dst, src1, src2 []T) {
	src1 = src1[:len(dst)]
	src2 = src2[:len(dst)]
	for i := range dst {
		dst[i] = src1[i] + src2[i]
	}
}

// combineScaled is the generic kernel: dst = src1 + alpha*src2.
//
// alpha*src2 is computed in float32, except for float64 where alpha is widened.
func combineScaled[T dtypes.Number](dst, src1, src2 []T, alpha float32) {
	src1 = src1[:len(dst)]
	src2 = src2[:len(dst)]
	if dst64, ok := any(dst).([]float64); ok {
		src1F64, src2F64 := any(src1).([]float64), any(src2).([]float64)
		alpha64 := float64(alpha)
		for i := range dst64 {
			dst64[i] = src1F64[i] + float64(alpha64*src2F64[i])
		}
		return
	}
	for i := range dst {
		dst[i] = T(float32(src1[i]) + float32(alpha*float32(src2[i])))
	}
}
