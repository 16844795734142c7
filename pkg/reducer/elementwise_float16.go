// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"github.com/gomlx/cpureducer/pkg/core/halfprec"
	"github.com/x448/float16"
)

// float16BlockSize is the number of Float16 elements decoded at a time to float32. It is a multiple of
// halfprec.VectorWidth, so only the last block of a slice may use the scalar codec.
const float16BlockSize = 512

// combineFloat16 computes dst = src1 + src2 (or src1 + alpha*src2 if scaled), in float32.
func combineFloat16(dst, src1, src2 []float16.Float16, alpha float32, scaled bool) {
	var a, b [float16BlockSize]float32
	for start := 0; start < len(dst); start += float16BlockSize {
		end := min(start+float16BlockSize, len(dst))
		n := end - start
		halfprec.DecodeSlice(src1[start:end], a[:n])
		halfprec.DecodeSlice(src2[start:end], b[:n])
		if scaled {
			for i := range n {
				a[i] += float32(alpha * b[i])
			}
		} else {
			for i := range n {
				a[i] += b[i]
			}
		}
		halfprec.EncodeSlice(a[:n], dst[start:end])
	}
}

// crossWorkerFloat16 decodes blocks of the worker-major src to float32, reduces them with kernel and
// encodes the result into dst.
//
// kernel is called with a float32 worker-major source of numWorkers segments of len(dst) elements each.
func crossWorkerFloat16(dst, src []float16.Float16, numWorkers int, kernel func(dst, src []float32)) {
	count := len(dst)
	blockSize := min(float16BlockSize, count)
	decoded := make([]float32, numWorkers*blockSize)
	reduced := make([]float32, blockSize)
	for start := 0; start < count; start += blockSize {
		end := min(start+blockSize, count)
		n := end - start
		for worker := range numWorkers {
			offset := worker * count
			halfprec.DecodeSlice(src[offset+start:offset+end], decoded[worker*n:(worker+1)*n])
		}
		kernel(reduced[:n], decoded[:numWorkers*n])
		halfprec.EncodeSlice(reduced[:n], dst[start:end])
	}
}

// roundToFloat16 rounds v to the nearest Float16 value.
func roundToFloat16(v float32) float32 {
	return halfprec.ToFloat32(halfprec.FromFloat32(v))
}
