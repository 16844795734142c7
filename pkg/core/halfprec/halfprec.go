// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package halfprec converts between IEEE-754 binary16 (float16) and float32.
//
// The scalar conversion is exact and rounds to nearest-even, using github.com/x448/float16.
// Batch conversion uses a vector path when the host supports it (AVX+F16C on amd64, 8 elements per
// instruction), and the scalar path for the elements past the last full group of 8.
// Both paths produce the same bits for every non-NaN input.
//
// The strategy is selected once, at package initialization.
package halfprec

import (
	"github.com/x448/float16"
)

// VectorWidth is the number of float16 values converted by one vector instruction.
const VectorWidth = 8

// ToFloat32 converts the float16 bits to a float32. The conversion is exact.
func ToFloat32(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}

// FromFloat32 converts f to the nearest float16 (rounding to nearest-even) and returns its bits.
func FromFloat32(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}

// decodeScalar converts float16 values to float32 one at a time.
func decodeScalar(in []float16.Float16, out []float32) {
	for idx, value := range in {
		out[idx] = value.Float32()
	}
}

// encodeScalar converts float32 values to float16 one at a time.
func encodeScalar(in []float32, out []float16.Float16) {
	for idx, value := range in {
		out[idx] = float16.Fromfloat32(value)
	}
}

var (
	// vectorAvailable is set at initialization if the host supports the vector conversion.
	vectorAvailable bool

	// vectorized indicates whether the vector path is currently in use.
	vectorized bool
)

// init selects the conversion strategy. decodeVector and encodeVector are defined per platform: they
// convert len(in) rounded down to a multiple of VectorWidth values, and are nil if the platform has
// no vector implementation.
func init() {
	vectorAvailable = decodeVector != nil && encodeVector != nil && hostSupportsVector()
	vectorized = vectorAvailable
}

// HasVectorSupport returns whether the host supports the vector conversion path.
func HasVectorSupport() bool {
	return vectorAvailable
}

// IsVectorized returns whether the batch conversions are using the vector path.
func IsVectorized() bool {
	return vectorized
}

// SetVectorized enables or disables the vector path, and returns the previous setting.
// Enabling it is a no-op if the host doesn't support it.
//
// It is meant for tests and benchmarks, and it should not be called while conversions are running.
func SetVectorized(enable bool) (previous bool) {
	previous = vectorized
	vectorized = enable && vectorAvailable
	return
}

// DecodeSlice converts in to float32 values in out. out must have at least len(in) elements.
func DecodeSlice(in []float16.Float16, out []float32) {
	out = out[:len(in)]
	done := 0
	if vectorized && len(in) >= VectorWidth {
		done = len(in) / VectorWidth * VectorWidth
		decodeVector(in[:done], out[:done])
	}
	decodeScalar(in[done:], out[done:])
}

// EncodeSlice converts in to float16 values in out. out must have at least len(in) elements.
func EncodeSlice(in []float32, out []float16.Float16) {
	out = out[:len(in)]
	done := 0
	if vectorized && len(in) >= VectorWidth {
		done = len(in) / VectorWidth * VectorWidth
		encodeVector(in[:done], out[:done])
	}
	encodeScalar(in[done:], out[done:])
}
