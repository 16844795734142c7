// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build !noasm && amd64

package halfprec

import (
	"unsafe"

	"github.com/x448/float16"
)

// Assembly functions defined in convert_f16c_amd64.s.
// n is the number of elements and must be a multiple of 8.
//
//go:noescape
func decodeF16C(in unsafe.Pointer, out unsafe.Pointer, n int)

//go:noescape
func encodeF16C(in unsafe.Pointer, out unsafe.Pointer, n int)

var (
	decodeVector = decodeSliceF16C
	encodeVector = encodeSliceF16C
)

func decodeSliceF16C(in []float16.Float16, out []float32) {
	n := len(in) / VectorWidth * VectorWidth
	if n == 0 {
		return
	}
	_ = out[n-1]
	decodeF16C(unsafe.Pointer(&in[0]), unsafe.Pointer(&out[0]), n)
}

func encodeSliceF16C(in []float32, out []float16.Float16) {
	n := len(in) / VectorWidth * VectorWidth
	if n == 0 {
		return
	}
	_ = out[n-1]
	encodeF16C(unsafe.Pointer(&in[0]), unsafe.Pointer(&out[0]), n)
}
