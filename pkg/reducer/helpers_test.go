// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"testing"
	"unsafe"

	"github.com/gomlx/cpureducer/pkg/core/dtypes"
	"github.com/gomlx/cpureducer/pkg/core/halfprec"
	"github.com/janpfeifer/must"
)

// asBytes returns the memory of values as a []byte.
func asBytes[T dtypes.Supported](values []T) []byte {
	if len(values) == 0 {
		return []byte{}
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(values))), len(values)*int(unsafe.Sizeof(zero)))
}

// newTestReducer returns a Reducer with a fixed seed.
func newTestReducer(numThreads int) *Reducer {
	return must.M1(Build().NumThreads(numThreads).Seed(42).Done())
}

// withVectorized runs fn with the float16 vector conversion enabled and disabled (if available).
func withVectorized(t *testing.T, fn func(t *testing.T)) {
	modes := []bool{false}
	if halfprec.HasVectorSupport() {
		modes = append(modes, true)
	}
	for _, vectorized := range modes {
		name := "scalar"
		if vectorized {
			name = "vectorized"
		}
		t.Run(name, func(t *testing.T) {
			previous := halfprec.SetVectorized(vectorized)
			defer halfprec.SetVectorized(previous)
			fn(t)
		})
	}
}
