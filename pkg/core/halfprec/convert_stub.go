// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build noasm || !amd64

package halfprec

import "github.com/x448/float16"

// No vector implementation: the scalar path is always used.
var (
	decodeVector func(in []float16.Float16, out []float32)
	encodeVector func(in []float32, out []float16.Float16)
)
