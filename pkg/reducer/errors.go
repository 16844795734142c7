// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"github.com/pkg/errors"
)

// Errors returned for calls that violate the contract of the operations. They are wrapped with
// the details of the call: use errors.Is to test for them.
var (
	// ErrInvalidLength is returned for negative lengths.
	ErrInvalidLength = errors.New("invalid length")

	// ErrLengthNotMultiple is returned when the length in bytes is not a multiple of the dtype size.
	ErrLengthNotMultiple = errors.New("length is not a multiple of the dtype size")

	// ErrBufferTooSmall is returned when a buffer is smaller than what the length (and number of workers) requires.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrInvalidNumWorkers is returned when the number of workers is not positive.
	ErrInvalidNumWorkers = errors.New("invalid number of workers")

	// ErrAliasing is returned when buffers overlap in a way the operation doesn't allow.
	ErrAliasing = errors.New("buffers overlap")

	// ErrInvalidConfig is returned for invalid configurations of the Reducer.
	ErrInvalidConfig = errors.New("invalid reducer configuration")
)
