// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"unsafe"

	"github.com/gomlx/cpureducer/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// viewAs returns the first numElements of buf as a slice of T, sharing the memory.
// buf must have at least numElements*sizeof(T) bytes.
func viewAs[T dtypes.Supported](buf []byte, numElements int) []T {
	if numElements == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(buf))), numElements)
}

// bufferRange returns the [start, end) addresses of buf.
func bufferRange(buf []byte) (start, end uintptr) {
	start = uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	return start, start + uintptr(len(buf))
}

// overlaps returns whether the memory of a and b overlap. Empty buffers never overlap.
func overlaps(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aStart, aEnd := bufferRange(a)
	bStart, bEnd := bufferRange(b)
	return aStart < bEnd && bStart < aEnd
}

// sameBuffer returns whether a and b are exactly the same memory.
func sameBuffer(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return unsafe.SliceData(a) == unsafe.SliceData(b)
}

// namedBuffer is a buffer argument, named for the error messages.
type namedBuffer struct {
	name string
	buf  []byte
}

// checkLength validates the length (in bytes) of an operation over dtype, and that every buffer holds at
// least length bytes. It returns the number of elements.
func checkLength(length int, dtype dtypes.DType, buffers ...namedBuffer) (numElements int, err error) {
	if length < 0 {
		return 0, errors.Wrapf(ErrInvalidLength, "length=%d", length)
	}
	numElements, remainder := dtype.NumElements(length)
	if remainder != 0 {
		return 0, errors.Wrapf(ErrLengthNotMultiple, "length=%d bytes, %s has %d bytes", length, dtype, dtype.Size())
	}
	for _, b := range buffers {
		if len(b.buf) < length {
			return 0, errors.Wrapf(ErrBufferTooSmall, "%s has %d bytes, length=%d", b.name, len(b.buf), length)
		}
	}
	return numElements, nil
}

// checkWorkers validates the worker-major source buffer of a cross-worker reduction: it must hold
// numWorkers segments of length bytes.
func checkWorkers(src []byte, length, numWorkers int) error {
	if numWorkers <= 0 {
		return errors.Wrapf(ErrInvalidNumWorkers, "numWorkers=%d", numWorkers)
	}
	if length > 0 && numWorkers > len(src)/length {
		return errors.Wrapf(ErrBufferTooSmall, "src has %d bytes, %d workers of %d bytes each require %d",
			len(src), numWorkers, length, numWorkers*length)
	}
	return nil
}
