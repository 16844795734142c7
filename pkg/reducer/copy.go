// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// copyWordSize is the unit of the parallel part of Copy.
const copyWordSize = 4

// Copy copies the first length bytes of src to dst, splitting the work across the worker pool in
// 4-byte words. The length%4 trailing bytes are copied one by one.
//
// If dst and src are the same buffer it is a no-op. Partially overlapping buffers are rejected.
func (r *Reducer) Copy(dst, src []byte, length int) error {
	const op = "Copy"
	if length < 0 {
		return errors.Wrapf(ErrInvalidLength, "%s: length=%d", op, length)
	}
	for _, b := range []namedBuffer{{"dst", dst}, {"src", src}} {
		if len(b.buf) < length {
			return errors.Wrapf(ErrBufferTooSmall, "%s: %s has %d bytes, length=%d", op, b.name, len(b.buf), length)
		}
	}
	dst, src = dst[:length], src[:length]
	if sameBuffer(dst, src) {
		return nil
	}
	if overlaps(dst, src) {
		return errors.Wrapf(ErrAliasing, "%s: dst and src", op)
	}
	numWords := length / copyWordSize
	numThreads := r.NumThreads()
	klog.V(2).Infof("cpureducer %s: %s(%d bytes) on %d threads", r.id, op, length, numThreads)
	return r.run(op, func() {
		r.parallelFor(numWords, numThreads, func(start, end int) {
			copy(dst[start*copyWordSize:end*copyWordSize], src[start*copyWordSize:end*copyWordSize])
		})
		for i := numWords * copyWordSize; i < length; i++ {
			dst[i] = src[i]
		}
	})
}
