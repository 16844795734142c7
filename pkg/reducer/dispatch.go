// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"github.com/gomlx/cpureducer/pkg/core/dtypes"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

// dtypeDispatcher maps each DType to the kernel instantiated for it.
type dtypeDispatcher[Fn any] struct {
	name  string
	fnMap [dtypes.NumDTypes]*Fn
}

// newDTypeDispatcher creates a new dispatcher for a class of kernels.
func newDTypeDispatcher[Fn any](name string) *dtypeDispatcher[Fn] {
	return &dtypeDispatcher[Fn]{name: name}
}

// register a kernel to handle a specific dtype.
// This overwrites any previous setting for the same dtype.
func (d *dtypeDispatcher[Fn]) register(dtype dtypes.DType, fn Fn) {
	if !dtype.IsSupported() {
		klog.Fatalf("%s: cannot register kernel for unsupported data type %s (%d)", d.name, dtype, int32(dtype))
	}
	d.fnMap[dtype] = &fn
}

// get returns the kernel for dtype. An unknown dtype is a bug in the caller, and the process is halted.
func (d *dtypeDispatcher[Fn]) get(dtype dtypes.DType) Fn {
	if !dtype.IsSupported() || d.fnMap[dtype] == nil {
		fatalUnsupported(d.name, dtype)
	}
	return *d.fnMap[dtype]
}

// fatalUnsupported halts the process: there is no recovery from a data type the reducer doesn't know.
func fatalUnsupported(op string, dtype dtypes.DType) {
	klog.Fatalf("%s: unsupported data type %s (%d)", op, dtype, int32(dtype))
}

// checkDType halts the process if dtype is not supported. It is called before any other validation.
func checkDType(op string, dtype dtypes.DType) {
	if !dtype.IsSupported() {
		fatalUnsupported(op, dtype)
	}
}

// Kernel signatures, operating on byte buffers already validated and holding numElements elements
// (times numWorkers for the source of the cross-worker kernels).
type (
	// elementwiseKernel computes dst = src1 + src2 (or src1 + alpha*src2 if scaled).
	elementwiseKernel func(dst, src1, src2 []byte, numElements int, alpha float32, scaled bool)

	// crossWorkerKernel reduces numWorkers segments of src into dst.
	crossWorkerKernel func(dst, src []byte, numElements, numWorkers int)

	// hybridKernel reduces numWorkers segments of src into dst with the hybrid estimator.
	hybridKernel func(dst, src []byte, numElements, numWorkers int, params *hybridParams)
)

var (
	elementwiseDispatcher = newDTypeDispatcher[elementwiseKernel]("elementwise")
	sumSerialDispatcher   = newDTypeDispatcher[crossWorkerKernel]("SumSerial")
	medianDispatcher      = newDTypeDispatcher[crossWorkerKernel]("Median")
	hybridDispatcher      = newDTypeDispatcher[hybridKernel]("Hybrid")
)

// registerNumber registers the generic kernels for a type with native arithmetic.
func registerNumber[T dtypes.Number]() {
	dtype := dtypes.FromGenericsType[T]()
	elementwiseDispatcher.register(dtype, func(dst, src1, src2 []byte, numElements int, alpha float32, scaled bool) {
		d, s1, s2 := viewAs[T](dst, numElements), viewAs[T](src1, numElements), viewAs[T](src2, numElements)
		if scaled {
			combineScaled(d, s1, s2, alpha)
		} else {
			combine(d, s1, s2)
		}
	})
	sumSerialDispatcher.register(dtype, func(dst, src []byte, numElements, numWorkers int) {
		sumSerial(viewAs[T](dst, numElements), viewAs[T](src, numElements*numWorkers), numWorkers)
	})
	medianDispatcher.register(dtype, func(dst, src []byte, numElements, numWorkers int) {
		median(viewAs[T](dst, numElements), viewAs[T](src, numElements*numWorkers), numWorkers)
	})
	hybridDispatcher.register(dtype, func(dst, src []byte, numElements, numWorkers int, params *hybridParams) {
		hybrid(viewAs[T](dst, numElements), viewAs[T](src, numElements*numWorkers), numWorkers, params)
	})
}

// registerFloat16 registers the kernels that route Float16 through the half-precision codec.
func registerFloat16() {
	elementwiseDispatcher.register(dtypes.Float16, func(dst, src1, src2 []byte, numElements int, alpha float32, scaled bool) {
		combineFloat16(viewAs[float16.Float16](dst, numElements), viewAs[float16.Float16](src1, numElements),
			viewAs[float16.Float16](src2, numElements), alpha, scaled)
	})
	sumSerialDispatcher.register(dtypes.Float16, func(dst, src []byte, numElements, numWorkers int) {
		crossWorkerFloat16(viewAs[float16.Float16](dst, numElements),
			viewAs[float16.Float16](src, numElements*numWorkers), numWorkers,
			func(dst, src []float32) { sumSerial(dst, src, numWorkers) })
	})
	medianDispatcher.register(dtypes.Float16, func(dst, src []byte, numElements, numWorkers int) {
		crossWorkerFloat16(viewAs[float16.Float16](dst, numElements),
			viewAs[float16.Float16](src, numElements*numWorkers), numWorkers,
			func(dst, src []float32) { median(dst, src, numWorkers) })
	})
	hybridDispatcher.register(dtypes.Float16, func(dst, src []byte, numElements, numWorkers int, params *hybridParams) {
		params.roundNoise = roundToFloat16
		crossWorkerFloat16(viewAs[float16.Float16](dst, numElements),
			viewAs[float16.Float16](src, numElements*numWorkers), numWorkers,
			func(dst, src []float32) { hybrid(dst, src, numWorkers, params) })
	})
}

func init() {
	registerNumber[float32]()
	registerNumber[float64]()
	registerNumber[uint8]()
	registerNumber[int32]()
	registerNumber[int8]()
	registerNumber[int64]()
	registerFloat16()
}
