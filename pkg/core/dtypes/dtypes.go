// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes includes the DType enum for the data types the CPU reducer supports.
//
// The set is closed: float32, float64, float16, uint8, int32, int8 and int64. Float16 has no native
// arithmetic on the host, and is carried around as github.com/x448/float16.Float16 (a uint16 with
// the IEEE-754 binary16 bits).
//
// It also includes the constraint interfaces used with generics by the reducer kernels.
package dtypes

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

func init() {
	// Add a mapping to the lower-case version of dtypes.
	keys := slices.Collect(maps.Keys(MapOfNames))
	for _, key := range keys {
		lowerKey := strings.ToLower(key)
		if lowerKey == key {
			continue
		}
		if _, found := MapOfNames[lowerKey]; found {
			continue
		}
		MapOfNames[lowerKey] = MapOfNames[key]
	}
}

// Supported lists the Go types that have a corresponding DType.
type Supported interface {
	float32 | float64 | float16.Float16 | uint8 | int32 | int8 | int64
}

// Number lists the Go types with native arithmetic, that is, all Supported types except Float16.
type Number interface {
	float32 | float64 | uint8 | int32 | int8 | int64
}

// Integer lists the supported integer Go types.
type Integer interface {
	uint8 | int32 | int8 | int64
}

// Float lists the supported Go float types with native arithmetic.
type Float interface {
	float32 | float64
}

// FromGenericsType returns the DType enum for the given type that this package knows about.
func FromGenericsType[T Supported]() DType {
	var t T
	switch (any(t)).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case float16.Float16:
		return Float16
	case uint8:
		return Uint8
	case int32:
		return Int32
	case int8:
		return Int8
	case int64:
		return Int64
	}
	return InvalidDType
}

// FromName returns the DType for the given name or alias, case-insensitive.
func FromName(name string) (DType, error) {
	dtype, found := MapOfNames[name]
	if !found {
		dtype, found = MapOfNames[strings.ToLower(name)]
	}
	if !found || dtype == InvalidDType {
		return InvalidDType, errors.Errorf("unknown dtype %q", name)
	}
	return dtype, nil
}

// IsSupported returns whether the dtype is one of the valid (supported) values.
func (dtype DType) IsSupported() bool {
	return dtype >= 0 && dtype < NumDTypes
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	if !dtype.IsSupported() {
		if dtype == InvalidDType {
			return "InvalidDType"
		}
		return fmt.Sprintf("DType(%d)", int32(dtype))
	}
	return dtypeNames[dtype]
}

// Size returns the number of bytes for the given DType, or 0 if the dtype is not supported.
func (dtype DType) Size() int {
	if !dtype.IsSupported() {
		return 0
	}
	return dtypeSizes[dtype]
}

// Bits returns the number of bits for the given DType.
func (dtype DType) Bits() int {
	return dtype.Size() * 8
}

// NumElements returns how many elements of dtype fit in the given number of bytes, and the number of
// bytes left over.
func (dtype DType) NumElements(numBytes int) (count, remainder int) {
	size := dtype.Size()
	if size == 0 {
		return 0, numBytes
	}
	return numBytes / size, numBytes % size
}

// IsFloat returns whether dtype is a floating point type.
func (dtype DType) IsFloat() bool {
	return dtype == Float32 || dtype == Float64 || dtype == Float16
}

// IsInt returns whether dtype is an integer type.
func (dtype DType) IsInt() bool {
	return dtype == Uint8 || dtype == Int8 || dtype == Int32 || dtype == Int64
}

// IsUnsigned returns whether dtype is an unsigned integer type.
func (dtype DType) IsUnsigned() bool {
	return dtype == Uint8
}

// All returns the list of supported dtypes, in enum order.
func All() []DType {
	all := make([]DType, NumDTypes)
	for ii := range all {
		all[ii] = DType(ii)
	}
	return all
}
