// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

// DType is an enum represents the data type of a buffer handed to the reducer.
//
// The numeric values are the type tags used by the communication layer when it describes a tensor,
// so they must not be renumbered.
type DType int32

const (
	// InvalidDType is the zero-information value used to signal a failed lookup.
	// It is never a valid input to a reduction.
	InvalidDType DType = -1

	// Float32 is the IEEE-754 binary32 floating point type.
	Float32 DType = 0

	// Float64 is the IEEE-754 binary64 floating point type.
	Float64 DType = 1

	// Float16 is the IEEE-754 binary16 floating point type.
	// The host has no native arithmetic for it: values are converted to float32 to be combined.
	Float16 DType = 2

	// Uint8 is the unsigned 8-bit integer type.
	Uint8 DType = 3

	// Int32 is the signed 32-bit integer type.
	Int32 DType = 4

	// Int8 is the signed 8-bit integer type.
	Int8 DType = 5

	// Int64 is the signed 64-bit integer type.
	Int64 DType = 6

	// NumDTypes is the number of valid dtypes: valid values are in the range [0, NumDTypes).
	NumDTypes = 7
)

// Aliases with the short names used in model code.
const (
	F32 = Float32
	F64 = Float64
	F16 = Float16
	U8  = Uint8
	S32 = Int32
	S8  = Int8
	S64 = Int64
)

// dtypeNames indexed by the DType value.
var dtypeNames = [NumDTypes]string{
	Float32: "Float32",
	Float64: "Float64",
	Float16: "Float16",
	Uint8:   "Uint8",
	Int32:   "Int32",
	Int8:    "Int8",
	Int64:   "Int64",
}

// dtypeSizes in bytes, indexed by the DType value.
var dtypeSizes = [NumDTypes]int{
	Float32: 4,
	Float64: 8,
	Float16: 2,
	Uint8:   1,
	Int32:   4,
	Int8:    1,
	Int64:   8,
}

// MapOfNames to their dtypes. It includes also aliases to the various dtypes.
// It is also later initialized to include the lower-case version of the names.
var MapOfNames = map[string]DType{
	"InvalidDType": InvalidDType,
	"Float32":      Float32,
	"F32":          Float32,
	"FP32":         Float32,
	"Float64":      Float64,
	"F64":          Float64,
	"FP64":         Float64,
	"Float16":      Float16,
	"F16":          Float16,
	"FP16":         Float16,
	"Half":         Float16,
	"Uint8":        Uint8,
	"U8":           Uint8,
	"Int32":        Int32,
	"S32":          Int32,
	"Int8":         Int8,
	"S8":           Int8,
	"Int64":        Int64,
	"S64":          Int64,
}
