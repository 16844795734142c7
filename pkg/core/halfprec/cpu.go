// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package halfprec

import "github.com/klauspost/cpuid/v2"

// hostSupportsVector reports whether the CPU has the instructions used by the vector conversion:
// AVX (256-bit registers) and F16C.
func hostSupportsVector() bool {
	return cpuid.CPU.Supports(cpuid.AVX, cpuid.F16C)
}

// CPUDescription returns the brand name of the CPU and its relevant features, for logging and reports.
func CPUDescription() (brand string, features []string) {
	brand = cpuid.CPU.BrandName
	for _, feature := range []cpuid.FeatureID{cpuid.AVX, cpuid.AVX2, cpuid.F16C, cpuid.FMA3, cpuid.AVX512F, cpuid.ASIMD, cpuid.FPHP} {
		if cpuid.CPU.Supports(feature) {
			features = append(features, feature.String())
		}
	}
	return
}
