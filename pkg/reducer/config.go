// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reducer

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// DefaultNumThreads is the number of threads used by the parallel kernels if not configured otherwise.
	DefaultNumThreads = 4

	// ThreadsEnv is the environment variable that overrides the number of threads.
	// Values that are not positive integers are ignored, and DefaultNumThreads is used.
	ThreadsEnv = "BYTEPS_OMP_THREAD_PER_GPU"

	// ConfigEnv is the environment variable with a configuration string for the Reducer,
	// see Builder.Config for the format.
	ConfigEnv = "CPUREDUCER_CONFIG"
)

// config holds the settings a Reducer is built with.
type config struct {
	numThreads int
	seed       uint64
	seedSet    bool
}

// threadsFromEnv returns the number of threads set by ThreadsEnv, and whether it was set.
func threadsFromEnv() (numThreads int, found bool) {
	value, found := os.LookupEnv(ThreadsEnv)
	if !found {
		return 0, false
	}
	numThreads, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || numThreads <= 0 {
		klog.Warningf("invalid $%s=%q, using the default of %d threads", ThreadsEnv, value, DefaultNumThreads)
		return DefaultNumThreads, true
	}
	return numThreads, true
}

// parse a configuration string of comma-separated "key=value" pairs. Unknown keys are an error.
func (c *config) parse(configStr string) error {
	for _, part := range strings.Split(configStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !found {
			return errors.Wrapf(ErrInvalidConfig, "missing value for %q in %q", key, configStr)
		}
		switch key {
		case "threads":
			numThreads, err := strconv.Atoi(value)
			if err != nil || numThreads <= 0 {
				return errors.Wrapf(ErrInvalidConfig, "threads=%q must be a positive integer", value)
			}
			c.numThreads = numThreads
		case "seed":
			seed, err := strconv.ParseUint(value, 0, 64)
			if err != nil {
				return errors.Wrapf(ErrInvalidConfig, "seed=%q must be an unsigned integer", value)
			}
			c.seed = seed
			c.seedSet = true
		default:
			return errors.Wrapf(ErrInvalidConfig, "unknown key %q in %q", key, configStr)
		}
	}
	return nil
}
