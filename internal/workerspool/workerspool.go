// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool bounds the number of goroutines running data-parallel loops for the reducer.
package workerspool

import (
	"sync"

	"github.com/gomlx/exceptions"
)

type Pool struct {
	// maxParallelism is a soft target on the limit of parallel work to do.
	// The actual number of goroutines is higher than that -- because of waits and such.
	maxParallelism int
	mu             sync.Mutex
	numRunning     int
}

// New returns a new Pool of workers with the given parallelism.
//
// See SetMaxParallelism for the meaning of the values.
func New(maxParallelism int) *Pool {
	return &Pool{maxParallelism: maxParallelism}
}

// IsEnabled returns whether parallelism is enabled (maxParallelism is != 0)
func (w *Pool) IsEnabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.maxParallelism != 0
}

// MaxParallelism is a soft-target for parallelism (the limit of goroutines is higher that this).
// If set to 0 parallelism is disabled.
// If set to -1 parallelism is unlimited.
func (w *Pool) MaxParallelism() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.maxParallelism
}

// SetMaxParallelism sets the maxParallelism.
//
// Tasks already running are not affected.
func (w *Pool) SetMaxParallelism(maxParallelism int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maxParallelism = maxParallelism
}

const goroutineToParallelismRatio = 2

// lockedIsFull returns whether all available workers are in use.
//
// It must be called with workerPool.mu acquired.
func (w *Pool) lockedIsFull() bool {
	if w.maxParallelism == 0 {
		return true
	} else if w.maxParallelism < 0 {
		return false
	}
	return w.numRunning >= goroutineToParallelismRatio*w.maxParallelism
}

// lockedRunTaskInGoroutine and keep tabs on w.numRunning.
//
// It must be called with workerPool.mu acquired.
func (w *Pool) lockedRunTaskInGoroutine(task func()) {
	w.numRunning++
	go func() {
		defer func() {
			w.mu.Lock()
			w.numRunning--
			w.mu.Unlock()
		}()
		task()
	}()
}

// StartIfAvailable runs the task in a separate goroutine, if there are enough workers left.
// It returns true if it found workers to run the function, false otherwise.
//
// It's up to the client to synchronize the end of the function execution.
func (w *Pool) StartIfAvailable(task func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedIsFull() {
		return false
	}
	w.lockedRunTaskInGoroutine(task)
	return true
}

// ParallelFor splits the range [0, numItems) into at most numChunks contiguous chunks and calls fn for each
// of them, returning only after all calls finished.
//
// Chunk boundaries (except the end of the last chunk) are multiples of alignment: use 1 if there is
// no alignment requirement.
// Chunks are started on the pool if a worker is available, and otherwise run inline in the calling goroutine.
// The last chunk is always run inline.
//
// A panic in any of the chunks is re-raised in the calling goroutine, after all chunks finished.
func (w *Pool) ParallelFor(numItems, numChunks, alignment int, fn func(start, end int)) {
	if numItems <= 0 {
		return
	}
	if alignment < 1 {
		alignment = 1
	}
	chunkSize := chunkSizeFor(numItems, numChunks, alignment)
	if chunkSize >= numItems {
		fn(0, numItems)
		return
	}

	var (
		wg        sync.WaitGroup
		muPanic   sync.Mutex
		exception any
	)
	run := func(start, end int) {
		e := exceptions.Try(func() { fn(start, end) })
		if e != nil {
			muPanic.Lock()
			if exception == nil {
				exception = e
			}
			muPanic.Unlock()
		}
	}
	for start := 0; start < numItems; start += chunkSize {
		end := min(start+chunkSize, numItems)
		if end == numItems {
			run(start, end)
			break
		}
		wg.Add(1)
		chunkStart, chunkEnd := start, end
		task := func() {
			defer wg.Done()
			run(chunkStart, chunkEnd)
		}
		if !w.StartIfAvailable(task) {
			task()
		}
	}
	wg.Wait()
	if exception != nil {
		panic(exception)
	}
}

// chunkSizeFor returns the size of the chunks such that numItems is covered by at most numChunks of them,
// and the size is a multiple of alignment.
func chunkSizeFor(numItems, numChunks, alignment int) int {
	if numChunks <= 1 {
		return numItems
	}
	chunkSize := (numItems + numChunks - 1) / numChunks
	chunkSize = (chunkSize + alignment - 1) / alignment * alignment
	return chunkSize
}
