// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides the compute units of an emulated device: a
// fixed set of persistent goroutines that execute work-groups.
//
// A Pool is created once per device and reused by every launch, so kernel
// submission does not pay for spawning compute units.
//
// Usage:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	// Range kernels: contiguous slices of the index space per compute unit.
//	pool.ParallelFor(n, func(start, end int) {
//	    for i := start; i < end; i++ {
//	        zero(i)
//	    }
//	})
//
//	// Work-groups: compute units claim group slots one at a time.
//	pool.ParallelForAtomic(numGroups, runGroup)
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a fixed set of compute units.
type Pool struct {
	numWorkers int
	workC      chan workItem

	// mu is held shared while a launch queues its items and exclusively
	// while closing, so nothing is sent on workC after it is closed.
	mu     sync.RWMutex
	closed bool
}

// workItem is the share of one launch executed by a single compute unit.
type workItem struct {
	unit int
	fn   func(unit int)
	done *sync.WaitGroup
}

// New creates a pool with numWorkers compute units.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		// Concurrent launches may each queue one item per compute unit.
		workC: make(chan workItem, numWorkers*2),
	}

	for range numWorkers {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn(item.unit)
		item.done.Done()
	}
}

// NumWorkers returns the number of compute units.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close stops the compute units once queued work has drained. Launches that
// queued their work before Close still run on the compute units; later
// launches run on the caller. Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.workC)
	}
}

// spread runs fn(unit) for every unit in [0, units) on the compute units and
// waits for all of them. It reports false, running nothing, if the pool is
// closed.
func (p *Pool) spread(units int, fn func(unit int)) bool {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return false
	}
	var wg sync.WaitGroup
	wg.Add(units)
	for u := range units {
		p.workC <- workItem{unit: u, fn: fn, done: &wg}
	}
	p.mu.RUnlock()

	wg.Wait()
	return true
}

// ParallelFor executes fn over [0, n) split into one contiguous range per
// compute unit. Blocks until all ranges complete.
//
// fn receives (start, end) indices where work should process [start, end).
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	chunk := (n + p.numWorkers - 1) / p.numWorkers
	units := (n + chunk - 1) / chunk
	ranged := func(u int) {
		fn(u*chunk, min(u*chunk+chunk, n))
	}
	if units == 1 || !p.spread(units, ranged) {
		fn(0, n)
	}
}

// ParallelForAtomic executes fn(i) for each i in [0, n). Compute units claim
// indices with an atomic counter, so index i starts only after every index
// below it has been claimed by some compute unit. Blocks until all work
// completes.
//
// Work that waits on lower indices therefore never deadlocks, whatever the
// number of compute units: everything it waits for has already started.
func (p *Pool) ParallelForAtomic(n int, fn func(i int)) {
	if n <= 0 {
		return
	}

	var next atomic.Int64
	claim := func(int) {
		for i := int(next.Add(1)) - 1; i < n; i = int(next.Add(1)) - 1 {
			fn(i)
		}
	}
	if units := min(p.numWorkers, n); units == 1 || !p.spread(units, claim) {
		claim(0)
	}
}
