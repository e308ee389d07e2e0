// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package device

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// LaunchConfig describes an nd-range kernel launch.
type LaunchConfig struct {
	// Range is the launch geometry.
	Range NDRange

	// Deps must complete before the kernel starts.
	Deps []*Event

	// Local declares the group-local memory of the kernel. The total size
	// must not exceed Capabilities.LocalMemSize.
	Local []LocalMemory
}

// Queue submits commands to a device.
//
// Submission never blocks on execution: every method returns an Event that
// completes when the command has finished.
type Queue struct {
	dev     *Device
	inOrder bool

	mu      sync.Mutex
	last    *Event
	errs    []error
	pending sync.WaitGroup
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// InOrder makes every command implicitly depend on the previous one.
func InOrder() QueueOption {
	return func(q *Queue) { q.inOrder = true }
}

// NewQueue creates a queue on d. Queues are out-of-order unless InOrder is given.
func (d *Device) NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{dev: d}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Device returns the device the queue submits to.
func (q *Queue) Device() *Device { return q.dev }

// IsInOrder reports whether commands execute in submission order.
func (q *Queue) IsInOrder() bool { return q.inOrder }

// ParallelFor runs fn(i) for every i in [0, n) once deps have completed.
func (q *Queue) ParallelFor(n int, deps []*Event, fn func(i int)) *Event {
	return q.submit("parallel_for", deps, func() error {
		if n < 0 {
			return fmt.Errorf("%w: negative size %d", ErrInvalidRange, n)
		}
		q.dev.pool.ParallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				fn(i)
			}
		})
		return nil
	})
}

// Launch runs kernel once per lane of cfg.Range once cfg.Deps have completed.
// Invalid geometry or an oversized local memory declaration fail the
// returned event without running the kernel.
func (q *Queue) Launch(cfg LaunchConfig, kernel func(it *Item)) *Event {
	caps := q.dev.caps
	locals := slices.Clone(cfg.Local)
	for i, l := range locals {
		l.bind(i)
	}
	return q.submit("nd_range", cfg.Deps, func() error {
		if err := cfg.Range.validate(caps); err != nil {
			return err
		}
		if b := localBytes(locals); b > caps.LocalMemSize {
			return fmt.Errorf("%w: %d bytes requested, %d available",
				ErrLocalMemExceeded, b, caps.LocalMemSize)
		}
		q.dev.runKernel(cfg.Range, locals, kernel)
		return nil
	})
}

// Wait blocks until every command submitted so far has completed and returns
// the errors of failed commands. Reported errors are cleared.
//
// Wait must not be called concurrently with submissions on the same queue.
func (q *Queue) Wait() error {
	q.pending.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	err := errors.Join(q.errs...)
	q.errs = nil
	return err
}

func (q *Queue) submit(kind string, deps []*Event, run func() error) *Event {
	if q.dev.closed.LoadAcquire() {
		return failedEvent(ErrDeviceClosed)
	}

	e := newEvent()

	q.mu.Lock()
	if q.inOrder && q.last != nil {
		deps = append(slices.Clone(deps), q.last)
	}
	q.last = e
	q.pending.Add(1)
	q.mu.Unlock()

	logger := q.dev.logger
	go func() {
		defer q.pending.Done()

		if err := WaitAll(deps...); err != nil {
			q.finish(e, kind, fmt.Errorf("%w: %w", ErrDependencyFailed, err))
			return
		}

		start := time.Now()
		err := run()
		elapsed := time.Since(start)
		commandDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
		logger.Debug("device command finished",
			"id", e.ID(), "kind", kind, "elapsed", elapsed, "err", err)
		q.finish(e, kind, err)
	}()
	return e
}

func (q *Queue) finish(e *Event, kind string, err error) {
	commandsTotal.WithLabelValues(kind, resultLabel(err)).Inc()
	if err != nil {
		q.mu.Lock()
		q.errs = append(q.errs, err)
		q.mu.Unlock()
	}
	e.complete(err)
}
