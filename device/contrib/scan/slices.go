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

package scan

import (
	"fmt"

	"github.com/ajroetker/go-lookback/device"
)

// Config holds the launch geometry used by the slice functions.
type Config struct {
	GroupSize      int
	ChunksPerGroup int
}

// DefaultConfig returns 128 lanes per group and 2 chunks per group.
func DefaultConfig() Config {
	return Config{GroupSize: 128, ChunksPerGroup: 2}
}

// InclusiveScan writes the inclusive scan of in to out and waits for it.
// out must be at least as long as in. out may be in itself; any other
// overlap is not allowed. A nil cache allocates fresh scratch memory.
//
// Example:
//
//	in := []int{1, 2, 3, 4}
//	InclusiveScan(q, cache, in, in, Plus[int](), DefaultConfig())
//	// in = [1, 3, 6, 10]
func InclusiveScan[T any](q *device.Queue, cache *device.AllocationCache, in, out []T, op Operator[T], cfg Config) error {
	return transformScan(q, cache, Inclusive, in, out, nil, op, identity[T], cfg)
}

// ExclusiveScan writes the exclusive scan of in, starting from init, to out
// and waits for it. in and out must not overlap.
//
// Example:
//
//	in := []int{1, 2, 3, 4}
//	out := make([]int, 4)
//	ExclusiveScan(q, cache, in, out, 10, Plus[int](), DefaultConfig())
//	// out = [10, 11, 13, 16]
func ExclusiveScan[T any](q *device.Queue, cache *device.AllocationCache, in, out []T, init T, op Operator[T], cfg Config) error {
	return transformScan(q, cache, Exclusive, in, out, &init, op, identity[T], cfg)
}

// TransformInclusiveScan writes the inclusive scan of transform(in[i]) to out
// and waits for it. in and out must not overlap.
func TransformInclusiveScan[In, T any](q *device.Queue, cache *device.AllocationCache, in []In, out []T,
	op Operator[T], transform func(In) T, cfg Config) error {
	return transformScan(q, cache, Inclusive, in, out, nil, op, transform, cfg)
}

// TransformExclusiveScan writes the exclusive scan of transform(in[i]),
// starting from init, to out and waits for it. in and out must not overlap.
func TransformExclusiveScan[In, T any](q *device.Queue, cache *device.AllocationCache, in []In, out []T,
	init T, op Operator[T], transform func(In) T, cfg Config) error {
	return transformScan(q, cache, Exclusive, in, out, &init, op, transform, cfg)
}

func identity[T any](x T) T { return x }

func transformScan[In, T any](q *device.Queue, cache *device.AllocationCache, kind Kind, in []In, out []T,
	init *T, op Operator[T], transform func(In) T, cfg Config) error {
	if len(out) < len(in) {
		return fmt.Errorf("%w: %d < %d", ErrShortOutput, len(out), len(in))
	}
	if transform == nil {
		return ErrNilGenerator
	}
	if cache == nil {
		cache = device.NewAllocationCache()
	}

	alloc := cache.NewGroup()
	defer alloc.Release()

	e, err := DecoupledLookback(q, alloc, Request[T]{
		Kind:           kind,
		ProblemSize:    len(in),
		GroupSize:      cfg.GroupSize,
		ChunksPerGroup: cfg.ChunksPerGroup,
		Op:             op,
		Init:           init,
		Generator: func(_ *device.Item, _, i, n int) T {
			if i >= n {
				var zero T
				return zero
			}
			return transform(in[i])
		},
		Processor: func(_ *device.Item, _, i, n int, v T) {
			if i < n {
				out[i] = v
			}
		},
	})
	if err != nil {
		return err
	}
	return e.Wait()
}
