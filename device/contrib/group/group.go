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

// Package group provides collective operations executed by all lanes of a
// work-group: inclusive and exclusive scans and broadcast.
//
// Every function in this package must be called by every lane of the group,
// with the same algorithm and the same scratch buffer, like a barrier.
//
// # Algorithms
//
//   - KoggeStone: step-doubling scan over group-local memory, O(G log G) work,
//     ceil(log2 G) steps. Universal fallback.
//   - Sequential: lane 0 scans group-local memory in order. O(G) work but no
//     parallelism; useful as a reference. The scan package switches to it when
//     LOOKBACK_SEQUENTIAL_GROUP_SCAN is set.
//   - Native: the device's built-in collectives; needs no scratch memory.
//
// All algorithms combine operands left to right, so the operator only has to
// be associative, not commutative. For associative operators the algorithms
// are interchangeable.
//
// The decoupled-lookback scan uses InclusiveScan and Broadcast. ExclusiveScan
// is for kernels that need an exclusive group result directly.
package group

import "github.com/ajroetker/go-lookback/device"

// Algorithm selects how a collective is realized.
type Algorithm int

const (
	// KoggeStone scans with log-step doubling in group-local memory.
	KoggeStone Algorithm = iota

	// Sequential lets lane 0 scan group-local memory alone.
	Sequential

	// Native uses the device's built-in collectives.
	Native
)

// String returns a human-readable name for the algorithm.
func (a Algorithm) String() string {
	switch a {
	case KoggeStone:
		return "kogge-stone"
	case Sequential:
		return "sequential"
	case Native:
		return "native"
	default:
		return "unknown"
	}
}

// Broadcast returns the value x of lane src to every lane.
//
// Except for Native, slot[0] carries the value; two barriers make the write
// visible and keep the slot alive until every lane has read it.
func Broadcast[T any](it *device.Item, alg Algorithm, x T, src int, slot []T) T {
	if alg == Native {
		return device.GroupBroadcast(it, x, src)
	}
	if it.LocalID() == src {
		slot[0] = x
	}
	it.Barrier()
	result := slot[0]
	it.Barrier()
	return result
}

// KoggeStoneScan returns the inclusive scan of x over the group's lanes.
// local must hold at least LocalRange elements.
func KoggeStoneScan[T any](it *device.Item, x T, op func(a, b T) T, local []T) T {
	lid := it.LocalID()
	size := it.LocalRange()
	local[lid] = x

	for stride := 1; stride < size; stride <<= 1 {
		it.Barrier()
		current := x
		if lid >= stride {
			current = op(local[lid-stride], local[lid])
		}
		it.Barrier()
		if lid >= stride {
			local[lid] = current
		}
	}

	it.Barrier()
	result := local[lid]
	it.Barrier()
	return result
}

// SequentialScan returns the inclusive scan of x over the group's lanes,
// computed by lane 0 alone. local must hold at least LocalRange elements.
func SequentialScan[T any](it *device.Item, x T, op func(a, b T) T, local []T) T {
	lid := it.LocalID()
	local[lid] = x
	it.Barrier()

	if lid == 0 {
		current := local[0]
		for i := 1; i < it.LocalRange(); i++ {
			current = op(current, local[i])
			local[i] = current
		}
	}
	it.Barrier()
	result := local[lid]
	it.Barrier()
	return result
}

// Collective binds an algorithm to an operator.
type Collective[T any] struct {
	Algorithm Algorithm
	Op        func(a, b T) T
}

// InclusiveScan returns op(x_0, ..., x_lid). local is ignored by Native.
func (c Collective[T]) InclusiveScan(it *device.Item, x T, local []T) T {
	switch c.Algorithm {
	case Native:
		return device.GroupInclusiveScan(it, x, c.Op)
	case Sequential:
		return SequentialScan(it, x, c.Op, local)
	default:
		return KoggeStoneScan(it, x, c.Op, local)
	}
}

// ExclusiveScan returns op(init, x_0, ..., x_{lid-1}); lane 0 receives init.
// local must hold at least LocalRange elements for every algorithm, since the
// result is shifted by one lane through it.
func (c Collective[T]) ExclusiveScan(it *device.Item, x, init T, local []T) T {
	lid := it.LocalID()
	if lid == 0 {
		x = c.Op(init, x)
	}
	inclusive := c.InclusiveScan(it, x, local)

	local[lid] = inclusive
	it.Barrier()
	result := init
	if lid > 0 {
		result = local[lid-1]
	}
	it.Barrier()
	return result
}

// Broadcast returns the value x of lane src to every lane.
func (c Collective[T]) Broadcast(it *device.Item, x T, src int, slot []T) T {
	return Broadcast(it, c.Algorithm, x, src, slot)
}
