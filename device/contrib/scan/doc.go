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

// Package scan implements single-pass prefix scans on an emulated device
// using decoupled lookback.
//
// The input of N elements is split into tiles of GroupSize*ChunksPerGroup
// elements, one tile per work-group. Groups may be scheduled in any order,
// so each group first claims a logical id from a shared counter: a group
// with id g only runs after groups 0..g-1 have started, which is what makes
// waiting on predecessors safe.
//
// Each group then
//
//  1. loads and scans its chunks locally, carrying a running total from one
//     chunk to the next,
//  2. publishes the aggregate of its tile (group 0 publishes its inclusive
//     prefix instead),
//  3. looks back over its predecessors' published state until it finds an
//     inclusive prefix, folding aggregates on the way,
//  4. combines the result with its local values, publishes its own
//     inclusive prefix and hands every value to the processor.
//
// The whole scan is one kernel launch plus a small initialization pass.
//
// # Operators
//
// Any associative operator works; commutativity is not required. Operands
// are always combined in input order. Built-in operators (Plus, Max, ...)
// are marked Native and may run on the device's collectives; operators built
// with Func always use group-local memory.
//
// Floating-point addition is not associative, so float results may differ
// from a sequential scan in the last bits.
//
// # Out-of-range lanes
//
// The last tile is usually partial. Lanes past the end still call the
// generator with an index >= N and the processor with an undefined value;
// both callbacks must tolerate that.
//
// # Race detection
//
// Status flags and group barriers use acquire/release operations from
// [code.hybscloud.com/atomix]. On amd64 these are plain loads and stores
// ordered by the hardware, which the race detector does not see as
// synchronization, so it reports races between lanes that cannot occur.
// Tests that launch kernels are excluded via //go:build !race.
//
// Usage:
//
//	dev := device.NewDevice(device.Detect())
//	defer dev.Close()
//	q := dev.NewQueue(device.InOrder())
//	cache := device.NewAllocationCache()
//
//	out := make([]int32, len(in))
//	if err := scan.ExclusiveScan(q, cache, in, out, 0, scan.Plus[int32](), scan.DefaultConfig()); err != nil {
//	    return err
//	}
package scan
