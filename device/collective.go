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

import "reflect"

// registerFile backs the native collectives of one group for one element type.
// It lives outside the caller's local memory budget, like hardware registers.
type registerFile[T any] struct {
	lanes  []T
	totals []T
}

func registersOf[T any](g *groupState) *registerFile[T] {
	key := reflect.TypeFor[T]()

	g.regMu.Lock()
	defer g.regMu.Unlock()

	if r, ok := g.registers[key]; ok {
		return r.(*registerFile[T])
	}
	numSubgroups := (g.size + g.subgroupSize - 1) / g.subgroupSize
	r := &registerFile[T]{
		lanes:  make([]T, g.size),
		totals: make([]T, numSubgroups),
	}
	if g.registers == nil {
		g.registers = make(map[reflect.Type]any)
	}
	g.registers[key] = r
	return r
}

// GroupBroadcast returns the value x of lane src to every lane of the group.
// Every lane of the group must call it.
func GroupBroadcast[T any](it *Item, x T, src int) T {
	r := registersOf[T](it.group)
	if it.localID == src {
		r.lanes[0] = x
	}
	it.Barrier()
	result := r.lanes[0]
	it.Barrier()
	return result
}

// GroupInclusiveScan returns op(x_0, ..., x_lid) for the calling lane, where
// x_i is the value contributed by lane i. Every lane of the group must call it.
//
// The scan is work-efficient: each subgroup scans its lanes in order, the
// subgroup totals are scanned in order, and every lane combines the total of
// the preceding subgroups with its own subgroup-local result. Operands are
// always combined left to right, so op need not be commutative.
func GroupInclusiveScan[T any](it *Item, x T, op func(a, b T) T) T {
	g := it.group
	r := registersOf[T](g)
	lid := it.localID
	sg := g.subgroupSize

	r.lanes[lid] = x
	it.Barrier()

	if lid%sg == 0 {
		end := min(lid+sg, g.size)
		for i := lid + 1; i < end; i++ {
			r.lanes[i] = op(r.lanes[i-1], r.lanes[i])
		}
	}
	it.Barrier()

	if lid == 0 {
		for k := range r.totals {
			last := r.lanes[min((k+1)*sg, g.size)-1]
			if k == 0 {
				r.totals[k] = last
			} else {
				r.totals[k] = op(r.totals[k-1], last)
			}
		}
	}
	it.Barrier()

	result := r.lanes[lid]
	if k := lid / sg; k > 0 {
		result = op(r.totals[k-1], result)
	}
	it.Barrier()
	return result
}
