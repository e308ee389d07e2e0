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

//go:build !race

package group

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ajroetker/go-lookback/device"
)

var algorithms = []Algorithm{KoggeStone, Sequential, Native}

func newQueue(t *testing.T) *device.Queue {
	t.Helper()
	d := device.NewDevice(device.Capabilities{
		Name:              "group-test",
		ComputeUnits:      3,
		MaxGroupSize:      256,
		LocalMemSize:      device.DefaultLocalMemSize,
		SubgroupSize:      4,
		NativeCollectives: true,
	})
	t.Cleanup(d.Close)
	return d.NewQueue()
}

// run launches fn over groups of size lanes with a size-element scratch
// buffer and returns the per-lane results.
func run[T any](t *testing.T, q *device.Queue, groups, size int, fn func(it *device.Item, local []T) T) []T {
	t.Helper()
	out := make([]T, groups*size)
	local := device.NewLocalAccessor[T](size)
	err := q.Launch(device.LaunchConfig{
		Range: device.NDRange{Global: groups * size, Local: size},
		Local: []device.LocalMemory{local},
	}, func(it *device.Item) {
		out[it.GlobalID()] = fn(it, local.Get(it))
	}).Wait()
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func concat(a, b string) string { return a + b }

func TestInclusiveScan(t *testing.T) {
	q := newQueue(t)
	for _, alg := range algorithms {
		for _, size := range []int{1, 2, 7, 32, 100} {
			c := Collective[int]{Algorithm: alg, Op: func(a, b int) int { return a + b }}
			got := run(t, q, 3, size, func(it *device.Item, local []int) int {
				return c.InclusiveScan(it, it.GlobalID(), local)
			})

			want := make([]int, len(got))
			for i := range want {
				want[i] = i
				if i%size != 0 {
					want[i] += want[i-1]
				}
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%v size=%d: mismatch (-want +got):\n%s", alg, size, diff)
			}
		}
	}
}

// Concatenation is associative but not commutative: any reordering of
// operands shows up in the result.
func TestInclusiveScanOperandOrder(t *testing.T) {
	q := newQueue(t)
	const size = 19
	want := make([]string, size)
	acc := ""
	for lid := range size {
		acc += fmt.Sprintf("<%d>", lid)
		want[lid] = acc
	}

	for _, alg := range algorithms {
		c := Collective[string]{Algorithm: alg, Op: concat}
		got := run(t, q, 1, size, func(it *device.Item, local []string) string {
			return c.InclusiveScan(it, fmt.Sprintf("<%d>", it.LocalID()), local)
		})
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%v: mismatch (-want +got):\n%s", alg, diff)
		}
	}
}

func TestExclusiveScan(t *testing.T) {
	q := newQueue(t)
	const size = 9
	want := make([]string, size)
	acc := "i"
	for lid := range size {
		want[lid] = acc
		acc += fmt.Sprint(lid)
	}

	for _, alg := range algorithms {
		c := Collective[string]{Algorithm: alg, Op: concat}
		got := run(t, q, 2, size, func(it *device.Item, local []string) string {
			return c.ExclusiveScan(it, fmt.Sprint(it.LocalID()), "i", local)
		})
		if diff := cmp.Diff(append(want, want...), got); diff != "" {
			t.Errorf("%v: mismatch (-want +got):\n%s", alg, diff)
		}
	}
}

func TestBroadcast(t *testing.T) {
	q := newQueue(t)
	const size = 16
	for _, alg := range algorithms {
		c := Collective[int]{Algorithm: alg}
		got := run(t, q, 4, size, func(it *device.Item, local []int) int {
			// Consecutive broadcasts reuse the slot.
			first := c.Broadcast(it, it.GlobalID(), size-1, local)
			second := Broadcast(it, alg, it.GlobalID()+first, 2, local)
			return second
		})
		for i, v := range got {
			g := i / size
			first := g*size + size - 1
			if want := g*size + 2 + first; v != want {
				t.Errorf("%v lane %d: got %d, want %d", alg, i, v, want)
			}
		}
	}
}

// Scans followed by a broadcast of the last lane carry a running total, the
// pattern used to stitch chunks together.
func TestScanThenBroadcast(t *testing.T) {
	q := newQueue(t)
	const size = 8
	for _, alg := range algorithms {
		c := Collective[int]{Algorithm: alg, Op: func(a, b int) int { return a + b }}
		got := run(t, q, 1, size, func(it *device.Item, local []int) int {
			total := 0
			var last int
			for range 3 {
				last = total + c.InclusiveScan(it, 1, local)
				total = c.Broadcast(it, last, size-1, local)
			}
			return last
		})
		for lid, v := range got {
			if want := 2*size + lid + 1; v != want {
				t.Errorf("%v lane %d: got %d, want %d", alg, lid, v, want)
			}
		}
	}
}
