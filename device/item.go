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
	"fmt"
	"reflect"
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// NDRange is a one-dimensional launch range: Global lanes split into groups of
// Local lanes. Global must be a multiple of Local.
type NDRange struct {
	Global int
	Local  int
}

// NumGroups returns the number of work-groups in the range.
func (r NDRange) NumGroups() int {
	if r.Local <= 0 {
		return 0
	}
	return r.Global / r.Local
}

func (r NDRange) validate(caps Capabilities) error {
	switch {
	case r.Local <= 0:
		return fmt.Errorf("%w: local size %d", ErrInvalidRange, r.Local)
	case r.Global < 0 || r.Global%r.Local != 0:
		return fmt.Errorf("%w: global size %d is not a multiple of local size %d",
			ErrInvalidRange, r.Global, r.Local)
	case r.Local > caps.MaxGroupSize:
		return fmt.Errorf("%w: local size %d exceeds max group size %d",
			ErrInvalidRange, r.Local, caps.MaxGroupSize)
	}
	return nil
}

// spinsBeforeYield bounds busy waiting before a lane yields its thread.
// Lanes outnumber compute units, so pure spinning would starve the lanes
// being waited on.
const spinsBeforeYield = 64

// SpinBudget returns the number of busy-wait rounds a waiter spends before
// yielding: rounds, or zero on a single thread. There the awaited goroutines
// run only once the waiter yields.
func SpinBudget(rounds int) int {
	if runtime.GOMAXPROCS(0) == 1 {
		return 0
	}
	return rounds
}

// barrier is a reusable generation-counting barrier for the lanes of a group.
type barrier struct {
	n       uint64
	spins   int
	arrived atomix.Uint64
	gen     atomix.Uint64
}

func (b *barrier) wait() {
	gen := b.gen.LoadAcquire()
	if b.arrived.AddAcqRel(1) == b.n {
		// Reset before releasing: lanes entering the next barrier acquire
		// the new generation and therefore observe the reset.
		b.arrived.StoreRelaxed(0)
		b.gen.StoreRelease(gen + 1)
		return
	}
	sw := spin.Wait{}
	for i := 0; b.gen.LoadAcquire() == gen; i++ {
		if i < b.spins {
			sw.Once()
		} else {
			runtime.Gosched()
		}
	}
}

// groupState is shared by all lanes of one executing work-group.
type groupState struct {
	id           int
	size         int
	numGroups    int
	subgroupSize int
	barrier      barrier
	local        []any

	regMu     sync.Mutex
	registers map[reflect.Type]any
}

// Item is the handle a lane uses to query its position and synchronize with
// the other lanes of its group.
type Item struct {
	group   *groupState
	localID int
}

// LocalID returns the lane index within its group.
func (it *Item) LocalID() int { return it.localID }

// LocalRange returns the number of lanes in the group.
func (it *Item) LocalRange() int { return it.group.size }

// GroupID returns the hardware index of the group. Groups are not guaranteed
// to start in GroupID order.
func (it *Item) GroupID() int { return it.group.id }

// GroupRange returns the number of groups in the launch.
func (it *Item) GroupRange() int { return it.group.numGroups }

// GlobalID returns the hardware global index of the lane.
func (it *Item) GlobalID() int { return it.group.id*it.group.size + it.localID }

// SubgroupSize returns the number of lanes per subgroup.
func (it *Item) SubgroupSize() int { return it.group.subgroupSize }

// SubgroupID returns the index of the lane's subgroup within the group.
func (it *Item) SubgroupID() int { return it.localID / it.group.subgroupSize }

// SubgroupLocalID returns the lane index within its subgroup.
func (it *Item) SubgroupLocalID() int { return it.localID % it.group.subgroupSize }

// Barrier blocks until every lane of the group has reached it. Memory written
// by any lane before the barrier is visible to all lanes after it.
//
// All lanes must call Barrier the same number of times.
func (it *Item) Barrier() { it.group.barrier.wait() }
