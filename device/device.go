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
	"log/slog"
	"math/rand/v2"
	"sync"

	"code.hybscloud.com/atomix"

	"github.com/ajroetker/go-lookback/device/contrib/workerpool"
)

// DispatchOrder controls the order in which hardware group indices are handed
// to compute units. Real schedulers give no ordering guarantee; the non-natural
// orders make that visible in tests.
type DispatchOrder int

const (
	// DispatchNatural dispatches groups in increasing index order.
	DispatchNatural DispatchOrder = iota

	// DispatchReverse dispatches the highest group index first.
	DispatchReverse

	// DispatchShuffled dispatches groups in a pseudo-random order.
	DispatchShuffled
)

// String returns the name accepted by ParseDispatchOrder.
func (o DispatchOrder) String() string {
	switch o {
	case DispatchNatural:
		return "natural"
	case DispatchReverse:
		return "reverse"
	case DispatchShuffled:
		return "shuffled"
	default:
		return "unknown"
	}
}

// ParseDispatchOrder parses the String form of a DispatchOrder.
func ParseDispatchOrder(s string) (DispatchOrder, error) {
	switch s {
	case "natural", "":
		return DispatchNatural, nil
	case "reverse":
		return DispatchReverse, nil
	case "shuffled", "shuffle":
		return DispatchShuffled, nil
	default:
		return 0, fmt.Errorf("device: unknown dispatch order %q", s)
	}
}

// Device is an emulated accelerator. Its compute units are persistent
// goroutines; every executing group additionally runs one goroutine per lane.
type Device struct {
	caps   Capabilities
	pool   *workerpool.Pool
	logger *slog.Logger
	order  DispatchOrder

	rngMu sync.Mutex
	rng   *rand.Rand

	closed atomix.Bool
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger used for command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDispatchOrder sets the hardware group dispatch order.
func WithDispatchOrder(order DispatchOrder) Option {
	return func(d *Device) { d.order = order }
}

// WithSeed seeds the generator used by DispatchShuffled.
func WithSeed(seed uint64) Option {
	return func(d *Device) { d.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// NewDevice creates a device with the given capabilities.
// If caps.ComputeUnits <= 0, GOMAXPROCS compute units are used.
func NewDevice(caps Capabilities, opts ...Option) *Device {
	if caps.MaxGroupSize <= 0 {
		caps.MaxGroupSize = DefaultMaxGroupSize
	}
	if caps.SubgroupSize < 1 {
		caps.SubgroupSize = 1
	}
	d := &Device{
		caps:   caps,
		logger: slog.Default(),
		rng:    rand.New(rand.NewPCG(1, 2)),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pool = workerpool.New(caps.ComputeUnits)
	d.caps.ComputeUnits = d.pool.NumWorkers()
	return d
}

// Capabilities returns the capabilities the device was created with.
func (d *Device) Capabilities() Capabilities {
	return d.caps
}

// Logger returns the device logger.
func (d *Device) Logger() *slog.Logger {
	return d.logger
}

// Close stops the compute units. Commands already running complete; new
// submissions fail with ErrDeviceClosed. Calling Close multiple times is safe.
func (d *Device) Close() {
	d.closed.StoreRelease(true)
	d.pool.Close()
}

// dispatchPermutation returns the hardware group index for each dispatch slot.
func (d *Device) dispatchPermutation(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	switch d.order {
	case DispatchReverse:
		for i := range perm {
			perm[i] = n - 1 - i
		}
	case DispatchShuffled:
		d.rngMu.Lock()
		d.rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		d.rngMu.Unlock()
	}
	return perm
}

// runKernel executes every group of r and returns when all have finished.
// Compute units claim dispatch slots in increasing order.
func (d *Device) runKernel(r NDRange, locals []LocalMemory, kernel func(*Item)) {
	n := r.NumGroups()
	perm := d.dispatchPermutation(n)
	d.pool.ParallelForAtomic(n, func(slot int) {
		d.runGroup(perm[slot], r, locals, kernel)
	})
}

func (d *Device) runGroup(id int, r NDRange, locals []LocalMemory, kernel func(*Item)) {
	g := &groupState{
		id:           id,
		size:         r.Local,
		numGroups:    r.NumGroups(),
		subgroupSize: d.caps.SubgroupSize,
		barrier:      barrier{n: uint64(r.Local), spins: SpinBudget(spinsBeforeYield)},
		local:        make([]any, len(locals)),
	}
	for i, l := range locals {
		g.local[i] = l.allocate()
	}

	var wg sync.WaitGroup
	wg.Add(r.Local)
	for lid := range r.Local {
		go func() {
			defer wg.Done()
			kernel(&Item{group: g, localID: lid})
		}()
	}
	wg.Wait()
	groupsTotal.Inc()
}
