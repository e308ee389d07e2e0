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
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
	"golang.org/x/sys/cpu"

	"github.com/ajroetker/go-lookback/device"
	"github.com/ajroetker/go-lookback/device/contrib/group"
)

// Kind selects inclusive or exclusive scan semantics.
type Kind int

const (
	// Inclusive: result[i] = op(init?, x[0], ..., x[i]).
	Inclusive Kind = iota

	// Exclusive: result[0] = init, result[i] = op(init, x[0], ..., x[i-1]).
	Exclusive
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Inclusive:
		return "inclusive"
	case Exclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// Generator produces the input element at globalID. groupID is the logical
// id of the group asking. It is also called for globalID >= problemSize in
// the last tile, where its result is ignored; it must not fail there.
type Generator[T any] func(it *device.Item, groupID, globalID, problemSize int) T

// Processor consumes the final scanned value of globalID. It is called once
// per lane of every chunk that starts in range, concurrently and in no
// particular order; for globalID >= problemSize the value is undefined.
type Processor[T any] func(it *device.Item, groupID, globalID, problemSize int, v T)

// Request describes one scan.
type Request[T any] struct {
	Kind Kind

	// ProblemSize is the number of elements. Zero is valid and does nothing.
	ProblemSize int

	// GroupSize is the number of lanes per group.
	GroupSize int

	// ChunksPerGroup is the number of consecutive GroupSize chunks each
	// group processes. Lookback runs once per group regardless.
	ChunksPerGroup int

	Op Operator[T]

	// Init is combined in front of the first element. Required for
	// exclusive scans, optional for inclusive ones.
	Init *T

	Generator Generator[T]
	Processor Processor[T]

	// Deps must complete before the scan starts.
	Deps []*device.Event
}

func (r *Request[T]) validate(caps device.Capabilities) error {
	switch {
	case r.Kind != Inclusive && r.Kind != Exclusive:
		return fmt.Errorf("%w: %d", ErrInvalidKind, r.Kind)
	case r.ProblemSize < 0:
		return fmt.Errorf("%w: %d", ErrInvalidProblemSize, r.ProblemSize)
	case r.GroupSize <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidGroupSize, r.GroupSize)
	case r.GroupSize > caps.MaxGroupSize:
		return fmt.Errorf("%w: %d exceeds the device maximum %d",
			ErrInvalidGroupSize, r.GroupSize, caps.MaxGroupSize)
	case r.ChunksPerGroup <= 0:
		return fmt.Errorf("%w: got %d", ErrInvalidChunks, r.ChunksPerGroup)
	case r.Op.Fn == nil:
		return ErrNilOperator
	case r.Generator == nil:
		return ErrNilGenerator
	case r.Processor == nil:
		return ErrNilProcessor
	case r.Kind == Exclusive && r.Init == nil:
		return ErrMissingInit
	}
	return nil
}

// Group status values. A slot only ever moves forward:
// invalid -> aggregateAvailable -> prefixAvailable, or invalid ->
// prefixAvailable for group 0.
const (
	statusInvalid uint64 = iota
	statusAggregateAvailable
	statusPrefixAvailable
)

// spinsBeforeBackoff bounds the busy wait on a predecessor's status before
// falling back to iox.Backoff.
const spinsBeforeBackoff = 128

type groupCounter struct {
	_ cpu.CacheLinePad
	n atomix.Uint64
	_ cpu.CacheLinePad
}

// scratch is the device state shared by all groups of one scan.
type scratch[T any] struct {
	aggregate []T
	prefix    []T
	status    []atomix.Uint64
	counter   *groupCounter

	// ids[hw] carries the logical id claimed by hardware group hw to all
	// of its lanes.
	ids []int

	// global holds elems scan elements per hardware group for
	// StrategyGlobal; nil otherwise.
	global []T
	elems  int
}

func newScratch[T any](alloc *device.AllocationGroup, strategy Strategy, numGroups, elems int) *scratch[T] {
	s := &scratch[T]{
		aggregate: device.Obtain[T](alloc, numGroups),
		prefix:    device.Obtain[T](alloc, numGroups),
		status:    device.Obtain[atomix.Uint64](alloc, numGroups),
		counter:   &device.Obtain[groupCounter](alloc, 1)[0],
		ids:       device.Obtain[int](alloc, numGroups),
		elems:     elems,
	}
	if strategy == StrategyGlobal {
		s.global = device.Obtain[T](alloc, numGroups*elems)
	}
	return s
}

// reset clears the status of group i, and the counter along with group 0.
func (s *scratch[T]) reset(i int) {
	s.status[i].StoreRelaxed(statusInvalid)
	if i == 0 {
		s.counter.n.StoreRelaxed(0)
	}
}

type kernel[T any] struct {
	req      Request[T]
	coll     group.Collective[T]
	scratch  *scratch[T]
	local    *device.LocalAccessor[T]
	tileSize int
}

// groupScratch returns the scan scratch of the item's group, nil for native
// collectives.
func (k *kernel[T]) groupScratch(it *device.Item) []T {
	switch {
	case k.local != nil:
		return k.local.Get(it)
	case k.scratch.global != nil:
		hw := it.GroupID()
		return k.scratch.global[hw*k.scratch.elems : (hw+1)*k.scratch.elems]
	}
	return nil
}

// load returns the element lane i scans. Exclusive scans read one position
// back so that both kinds reduce to an inclusive scan.
func (k *kernel[T]) load(it *device.Item, g, i int) T {
	r := &k.req
	if r.Kind == Exclusive {
		if i == 0 {
			return *r.Init
		}
		return r.Generator(it, g, i-1, r.ProblemSize)
	}
	x := r.Generator(it, g, i, r.ProblemSize)
	if i == 0 && r.Init != nil {
		x = r.Op.Fn(*r.Init, x)
	}
	return x
}

func (k *kernel[T]) run(it *device.Item) {
	r := &k.req
	op := r.Op.Fn
	n := r.ProblemSize
	size := it.LocalRange()
	lid := it.LocalID()
	s := k.scratch
	local := k.groupScratch(it)

	var id int
	if lid == 0 {
		id = int(s.counter.n.AddAcqRel(1) - 1)
	}
	hw := it.GroupID()
	g := group.Broadcast(it, k.coll.Algorithm, id, 0, s.ids[hw:hw+1])
	tile := g * k.tileSize

	// Local scan of every chunk in range, relative to the tile start.
	values := make([]T, 0, r.ChunksPerGroup)
	var carry T
	for c := range r.ChunksPerGroup {
		start := tile + c*size
		if start >= n {
			break
		}
		v := k.coll.InclusiveScan(it, k.load(it, g, start+lid), local)
		if c > 0 {
			v = op(carry, v)
		}
		values = append(values, v)
		if c+1 < r.ChunksPerGroup && start+size < n {
			carry = k.coll.Broadcast(it, v, size-1, local)
		}
	}

	// The lane holding the last in-range element owns the tile's state.
	last := len(values) - 1
	owner := min(n-(tile+last*size), size) - 1
	if lid == owner {
		if g == 0 {
			s.prefix[0] = values[last]
			s.status[0].StoreRelease(statusPrefixAvailable)
		} else {
			s.aggregate[g] = values[last]
			s.status[g].StoreRelease(statusAggregateAvailable)
		}
	}

	if g > 0 {
		var exclusive T
		if lid == 0 {
			exclusive = k.lookback(g)
		}
		exclusive = k.coll.Broadcast(it, exclusive, 0, local)
		for c := range values {
			values[c] = op(exclusive, values[c])
		}
		if lid == owner {
			s.prefix[g] = values[last]
			s.status[g].StoreRelease(statusPrefixAvailable)
		}
	}

	for c, v := range values {
		r.Processor(it, g, tile+c*size+lid, n, v)
	}
}

// lookback returns op over the tiles of groups 0..g-1. It walks backwards
// from g-1, folding aggregates until it reaches a published inclusive prefix.
func (k *kernel[T]) lookback(g int) T {
	s := k.scratch
	op := k.req.Op.Fn

	var acc T
	have := false
	depth := 0
	for p := g - 1; p >= 0; p-- {
		depth++
		status := waitPublished(&s.status[p])
		v := s.aggregate[p]
		if status == statusPrefixAvailable {
			v = s.prefix[p]
		}
		if have {
			acc = op(v, acc)
		} else {
			acc, have = v, true
		}
		if status == statusPrefixAvailable {
			break
		}
	}
	lookbackDepth.Observe(float64(depth))
	return acc
}

// waitPublished spins until status leaves statusInvalid and returns the new
// value.
func waitPublished(status *atomix.Uint64) uint64 {
	sw := spin.Wait{}
	backoff := iox.Backoff{}
	spins := device.SpinBudget(spinsBeforeBackoff)
	for i := 0; ; i++ {
		if v := status.LoadAcquire(); v != statusInvalid {
			return v
		}
		if i < spins {
			sw.Once()
		} else {
			backoff.Wait()
		}
	}
}

// DecoupledLookback submits req to q and returns the event of the scan
// kernel. Scratch memory is taken from alloc; the caller releases alloc once
// the event has completed.
//
// Precondition violations are returned as errors and nothing is submitted.
// For ProblemSize 0 an already completed event is returned.
func DecoupledLookback[T any](q *device.Queue, alloc *device.AllocationGroup, req Request[T]) (*device.Event, error) {
	dev := q.Device()
	caps := dev.Capabilities()
	if err := req.validate(caps); err != nil {
		return nil, err
	}
	if req.ProblemSize == 0 {
		return device.CompletedEvent(), nil
	}

	var zero T
	strategy, elems := SelectStrategy(caps, unsafe.Sizeof(zero), req.GroupSize, req.Op.Native)
	tileSize := req.GroupSize * req.ChunksPerGroup
	numGroups := (req.ProblemSize + tileSize - 1) / tileSize

	k := &kernel[T]{
		req:      req,
		coll:     group.Collective[T]{Algorithm: strategy.algorithm(), Op: req.Op.Fn},
		scratch:  newScratch[T](alloc, strategy, numGroups, elems),
		tileSize: tileSize,
	}

	cfg := device.LaunchConfig{
		Range: device.NDRange{Global: numGroups * req.GroupSize, Local: req.GroupSize},
	}
	if strategy == StrategyLocal {
		k.local = device.NewLocalAccessor[T](elems)
		cfg.Local = []device.LocalMemory{k.local}
	}

	// Recycled scratch holds stale state; the kernel waits for the reset.
	initDone := q.ParallelFor(numGroups, req.Deps, k.scratch.reset)
	cfg.Deps = []*device.Event{initDone}

	launchesTotal.WithLabelValues(req.Kind.String(), strategy.String()).Inc()
	dev.Logger().Debug("submitting decoupled-lookback scan",
		"kind", req.Kind, "op", req.Op.Name, "strategy", strategy, "algorithm", k.coll.Algorithm,
		"n", req.ProblemSize, "group_size", req.GroupSize,
		"chunks", req.ChunksPerGroup, "groups", numGroups)

	return q.Launch(cfg, k.run), nil
}
