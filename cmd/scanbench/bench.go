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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
	"unsafe"

	"github.com/natefinch/atomic"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/go-lookback/device"
	"github.com/ajroetker/go-lookback/device/contrib/scan"
)

var errMismatch = errors.New("scan result differs from sequential scan")

func parseKind(s string) (scan.Kind, error) {
	switch s {
	case "inclusive":
		return scan.Inclusive, nil
	case "exclusive":
		return scan.Exclusive, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", errConfigInvalid, s)
	}
}

// parseOp returns the int64 operator named s. "custom" is addition wrapped
// as a user function, which never uses native collectives.
func parseOp(s string) (scan.Operator[int64], error) {
	switch s {
	case "plus":
		return scan.Plus[int64](), nil
	case "min":
		return scan.Min[int64](), nil
	case "max":
		return scan.Max[int64](), nil
	case "xor":
		return scan.BitXor[int64](), nil
	case "custom":
		return scan.Func("custom", func(a, b int64) int64 { return a + b }), nil
	default:
		return scan.Operator[int64]{}, fmt.Errorf("%w: unknown op %q", errConfigInvalid, s)
	}
}

// Run is the outcome of one scan.
type Run struct {
	Iteration int           `json:"iteration"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Verified  bool          `json:"verified"`
}

// Report summarizes a benchmark.
type Report struct {
	Config   Config              `json:"config"`
	Device   device.Capabilities `json:"device"`
	Strategy string              `json:"strategy"`
	Runs     []Run               `json:"runs"`
	Mean     time.Duration       `json:"mean_ns"`
	Min      time.Duration       `json:"min_ns"`
	Max      time.Duration       `json:"max_ns"`
	// ElementsPerSecond is based on the mean run time.
	ElementsPerSecond float64 `json:"elements_per_second"`
}

type bench struct {
	cfg    Config
	dev    *device.Device
	q      *device.Queue
	cache  *device.AllocationCache
	kind   scan.Kind
	op     scan.Operator[int64]
	logger *slog.Logger
}

func newBench(cfg Config, dev *device.Device, logger *slog.Logger) (*bench, error) {
	kind, err := parseKind(cfg.Kind)
	if err != nil {
		return nil, err
	}
	op, err := parseOp(cfg.Op)
	if err != nil {
		return nil, err
	}
	var opts []device.QueueOption
	if cfg.Queue == "in-order" {
		opts = append(opts, device.InOrder())
	}
	return &bench{
		cfg:    cfg,
		dev:    dev,
		q:      dev.NewQueue(opts...),
		cache:  device.NewAllocationCache(),
		kind:   kind,
		op:     op,
		logger: logger,
	}, nil
}

// input returns the deterministic input of one iteration.
func (b *bench) input(iteration int) []int64 {
	r := rand.New(rand.NewPCG(b.cfg.Seed, uint64(iteration)))
	return lo.Times(b.cfg.Size, func(int) int64 { return r.Int64N(1<<16) - 1<<15 })
}

// once runs and verifies a single scan.
func (b *bench) once(ctx context.Context, iteration int) (Run, error) {
	in := b.input(iteration)
	out := make([]int64, len(in))
	var init *int64
	if b.kind == scan.Exclusive {
		zero := int64(0)
		init = &zero
	}

	alloc := b.cache.NewGroup()
	defer alloc.Release()

	start := time.Now()
	e, err := scan.DecoupledLookback(b.q, alloc, scan.Request[int64]{
		Kind:           b.kind,
		ProblemSize:    len(in),
		GroupSize:      b.cfg.GroupSize,
		ChunksPerGroup: b.cfg.Chunks,
		Op:             b.op,
		Init:           init,
		Generator: func(_ *device.Item, _, i, n int) int64 {
			if i >= n {
				return 0
			}
			return in[i]
		},
		Processor: func(_ *device.Item, _, i, n int, v int64) {
			if i < n {
				out[i] = v
			}
		},
	})
	if err != nil {
		return Run{}, err
	}
	select {
	case <-e.Done():
	case <-ctx.Done():
		// The scan cannot be cancelled; wait so its scratch can be released.
		_ = e.Wait()
		return Run{}, ctx.Err()
	}
	if err := e.Wait(); err != nil {
		return Run{}, err
	}
	elapsed := time.Since(start)

	if i, ok := verify(b.kind, in, out, init, b.op.Fn); !ok {
		return Run{}, fmt.Errorf("%w: iteration %d, position %d", errMismatch, iteration, i)
	}
	b.logger.Debug("scan verified", "iteration", iteration, "elapsed", elapsed)
	return Run{Iteration: iteration, Elapsed: elapsed, Verified: true}, nil
}

// run executes all iterations, at most cfg.Parallel at a time.
func (b *bench) run(ctx context.Context) (Report, error) {
	runs := make([]Run, b.cfg.Iterations)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Parallel)
	for i := range b.cfg.Iterations {
		g.Go(func() error {
			r, err := b.once(ctx, i)
			if err != nil {
				return err
			}
			runs[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return b.report(runs), nil
}

func (b *bench) report(runs []Run) Report {
	caps := b.dev.Capabilities()
	strategy, _ := scan.SelectStrategy(caps, unsafe.Sizeof(int64(0)), b.cfg.GroupSize, b.op.Native)
	elapsed := lo.Map(runs, func(r Run, _ int) time.Duration { return r.Elapsed })
	mean := lo.Sum(elapsed) / time.Duration(len(elapsed))

	rep := Report{
		Config:   b.cfg,
		Device:   caps,
		Strategy: strategy.String(),
		Runs:     runs,
		Mean:     mean,
		Min:      lo.Min(elapsed),
		Max:      lo.Max(elapsed),
	}
	if mean > 0 {
		rep.ElementsPerSecond = float64(b.cfg.Size) / mean.Seconds()
	}
	return rep
}

// verify compares out against a sequential scan of in and returns the first
// differing position.
func verify(kind scan.Kind, in, out []int64, init *int64, op func(a, b int64) int64) (int, bool) {
	var acc int64
	have := init != nil
	if have {
		acc = *init
	}
	for i, x := range in {
		if kind == scan.Exclusive && out[i] != acc {
			return i, false
		}
		if have {
			acc = op(acc, x)
		} else {
			acc, have = x, true
		}
		if kind == scan.Inclusive && out[i] != acc {
			return i, false
		}
	}
	return -1, true
}

// writeReport stores rep as indented JSON, replacing path atomically.
func writeReport(path string, rep Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(append(data, '\n')))
}
