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

// Package contrib provides algorithms that run on an emulated device.
//
// # Subpackages
//
// The contrib package is organized into subdirectories:
//
//   - workerpool: Compute units that execute work-groups
//   - group: Scans and broadcast across the lanes of one work-group
//   - scan: Single-pass decoupled-lookback prefix scan over the whole range
//
// # Scans (device/contrib/scan)
//
// The scan package computes inclusive and exclusive prefix scans with any
// associative operator in a single kernel launch:
//
//	import "github.com/ajroetker/go-lookback/device/contrib/scan"
//
//	dev := device.NewDevice(device.Detect())
//	defer dev.Close()
//	q := dev.NewQueue(device.InOrder())
//	cache := device.NewAllocationCache()
//
//	out := make([]int64, len(in))
//	err := scan.InclusiveScan(q, cache, in, out, scan.Plus[int64](), scan.DefaultConfig())
//
// For full control over how elements are produced and consumed, build a
// scan.Request and submit it with scan.DecoupledLookback.
//
// # Group Primitives (device/contrib/group)
//
// The group package provides the building blocks used inside a work-group:
//
//	c := group.Collective[int64]{Algorithm: group.KoggeStone, Op: add}
//	prefix := c.InclusiveScan(it, x, scratch)
//	total := c.Broadcast(it, prefix, it.LocalRange()-1, scratch)
//
// # Worker Pool (device/contrib/workerpool)
//
// The workerpool package holds the persistent goroutines a device runs its
// groups on. Most users never touch it directly.
package contrib
