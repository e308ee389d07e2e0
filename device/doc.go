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

// Package device emulates a massively parallel accelerator on goroutines.
//
// The model follows the SYCL/CUDA execution model: a kernel is launched over an
// nd-range split into work-groups of lanes. Lanes of a group run concurrently
// and synchronize through [Item.Barrier]; groups are dispatched to a fixed set
// of compute units and have no ordering or barrier guarantee relative to each
// other. Groups communicate only through shared memory and atomics.
//
// # Capabilities
//
// [Detect] resolves the capabilities of the emulated device once at init,
// using golang.org/x/sys/cpu to size subgroups after the host's vector width:
//
//	caps := device.Detect()
//	fmt.Println(caps.Name, caps.SubgroupSize, caps.LocalMemSize)
//
// The following environment variables override detection:
//   - LOOKBACK_NO_COLLECTIVES: disable native group collectives
//   - LOOKBACK_LOCAL_MEM: on-chip local memory per group in bytes
//   - LOOKBACK_COMPUTE_UNITS: number of groups executing concurrently
//
// # Submission
//
// Work is submitted to a [Queue]. Every submission returns an [Event] that
// completes once the command has finished:
//
//	dev := device.NewDevice(device.Detect())
//	defer dev.Close()
//	q := dev.NewQueue(device.InOrder())
//
//	evt := q.Launch(device.LaunchConfig{
//	    Range: device.NDRange{Global: 1024, Local: 128},
//	}, func(it *device.Item) {
//	    // per-lane body
//	})
//	if err := evt.Wait(); err != nil {
//	    return err
//	}
//
// In-order queues execute commands one after another. Out-of-order queues only
// honor the dependencies passed explicitly with each submission.
//
// # Memory
//
// Group-local memory is declared with [NewLocalAccessor] and counted against
// [Capabilities.LocalMemSize]. Global scratch is obtained from an
// [AllocationGroup]; like real device memory, recycled buffers are not cleared.
package device
