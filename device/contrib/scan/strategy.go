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
	"os"
	"strconv"

	"github.com/ajroetker/go-lookback/device"
	"github.com/ajroetker/go-lookback/device/contrib/group"
)

// Strategy is the way a launch realizes its intra-group collectives.
type Strategy int

const (
	// StrategyNative uses the device's collectives; no scratch memory.
	StrategyNative Strategy = iota

	// StrategyLocal scans in on-chip group-local memory.
	StrategyLocal

	// StrategyGlobal scans in a per-group slice of global memory, used when
	// group-local memory is too small.
	StrategyGlobal
)

// String returns a human-readable name for the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyNative:
		return "native"
	case StrategyLocal:
		return "local"
	case StrategyGlobal:
		return "global"
	default:
		return "unknown"
	}
}

func (s Strategy) algorithm() group.Algorithm {
	switch {
	case s == StrategyNative:
		return group.Native
	case SequentialGroupScanEnv():
		return group.Sequential
	default:
		return group.KoggeStone
	}
}

// SequentialGroupScanEnv checks if the LOOKBACK_SEQUENTIAL_GROUP_SCAN
// environment variable is set. When set, the local and global strategies scan
// each group with [group.Sequential] instead of [group.KoggeStone]. Values
// that do not parse as a boolean count as set.
func SequentialGroupScanEnv() bool {
	val := os.Getenv("LOOKBACK_SEQUENTIAL_GROUP_SCAN")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// localMemHeadroom is the factor by which local memory must exceed the scan
// scratch before it is used.
const localMemHeadroom = 1.5

// LocalMemElements returns the number of scratch elements of size elemSize
// a group of groupSize lanes needs: one per lane, and at least enough to
// hold a 32-bit group id.
func LocalMemElements(elemSize uintptr, groupSize int) int {
	elemSize = max(elemSize, 1)
	idElems := int((4 + elemSize - 1) / elemSize)
	return max(groupSize, idElems)
}

// SelectStrategy picks how a scan with the given element size, group size
// and operator runs on a device with caps, and returns the number of scratch
// elements per group.
func SelectStrategy(caps device.Capabilities, elemSize uintptr, groupSize int, nativeOp bool) (Strategy, int) {
	elems := LocalMemElements(elemSize, groupSize)
	switch {
	case caps.SupportsCollective(elemSize, nativeOp):
		return StrategyNative, elems
	case float64(caps.LocalMemSize) >= localMemHeadroom*float64(max(elemSize, 1))*float64(elems):
		return StrategyLocal, elems
	default:
		return StrategyGlobal, elems
	}
}
