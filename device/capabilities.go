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
	"os"
	"runtime"
	"strconv"
)

const (
	// DefaultLocalMemSize is the on-chip memory per group, in bytes, reported
	// when LOOKBACK_LOCAL_MEM is not set. Matches common GPU shared memory.
	DefaultLocalMemSize = 64 * 1024

	// DefaultMaxGroupSize is the largest number of lanes per group.
	DefaultMaxGroupSize = 1024

	// maxCollectiveElemSize is the largest operand a native collective can
	// move in a single register shuffle.
	maxCollectiveElemSize = 8
)

// Capabilities describes what the emulated device offers to kernels.
type Capabilities struct {
	// Name is a human-readable name of the device.
	Name string `json:"name"`

	// ComputeUnits is the number of groups that can execute at the same time.
	ComputeUnits int `json:"compute_units"`

	// MaxGroupSize is the largest supported number of lanes per group.
	MaxGroupSize int `json:"max_group_size"`

	// LocalMemSize is the on-chip memory available to each group, in bytes.
	LocalMemSize int `json:"local_mem_size"`

	// SubgroupSize is the number of lanes that execute in lock-step and can
	// exchange registers. A value <= 1 means no subgroups.
	SubgroupSize int `json:"subgroup_size"`

	// NativeCollectives reports whether group scan and broadcast are
	// available as device built-ins.
	NativeCollectives bool `json:"native_collectives"`
}

// detected holds the capabilities resolved by init() in capabilities_*.go.
var detected Capabilities

// Detect returns the capabilities of the host-backed device.
// Detection runs once at init; environment overrides are applied then.
func Detect() Capabilities {
	return detected
}

// SupportsCollective reports whether a native group collective exists for an
// element of elemSize bytes combined by a built-in operator. Custom operators
// never map to hardware instructions.
func (c Capabilities) SupportsCollective(elemSize uintptr, nativeOp bool) bool {
	if !c.NativeCollectives || !nativeOp {
		return false
	}
	return elemSize > 0 && elemSize <= maxCollectiveElemSize
}

// NoCollectivesEnv checks if the LOOKBACK_NO_COLLECTIVES environment variable
// is set. When set, the device reports no native collectives regardless of
// the host's vector capabilities. This is useful for testing fallbacks.
func NoCollectivesEnv() bool {
	val := os.Getenv("LOOKBACK_NO_COLLECTIVES")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// envInt returns the positive integer value of the environment variable key,
// or def if it is unset or malformed.
func envInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// newCapabilities fills in everything that does not depend on the ISA.
func newCapabilities(name string, vectorBytes int) Capabilities {
	// Subgroups are modelled after 32-bit lanes of a host vector register.
	subgroup := vectorBytes / 4
	caps := Capabilities{
		Name:              name,
		ComputeUnits:      envInt("LOOKBACK_COMPUTE_UNITS", runtime.GOMAXPROCS(0)),
		MaxGroupSize:      DefaultMaxGroupSize,
		LocalMemSize:      envInt("LOOKBACK_LOCAL_MEM", DefaultLocalMemSize),
		SubgroupSize:      subgroup,
		NativeCollectives: subgroup > 1,
	}
	if NoCollectivesEnv() {
		caps.NativeCollectives = false
	}
	return caps
}
