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

//go:build arm64

package device

import "golang.org/x/sys/cpu"

func init() {
	// ARMv8-A always has ASIMD; the check keeps parity with other ISAs.
	if cpu.ARM64.HasASIMD {
		detected = newCapabilities("host-neon", 16)
		return
	}
	detected = newCapabilities("host-scalar", 4)
}
