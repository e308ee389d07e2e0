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

import "errors"

var (
	// ErrInvalidRange is reported for nd-ranges the device cannot execute.
	ErrInvalidRange = errors.New("device: invalid nd-range")

	// ErrLocalMemExceeded is reported when a launch declares more local
	// memory than a group can hold.
	ErrLocalMemExceeded = errors.New("device: local memory exceeded")

	// ErrDependencyFailed is reported by commands whose dependencies failed.
	ErrDependencyFailed = errors.New("device: dependency failed")

	// ErrDeviceClosed is reported for submissions after Close.
	ErrDeviceClosed = errors.New("device: closed")
)
