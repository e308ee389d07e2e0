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

import "unsafe"

// LocalMemory is a group-local allocation declared in a LaunchConfig.
// It is implemented by *LocalAccessor.
type LocalMemory interface {
	// Bytes returns the size of one group's allocation.
	Bytes() int

	allocate() any
	bind(slot int)
}

// LocalAccessor declares n elements of T of on-chip memory per group.
// Every group of the launch gets its own zeroed slice, shared by its lanes.
//
// An accessor belongs to a single launch.
type LocalAccessor[T any] struct {
	n    int
	slot int
}

// NewLocalAccessor declares n elements of group-local memory.
func NewLocalAccessor[T any](n int) *LocalAccessor[T] {
	return &LocalAccessor[T]{n: n, slot: -1}
}

// Len returns the number of elements per group.
func (a *LocalAccessor[T]) Len() int { return a.n }

// Bytes returns the size of one group's allocation in bytes.
func (a *LocalAccessor[T]) Bytes() int {
	var zero T
	return a.n * int(unsafe.Sizeof(zero))
}

func (a *LocalAccessor[T]) allocate() any { return make([]T, a.n) }

func (a *LocalAccessor[T]) bind(slot int) { a.slot = slot }

// Get returns the calling group's memory.
func (a *LocalAccessor[T]) Get(it *Item) []T {
	if a.slot < 0 || a.slot >= len(it.group.local) {
		panic("device: local accessor is not part of this launch")
	}
	return it.group.local[a.slot].([]T)
}

func localBytes(locals []LocalMemory) int {
	total := 0
	for _, l := range locals {
		total += l.Bytes()
	}
	return total
}
