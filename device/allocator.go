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
	"reflect"
	"sync"
)

// AllocationCache recycles device buffers between algorithm invocations.
// Buffers are keyed by element type and handed out again without clearing.
type AllocationCache struct {
	mu   sync.Mutex
	free map[reflect.Type][]any
}

// NewAllocationCache creates an empty cache.
func NewAllocationCache() *AllocationCache {
	return &AllocationCache{free: make(map[reflect.Type][]any)}
}

// NewGroup starts a set of allocations that are released together.
func (c *AllocationCache) NewGroup() *AllocationGroup {
	return &AllocationGroup{cache: c}
}

// Cached returns the number of buffers available for reuse.
func (c *AllocationCache) Cached() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, bufs := range c.free {
		n += len(bufs)
	}
	return n
}

// Purge drops every cached buffer.
func (c *AllocationCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.free)
}

func (c *AllocationCache) put(key reflect.Type, buf any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.free[key] = append(c.free[key], buf)
}

type heldBuffer struct {
	key reflect.Type
	buf any
}

// AllocationGroup owns the scratch buffers of one algorithm invocation.
// The owner calls Release once every command using the buffers has completed.
type AllocationGroup struct {
	cache *AllocationCache

	mu   sync.Mutex
	held []heldBuffer
}

// Obtain returns n elements of T owned by g. A recycled buffer keeps whatever
// its previous user left in it; callers that need zeroed memory must
// initialize it, typically with a device command.
func Obtain[T any](g *AllocationGroup, n int) []T {
	key := reflect.TypeFor[T]()
	c := g.cache

	var buf []T
	c.mu.Lock()
	bufs := c.free[key]
	for i, b := range bufs {
		if s := b.([]T); cap(s) >= n {
			buf = s[:n]
			c.free[key] = append(bufs[:i], bufs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if buf == nil {
		buf = make([]T, n)
	}

	g.mu.Lock()
	g.held = append(g.held, heldBuffer{key: key, buf: buf[:cap(buf)]})
	g.mu.Unlock()
	return buf
}

// Release returns every buffer of g to its cache. g must not be used afterwards.
func (g *AllocationGroup) Release() {
	g.mu.Lock()
	held := g.held
	g.held = nil
	g.mu.Unlock()

	for _, h := range held {
		g.cache.put(h.key, h.buf)
	}
}
