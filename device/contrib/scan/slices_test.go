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

//go:build !race

package scan

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-lookback/device"
)

func TestInclusiveScanSlices(t *testing.T) {
	q := newTestQueue(t, testCaps())
	cache := device.NewAllocationCache()

	tests := []struct {
		name     string
		input    []int64
		expected []int64
	}{
		{"simple", []int64{1, 2, 3, 4}, []int64{1, 3, 6, 10}},
		{"single", []int64{42}, []int64{42}},
		{"zeros", []int64{0, 0, 0, 0}, []int64{0, 0, 0, 0}},
		{"negative", []int64{5, -2, -3, 7}, []int64{5, 3, 0, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]int64, len(tt.input))
			require.NoError(t, InclusiveScan(q, cache, tt.input, out, Plus[int64](), Config{GroupSize: 2, ChunksPerGroup: 1}))
			if diff := cmp.Diff(tt.expected, out); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInclusiveScanInPlace(t *testing.T) {
	q := newTestQueue(t, testCaps())
	data := lo.Times(1000, func(int) int { return 1 })
	require.NoError(t, InclusiveScan(q, nil, data, data, Plus[int](), DefaultConfig()))
	for i, v := range data {
		if v != i+1 {
			t.Fatalf("data[%d]: got %d, want %d", i, v, i+1)
		}
	}
}

func TestExclusiveScanSlices(t *testing.T) {
	q := newTestQueue(t, testCaps())
	in := []int{1, 2, 3, 4}
	out := make([]int, 4)
	require.NoError(t, ExclusiveScan(q, nil, in, out, 10, Plus[int](), DefaultConfig()))
	if diff := cmp.Diff([]int{10, 11, 13, 16}, out); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformScans(t *testing.T) {
	q := newTestQueue(t, testCaps())
	cache := device.NewAllocationCache()
	words := []string{"decoupled", "look", "back", "", "scan", "go"}
	length := func(s string) int { return len(s) }

	inclusive := make([]int, len(words))
	require.NoError(t, TransformInclusiveScan(q, cache, words, inclusive, Plus[int](), length, Config{GroupSize: 4, ChunksPerGroup: 1}))
	if diff := cmp.Diff([]int{9, 13, 17, 17, 21, 23}, inclusive); diff != "" {
		t.Errorf("inclusive mismatch (-want +got):\n%s", diff)
	}

	exclusive := make([]int, len(words))
	require.NoError(t, TransformExclusiveScan(q, cache, words, exclusive, 0, Plus[int](), length, Config{GroupSize: 4, ChunksPerGroup: 1}))
	if diff := cmp.Diff([]int{0, 9, 13, 17, 17, 21}, exclusive); diff != "" {
		t.Errorf("exclusive mismatch (-want +got):\n%s", diff)
	}

	require.ErrorIs(t, TransformInclusiveScan[string, int](q, cache, words, inclusive, Plus[int](), nil, DefaultConfig()), ErrNilGenerator)
}

func TestBuiltinOperators(t *testing.T) {
	q := newTestQueue(t, testCaps())
	cache := device.NewAllocationCache()
	cfg := Config{GroupSize: 8, ChunksPerGroup: 2}
	in := lo.Times(300, func(i int) uint32 { return uint32((i*2654435761)>>7) | 1 })

	for _, op := range []Operator[uint32]{
		Plus[uint32](), Multiplies[uint32](), Min[uint32](), Max[uint32](),
		BitOr[uint32](), BitAnd[uint32](), BitXor[uint32](),
	} {
		require.True(t, op.Native, op.Name)
		out := make([]uint32, len(in))
		require.NoError(t, InclusiveScan(q, cache, in, out, op, cfg), op.Name)
		if diff := cmp.Diff(sequential(Inclusive, in, nil, op.Fn), out); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", op.Name, diff)
		}
	}
}

// Sums of small integers are exact in float64 regardless of association.
func TestFloatScan(t *testing.T) {
	q := newTestQueue(t, testCaps())
	in := lo.Times(5000, func(i int) float64 { return float64(i%9) - 4 })
	out := make([]float64, len(in))
	require.NoError(t, InclusiveScan(q, nil, in, out, Plus[float64](), DefaultConfig()))
	if diff := cmp.Diff(sequential(Inclusive, in, nil, Plus[float64]().Fn), out); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestStringMax(t *testing.T) {
	q := newTestQueue(t, testCaps())
	in := []string{"b", "a", "d", "c", "f", "e"}
	out := make([]string, len(in))
	require.NoError(t, InclusiveScan(q, nil, in, out, Max[string](), Config{GroupSize: 2, ChunksPerGroup: 2}))
	if diff := cmp.Diff([]string{"b", "b", "d", "d", "f", "f"}, out); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	require.True(t, slices.IsSorted(out))
}
