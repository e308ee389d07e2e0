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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-lookback/device"
	"github.com/ajroetker/go-lookback/device/contrib/scan"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := parseArgs(nil, io.Discard)
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParseArgsPrecedence(t *testing.T) {
	path := writeFile(t, "bench.jsonc", `{
		// Comments and trailing commas are allowed.
		"size": 5000,
		"chunks": 4,
		"kind": "exclusive",
		"log_level": "debug",
	}`)

	cfg, err := parseArgs([]string{"--config", path, "--chunks", "3", "--op=max"}, io.Discard)
	require.NoError(t, err)

	want := DefaultConfig()
	want.Size = 5000
	want.Chunks = 3
	want.Kind = "exclusive"
	want.Op = "max"
	want.LogLevel = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown op", []string{"--op", "divide"}},
		{"unknown kind", []string{"--kind", "sideways"}},
		{"unknown queue", []string{"--queue", "lifo"}},
		{"unknown dispatch", []string{"--dispatch", "random"}},
		{"zero iterations", []string{"--iterations", "0"}},
		{"bad level", []string{"--log-level", "loud"}},
		{"unknown flag", []string{"--frobnicate"}},
		{"missing config", []string{"--config", "/does/not/exist.jsonc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseArgs(tt.args, io.Discard)
			require.Error(t, err)
		})
	}

	bad := writeFile(t, "bad.jsonc", `{"size": "big"}`)
	_, err := parseArgs([]string{"--config", bad}, io.Discard)
	require.ErrorIs(t, err, errConfigInvalid)
}

func TestVerify(t *testing.T) {
	add := scan.Plus[int64]().Fn
	in := []int64{1, 2, 3}
	zero := int64(0)

	_, ok := verify(scan.Inclusive, in, []int64{1, 3, 6}, nil, add)
	require.True(t, ok)
	_, ok = verify(scan.Exclusive, in, []int64{0, 1, 3}, &zero, add)
	require.True(t, ok)
	i, ok := verify(scan.Inclusive, in, []int64{1, 3, 7}, nil, add)
	require.False(t, ok)
	require.Equal(t, 2, i)
}

func TestRunRejectsBadGeometry(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--size", "100", "--chunks", "0", "--iterations", "1"}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "chunks per group")
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), []string{"--help"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "--group-size")
}

func TestReportKeys(t *testing.T) {
	data, err := json.Marshal(Report{Config: DefaultConfig(), Device: device.Detect()})
	require.NoError(t, err)

	var raw struct {
		Config map[string]any `json:"config"`
		Device map[string]any `json:"device"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw.Config, "group_size")
	for _, key := range []string{"name", "compute_units", "max_group_size", "local_mem_size", "subgroup_size", "native_collectives"} {
		require.Contains(t, raw.Device, key)
	}
	require.NotContains(t, raw.Device, "ComputeUnits")
}
