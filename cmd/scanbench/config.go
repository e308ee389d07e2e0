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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	"github.com/ajroetker/go-lookback/device"
)

var (
	errConfigInvalid = errors.New("invalid config")
	errConfigRead    = errors.New("cannot read config file")
)

// Config holds all benchmark options. Precedence, lowest first: defaults,
// the --config file, command-line flags.
type Config struct {
	Size        int    `json:"size"`
	GroupSize   int    `json:"group_size"`
	Chunks      int    `json:"chunks"`
	Kind        string `json:"kind"`
	Op          string `json:"op"`
	Queue       string `json:"queue"`
	Dispatch    string `json:"dispatch"`
	Iterations  int    `json:"iterations"`
	Parallel    int    `json:"parallel"`
	Seed        uint64 `json:"seed"`
	Report      string `json:"report,omitempty"`
	MetricsAddr string `json:"metrics_addr,omitempty"`
	LogLevel    string `json:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Size:       1 << 20,
		GroupSize:  128,
		Chunks:     2,
		Kind:       "inclusive",
		Op:         "plus",
		Queue:      "in-order",
		Dispatch:   "natural",
		Iterations: 5,
		Parallel:   1,
		Seed:       1,
		LogLevel:   "info",
	}
}

// parseArgs builds the configuration from the command line.
func parseArgs(args []string, stderr io.Writer) (Config, error) {
	var fl Config
	def := DefaultConfig()

	fs := flag.NewFlagSet("scanbench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "JSONC config file")
	fs.IntVar(&fl.Size, "size", def.Size, "Number of elements to scan")
	fs.IntVar(&fl.GroupSize, "group-size", def.GroupSize, "Lanes per work-group")
	fs.IntVar(&fl.Chunks, "chunks", def.Chunks, "Chunks per work-group")
	fs.StringVar(&fl.Kind, "kind", def.Kind, "Scan kind (inclusive|exclusive)")
	fs.StringVar(&fl.Op, "op", def.Op, "Operator (plus|min|max|xor|custom)")
	fs.StringVar(&fl.Queue, "queue", def.Queue, "Queue type (in-order|out-of-order)")
	fs.StringVar(&fl.Dispatch, "dispatch", def.Dispatch, "Group dispatch order (natural|reverse|shuffled)")
	fs.IntVar(&fl.Iterations, "iterations", def.Iterations, "Number of scans to run")
	fs.IntVar(&fl.Parallel, "parallel", def.Parallel, "Scans in flight at the same time")
	fs.Uint64Var(&fl.Seed, "seed", def.Seed, "Seed for inputs and shuffled dispatch")
	fs.StringVar(&fl.Report, "report", def.Report, "Write a JSON report to this path")
	fs.StringVar(&fl.MetricsAddr, "metrics-addr", def.MetricsAddr, "Serve Prometheus metrics on this address while running")
	fs.StringVar(&fl.LogLevel, "log-level", def.LogLevel, "Log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = loadConfigFile(*configPath, cfg); err != nil {
			return Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "size":
			cfg.Size = fl.Size
		case "group-size":
			cfg.GroupSize = fl.GroupSize
		case "chunks":
			cfg.Chunks = fl.Chunks
		case "kind":
			cfg.Kind = fl.Kind
		case "op":
			cfg.Op = fl.Op
		case "queue":
			cfg.Queue = fl.Queue
		case "dispatch":
			cfg.Dispatch = fl.Dispatch
		case "iterations":
			cfg.Iterations = fl.Iterations
		case "parallel":
			cfg.Parallel = fl.Parallel
		case "seed":
			cfg.Seed = fl.Seed
		case "report":
			cfg.Report = fl.Report
		case "metrics-addr":
			cfg.MetricsAddr = fl.MetricsAddr
		case "log-level":
			cfg.LogLevel = fl.LogLevel
		}
	})

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadConfigFile overlays the JSONC file at path onto base. Fields missing
// from the file keep their value from base.
func loadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", errConfigRead, err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: invalid JSONC: %w", errConfigInvalid, path, err)
	}
	cfg := base
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Size < 0:
		return fmt.Errorf("%w: size must not be negative", errConfigInvalid)
	case c.Iterations <= 0:
		return fmt.Errorf("%w: iterations must be positive", errConfigInvalid)
	case c.Parallel <= 0:
		return fmt.Errorf("%w: parallel must be positive", errConfigInvalid)
	case c.Queue != "in-order" && c.Queue != "out-of-order":
		return fmt.Errorf("%w: unknown queue %q", errConfigInvalid, c.Queue)
	}
	if _, err := parseKind(c.Kind); err != nil {
		return err
	}
	if _, err := parseOp(c.Op); err != nil {
		return err
	}
	if _, err := device.ParseDispatchOrder(c.Dispatch); err != nil {
		return fmt.Errorf("%w: %w", errConfigInvalid, err)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: %w", errConfigInvalid, err)
	}
	return level, nil
}
