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

// Command scanbench runs decoupled-lookback scans on the emulated device,
// verifies every result against a sequential scan and reports timings.
//
// Usage:
//
//	scanbench --size 1000000 --group-size 256 --chunks 4
//	scanbench --op custom --kind exclusive --dispatch shuffled
//	scanbench --config bench.jsonc --report out.json --metrics-addr :9090
//
// The config file is JSON with comments and trailing commas; keys match the
// long flag names with dashes replaced by underscores. Flags given on the
// command line override the file.
//
// Device limits can be overridden with LOOKBACK_COMPUTE_UNITS,
// LOOKBACK_LOCAL_MEM and LOOKBACK_NO_COLLECTIVES. LOOKBACK_SEQUENTIAL_GROUP_SCAN
// replaces the Kogge-Stone group scan with a sequential one.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/ajroetker/go-lookback/device"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "scanbench: %v\n", err)
		return 2
	}

	level, _ := cfg.level()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	order, _ := device.ParseDispatchOrder(cfg.Dispatch)
	dev := device.NewDevice(device.Detect(),
		device.WithLogger(logger),
		device.WithDispatchOrder(order),
		device.WithSeed(cfg.Seed))
	defer dev.Close()

	caps := dev.Capabilities()
	logger.Info("starting benchmark",
		"device", caps.Name, "compute_units", caps.ComputeUnits,
		"subgroup", caps.SubgroupSize, "native_collectives", caps.NativeCollectives,
		"size", cfg.Size, "group_size", cfg.GroupSize, "chunks", cfg.Chunks,
		"kind", cfg.Kind, "op", cfg.Op, "iterations", cfg.Iterations)

	b, err := newBench(cfg, dev, logger)
	if err != nil {
		fmt.Fprintf(stderr, "scanbench: %v\n", err)
		return 2
	}
	rep, err := b.run(ctx)
	if err != nil {
		logger.Error("benchmark failed", "err", err)
		return 1
	}

	fmt.Fprintf(stdout, "%s scan of %d elements (%s, %s strategy): mean %v, min %v, max %v, %.3g elements/s\n",
		cfg.Kind, cfg.Size, cfg.Op, rep.Strategy, rep.Mean, rep.Min, rep.Max, rep.ElementsPerSecond)

	if cfg.Report != "" {
		if err := writeReport(cfg.Report, rep); err != nil {
			logger.Error("cannot write report", "path", cfg.Report, "err", err)
			return 1
		}
		logger.Info("report written", "path", cfg.Report)
	}
	return 0
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}
