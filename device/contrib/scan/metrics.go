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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	launchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookback_scan_launches_total",
		Help: "Total number of decoupled-lookback scans submitted",
	}, []string{"kind", "strategy"})

	lookbackDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lookback_scan_lookback_depth",
		Help:    "Number of predecessor groups visited by one lookback",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)
