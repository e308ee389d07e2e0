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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookback_device_commands_total",
		Help: "Total number of commands executed by emulated devices",
	}, []string{"kind", "result"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lookback_device_command_duration_seconds",
		Help:    "Execution time of device commands, excluding dependency waits",
		Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
	}, []string{"kind"})

	groupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lookback_device_groups_total",
		Help: "Total number of work-groups executed",
	})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
