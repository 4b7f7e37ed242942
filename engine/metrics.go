// Licensed to Elasticsearch B.V. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Elasticsearch B.V. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the engine's prefetch queue depth and bad-example
// counters to Prometheus.
type Metrics struct {
	queueDepth prometheus.Gauge
	skipped    prometheus.Counter
	padded     prometheus.Counter
	paddedRows prometheus.Counter
}

// NewMetrics registers a fresh Metrics set with reg. The engine sets
// queueDepth directly at each enqueue/dequeue rather than polling, so
// construction order doesn't matter.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mlio",
			Subsystem: "engine",
			Name:      "prefetch_queue_depth",
			Help:      "Number of decoded examples currently buffered ahead of the client.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mlio",
			Subsystem: "engine",
			Name:      "examples_skipped_total",
			Help:      "Examples dropped entirely under the Skip/SkipWarn bad-example policy.",
		}),
		padded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mlio",
			Subsystem: "engine",
			Name:      "examples_padded_total",
			Help:      "Examples delivered with one or more zero-padded rows under Pad/PadWarn.",
		}),
		paddedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mlio",
			Subsystem: "engine",
			Name:      "padded_rows_total",
			Help:      "Total number of zero-padded rows across all delivered examples.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.queueDepth, m.skipped, m.padded, m.paddedRows)
	}

	return m
}

func (m *Metrics) observeSkip() {
	if m != nil {
		m.skipped.Inc()
	}
}

func (m *Metrics) observePadding(rows int) {
	if m == nil || rows <= 0 {
		return
	}
	m.padded.Inc()
	m.paddedRows.Add(float64(rows))
}

func (m *Metrics) setQueueDepth(n int) {
	if m != nil {
		m.queueDepth.Set(float64(n))
	}
}
