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

// Package engine implements the parallel reader engine: a fixed worker
// pool decoding batches behind a bounded prefetch queue, with a collector
// that restores dataset order before examples reach the client.
package engine

import (
	"runtime"

	"github.com/awslabs/mlio-go/instances"
)

// Config configures an Engine. Left at zero, NumParallelReads defaults to
// the number of logical cores and NumPrefetchedExamples to NumParallelReads.
type Config struct {
	// NumPrefetchedExamples is P, the bounded depth of the public
	// ordered example queue.
	NumPrefetchedExamples int
	// NumParallelReads is W, the number of decode worker goroutines.
	NumParallelReads int
	// BatchSize is the number of instances grouped into one Example.
	BatchSize int
	// LastExamplePolicy governs a short, trailing batch at epoch end.
	LastExamplePolicy instances.LastExamplePolicy
}

// withDefaults fills zero-valued fields with their defaults.
func (c Config) withDefaults() Config {
	if c.NumParallelReads <= 0 {
		c.NumParallelReads = runtime.GOMAXPROCS(0)
	}
	if c.NumPrefetchedExamples <= 0 {
		c.NumPrefetchedExamples = c.NumParallelReads
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1
	}
	return c
}
