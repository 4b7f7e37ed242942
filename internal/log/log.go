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

// Package log centralizes logger construction: one named *logp.Logger per
// subsystem, used for the "warn" variants of the last-example and
// bad-example policies and for store/stream diagnostics.
package log

import "github.com/elastic/beats/v7/libbeat/logp"

// Names of the loggers used across the reader pipeline. Keeping them in
// one place makes it easy to correlate a log line with the component that
// emitted it.
const (
	Engine    = "mlio.engine"
	Instances = "mlio.instances"
	Records   = "mlio.records"
	CSV       = "mlio.csv"
	RecordIO  = "mlio.recordioproto"
	Sharding  = "mlio.sharding"
	Stores    = "mlio.stores"
)

// New returns a named structured logger.
func New(name string) *logp.Logger {
	return logp.NewLogger(name)
}
