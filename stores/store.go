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

// Package stores implements the concrete byte-source collaborators that
// feed the reader pipeline: a data store names a dataset member and knows
// how to open a fresh streams.Stream over it.
package stores

import "github.com/awslabs/mlio-go/streams"

// Compression selects the wire-level compression a store is known (or
// inferred) to carry.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionInfer
	CompressionGzip
	CompressionZlib
)

// DataStore names one member of a dataset and can be opened for reading any
// number of times (once per epoch, typically). ID backs equality and
// deduplication; Repr backs logging.
type DataStore interface {
	OpenRead() (streams.Stream, error)
	ID() string
	Repr() string
}
