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

// Package decode defines the narrow contract between the parallel reader
// engine and a concrete decoder (csv, recordioproto). Both csv.Reader and
// recordioproto.Reader implement Strategy; engine.Engine holds one.
package decode

import (
	"github.com/awslabs/mlio-go/example"
	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/records"
	"github.com/awslabs/mlio-go/schema"
	"github.com/awslabs/mlio-go/streams"
)

// BadExamplePolicy governs how a decoder reacts to a single malformed
// instance within an otherwise valid batch.
type BadExamplePolicy int

const (
	BadExampleError BadExamplePolicy = iota
	BadExampleSkip
	BadExampleSkipWarn
	BadExamplePad
	BadExamplePadWarn
)

// Warns reports whether p is one of the "Warn" variants that must emit a
// structured log line in addition to its non-warning behavior.
func (p BadExamplePolicy) Warns() bool {
	return p == BadExampleSkipWarn || p == BadExamplePadWarn
}

// Pads reports whether p's non-error behavior is to zero-fill rather than
// drop.
func (p BadExamplePolicy) Pads() bool {
	return p == BadExamplePad || p == BadExamplePadWarn
}

// Strategy is the three-hook decoder contract: construct a record reader
// for a store, infer a schema from the first instance of the dataset, and
// decode one batch of instances into an Example. Decode returns (nil, nil)
// when the whole batch should be dropped (BadExampleSkip/SkipWarn with a
// bad instance present).
type Strategy interface {
	MakeRecordReader(s streams.Stream) (records.Reader, error)
	InferSchema(first *instances.Instance) (*schema.Schema, error)
	Decode(batch *instances.Batch) (*example.Example, error)
}
