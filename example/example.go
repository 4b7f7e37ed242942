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

// Package example holds the batched, decoded Example type shared by every
// decoder strategy (csv, recordioproto) and consumed by the parallel
// reader engine.
package example

import (
	"fmt"

	"github.com/awslabs/mlio-go/schema"
	"github.com/awslabs/mlio-go/tensor"
)

// Example is a batched set of named, typed tensors sharing a schema.
// Padding counts trailing rows that are zero-filled because the batch that
// produced this example was short (last-example or bad-example policy).
type Example struct {
	Schema   *schema.Schema
	Features []tensor.Tensor
	Padding  int
}

// Validate checks the example invariants: one feature per attribute, in
// order, with matching dtype, and shape[0] bounded by batchSize.
func (e *Example) Validate(batchSize int) error {
	attrs := e.Schema.Attributes()
	if len(e.Features) != len(attrs) {
		return fmt.Errorf("example: %d features but schema has %d attributes", len(e.Features), len(attrs))
	}
	for i, f := range e.Features {
		if f.DType() != attrs[i].DType {
			return fmt.Errorf("example: feature %q has dtype %v, schema declares %v", attrs[i].Name, f.DType(), attrs[i].DType)
		}
		shape := f.Shape()
		if len(shape) > 0 && shape[0] > batchSize {
			return fmt.Errorf("example: feature %q has leading dimension %d exceeding batch size %d", attrs[i].Name, shape[0], batchSize)
		}
	}
	return nil
}
