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

package tensor

import (
	"fmt"

	"github.com/awslabs/mlio-go/datatype"
)

// COO is a coordinate-format sparse tensor: one value buffer of length
// nnz, plus one index buffer per dimension, also of length nnz.
type COO struct {
	dtype   datatype.DataType
	shape   []int
	values  interface{}
	indices [][]uint64
}

// NewCOO constructs a COO tensor from pre-built values/indices buffers.
// It validates that every index buffer has the same length as values, and
// every index is within its dimension.
func NewCOO(dt datatype.DataType, shape []int, values interface{}, indices [][]uint64) (*COO, error) {
	if len(indices) != len(shape) {
		return nil, fmt.Errorf("tensor: coo has %d index buffers but shape has rank %d", len(indices), len(shape))
	}
	nnz := reflectLen(values)
	for d, idx := range indices {
		if len(idx) != nnz {
			return nil, fmt.Errorf("tensor: coo index buffer %d has length %d, want %d", d, len(idx), nnz)
		}
		for _, v := range idx {
			if shape[d] >= 0 && v >= uint64(shape[d]) {
				return nil, fmt.Errorf("tensor: coo index %d on dim %d is out of bounds for shape %d", v, d, shape[d])
			}
		}
	}
	return &COO{dtype: dt, shape: append([]int(nil), shape...), values: values, indices: indices}, nil
}

func (c *COO) DType() datatype.DataType { return c.dtype }
func (c *COO) Shape() []int             { return c.shape }
func (c *COO) Kind() Kind               { return KindCOO }

// NNZ returns the number of stored (non-zero) entries.
func (c *COO) NNZ() int { return reflectLen(c.values) }

// Indices returns the per-dimension index buffers, dimension 0 first.
func (c *COO) Indices() [][]uint64 { return c.indices }

// Float32Values returns the value buffer as []float32.
func (c *COO) Float32Values() []float32 { return c.values.([]float32) }

// Float64Values returns the value buffer as []float64.
func (c *COO) Float64Values() []float64 { return c.values.([]float64) }

// Int32Values returns the value buffer as []int32.
func (c *COO) Int32Values() []int32 { return c.values.([]int32) }

func reflectLen(v interface{}) int {
	switch s := v.(type) {
	case []float32:
		return len(s)
	case []float64:
		return len(s)
	case []int32:
		return len(s)
	case []int64:
		return len(s)
	case []string:
		return len(s)
	default:
		return 0
	}
}
