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

// CSR is a compressed-sparse-row matrix: Data/Indices of length nnz, and
// Indptr of length rows+1. Rank is at most 2.
type CSR struct {
	dtype   datatype.DataType
	shape   []int
	data    interface{}
	indices []uint64
	indptr  []uint64
}

// NewCSR constructs a CSR tensor, validating rank <= 2 and the indptr/data
// length relationship.
func NewCSR(dt datatype.DataType, shape []int, data interface{}, indices, indptr []uint64) (*CSR, error) {
	if len(shape) > 2 {
		return nil, fmt.Errorf("tensor: csr shape rank %d exceeds 2", len(shape))
	}
	nnz := reflectLen(data)
	if len(indices) != nnz {
		return nil, fmt.Errorf("tensor: csr indices length %d does not match data length %d", len(indices), nnz)
	}
	rows := 0
	if len(shape) > 0 {
		rows = shape[0]
	}
	if len(indptr) != rows+1 {
		return nil, fmt.Errorf("tensor: csr indptr length %d does not match rows+1 (%d)", len(indptr), rows+1)
	}
	return &CSR{
		dtype:   dt,
		shape:   append([]int(nil), shape...),
		data:    data,
		indices: append([]uint64(nil), indices...),
		indptr:  append([]uint64(nil), indptr...),
	}, nil
}

// FromCOO converts a row-major-sorted COO matrix (rank-2, row index in
// dimension 0) into CSR form. The decoders only ever materialize COO
// tensors for sparse features; this conversion serves clients that prefer
// compressed rows.
func FromCOO(c *COO) (*CSR, error) {
	if len(c.shape) != 2 {
		return nil, fmt.Errorf("tensor: csr conversion requires rank-2 shape, got %d", len(c.shape))
	}
	rows := c.shape[0]
	rowIdx := c.indices[0]
	colIdx := c.indices[1]
	indptr := make([]uint64, rows+1)
	for _, r := range rowIdx {
		indptr[r+1]++
	}
	for i := 1; i <= rows; i++ {
		indptr[i] += indptr[i-1]
	}
	return &CSR{
		dtype:   c.dtype,
		shape:   append([]int(nil), c.shape...),
		data:    c.values,
		indices: append([]uint64(nil), colIdx...),
		indptr:  indptr,
	}, nil
}

func (c *CSR) DType() datatype.DataType { return c.dtype }
func (c *CSR) Shape() []int             { return c.shape }
func (c *CSR) Kind() Kind               { return KindCSR }
func (c *CSR) Indices() []uint64        { return c.indices }
func (c *CSR) Indptr() []uint64         { return c.indptr }
func (c *CSR) Float32Data() []float32   { return c.data.([]float32) }
