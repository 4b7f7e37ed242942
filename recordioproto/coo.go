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

package recordioproto

import (
	"github.com/awslabs/mlio-go/datatype"
	"github.com/awslabs/mlio-go/schema"
	"github.com/awslabs/mlio-go/tensor"
)

// cooBuilder accumulates one sparse feature across a batch into per-
// dimension coordinate slices plus a flat value slice: coordinates[0] is
// the batch/row dimension, coordinates[1:] are the feature's own
// dimensions, recovered from each wire key by successive div/mod against
// the attribute's row-major strides.
type cooBuilder struct {
	attr      schema.Attribute
	batchSize int
	rowIdx    int

	float32Values []float32
	float64Values []float64
	int32Values   []int32

	coordinates [][]uint64
}

func newCOOBuilder(attr schema.Attribute, batchSize int) *cooBuilder {
	return &cooBuilder{
		attr:        attr,
		batchSize:   batchSize,
		coordinates: make([][]uint64, len(attr.Shape)),
	}
}

// appendFloat32/appendFloat64/appendInt32 append one instance's sparse
// values/keys and advance the row cursor. They report false when a key
// decodes to an out-of-bounds coordinate on any inner dimension.
func (b *cooBuilder) appendFloat32(values []float32, keys []uint64) bool {
	if !b.appendIndices(keys) {
		return false
	}
	b.float32Values = append(b.float32Values, values...)
	return true
}

func (b *cooBuilder) appendFloat64(values []float64, keys []uint64) bool {
	if !b.appendIndices(keys) {
		return false
	}
	b.float64Values = append(b.float64Values, values...)
	return true
}

func (b *cooBuilder) appendInt32(values []int32, keys []uint64) bool {
	if !b.appendIndices(keys) {
		return false
	}
	b.int32Values = append(b.int32Values, values...)
	return true
}

// appendIndices decomposes each key in keys into coordinates on every
// inner (non-batch) dimension: for each dimension d in the attribute's
// declared order, dim_idx = idx / strides[d]; bounds-check against
// shape[d]; idx %= strides[d]. The current row index is pushed once per
// key into coordinates[0].
func (b *cooBuilder) appendIndices(keys []uint64) bool {
	shape := b.attr.Shape[1:]
	strides := b.attr.Strides[1:]

	for _, key := range keys {
		idx := key
		rowCoords := make([]uint64, len(shape))
		for d, stride := range strides {
			var dimIdx uint64
			if stride > 0 {
				dimIdx = idx / uint64(stride)
			}
			if dimIdx >= uint64(shape[d]) {
				return false
			}
			rowCoords[d] = dimIdx
			if stride > 0 {
				idx %= uint64(stride)
			}
		}
		b.coordinates[0] = append(b.coordinates[0], uint64(b.rowIdx))
		for d, c := range rowCoords {
			b.coordinates[d+1] = append(b.coordinates[d+1], c)
		}
	}
	b.rowIdx++
	return true
}

// build finalizes the accumulated values/coordinates into a COO tensor,
// overriding the batch dimension with the configured batch size to
// account for any Pad/PadWarn padding.
func (b *cooBuilder) build() (*tensor.COO, error) {
	shape := append([]int(nil), b.attr.Shape...)
	shape[0] = b.batchSize

	switch b.attr.DType {
	case datatype.Float32:
		return tensor.NewCOO(datatype.Float32, shape, b.float32Values, b.coordinates)
	case datatype.Float64:
		return tensor.NewCOO(datatype.Float64, shape, b.float64Values, b.coordinates)
	case datatype.Int32:
		return tensor.NewCOO(datatype.Int32, shape, b.int32Values, b.coordinates)
	default:
		return tensor.NewCOO(b.attr.DType, shape, b.float32Values, b.coordinates)
	}
}
