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

// Dense owns a contiguous typed buffer addressed by shape/strides. The
// logical element at multi-index I sits at linear offset
// sum(I[i] * Strides[i]).
//
// Buffer holds one of the typed slices ([]float32, []int64, []string, ...)
// matching DType; row decoders index into it directly rather than going
// through a byte-addressed view, which keeps the hot decode loops free of
// unsafe casts.
type Dense struct {
	dtype   datatype.DataType
	shape   []int
	strides []int
	buffer  interface{}
}

// NewDense allocates a Dense tensor of the given shape and zero-fills its
// buffer. The caller is expected to have already size-checked shape
// against the configured batch size.
func NewDense(dt datatype.DataType, shape []int) *Dense {
	n := product(shape)
	return &Dense{
		dtype:   dt,
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		buffer:  newBuffer(dt, n),
	}
}

// NewDenseWithStrides is like NewDense but uses explicit strides; the
// buffer is sized so that (max_index * |stride|) + 1 <= buffer_len.
func NewDenseWithStrides(dt datatype.DataType, shape, strides []int) (*Dense, error) {
	if len(strides) != len(shape) {
		return nil, fmt.Errorf("tensor: strides length %d does not match shape length %d", len(strides), len(shape))
	}
	maxOffset := 0
	for i, s := range shape {
		if s == 0 {
			continue
		}
		maxOffset += (s - 1) * abs(strides[i])
	}
	n := maxOffset + 1
	if product(shape) == 0 {
		n = 0
	}
	return &Dense{
		dtype:   dt,
		shape:   append([]int(nil), shape...),
		strides: append([]int(nil), strides...),
		buffer:  newBuffer(dt, n),
	}, nil
}

func (d *Dense) DType() datatype.DataType { return d.dtype }
func (d *Dense) Shape() []int             { return d.shape }
func (d *Dense) Strides() []int           { return d.strides }
func (d *Dense) Kind() Kind               { return KindDense }

// Offset computes the linear buffer offset for multi-index idx.
func (d *Dense) Offset(idx []int) int {
	off := 0
	for i, v := range idx {
		off += v * d.strides[i]
	}
	return off
}

// Float32 returns the buffer as []float32, panicking if DType is not Float32.
func (d *Dense) Float32() []float32 { return d.buffer.([]float32) }

// Float64 returns the buffer as []float64.
func (d *Dense) Float64() []float64 { return d.buffer.([]float64) }

// Int8 returns the buffer as []int8.
func (d *Dense) Int8() []int8 { return d.buffer.([]int8) }

// Int16 returns the buffer as []int16.
func (d *Dense) Int16() []int16 { return d.buffer.([]int16) }

// Int32 returns the buffer as []int32.
func (d *Dense) Int32() []int32 { return d.buffer.([]int32) }

// Int64 returns the buffer as []int64.
func (d *Dense) Int64() []int64 { return d.buffer.([]int64) }

// Uint8 returns the buffer as []uint8.
func (d *Dense) Uint8() []uint8 { return d.buffer.([]uint8) }

// Uint16 returns the buffer as []uint16.
func (d *Dense) Uint16() []uint16 { return d.buffer.([]uint16) }

// Uint32 returns the buffer as []uint32.
func (d *Dense) Uint32() []uint32 { return d.buffer.([]uint32) }

// Uint64 returns the buffer as []uint64.
func (d *Dense) Uint64() []uint64 { return d.buffer.([]uint64) }

// Size returns the buffer as []uint64 (platform unsigned index type).
func (d *Dense) Size() []uint64 { return d.buffer.([]uint64) }

// String returns the buffer as []string.
func (d *Dense) String() []string { return d.buffer.([]string) }

// ZeroRow zero-fills the row at index rowIdx along the leading dimension,
// used to satisfy Pad/PadWarn last-example and bad-example handling.
func (d *Dense) ZeroRow(rowIdx int) {
	if len(d.shape) == 0 {
		return
	}
	rowLen := product(d.shape[1:])
	start := rowIdx * rowLen
	switch buf := d.buffer.(type) {
	case []float32:
		zeroRange(buf, start, rowLen)
	case []float64:
		zeroRange(buf, start, rowLen)
	case []int8:
		zeroRange(buf, start, rowLen)
	case []int16:
		zeroRange(buf, start, rowLen)
	case []int32:
		zeroRange(buf, start, rowLen)
	case []int64:
		zeroRange(buf, start, rowLen)
	case []uint8:
		zeroRange(buf, start, rowLen)
	case []uint16:
		zeroRange(buf, start, rowLen)
	case []uint32:
		zeroRange(buf, start, rowLen)
	case []uint64:
		zeroRange(buf, start, rowLen)
	case []string:
		for i := start; i < start+rowLen && i < len(buf); i++ {
			buf[i] = ""
		}
	}
}

func zeroRange[T any](buf []T, start, length int) {
	var zero T
	for i := start; i < start+length && i < len(buf); i++ {
		buf[i] = zero
	}
}

func newBuffer(dt datatype.DataType, n int) interface{} {
	switch dt {
	case datatype.Float32:
		return make([]float32, n)
	case datatype.Float64:
		return make([]float64, n)
	case datatype.Int8:
		return make([]int8, n)
	case datatype.Int16:
		return make([]int16, n)
	case datatype.Int32:
		return make([]int32, n)
	case datatype.Int64:
		return make([]int64, n)
	case datatype.Uint8:
		return make([]uint8, n)
	case datatype.Uint16:
		return make([]uint16, n)
	case datatype.Uint32:
		return make([]uint32, n)
	case datatype.Uint64:
		return make([]uint64, n)
	case datatype.Size:
		return make([]uint64, n)
	case datatype.String:
		return make([]string, n)
	default:
		panic(fmt.Sprintf("tensor: unsupported data type %v", dt))
	}
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
