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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/mlio-go/datatype"
)

func TestDenseRowMajorOffsets(t *testing.T) {
	d := NewDense(datatype.Float32, []int{2, 3})

	assert.Equal(t, []int{3, 1}, d.Strides())
	assert.Equal(t, 0, d.Offset([]int{0, 0}))
	assert.Equal(t, 4, d.Offset([]int{1, 1}))
	assert.Equal(t, 5, d.Offset([]int{1, 2}))
	assert.Len(t, d.Float32(), 6)
}

func TestDenseZeroRow(t *testing.T) {
	d := NewDense(datatype.Int64, []int{3, 2})
	buf := d.Int64()
	for i := range buf {
		buf[i] = int64(i + 1)
	}

	d.ZeroRow(1)

	assert.Equal(t, []int64{1, 2, 0, 0, 5, 6}, buf)
}

func TestDenseStringBuffer(t *testing.T) {
	d := NewDense(datatype.String, []int{2, 1})
	d.String()[0] = "x"
	d.ZeroRow(0)
	assert.Equal(t, []string{"", ""}, d.String())
}

func TestDenseWithStridesValidatesRank(t *testing.T) {
	_, err := NewDenseWithStrides(datatype.Float32, []int{2, 2}, []int{1})
	require.Error(t, err)
}

func TestVisitDispatchesByVariant(t *testing.T) {
	var visited Kind = -1
	Visit(NewDense(datatype.Float32, []int{1}), func(*Dense) { visited = KindDense }, nil, nil)
	assert.Equal(t, KindDense, visited)
}

func TestCOOValidatesIndexBufferLengths(t *testing.T) {
	_, err := NewCOO(datatype.Float32, []int{2, 2}, []float32{1, 2}, [][]uint64{{0, 1}, {0}})
	require.Error(t, err)
}

func TestCOOValidatesIndexBounds(t *testing.T) {
	_, err := NewCOO(datatype.Float32, []int{2, 2}, []float32{1}, [][]uint64{{0}, {2}})
	require.Error(t, err)
}

func TestCOOHoldsValuesAndIndices(t *testing.T) {
	coo, err := NewCOO(datatype.Float32, []int{3, 4}, []float32{1, 2, 3}, [][]uint64{
		{0, 1, 2},
		{0, 1, 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, coo.NNZ())
	assert.Equal(t, KindCOO, coo.Kind())
	assert.Equal(t, []float32{1, 2, 3}, coo.Float32Values())
}

func TestCSRValidatesIndptrLength(t *testing.T) {
	_, err := NewCSR(datatype.Float32, []int{2, 3}, []float32{1}, []uint64{0}, []uint64{0, 1})
	require.Error(t, err)
}

func TestCSRFromCOO(t *testing.T) {
	// 3x4 matrix with entries at (0,0), (1,1), (1,3), (2,2).
	coo, err := NewCOO(datatype.Float32, []int{3, 4}, []float32{1, 2, 3, 4}, [][]uint64{
		{0, 1, 1, 2},
		{0, 1, 3, 2},
	})
	require.NoError(t, err)

	csr, err := FromCOO(coo)
	require.NoError(t, err)

	assert.Equal(t, []uint64{0, 1, 3, 4}, csr.Indptr())
	assert.Equal(t, []uint64{0, 1, 3, 2}, csr.Indices())
	assert.Equal(t, []float32{1, 2, 3, 4}, csr.Float32Data())
}

func TestCSRFromCOORejectsHigherRank(t *testing.T) {
	coo, err := NewCOO(datatype.Float32, []int{2, 2, 2}, []float32{1}, [][]uint64{{0}, {0}, {0}})
	require.NoError(t, err)

	_, err = FromCOO(coo)
	require.Error(t, err)
}
