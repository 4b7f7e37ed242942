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

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/mlio-go/datatype"
)

func TestAttributeBuilderDefaultsToRowMajorStrides(t *testing.T) {
	attr := NewAttributeBuilder("x", datatype.Float32, []int{2, 3, 4}).Build()
	assert.Equal(t, []int{12, 4, 1}, attr.Strides)
	assert.False(t, attr.Sparse)
}

func TestAttributeBuilderStrideAndSparsityOverrides(t *testing.T) {
	attr := NewAttributeBuilder("x", datatype.Float32, []int{2, 2}).
		WithStrides([]int{1, 2}).
		WithSparsity(true).
		Build()
	assert.Equal(t, []int{1, 2}, attr.Strides)
	assert.True(t, attr.Sparse)
}

func TestAttributeValidateRejectsMismatchedStrides(t *testing.T) {
	attr := Attribute{Name: "x", DType: datatype.Float32, Shape: []int{2}, Strides: []int{2, 1}}
	require.Error(t, attr.Validate())
}

func TestSchemaRejectsDuplicateNames(t *testing.T) {
	a := NewAttributeBuilder("x", datatype.Float32, []int{1}).Build()
	_, err := New([]Attribute{a, a})
	require.Error(t, err)
}

func TestSchemaLookup(t *testing.T) {
	sch, err := New([]Attribute{
		NewAttributeBuilder("a", datatype.Int64, []int{4, 1}).Build(),
		NewAttributeBuilder("b", datatype.String, []int{4, 1}).Build(),
	})
	require.NoError(t, err)

	idx, ok := sch.IndexOf("b")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "b", sch.At(idx).Name)

	_, ok = sch.IndexOf("missing")
	assert.False(t, ok)
}

func TestSchemaEqualityIsElementWise(t *testing.T) {
	attrs := []Attribute{NewAttributeBuilder("a", datatype.Int64, []int{4, 1}).Build()}
	s1, err := New(attrs)
	require.NoError(t, err)
	s2, err := New(attrs)
	require.NoError(t, err)

	assert.True(t, s1.Equal(s2))

	s3, err := New([]Attribute{NewAttributeBuilder("a", datatype.Int32, []int{4, 1}).Build()})
	require.NoError(t, err)
	assert.False(t, s1.Equal(s3))
}
