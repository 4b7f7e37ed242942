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

// Package schema describes the shape of decoded examples: named,
// typed, possibly-sparse attributes grouped into an ordered schema.
package schema

import (
	"fmt"

	"github.com/awslabs/mlio-go/datatype"
)

// Attribute describes a single named feature: its element type, dense
// shape, strides and whether it materializes as a sparse tensor.
type Attribute struct {
	Name    string
	DType   datatype.DataType
	Shape   []int
	Strides []int
	Sparse  bool
}

// AttributeBuilder constructs an Attribute with row-major default strides
// unless WithStrides overrides them.
type AttributeBuilder struct {
	attr Attribute
}

func NewAttributeBuilder(name string, dt datatype.DataType, shape []int) *AttributeBuilder {
	b := &AttributeBuilder{attr: Attribute{Name: name, DType: dt, Shape: append([]int(nil), shape...)}}
	b.attr.Strides = rowMajorStrides(b.attr.Shape)
	return b
}

func (b *AttributeBuilder) WithStrides(strides []int) *AttributeBuilder {
	b.attr.Strides = append([]int(nil), strides...)
	return b
}

func (b *AttributeBuilder) WithSparsity(sparse bool) *AttributeBuilder {
	b.attr.Sparse = sparse
	return b
}

func (b *AttributeBuilder) Build() Attribute {
	return b.attr
}

// rowMajorStrides computes strides[i] = product(shape[i+1:]).
func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// Validate checks the shape/strides invariant: len(Strides) == len(Shape).
func (a Attribute) Validate() error {
	if len(a.Strides) != len(a.Shape) {
		return fmt.Errorf("attribute %q: strides length %d does not match shape length %d",
			a.Name, len(a.Strides), len(a.Shape))
	}
	return nil
}

// Equal reports element-wise equality between two attributes.
func (a Attribute) Equal(other Attribute) bool {
	if a.Name != other.Name || a.DType != other.DType || a.Sparse != other.Sparse {
		return false
	}
	if len(a.Shape) != len(other.Shape) || len(a.Strides) != len(other.Strides) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != other.Shape[i] {
			return false
		}
	}
	for i := range a.Strides {
		if a.Strides[i] != other.Strides[i] {
			return false
		}
	}
	return true
}
