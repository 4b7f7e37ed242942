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

// Package tensor implements the polymorphic tensor variants (dense, COO,
// CSR) that back decoded example features.
package tensor

import (
	"fmt"

	"github.com/awslabs/mlio-go/datatype"
)

// Tensor is implemented by Dense, COO and CSR. Visitor-style dispatch
// over the three variants is an exhaustive type switch on Kind().
type Tensor interface {
	DType() datatype.DataType
	Shape() []int
	Kind() Kind
}

// Kind discriminates the tensor variants for exhaustive switch dispatch.
type Kind int

const (
	KindDense Kind = iota
	KindCOO
	KindCSR
)

func (k Kind) String() string {
	switch k {
	case KindDense:
		return "dense"
	case KindCOO:
		return "coo"
	case KindCSR:
		return "csr"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Visit dispatches t to the matching callback, if that callback is
// non-nil. Any other concrete type that satisfies Tensor compiles but
// makes Visit panic.
func Visit(t Tensor, onDense func(*Dense), onCOO func(*COO), onCSR func(*CSR)) {
	switch v := t.(type) {
	case *Dense:
		if onDense != nil {
			onDense(v)
		}
	case *COO:
		if onCOO != nil {
			onCOO(v)
		}
	case *CSR:
		if onCSR != nil {
			onCSR(v)
		}
	default:
		panic(fmt.Sprintf("tensor: unhandled variant %T", t))
	}
}
