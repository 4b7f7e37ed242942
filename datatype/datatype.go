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

// Package datatype defines the closed set of element types a tensor can
// hold.
package datatype

import "fmt"

// DataType is the closed enum of element types supported by tensors.
type DataType uint8

const (
	Size DataType = iota
	Float16
	Float32
	Float64
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	String
)

// ElementSize returns the fixed width, in bytes, of dt's elements. String
// elements are variable-length and report 0.
func (dt DataType) ElementSize() int {
	switch dt {
	case Size, Int64, Uint64, Float64:
		return 8
	case Int32, Uint32, Float32:
		return 4
	case Float16, Int16, Uint16:
		return 2
	case Int8, Uint8:
		return 1
	case String:
		return 0
	default:
		return 0
	}
}

func (dt DataType) String() string {
	switch dt {
	case Size:
		return "size"
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case String:
		return "string"
	default:
		return fmt.Sprintf("datatype(%d)", uint8(dt))
	}
}

// IsFixedWidth reports whether dt has a fixed per-element byte size.
func (dt DataType) IsFixedWidth() bool {
	return dt != String
}
