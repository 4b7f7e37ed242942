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

import "fmt"

// Schema is an ordered, immutable list of attributes plus a name-to-index
// lookup. Once constructed it is safe to share across goroutines: all
// examples decoded from the same data reader reference the same *Schema.
type Schema struct {
	attrs   []Attribute
	indices map[string]int
}

// New builds a Schema from attrs, validating name uniqueness.
func New(attrs []Attribute) (*Schema, error) {
	indices := make(map[string]int, len(attrs))
	for i, a := range attrs {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, exists := indices[a.Name]; exists {
			return nil, fmt.Errorf("schema: duplicate attribute name %q", a.Name)
		}
		indices[a.Name] = i
	}
	return &Schema{attrs: append([]Attribute(nil), attrs...), indices: indices}, nil
}

// Attributes returns the ordered attribute list.
func (s *Schema) Attributes() []Attribute {
	return s.attrs
}

// Len returns the number of attributes in the schema.
func (s *Schema) Len() int {
	return len(s.attrs)
}

// IndexOf returns the attribute index for name, or (0, false) if absent.
func (s *Schema) IndexOf(name string) (int, bool) {
	idx, ok := s.indices[name]
	return idx, ok
}

// At returns the attribute at idx.
func (s *Schema) At(idx int) Attribute {
	return s.attrs[idx]
}

// Equal reports whether two schemas have the same attributes, in order.
func (s *Schema) Equal(other *Schema) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	if len(s.attrs) != len(other.attrs) {
		return false
	}
	for i := range s.attrs {
		if !s.attrs[i].Equal(other.attrs[i]) {
			return false
		}
	}
	return true
}
