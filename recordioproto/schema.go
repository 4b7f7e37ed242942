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
	"sort"

	"github.com/awslabs/mlio-go/datatype"
	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/schema"
)

// labelNamePrefix disambiguates a label key from a features key of the
// same name.
const labelNamePrefix = "label_"

// inferSchema builds a Schema from the first instance's Record message:
// every label entry becomes an attribute named "label_"+key, every
// features entry becomes an attribute named by its key, each classified
// dense or sparse from its keys/shape/values layout. It also returns
// numValuesPerInstance, the sum of each dense attribute's per-row element
// count, used for the parallel-decode cutoff.
func (r *Reader) inferSchema(first *instances.Instance) (*schema.Schema, int, error) {
	if err := first.Load(); err != nil {
		return nil, 0, err
	}
	rec, err := UnmarshalRecord(first.Bits.Bytes())
	if err != nil {
		return nil, 0, mlioerr.SchemaErrorf("the schema of the data store %q cannot be inferred: %v", first.Store.ID(), err)
	}

	type named struct {
		name  string
		value *Value
	}
	var entries []named
	labelNames := make([]string, 0, len(rec.Label))
	for k := range rec.Label {
		labelNames = append(labelNames, k)
	}
	sort.Strings(labelNames)
	for _, k := range labelNames {
		entries = append(entries, named{labelNamePrefix + k, rec.Label[k]})
	}
	featureNames := make([]string, 0, len(rec.Features))
	for k := range rec.Features {
		featureNames = append(featureNames, k)
	}
	sort.Strings(featureNames)
	for _, k := range featureNames {
		entries = append(entries, named{k, rec.Features[k]})
	}

	attrs := make([]schema.Attribute, 0, len(entries))
	numValues := 0
	for _, e := range entries {
		attr, rowValues, err := r.makeAttribute(e.name, e.value, first)
		if err != nil {
			return nil, 0, err
		}
		attrs = append(attrs, attr)
		numValues += rowValues
	}

	sch, err := schema.New(attrs)
	if err != nil {
		return nil, 0, mlioerr.SchemaError(err.Error())
	}
	return sch, numValues, nil
}

// makeAttribute classifies a single Value into a schema Attribute: a
// tensor with non-empty keys is always sparse (and must carry a shape); a
// tensor with
// empty keys and a non-empty shape but empty values is a sparse
// shape-only declaration; a tensor with empty keys and non-empty values
// is dense, with shape either the declared one or, if absent, a single
// inner dimension sized to len(values).
func (r *Reader) makeAttribute(name string, v *Value, first *instances.Instance) (schema.Attribute, int, error) {
	dt, values, keys, wireShape, err := unwrapValue(name, v)
	if err != nil {
		return schema.Attribute{}, 0, err
	}

	sparse := len(keys) > 0 || (len(wireShape) > 0 && values == 0)

	if sparse && len(wireShape) == 0 {
		return schema.Attribute{}, 0, mlioerr.SchemaErrorf(
			"the feature %q in the data store %q is sparse but carries no shape", name, first.Store.ID())
	}

	var shape []int
	if len(wireShape) > 0 {
		shape = make([]int, len(wireShape)+1)
		shape[0] = r.batchSize
		for i, d := range wireShape {
			narrowed, ok := narrowShapeDim(d)
			if !ok {
				return schema.Attribute{}, 0, mlioerr.SchemaErrorf(
					"the feature %q in the data store %q has a shape dimension that does not fit a platform integer", name, first.Store.ID())
			}
			shape[i+1] = narrowed
		}
	} else {
		shape = []int{r.batchSize, values}
	}

	attr := schema.NewAttributeBuilder(name, dt, shape).WithSparsity(sparse).Build()

	rowValues := 0
	if !sparse {
		rowValues = attr.Strides[0]
	}
	return attr, rowValues, nil
}

// unwrapValue extracts the dtype, value count, keys and declared
// shape of whichever oneof member of v is populated.
func unwrapValue(name string, v *Value) (dt datatype.DataType, numValues int, keys []uint64, wireShape []uint64, err error) {
	switch {
	case v.Float32Tensor != nil:
		t := v.Float32Tensor
		return datatype.Float32, len(t.Values), t.Keys, t.Shape, nil
	case v.Float64Tensor != nil:
		t := v.Float64Tensor
		return datatype.Float64, len(t.Values), t.Keys, t.Shape, nil
	case v.Int32Tensor != nil:
		t := v.Int32Tensor
		return datatype.Int32, len(t.Values), t.Keys, t.Shape, nil
	default:
		return 0, 0, nil, nil, mlioerr.SchemaErrorf("the feature %q has no recognized tensor value set", name)
	}
}

// narrowShapeDim narrows a wire uint64 shape dimension to a platform int,
// reporting overflow.
func narrowShapeDim(d uint64) (int, bool) {
	n := int(d)
	if n < 0 || uint64(n) != d {
		return 0, false
	}
	return n, true
}
