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

package csv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/mlio-go/datatype"
	"github.com/awslabs/mlio-go/decode"
	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/schema"
)

// inferFrom runs header handling plus schema inference over a one-store
// dataset, returning the inferred schema.
func inferFrom(t *testing.T, p Params, content string) (*Reader, *schema.Schema, error) {
	t.Helper()
	r := NewReader(p, 4, decode.BadExampleError, false, 1)
	ir := instances.NewReader(instances.ReaderParams{
		Dataset:          csvDataset(t, content),
		Factory:          r.MakeRecordReader,
		ZeroRecordPolicy: instances.AsEmpty,
	})
	first, err := ir.PeekInstance()
	require.NoError(t, err)
	sch, err := r.InferSchema(first)
	return r, sch, err
}

func attrNames(sch *schema.Schema) []string {
	names := make([]string, sch.Len())
	for i, a := range sch.Attributes() {
		names[i] = a.Name
	}
	return names
}

func TestInferSchemaTypesFromFirstRow(t *testing.T) {
	_, sch, err := inferFrom(t, headerParams(), "i,u,f,s\n-1,18446744073709551615,2.5,hi\n")
	require.NoError(t, err)

	attrs := sch.Attributes()
	assert.Equal(t, datatype.Int64, attrs[0].DType)
	assert.Equal(t, datatype.Uint64, attrs[1].DType)
	assert.Equal(t, datatype.Float64, attrs[2].DType)
	assert.Equal(t, datatype.String, attrs[3].DType)

	for _, a := range attrs {
		assert.Equal(t, []int{4, 1}, a.Shape)
		assert.False(t, a.Sparse)
	}
}

func TestInferSchemaOrdinalNamesWithPrefix(t *testing.T) {
	p := DefaultParams()
	p.NamePrefix = "col_"
	_, sch, err := inferFrom(t, p, "1,2\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"col_1", "col_2"}, attrNames(sch))
}

func TestInferSchemaDefaultDataTypePinsAllColumns(t *testing.T) {
	p := headerParams()
	dt := datatype.Float32
	p.DefaultDataType = &dt
	_, sch, err := inferFrom(t, p, "a,b\n1,x\n")
	require.NoError(t, err)

	for _, a := range sch.Attributes() {
		assert.Equal(t, datatype.Float32, a.DType)
	}
}

func TestInferSchemaAppliesOverridesInOrder(t *testing.T) {
	p := headerParams()
	p.ColumnTypesByIndex = map[int]datatype.DataType{0: datatype.Int8}
	p.ColumnTypes = map[string]datatype.DataType{"b": datatype.Float32}
	_, sch, err := inferFrom(t, p, "a,b\n1,2\n")
	require.NoError(t, err)

	attrs := sch.Attributes()
	assert.Equal(t, datatype.Int8, attrs[0].DType)
	assert.Equal(t, datatype.Float32, attrs[1].DType)
}

func TestInferSchemaUnknownNameOverrideIsInvalidArgument(t *testing.T) {
	p := headerParams()
	p.ColumnTypes = map[string]datatype.DataType{"missing": datatype.Int64}
	_, _, err := inferFrom(t, p, "a\n1\n")
	require.Error(t, err)
	assert.True(t, mlioerr.IsKind(err, mlioerr.KindInvalidArgument))
}

func TestInferSchemaUnknownIndexOverrideIsInvalidArgument(t *testing.T) {
	p := headerParams()
	p.ColumnTypesByIndex = map[int]datatype.DataType{9: datatype.Int64}
	_, _, err := inferFrom(t, p, "a\n1\n")
	require.Error(t, err)
	assert.True(t, mlioerr.IsKind(err, mlioerr.KindInvalidArgument))
}

func TestInferSchemaUseColumnsByName(t *testing.T) {
	p := headerParams()
	p.UseColumns = []string{"a", "c"}
	r, sch, err := inferFrom(t, p, "a,b,c\n1,2,3\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, attrNames(sch))
	// The excluded column keeps its slot in the row layout so decode still
	// consumes its token.
	assert.Len(t, r.columns, 3)
	assert.True(t, r.columns[1].skip)
}

func TestInferSchemaUseColumnsByIndex(t *testing.T) {
	p := headerParams()
	p.UseColumnsByIndex = []int{1}
	_, sch, err := inferFrom(t, p, "a,b,c\n1,2,3\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, attrNames(sch))
}

func TestInferSchemaDedupesRepeatedNames(t *testing.T) {
	p := headerParams()
	p.DedupeColumnNames = true
	_, sch, err := inferFrom(t, p, "x,x,x\n1,2,3\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "x_1", "x_2"}, attrNames(sch))
}

func TestInferSchemaDedupeSurvivesCollisionWithSynthesizedName(t *testing.T) {
	// The literal header "x_1" collides with the name synthesized for the
	// second "x"; the dedup loop must keep growing the candidate instead
	// of recomputing the same one.
	p := headerParams()
	p.DedupeColumnNames = true
	_, sch, err := inferFrom(t, p, "x,x_1,x\n1,2,3\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "x_1", "x_1_1"}, attrNames(sch))
}

func TestInferSchemaDuplicateNamesWithoutDedupeFail(t *testing.T) {
	_, _, err := inferFrom(t, headerParams(), "x,x\n1,2\n")
	require.Error(t, err)
	assert.True(t, mlioerr.IsKind(err, mlioerr.KindSchema))
}

func TestInferSchemaHeaderCountMustMatchConfiguredNames(t *testing.T) {
	p := headerParams()
	p.ColumnNames = []string{"only"}
	_, _, err := inferFrom(t, p, "h\n1,2,3\n")
	require.Error(t, err)
	assert.True(t, mlioerr.IsKind(err, mlioerr.KindSchema))
}

func TestInferSchemaHeaderPrefixApplied(t *testing.T) {
	p := headerParams()
	p.NamePrefix = "f_"
	_, sch, err := inferFrom(t, p, "a,b\n1,2\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"f_a", "f_b"}, attrNames(sch))
}
