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
	"fmt"
	"strconv"

	"github.com/awslabs/mlio-go/datatype"
	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/schema"
)

// column holds everything the row decoder needs for one retained or
// skipped column.
type column struct {
	name   string
	dtype  datatype.DataType
	skip   bool
	parser ColumnParser
}

// inferSchema runs the full schema inference chain: column types, column
// names, type overrides, column selection, dedup, attribute construction.
// first is nil when the dataset has column names (from a header or
// explicit configuration) but no data row at all.
func (r *Reader) inferSchema(first *instances.Instance) (*schema.Schema, error) {
	if first == nil && len(r.columnNames) == 0 {
		return nil, mlioerr.SchemaError("the schema cannot be inferred: the dataset has no header and no data row")
	}

	types, err := r.inferColumnTypes(first)
	if err != nil {
		return nil, err
	}

	names, err := r.resolveColumnNames(first, len(types))
	if err != nil {
		return nil, err
	}

	types, err = r.applyTypeOverrides(names, types)
	if err != nil {
		return nil, err
	}

	return r.buildColumnsAndSchema(names, types)
}

// inferColumnTypes implements step 1: if no data row is available, every
// column defaults to DefaultDataType or string; otherwise each field's
// type is inferred (or pinned via DefaultDataType) from the first row.
func (r *Reader) inferColumnTypes(first *instances.Instance) ([]datatype.DataType, error) {
	if first == nil {
		n := len(r.columnNames)
		dt := datatype.String
		if r.params.DefaultDataType != nil {
			dt = *r.params.DefaultDataType
		}
		types := make([]datatype.DataType, n)
		for i := range types {
			types[i] = dt
		}
		return types, nil
	}

	if err := first.Load(); err != nil {
		return nil, err
	}
	toks, err := r.tokenizer.Tokenize(first.Bits.Bytes())
	if err != nil {
		return nil, mlioerr.SchemaErrorf("the schema of the data store %q cannot be inferred: %v", first.Store.ID(), err)
	}

	types := make([]datatype.DataType, len(toks))
	for i, t := range toks {
		if r.params.DefaultDataType != nil {
			types[i] = *r.params.DefaultDataType
		} else {
			types[i] = inferScalarType(t.Text)
		}
	}
	return types, nil
}

// resolveColumnNames implements step 2: use headers/explicit names if
// present (validating the count matches numCols), else synthesize
// 1-based ordinal names with the configured prefix.
func (r *Reader) resolveColumnNames(first *instances.Instance, numCols int) ([]string, error) {
	if len(r.columnNames) == 0 {
		names := make([]string, numCols)
		for i := range names {
			names[i] = r.params.NamePrefix + strconv.Itoa(i+1)
		}
		return names, nil
	}

	if len(r.columnNames) != numCols {
		storeID := "<unknown>"
		rowIdx := 0
		if first != nil {
			storeID = first.Store.ID()
			rowIdx = first.Index
		}
		return nil, mlioerr.SchemaErrorf(
			"the number of columns (%d) read from row #%d in the data store %q does not match the number of headers (%d)",
			numCols, rowIdx, storeID, len(r.columnNames))
	}
	return append([]string(nil), r.columnNames...), nil
}

// applyTypeOverrides implements step 3: ColumnTypesByIndex first, then
// ColumnTypes by name; any leftover override key is an invalid_argument.
func (r *Reader) applyTypeOverrides(names []string, types []datatype.DataType) ([]datatype.DataType, error) {
	out := append([]datatype.DataType(nil), types...)

	byIndex := make(map[int]datatype.DataType, len(r.params.ColumnTypesByIndex))
	for k, v := range r.params.ColumnTypesByIndex {
		byIndex[k] = v
	}
	for i := range out {
		if dt, ok := byIndex[i]; ok {
			out[i] = dt
			delete(byIndex, i)
		}
	}
	if len(byIndex) > 0 {
		return nil, mlioerr.InvalidArgumentError(fmt.Sprintf("the column types cannot be set: %d column index override(s) are out of range", len(byIndex)))
	}

	byName := make(map[string]datatype.DataType, len(r.params.ColumnTypes))
	for k, v := range r.params.ColumnTypes {
		byName[k] = v
	}
	for i, name := range names {
		if dt, ok := byName[name]; ok {
			out[i] = dt
			delete(byName, name)
		}
	}
	if len(byName) > 0 {
		return nil, mlioerr.InvalidArgumentError(fmt.Sprintf("the column types cannot be set: %d column name override(s) are not found in the dataset", len(byName)))
	}

	return out, nil
}

// buildColumnsAndSchema implements steps 4-6: column selection, name
// dedup/conflict detection, and attribute construction.
func (r *Reader) buildColumnsAndSchema(names []string, types []datatype.DataType) (*schema.Schema, error) {
	useByIndex := toIntSet(r.params.UseColumnsByIndex)
	useByName := toStringSet(r.params.UseColumns)

	columns := make([]column, len(names))
	var attrs []schema.Attribute
	nameCounts := make(map[string]int)

	for i, name := range names {
		skip := shouldSkip(i, name, useByIndex, useByName)
		columns[i] = column{name: name, dtype: types[i], skip: skip}
		if skip {
			continue
		}
		columns[i].parser = newColumnParser(types[i], r.params.ParserOptions)

		outName := name
		if r.params.DedupeColumnNames {
			// Each retry appends to the candidate just tested, so the
			// candidate strictly grows and the loop terminates even when a
			// literal column name collides with a synthesized one.
			for {
				count := nameCounts[outName]
				nameCounts[outName] = count + 1
				if count == 0 {
					break
				}
				outName = fmt.Sprintf("%s_%d", outName, count)
			}
		} else if _, dup := nameCounts[outName]; dup {
			return nil, mlioerr.SchemaErrorf("the dataset contains more than one column with the name %q", outName)
		} else {
			nameCounts[outName] = 1
		}

		attrs = append(attrs, schema.NewAttributeBuilder(outName, types[i], []int{r.batchSize, 1}).Build())
	}

	sch, err := schema.New(attrs)
	if err != nil {
		return nil, mlioerr.SchemaError(err.Error())
	}
	r.columns = columns
	return sch, nil
}

func shouldSkip(index int, name string, byIndex map[int]struct{}, byName map[string]struct{}) bool {
	if len(byIndex) > 0 {
		if _, ok := byIndex[index]; !ok {
			return true
		}
	}
	if len(byName) > 0 {
		if _, ok := byName[name]; !ok {
			return true
		}
	}
	return false
}

func toIntSet(s []int) map[int]struct{} {
	if len(s) == 0 {
		return nil
	}
	m := make(map[int]struct{}, len(s))
	for _, v := range s {
		m[v] = struct{}{}
	}
	return m
}

func toStringSet(s []string) map[string]struct{} {
	if len(s) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(s))
	for _, v := range s {
		m[v] = struct{}{}
	}
	return m
}
