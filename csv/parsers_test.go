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
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/mlio-go/datatype"
	"github.com/awslabs/mlio-go/tensor"
)

func parseOne(t *testing.T, dt datatype.DataType, opts ParserOptions, text string) (*tensor.Dense, ParseStatus) {
	t.Helper()
	parser := newColumnParser(dt, opts)
	require.NotNil(t, parser)
	dst := tensor.NewDense(dt, []int{1, 1})
	return dst, parser(text, dst, 0)
}

func TestIntParserRoundTrips(t *testing.T) {
	for _, n := range []int64{0, 1, -1, math.MaxInt64, math.MinInt64} {
		dst, status := parseOne(t, datatype.Int64, ParserOptions{Base: 10}, strconv.FormatInt(n, 10))
		require.Equal(t, ParseOK, status)
		assert.Equal(t, n, dst.Int64()[0])
	}
}

func TestIntParserNarrowsAndRangeChecks(t *testing.T) {
	dst, status := parseOne(t, datatype.Int8, ParserOptions{Base: 10}, "127")
	require.Equal(t, ParseOK, status)
	assert.Equal(t, int8(127), dst.Int8()[0])

	_, status = parseOne(t, datatype.Int8, ParserOptions{Base: 10}, "128")
	assert.Equal(t, ParseOverflowed, status)

	_, status = parseOne(t, datatype.Int16, ParserOptions{Base: 10}, "40000")
	assert.Equal(t, ParseOverflowed, status)

	_, status = parseOne(t, datatype.Int64, ParserOptions{Base: 10}, "99999999999999999999")
	assert.Equal(t, ParseOverflowed, status)
}

func TestIntParserRejectsGarbage(t *testing.T) {
	_, status := parseOne(t, datatype.Int32, ParserOptions{Base: 10}, "12x")
	assert.Equal(t, ParseFailed, status)
}

func TestIntParserHonorsBase(t *testing.T) {
	dst, status := parseOne(t, datatype.Int32, ParserOptions{Base: 16}, "ff")
	require.Equal(t, ParseOK, status)
	assert.Equal(t, int32(255), dst.Int32()[0])
}

func TestUintParserRangeChecks(t *testing.T) {
	dst, status := parseOne(t, datatype.Uint8, ParserOptions{Base: 10}, "255")
	require.Equal(t, ParseOK, status)
	assert.Equal(t, uint8(255), dst.Uint8()[0])

	_, status = parseOne(t, datatype.Uint8, ParserOptions{Base: 10}, "256")
	assert.Equal(t, ParseOverflowed, status)

	_, status = parseOne(t, datatype.Uint64, ParserOptions{Base: 10}, "-1")
	assert.Equal(t, ParseFailed, status)
}

func TestFloatParserRecoversFormattedValues(t *testing.T) {
	for _, f := range []float64{0, 1.5, -2.25, 1e300} {
		dst, status := parseOne(t, datatype.Float64, ParserOptions{}, strconv.FormatFloat(f, 'g', -1, 64))
		require.Equal(t, ParseOK, status)
		assert.Equal(t, f, dst.Float64()[0])
	}
}

func TestFloatParserConfiguredNaNStrings(t *testing.T) {
	opts := ParserOptions{NaNValues: map[string]struct{}{"n/a": {}}}

	dst, status := parseOne(t, datatype.Float32, opts, " n/a ")
	require.Equal(t, ParseOK, status)
	assert.True(t, math.IsNaN(float64(dst.Float32()[0])))

	_, status = parseOne(t, datatype.Float32, opts, "missing")
	assert.Equal(t, ParseFailed, status)
}

func TestFloatParserInfinityOverflows(t *testing.T) {
	_, status := parseOne(t, datatype.Float64, ParserOptions{}, "Inf")
	assert.Equal(t, ParseOverflowed, status)

	_, status = parseOne(t, datatype.Float32, ParserOptions{}, "1e300")
	assert.Equal(t, ParseOverflowed, status)
}

func TestStringParserCopies(t *testing.T) {
	dst, status := parseOne(t, datatype.String, ParserOptions{}, "hello")
	require.Equal(t, ParseOK, status)
	assert.Equal(t, "hello", dst.String()[0])
}

func TestFloat16HasNoParser(t *testing.T) {
	assert.Nil(t, newColumnParser(datatype.Float16, ParserOptions{}))
}

func TestInferScalarType(t *testing.T) {
	assert.Equal(t, datatype.String, inferScalarType(""))
	assert.Equal(t, datatype.Int64, inferScalarType("42"))
	assert.Equal(t, datatype.Int64, inferScalarType("-42"))
	assert.Equal(t, datatype.Uint64, inferScalarType("18446744073709551615"))
	assert.Equal(t, datatype.Float64, inferScalarType("3.14"))
	assert.Equal(t, datatype.String, inferScalarType("hello"))
}

func TestTokenizerRoundTrip(t *testing.T) {
	tok := NewTokenizer(',', '"')
	fields := []string{"plain", "with,delim", `with"quote`, "with\nnewline", ""}

	var line []byte
	for i, f := range fields {
		if i > 0 {
			line = append(line, ',')
		}
		line = append(line, quoteField(f)...)
	}

	toks, err := tok.Tokenize(line)
	require.NoError(t, err)
	assert.Equal(t, fields, tokenTexts(toks))
}

func quoteField(f string) []byte {
	needsQuoting := false
	for _, c := range f {
		if c == ',' || c == '"' || c == '\n' {
			needsQuoting = true
			break
		}
	}
	if !needsQuoting {
		return []byte(f)
	}
	out := []byte{'"'}
	for _, c := range []byte(f) {
		if c == '"' {
			out = append(out, '"', '"')
		} else {
			out = append(out, c)
		}
	}
	return append(out, '"')
}
