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
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/awslabs/mlio-go/datatype"
	"github.com/awslabs/mlio-go/tensor"
)

// ParseStatus is the tri-state result of a column parser: a value either
// parses cleanly, fails to parse at all, or parses but does not fit the
// target type's range.
type ParseStatus int

const (
	ParseOK ParseStatus = iota
	ParseFailed
	ParseOverflowed
)

// ColumnParser writes text into row rowIdx of dst, reporting whether the
// conversion succeeded.
type ColumnParser func(text string, dst *tensor.Dense, rowIdx int) ParseStatus

// newColumnParser returns the parser for dt, or nil if dt has no column
// parser (float16).
func newColumnParser(dt datatype.DataType, opts ParserOptions) ColumnParser {
	switch dt {
	case datatype.String:
		return stringParser
	case datatype.Size, datatype.Uint64:
		return uintParser(dt, 64, opts.Base)
	case datatype.Uint8:
		return uintParser(dt, 8, opts.Base)
	case datatype.Uint16:
		return uintParser(dt, 16, opts.Base)
	case datatype.Uint32:
		return uintParser(dt, 32, opts.Base)
	case datatype.Int8:
		return intParser(dt, 8, opts.Base)
	case datatype.Int16:
		return intParser(dt, 16, opts.Base)
	case datatype.Int32:
		return intParser(dt, 32, opts.Base)
	case datatype.Int64:
		return intParser(dt, 64, opts.Base)
	case datatype.Float32:
		return floatParser(dt, 32, opts.NaNValues)
	case datatype.Float64:
		return floatParser(dt, 64, opts.NaNValues)
	case datatype.Float16:
		return nil
	default:
		return nil
	}
}

func stringParser(text string, dst *tensor.Dense, rowIdx int) ParseStatus {
	dst.String()[rowIdx] = text
	return ParseOK
}

// intParser parses text as a signed integer in base, narrowing to bits and
// reporting Overflowed when the value does not fit.
func intParser(dt datatype.DataType, bits, base int) ColumnParser {
	return func(text string, dst *tensor.Dense, rowIdx int) ParseStatus {
		v, err := strconv.ParseInt(text, base, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return ParseOverflowed
			}
			return ParseFailed
		}
		switch dt {
		case datatype.Int8:
			if v < math.MinInt8 || v > math.MaxInt8 {
				return ParseOverflowed
			}
			dst.Int8()[rowIdx] = int8(v)
		case datatype.Int16:
			if v < math.MinInt16 || v > math.MaxInt16 {
				return ParseOverflowed
			}
			dst.Int16()[rowIdx] = int16(v)
		case datatype.Int32:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return ParseOverflowed
			}
			dst.Int32()[rowIdx] = int32(v)
		case datatype.Int64:
			dst.Int64()[rowIdx] = v
		}
		_ = bits
		return ParseOK
	}
}

// uintParser parses text as an unsigned integer. Schema inference only
// routes a column here once its first value is known not to fit a signed
// 64-bit range, or the column type was pinned explicitly.
func uintParser(dt datatype.DataType, bits, base int) ColumnParser {
	return func(text string, dst *tensor.Dense, rowIdx int) ParseStatus {
		v, err := strconv.ParseUint(text, base, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return ParseOverflowed
			}
			return ParseFailed
		}
		switch dt {
		case datatype.Uint8:
			if v > math.MaxUint8 {
				return ParseOverflowed
			}
			dst.Uint8()[rowIdx] = uint8(v)
		case datatype.Uint16:
			if v > math.MaxUint16 {
				return ParseOverflowed
			}
			dst.Uint16()[rowIdx] = uint16(v)
		case datatype.Uint32:
			if v > math.MaxUint32 {
				return ParseOverflowed
			}
			dst.Uint32()[rowIdx] = uint32(v)
		case datatype.Uint64:
			dst.Uint64()[rowIdx] = v
		case datatype.Size:
			dst.Size()[rowIdx] = v
		}
		_ = bits
		return ParseOK
	}
}

// floatParser parses text as a float, consulting nanValues for
// configured NaN spellings before giving up, and reporting Overflowed for
// a value that parses to +-Inf.
func floatParser(dt datatype.DataType, bits int, nanValues map[string]struct{}) ColumnParser {
	return func(text string, dst *tensor.Dense, rowIdx int) ParseStatus {
		trimmed := strings.TrimSpace(text)
		v, err := strconv.ParseFloat(trimmed, bits)
		if err != nil {
			switch {
			case errors.Is(err, strconv.ErrRange):
				return ParseOverflowed
			default:
				if _, isNaN := nanValues[trimmed]; isNaN {
					v = math.NaN()
				} else {
					return ParseFailed
				}
			}
		}
		if math.IsInf(v, 0) {
			return ParseOverflowed
		}
		if dt == datatype.Float32 {
			dst.Float32()[rowIdx] = float32(v)
		} else {
			dst.Float64()[rowIdx] = v
		}
		return ParseOK
	}
}

// inferScalarType classifies a single field value: empty -> string; else
// try int64, then uint64, then float64, else string.
func inferScalarType(text string) datatype.DataType {
	if text == "" {
		return datatype.String
	}
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		return datatype.Int64
	}
	if _, err := strconv.ParseUint(text, 10, 64); err == nil {
		return datatype.Uint64
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return datatype.Float64
	}
	return datatype.String
}
