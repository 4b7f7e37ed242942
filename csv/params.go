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

import "github.com/awslabs/mlio-go/datatype"

// MaxFieldLengthHandling governs what happens to a field that hit
// Params.MaxFieldLength and was truncated.
type MaxFieldLengthHandling int

const (
	TreatAsBad MaxFieldLengthHandling = iota
	Truncate
	TruncateWarn
)

// ParserOptions configures the per-column value parsers.
type ParserOptions struct {
	// NaNValues is the set of trimmed string values (case-sensitive) that
	// parse as NaN for float columns, in addition to whatever the
	// underlying float parser already recognizes.
	NaNValues map[string]struct{} `koanf:"nan_values"`
	// Base is the integer base used by the integer parsers (0 means
	// "infer from prefix", mirroring strconv.ParseInt's base-0 rules).
	Base int `koanf:"base"`
}

// Params configures Reader.
type Params struct {
	HeaderRowIndex    *int     `koanf:"header_row_index"`
	HasSingleHeader   bool     `koanf:"has_single_header"`
	DedupeColumnNames bool     `koanf:"dedupe_column_names"`
	ColumnNames       []string `koanf:"column_names"`
	NamePrefix        string   `koanf:"name_prefix"`

	UseColumns        []string `koanf:"use_columns"`
	UseColumnsByIndex []int    `koanf:"use_columns_by_index"`

	DefaultDataType    *datatype.DataType            `koanf:"default_data_type"`
	ColumnTypes        map[string]datatype.DataType  `koanf:"column_types"`
	ColumnTypesByIndex map[int]datatype.DataType     `koanf:"column_types_by_index"`

	Delimiter              byte                   `koanf:"delimiter"`
	QuoteChar              byte                   `koanf:"quote_char"`
	CommentChar            *byte                  `koanf:"comment_char"`
	AllowQuotedNewLines    bool                   `koanf:"allow_quoted_new_lines"`
	SkipBlankLines         bool                   `koanf:"skip_blank_lines"`
	Encoding               string                 `koanf:"encoding"`
	MaxFieldLength         int                    `koanf:"max_field_length"`
	MaxFieldLengthHandling MaxFieldLengthHandling `koanf:"max_field_length_handling"`
	MaxLineLength          int                    `koanf:"max_line_length"`

	ParserOptions ParserOptions `koanf:"parser_options"`
}

// DefaultParams returns the conventional comma/double-quote CSV
// configuration used when a caller supplies no overrides.
func DefaultParams() Params {
	return Params{
		Delimiter: ',',
		QuoteChar: '"',
	}
}
