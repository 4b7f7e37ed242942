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
)

func tokenTexts(toks []Token) []string {
	texts := make([]string, len(toks))
	for i, t := range toks {
		texts[i] = t.Text
	}
	return texts
}

func TestTokenizeUnquotedFields(t *testing.T) {
	tok := NewTokenizer(',', '"')
	toks, err := tok.Tokenize([]byte("a,bb,ccc"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "bb", "ccc"}, tokenTexts(toks))
}

func TestTokenizeEmptyFields(t *testing.T) {
	tok := NewTokenizer(',', '"')
	toks, err := tok.Tokenize([]byte("a,,c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "c"}, tokenTexts(toks))
}

func TestTokenizeQuotedFieldWithDelimiter(t *testing.T) {
	tok := NewTokenizer(',', '"')
	toks, err := tok.Tokenize([]byte(`a,"b,c",d`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b,c", "d"}, tokenTexts(toks))
}

func TestTokenizeEscapedQuoteInQuotedField(t *testing.T) {
	tok := NewTokenizer(',', '"')
	toks, err := tok.Tokenize([]byte(`"say ""hi"""`))
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, `say "hi"`, toks[0].Text)
}

func TestTokenizeUnterminatedQuoteIsCorrupt(t *testing.T) {
	tok := NewTokenizer(',', '"')
	_, err := tok.Tokenize([]byte(`"unterminated`))
	require.Error(t, err)
}

func TestTokenizeStrayContentAfterClosingQuote(t *testing.T) {
	tok := NewTokenizer(',', '"')
	toks, err := tok.Tokenize([]byte(`"abc"def,g`))
	require.NoError(t, err)
	assert.Equal(t, []string{"abcdef", "g"}, tokenTexts(toks))
}

func TestTokenizeMaxFieldLengthTruncates(t *testing.T) {
	tok := NewTokenizer(',', '"')
	tok.MaxFieldLength = 3
	toks, err := tok.Tokenize([]byte("abcdef,g"))
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, "abc", toks[0].Text)
	assert.True(t, toks[0].Truncated)
	assert.False(t, toks[1].Truncated)
}

func TestHasUnclosedQuote(t *testing.T) {
	tok := NewTokenizer(',', '"')
	assert.True(t, tok.HasUnclosedQuote([]byte(`a,"bc`)))
	assert.False(t, tok.HasUnclosedQuote([]byte(`a,"bc"`)))
	assert.False(t, tok.HasUnclosedQuote([]byte(`a,bc`)))
}
