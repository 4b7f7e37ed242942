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

// Package csv implements the CSV decoder strategy: a quote-aware field
// tokenizer and a schema-inferring, parallel row decoder.
package csv

import "github.com/awslabs/mlio-go/internal/mlioerr"

// tokenizerState enumerates the tokenizer's state machine.
type tokenizerState int

const (
	stateNewField tokenizerState = iota
	stateInField
	stateInQuotedField
	stateQuoteInQuotedField
)

// Token is a single extracted field; Truncated is set once the field hit
// MaxFieldLength and further characters were silently dropped.
type Token struct {
	Text      string
	Truncated bool
}

// Tokenizer extracts delimiter-separated fields from a single record's
// byte slice, honoring quoting and a maximum field length. It does not
// itself span multiple lines or skip comment lines; quoted-newline
// continuation and comment skipping are the record reader's job.
type Tokenizer struct {
	Delimiter      byte
	QuoteChar      byte
	MaxFieldLength int // 0 means unbounded.
}

// NewTokenizer returns a Tokenizer with the given delimiter and quote
// character and no field-length limit.
func NewTokenizer(delimiter, quoteChar byte) *Tokenizer {
	return &Tokenizer{Delimiter: delimiter, QuoteChar: quoteChar}
}

// Tokenize splits line into fields. An unterminated quoted field (EOF
// reached while InQuotedField) is a CorruptRecordError; callers that allow
// quoted newlines handle that by feeding Tokenize a longer, reassembled
// line rather than retrying here.
func (t *Tokenizer) Tokenize(line []byte) ([]Token, error) {
	var tokens []Token
	state := stateNewField
	var field []byte
	truncated := false

	emit := func() {
		tokens = append(tokens, Token{Text: string(field), Truncated: truncated})
		field = field[:0]
		truncated = false
	}

	push := func(c byte) {
		if t.MaxFieldLength > 0 && len(field) >= t.MaxFieldLength {
			truncated = true
			return
		}
		field = append(field, c)
	}

	i := 0
	for {
		var c byte
		atEOF := i >= len(line)
		if !atEOF {
			c = line[i]
		}

		switch state {
		case stateNewField:
			switch {
			case atEOF:
				emit()
				return tokens, nil
			case c == t.Delimiter:
				emit()
				i++
			case c == t.QuoteChar:
				state = stateInQuotedField
				i++
			default:
				push(c)
				state = stateInField
				i++
			}

		case stateInField:
			switch {
			case atEOF:
				emit()
				return tokens, nil
			case c == t.Delimiter:
				emit()
				state = stateNewField
				i++
			default:
				push(c)
				i++
			}

		case stateInQuotedField:
			switch {
			case atEOF:
				return nil, mlioerr.CorruptRecordError("EOF inside quoted field")
			case c == t.QuoteChar:
				state = stateQuoteInQuotedField
				i++
			default:
				push(c)
				i++
			}

		case stateQuoteInQuotedField:
			switch {
			case atEOF:
				emit()
				return tokens, nil
			case c == t.Delimiter:
				emit()
				state = stateNewField
				i++
			case c == t.QuoteChar:
				push(c)
				state = stateInQuotedField
				i++
			default:
				// Liberal acceptance of stray content after a closing
				// quote: fold it back into the field instead of erroring.
				push(c)
				state = stateInField
				i++
			}
		}
	}
}

// HasUnclosedQuote reports whether line, tokenized on its own, would end
// while still inside a quoted field — the signal the record reader uses
// to decide whether to pull another physical line and retry when
// AllowQuotedNewLines is set.
func (t *Tokenizer) HasUnclosedQuote(line []byte) bool {
	state := stateNewField
	for _, c := range line {
		switch state {
		case stateNewField:
			if c == t.QuoteChar {
				state = stateInQuotedField
			} else if c != t.Delimiter {
				state = stateInField
			}
		case stateInField:
			if c == t.Delimiter {
				state = stateNewField
			}
		case stateInQuotedField:
			if c == t.QuoteChar {
				state = stateQuoteInQuotedField
			}
		case stateQuoteInQuotedField:
			if c == t.Delimiter {
				state = stateNewField
			} else if c == t.QuoteChar {
				state = stateInQuotedField
			} else {
				state = stateInField
			}
		}
	}
	return state == stateInQuotedField
}
