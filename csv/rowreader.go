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
	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/records"
)

// rowReader wraps a records.TextLineReader, re-assembling a logical CSV
// row that spans multiple physical lines when AllowQuotedNewLines is set
// and the tokenizer detects an unclosed quote at end of line.
type rowReader struct {
	inner               records.Reader
	tokenizer           *Tokenizer
	allowQuotedNewLines bool
}

func (r *rowReader) ReadRecord() (*records.Record, error) {
	rec, err := r.inner.ReadRecord()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	if !r.allowQuotedNewLines {
		return rec, nil
	}

	line := rec.Payload.Bytes()
	if !r.tokenizer.HasUnclosedQuote(line) {
		return rec, nil
	}

	buf := append([]byte(nil), line...)
	for r.tokenizer.HasUnclosedQuote(buf) {
		next, err := r.inner.ReadRecord()
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, mlioerr.CorruptRecordError("EOF inside a quoted field spanning multiple lines")
		}
		buf = append(buf, '\n')
		buf = append(buf, next.Payload.Bytes()...)
	}

	return &records.Record{Kind: records.Complete, Payload: memory.NewSlice(memory.NewBlock(buf))}, nil
}
