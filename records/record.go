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

// Package records produces framed records (complete/begin/middle/end)
// from a byte stream, either as newline-delimited text lines or RecordIO
// binary frames.
package records

import (
	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/streams"
)

// Kind discriminates whether a Record is a whole instance payload or a
// fragment of a split instance.
type Kind int

const (
	Complete Kind = iota
	Begin
	Middle
	End
)

func (k Kind) String() string {
	switch k {
	case Complete:
		return "complete"
	case Begin:
		return "begin"
	case Middle:
		return "middle"
	case End:
		return "end"
	default:
		return "unknown"
	}
}

// Record is a single framed unit produced by a Reader.
type Record struct {
	Kind    Kind
	Payload memory.Slice
}

// Reader produces framed records from an underlying byte stream. ReadRecord
// returns (nil, nil) at end of stream.
type Reader interface {
	ReadRecord() (*Record, error)
}

// Factory builds the appropriate Reader for a given store's stream; each
// concrete decoder strategy (csv, recordioproto) supplies its own factory.
type Factory func(s streams.Stream) (Reader, error)
