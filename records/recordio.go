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

package records

import (
	"encoding/binary"
	"io"

	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/streams"
)

const (
	recordIOMagic     uint32 = 0xCED7230A
	recordIOMaxLength uint32 = 1<<30 - 1 // 30-bit length field.
)

// RecordIOReader decodes Amazon RecordIO-framed records: a stream of 8-byte
// headers (4-byte LE magic + 4-byte LE kind/length word), each followed by
// length payload bytes padded to a 4-byte boundary.
type RecordIOReader struct {
	stream streams.Stream

	// MaxRecordLength bounds a single record's payload; 0 means any
	// length the 30-bit field can express. The check runs before the
	// payload buffer is allocated, so a corrupt length word cannot force
	// a gigabyte allocation.
	MaxRecordLength uint32
}

func NewRecordIOReader(s streams.Stream) *RecordIOReader {
	return &RecordIOReader{stream: s}
}

func (r *RecordIOReader) ReadRecord() (*Record, error) {
	header := make([]byte, 8)
	n, err := io.ReadFull(streams.ReaderFrom{S: r.stream}, header)
	if err != nil {
		if err == io.EOF && n == 0 {
			return nil, nil
		}
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, mlioerr.CorruptRecordError("truncated recordio header")
		}
		return nil, mlioerr.StreamError("failed to read recordio header", err)
	}

	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != recordIOMagic {
		return nil, mlioerr.CorruptRecordError("bad recordio magic number")
	}

	word := binary.LittleEndian.Uint32(header[4:8])
	kind := kindFromWord(word)
	length := word & recordIOMaxLength
	if r.MaxRecordLength > 0 && length > r.MaxRecordLength {
		return nil, mlioerr.RecordTooLargeError("recordio payload exceeds the configured maximum record length")
	}

	padded := (length + 3) &^ 3
	buf := make([]byte, padded)
	if padded > 0 {
		if _, err := io.ReadFull(streams.ReaderFrom{S: r.stream}, buf); err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				return nil, mlioerr.CorruptRecordError("truncated recordio payload")
			}
			return nil, mlioerr.StreamError("failed to read recordio payload", err)
		}
	}

	return &Record{Kind: kind, Payload: memory.NewSlice(memory.NewBlock(buf[:length]))}, nil
}

// kindFromWord extracts the 2-bit record kind from bits 30-31 of the
// header's second word: 0 = complete, 1 = begin, 2 = middle, 3 = end.
func kindFromWord(word uint32) Kind {
	switch (word >> 30) & 0x3 {
	case 0:
		return Complete
	case 1:
		return Begin
	case 2:
		return Middle
	default:
		return End
	}
}

// EncodeRecordIO writes a single RecordIO frame for payload with the given
// kind, used by tests and by any writer-side tooling built on this package.
func EncodeRecordIO(kind Kind, payload []byte) []byte {
	if len(payload) > int(recordIOMaxLength) {
		panic("records: payload exceeds recordio's 30-bit length field")
	}

	var kindBits uint32
	switch kind {
	case Complete:
		kindBits = 0
	case Begin:
		kindBits = 1
	case Middle:
		kindBits = 2
	case End:
		kindBits = 3
	}

	word := (kindBits << 30) | uint32(len(payload))
	padded := (len(payload) + 3) &^ 3

	out := make([]byte, 8+padded)
	binary.LittleEndian.PutUint32(out[0:4], recordIOMagic)
	binary.LittleEndian.PutUint32(out[4:8], word)
	copy(out[8:], payload)
	return out
}
