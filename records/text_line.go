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
	"bytes"

	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/streams"
)

// TextLineParams configures TextLineReader.
type TextLineParams struct {
	SkipEmptyLines bool
	CommentChar    *byte
	MaxLineLength  *int
}

// TextLineReader splits a byte stream on '\n', stripping a trailing '\r',
// and emits one Complete record per line. It buffers
// unboundedly from the stream only up to MaxLineLength before raising
// RecordTooLargeError.
type TextLineReader struct {
	stream streams.Stream
	params TextLineParams
	buf    []byte
	eof    bool
}

func NewTextLineReader(s streams.Stream, params TextLineParams) *TextLineReader {
	return &TextLineReader{stream: s, params: params}
}

func (r *TextLineReader) ReadRecord() (*Record, error) {
	for {
		line, ok, err := r.nextLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		if r.params.SkipEmptyLines && len(line) == 0 {
			continue
		}
		if r.params.CommentChar != nil && len(line) > 0 && line[0] == *r.params.CommentChar {
			continue
		}
		return &Record{Kind: Complete, Payload: memory.NewSlice(memory.NewBlock(line))}, nil
	}
}

// nextLine reads (and consumes) one '\n'-terminated chunk from the stream,
// buffering across Read calls, and strips a trailing '\r'.
func (r *TextLineReader) nextLine() ([]byte, bool, error) {
	for {
		if idx := bytes.IndexByte(r.buf, '\n'); idx >= 0 {
			line := trimCR(r.buf[:idx])
			r.buf = r.buf[idx+1:]
			if err := r.checkMaxLength(line); err != nil {
				return nil, false, err
			}
			return line, true, nil
		}
		if r.eof {
			if len(r.buf) == 0 {
				return nil, false, nil
			}
			line := trimCR(r.buf)
			r.buf = nil
			if err := r.checkMaxLength(line); err != nil {
				return nil, false, err
			}
			return line, true, nil
		}
		if err := r.fill(); err != nil {
			return nil, false, err
		}
	}
}

func (r *TextLineReader) checkMaxLength(line []byte) error {
	if r.params.MaxLineLength != nil && len(line) > *r.params.MaxLineLength {
		return mlioerr.RecordTooLargeError("line exceeds the configured maximum line length")
	}
	return nil
}

func (r *TextLineReader) fill() error {
	chunk := make([]byte, 64*1024)
	n, err := r.stream.Read(chunk)
	if err != nil {
		return err
	}
	if n == 0 {
		r.eof = true
		return nil
	}
	r.buf = append(r.buf, chunk[:n]...)
	if r.params.MaxLineLength != nil {
		if idx := bytes.IndexByte(r.buf, '\n'); idx < 0 && len(r.buf) > *r.params.MaxLineLength {
			return mlioerr.RecordTooLargeError("line exceeds the configured maximum line length")
		}
	}
	return nil
}

func trimCR(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		return line[:len(line)-1]
	}
	return line
}
