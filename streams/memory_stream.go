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

package streams

import (
	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/internal/mlioerr"
)

// MemoryStream is a seekable, zero-copy Stream backed by an in-memory
// block.
type MemoryStream struct {
	block *memory.Block
	data  []byte
	pos   int64
}

// NewMemoryStream wraps data (already owned by block) as a stream.
func NewMemoryStream(block *memory.Block, data []byte) *MemoryStream {
	return &MemoryStream{block: block, data: data}
}

func (s *MemoryStream) Read(p []byte) (int, error) {
	if s.pos >= int64(len(s.data)) {
		return 0, nil
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *MemoryStream) ReadSlice(n int) (memory.Slice, error) {
	if s.pos+int64(n) > int64(len(s.data)) {
		n = int(int64(len(s.data)) - s.pos)
	}
	if n < 0 {
		n = 0
	}
	out := memory.SliceOf(s.block, s.data[s.pos:s.pos+int64(n)])
	s.pos += int64(n)
	return out, nil
}

func (s *MemoryStream) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(s.data)) {
		return mlioerr.New(mlioerr.KindStream, "seek position out of range")
	}
	s.pos = pos
	return nil
}

func (s *MemoryStream) Size() (int64, bool)    { return int64(len(s.data)), true }
func (s *MemoryStream) Position() int64        { return s.pos }
func (s *MemoryStream) Seekable() bool         { return true }
func (s *MemoryStream) SupportsZeroCopy() bool { return true }
func (s *MemoryStream) Close() error           { return nil }
