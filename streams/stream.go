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

// Package streams implements the reader pipeline's byte-stream
// abstraction: a narrow read/seek/size contract plus the UTF-8 re-encoding
// and inflate wrappers layered on top of it.
package streams

import (
	"io"

	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/internal/mlioerr"
)

// Stream is the byte-stream contract external data stores are consumed
// through. Concrete byte sources (files, S3 objects, named
// pipes) are external collaborators; this package only defines the
// interface plus stream decorators (UTF-8, inflate) and an in-memory
// reference implementation used by stores.InMemoryStore.
type Stream interface {
	// Read fills p with up to len(p) bytes, returning the number read.
	// Partial reads are allowed; a return of (0, nil) signals EOF.
	Read(p []byte) (int, error)

	// ReadSlice returns n bytes with zero-copy semantics when
	// SupportsZeroCopy is true; otherwise it copies into a fresh block.
	ReadSlice(n int) (memory.Slice, error)

	Seek(pos int64) error
	Size() (int64, bool)
	Position() int64
	Seekable() bool
	SupportsZeroCopy() bool
	Close() error
}

// ReaderFrom adapts a Stream to io.Reader for interoperability with
// stdlib/ecosystem decoders (e.g. klauspost/compress).
type ReaderFrom struct {
	S Stream
}

func (r ReaderFrom) Read(p []byte) (int, error) {
	n, err := r.S.Read(p)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

// WrapReader adapts an io.Reader that is neither seekable nor zero-copy
// into a Stream, the common case for a live network/pipe source.
func WrapReader(r io.Reader) Stream {
	return &readerStream{r: r}
}

type readerStream struct {
	r   io.Reader
	pos int64
}

func (s *readerStream) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.pos += int64(n)
	if err == io.EOF {
		return n, nil
	}
	if err != nil {
		return n, mlioerr.StreamError("I/O error", err)
	}
	return n, nil
}

func (s *readerStream) ReadSlice(n int) (memory.Slice, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(s.r, buf)
	s.pos += int64(read)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return memory.Slice{}, mlioerr.StreamError("I/O error", err)
	}
	return memory.NewSlice(memory.NewBlock(buf[:read])), nil
}

func (s *readerStream) Seek(int64) error        { return mlioerr.NotSupportedError("stream is not seekable") }
func (s *readerStream) Size() (int64, bool)     { return 0, false }
func (s *readerStream) Position() int64         { return s.pos }
func (s *readerStream) Seekable() bool          { return false }
func (s *readerStream) SupportsZeroCopy() bool  { return false }
func (s *readerStream) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
