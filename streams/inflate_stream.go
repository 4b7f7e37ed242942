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
	"bufio"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/internal/mlioerr"
)

const inflateReadAhead = 512 << 10 // 512 KiB

// Format selects which container InflateStream expects on the wire.
type Format int

const (
	FormatGzip Format = iota
	FormatZlib
)

// InflateStream decompresses gzip/zlib from an inner Stream using
// klauspost/compress (a drop-in, faster implementation of the same
// interfaces as compress/gzip and compress/zlib), with a 512 KiB
// read-ahead buffer over the inner stream.
type InflateStream struct {
	inner  Stream
	buf    *bufio.Reader
	reader io.Reader
	pos    int64
}

// NewInflateStream wraps inner, which must start at the beginning of a
// gzip or zlib container as named by format.
func NewInflateStream(inner Stream, format Format) (*InflateStream, error) {
	buf := bufio.NewReaderSize(ReaderFrom{S: inner}, inflateReadAhead)

	var r io.Reader
	var err error
	switch format {
	case FormatGzip:
		r, err = gzip.NewReader(buf)
	case FormatZlib:
		r, err = zlib.NewReader(buf)
	default:
		return nil, mlioerr.InvalidArgumentError("unknown inflate format")
	}
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, mlioerr.New(mlioerr.KindStream, "truncated compressed stream")
		}
		return nil, mlioerr.StreamError("failed to open compressed stream", err)
	}

	return &InflateStream{inner: inner, buf: buf, reader: r}, nil
}

func (s *InflateStream) Read(p []byte) (int, error) {
	n, err := s.reader.Read(p)
	s.pos += int64(n)
	if err == io.EOF {
		return n, nil
	}
	if err == io.ErrUnexpectedEOF {
		return n, mlioerr.New(mlioerr.KindStream, "truncated compressed stream")
	}
	if err != nil {
		return n, mlioerr.StreamError("inflate error", err)
	}
	return n, nil
}

func (s *InflateStream) ReadSlice(n int) (memory.Slice, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(s, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return memory.Slice{}, err
	}
	return memory.NewSlice(memory.NewBlock(buf[:read])), nil
}

func (s *InflateStream) Seek(int64) error {
	return mlioerr.NotSupportedError("inflate stream is not seekable")
}
func (s *InflateStream) Size() (int64, bool)    { return 0, false }
func (s *InflateStream) Position() int64        { return s.pos }
func (s *InflateStream) Seekable() bool         { return false }
func (s *InflateStream) SupportsZeroCopy() bool { return false }
func (s *InflateStream) Close() error {
	if c, ok := s.reader.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return s.inner.Close()
}
