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

package stores

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/streams"
)

// HTTPStore is a read-only dataset member fetched over HTTP range
// requests. Servers that answer 206 Partial Content get a seekable stream
// that re-issues "Range: bytes=<pos>-" after every Seek; servers that
// ignore the Range header degrade to a plain, forward-only body read with
// the same contract as a pipe.
type HTTPStore struct {
	url         string
	client      *http.Client
	compression Compression
}

func NewHTTPStore(url string, client *http.Client, cmp Compression) *HTTPStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStore{url: url, client: client, compression: cmp}
}

func (h *HTTPStore) OpenRead() (streams.Stream, error) {
	storeLog.Infow("opening http store", "url", h.url)

	resp, err := h.getRange(0)
	if err != nil {
		return nil, mlioerr.DataReaderError(fmt.Sprintf("failed to GET %q", h.url), err)
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		size, ok := parseContentRangeTotal(resp.Header.Get("Content-Range"))
		if !ok {
			resp.Body.Close()
			return nil, mlioerr.DataReaderError(
				fmt.Sprintf("the server for %q sent an invalid Content-Range header", h.url), nil)
		}
		// The body stays open until the returned stream is closed.
		return wrapCompression(&httpRangeStream{store: h, size: size, body: resp.Body}, h.compression)
	case http.StatusOK:
		// The server ignored the Range header: forward-only read.
		return wrapCompression(streams.WrapReader(resp.Body), h.compression)
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, mlioerr.NoSuchStoreError(h.url)
	case http.StatusForbidden, http.StatusUnauthorized:
		resp.Body.Close()
		return nil, mlioerr.PermissionDeniedError(h.url)
	default:
		resp.Body.Close()
		return nil, mlioerr.DataReaderError(
			fmt.Sprintf("unexpected HTTP status %d fetching %q", resp.StatusCode, h.url), nil)
	}
}

func (h *HTTPStore) ID() string { return h.url }
func (h *HTTPStore) Repr() string {
	return fmt.Sprintf("<http pathname=%q compression=%d>", h.url, h.compression)
}

// getRange issues a GET for the byte range starting at offset.
func (h *HTTPStore) getRange(offset int64) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, h.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	return h.client.Do(req)
}

// parseContentRangeTotal extracts the total size from a Content-Range
// header of the form "bytes <first>-<last>/<total>".
func parseContentRangeTotal(header string) (int64, bool) {
	slash := strings.LastIndexByte(header, '/')
	if slash < 0 {
		return 0, false
	}
	total, err := strconv.ParseInt(header[slash+1:], 10, 64)
	if err != nil || total < 0 {
		return 0, false
	}
	return total, true
}

// httpRangeStream is a seekable Stream over a range-capable HTTP server.
// Seek just closes the in-flight body and records the new position; the
// next Read re-issues the ranged request from there.
type httpRangeStream struct {
	store *HTTPStore
	size  int64
	pos   int64
	body  io.ReadCloser
}

func (s *httpRangeStream) Read(p []byte) (int, error) {
	if s.pos >= s.size {
		return 0, nil
	}
	if s.body == nil {
		resp, err := s.store.getRange(s.pos)
		if err != nil {
			return 0, mlioerr.StreamError("the ranged request cannot be issued", err)
		}
		if resp.StatusCode != http.StatusPartialContent {
			resp.Body.Close()
			return 0, mlioerr.StreamError(
				fmt.Sprintf("unexpected HTTP status %d resuming at offset %d", resp.StatusCode, s.pos), nil)
		}
		s.body = resp.Body
	}

	n, err := s.body.Read(p)
	s.pos += int64(n)
	if err == io.EOF {
		s.body.Close()
		s.body = nil
		return n, nil
	}
	if err != nil {
		return n, mlioerr.StreamError("I/O error", err)
	}
	return n, nil
}

func (s *httpRangeStream) ReadSlice(n int) (memory.Slice, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(streams.ReaderFrom{S: s}, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return memory.Slice{}, err
	}
	return memory.NewSlice(memory.NewBlock(buf[:read])), nil
}

func (s *httpRangeStream) Seek(pos int64) error {
	if pos < 0 || pos > s.size {
		return mlioerr.New(mlioerr.KindStream, "seek position out of range")
	}
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
	s.pos = pos
	return nil
}

func (s *httpRangeStream) Size() (int64, bool)    { return s.size, true }
func (s *httpRangeStream) Position() int64        { return s.pos }
func (s *httpRangeStream) Seekable() bool         { return true }
func (s *httpRangeStream) SupportsZeroCopy() bool { return false }

func (s *httpRangeStream) Close() error {
	if s.body != nil {
		err := s.body.Close()
		s.body = nil
		return err
	}
	return nil
}
