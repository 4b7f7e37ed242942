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

package streams_test

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/mlio-go/streams"
)

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestInflateStreamGzipRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 1024)

	s, err := streams.NewInflateStream(memStream(gzipped(t, payload)), streams.FormatGzip)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, payload, readAll(t, s))
}

func TestInflateStreamZlibRoundTrip(t *testing.T) {
	payload := []byte("a,b,c\n1,2,3\n")

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	s, err := streams.NewInflateStream(memStream(buf.Bytes()), streams.FormatZlib)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, payload, readAll(t, s))
}

func TestInflateStreamTruncatedInputSurfacesError(t *testing.T) {
	full := gzipped(t, bytes.Repeat([]byte("payload "), 4096))
	truncated := full[:len(full)/2]

	s, err := streams.NewInflateStream(memStream(truncated), streams.FormatGzip)
	require.NoError(t, err)
	defer s.Close()

	buf := make([]byte, 4096)
	for {
		n, err := s.Read(buf)
		if err != nil {
			return // reached the truncation point
		}
		require.NotZero(t, n, "truncated stream reported a clean EOF")
	}
}

func TestInflateStreamGarbageHeaderFailsOpen(t *testing.T) {
	_, err := streams.NewInflateStream(memStream([]byte("not gzip at all")), streams.FormatGzip)
	require.Error(t, err)
}
