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

package records_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/records"
	"github.com/awslabs/mlio-go/streams"
)

func TestRecordIOReaderRoundTrip(t *testing.T) {
	var frames []byte
	frames = append(frames, records.EncodeRecordIO(records.Complete, []byte("hello"))...)
	frames = append(frames, records.EncodeRecordIO(records.Begin, []byte("part1"))...)
	frames = append(frames, records.EncodeRecordIO(records.End, []byte("part2"))...)

	r := records.NewRecordIOReader(streams.NewMemoryStream(memory.NewBlock(frames), frames))

	rec, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, records.Complete, rec.Kind)
	require.Equal(t, "hello", string(rec.Payload.Bytes()))

	rec, err = r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, records.Begin, rec.Kind)
	require.Equal(t, "part1", string(rec.Payload.Bytes()))

	rec, err = r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, records.End, rec.Kind)
	require.Equal(t, "part2", string(rec.Payload.Bytes()))

	rec, err = r.ReadRecord()
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestRecordIOReaderEnforcesMaxRecordLength(t *testing.T) {
	frames := records.EncodeRecordIO(records.Complete, []byte("0123456789"))

	r := records.NewRecordIOReader(streams.NewMemoryStream(memory.NewBlock(frames), frames))
	r.MaxRecordLength = 4

	_, err := r.ReadRecord()
	require.Error(t, err)
}

func TestRecordIOReaderRejectsBadMagic(t *testing.T) {
	frames := []byte{0, 0, 0, 0, 0, 0, 0, 0}
	r := records.NewRecordIOReader(streams.NewMemoryStream(memory.NewBlock(frames), frames))
	_, err := r.ReadRecord()
	require.Error(t, err)
}

func TestRecordIOReaderRejectsTruncatedPayload(t *testing.T) {
	full := records.EncodeRecordIO(records.Complete, []byte("hello world"))
	truncated := full[:len(full)-2]
	r := records.NewRecordIOReader(streams.NewMemoryStream(memory.NewBlock(truncated), truncated))
	_, err := r.ReadRecord()
	require.Error(t, err)
}

func TestRecordIOReaderPadsPayloadToFourBytes(t *testing.T) {
	// "abc" is 3 bytes: padded to 4.
	frame := records.EncodeRecordIO(records.Complete, []byte("abc"))
	require.Len(t, frame, 8+4)

	r := records.NewRecordIOReader(streams.NewMemoryStream(memory.NewBlock(frame), frame))
	rec, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, "abc", string(rec.Payload.Bytes()))
}
