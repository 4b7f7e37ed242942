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

package instances_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/records"
	"github.com/awslabs/mlio-go/stores"
)

func newRecordIOReader(t *testing.T, n int) *instances.Reader {
	t.Helper()
	var frames []byte
	for i := 0; i < n; i++ {
		frames = append(frames, records.EncodeRecordIO(records.Complete, []byte{byte('a' + i)})...)
	}
	return instances.NewReader(instances.ReaderParams{
		Dataset: []stores.DataStore{memStore(t, frames)},
		Factory: recordIOFactory,
	})
}

func TestBatchReaderGroupsFullBatches(t *testing.T) {
	br := instances.NewBatchReader(newRecordIOReader(t, 6), 2, instances.LastExampleNone)

	for i := 0; i < 3; i++ {
		batch, err := br.ReadBatch()
		require.NoError(t, err)
		require.Len(t, batch.Instances, 2)
		require.Equal(t, 2, batch.Size)
		require.Equal(t, i, batch.Index)
	}

	batch, err := br.ReadBatch()
	require.NoError(t, err)
	require.Nil(t, batch)
}

func TestBatchReaderNonePolicyEmitsShortFinalBatch(t *testing.T) {
	br := instances.NewBatchReader(newRecordIOReader(t, 5), 2, instances.LastExampleNone)

	_, _ = br.ReadBatch()
	_, _ = br.ReadBatch()
	batch, err := br.ReadBatch()
	require.NoError(t, err)
	require.Len(t, batch.Instances, 1)
	require.Equal(t, 1, batch.Size)
}

func TestBatchReaderDropPolicyDiscardsShortFinalBatch(t *testing.T) {
	br := instances.NewBatchReader(newRecordIOReader(t, 5), 2, instances.LastExampleDrop)

	_, _ = br.ReadBatch()
	_, _ = br.ReadBatch()
	batch, err := br.ReadBatch()
	require.NoError(t, err)
	require.Nil(t, batch)
}

func TestBatchReaderPadPolicyPadsShortFinalBatch(t *testing.T) {
	br := instances.NewBatchReader(newRecordIOReader(t, 5), 2, instances.LastExamplePad)

	_, _ = br.ReadBatch()
	_, _ = br.ReadBatch()
	batch, err := br.ReadBatch()
	require.NoError(t, err)
	require.Len(t, batch.Instances, 1)
	require.Equal(t, 2, batch.Size)
}

func TestBatchReaderResetZeroesCounterAndRewinds(t *testing.T) {
	br := instances.NewBatchReader(newRecordIOReader(t, 4), 2, instances.LastExampleNone)

	batch, err := br.ReadBatch()
	require.NoError(t, err)
	require.Equal(t, 0, batch.Index)

	batch, err = br.ReadBatch()
	require.NoError(t, err)
	require.Equal(t, 1, batch.Index)

	br.Reset()

	batch, err = br.ReadBatch()
	require.NoError(t, err)
	require.Equal(t, 0, batch.Index)
	require.Len(t, batch.Instances, 2)
}
