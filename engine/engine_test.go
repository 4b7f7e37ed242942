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

package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/mlio-go/datatype"
	"github.com/awslabs/mlio-go/engine"
	"github.com/awslabs/mlio-go/example"
	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/records"
	"github.com/awslabs/mlio-go/schema"
	"github.com/awslabs/mlio-go/streams"
	"github.com/awslabs/mlio-go/tensor"
)

// countingSource yields n synthetic instances numbered 0..n-1.
type countingSource struct {
	n, next int
}

func (s *countingSource) ReadInstance() (*instances.Instance, error) {
	if s.next >= s.n {
		return nil, nil
	}
	inst := &instances.Instance{Index: s.next, Loaded: true}
	s.next++
	return inst, nil
}

func (s *countingSource) Reset() { s.next = 0 }

// indexStrategy decodes each batch into a single int64 feature holding the
// instance indices, optionally stalling on even batches so worker
// completion order diverges from dispatch order.
type indexStrategy struct {
	sch       *schema.Schema
	batchSize int
	staggered bool
	stall     time.Duration // per-batch decode delay
	failOnIdx int           // batch index to fail on; -1 disables
	skipOnIdx int           // batch index to skip (return nil example); -1 disables
}

func newIndexStrategy(t *testing.T, batchSize int) *indexStrategy {
	t.Helper()
	sch, err := schema.New([]schema.Attribute{
		schema.NewAttributeBuilder("index", datatype.Int64, []int{batchSize, 1}).Build(),
	})
	require.NoError(t, err)
	return &indexStrategy{sch: sch, batchSize: batchSize, failOnIdx: -1, skipOnIdx: -1}
}

func (s *indexStrategy) MakeRecordReader(streams.Stream) (records.Reader, error) {
	return nil, nil
}

func (s *indexStrategy) InferSchema(*instances.Instance) (*schema.Schema, error) {
	return s.sch, nil
}

func (s *indexStrategy) Decode(batch *instances.Batch) (*example.Example, error) {
	if s.failOnIdx >= 0 && batch.Index == s.failOnIdx {
		return nil, mlioerr.InvalidInstanceError("synthetic decode failure")
	}
	if s.skipOnIdx >= 0 && batch.Index == s.skipOnIdx {
		return nil, nil
	}
	if s.staggered && batch.Index%2 == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if s.stall > 0 {
		time.Sleep(s.stall)
	}

	d := tensor.NewDense(datatype.Int64, []int{batch.Size, 1})
	for i, inst := range batch.Instances {
		d.Int64()[i] = int64(inst.Index)
	}
	return &example.Example{
		Schema:   s.sch,
		Features: []tensor.Tensor{d},
		Padding:  batch.Size - len(batch.Instances),
	}, nil
}

func readIndices(t *testing.T, eng *engine.Engine) []int64 {
	t.Helper()
	var out []int64
	for {
		ex, err := eng.ReadExample(context.Background())
		require.NoError(t, err)
		if ex == nil {
			return out
		}
		d := ex.Features[0].(*tensor.Dense)
		out = append(out, d.Int64()[:len(d.Int64())-ex.Padding]...)
	}
}

func TestEngineDeliversExamplesInBatchOrder(t *testing.T) {
	strategy := newIndexStrategy(t, 2)
	strategy.staggered = true

	eng := engine.New(strategy, &countingSource{n: 20}, engine.Config{
		BatchSize:        2,
		NumParallelReads: 4,
	}, nil)
	defer eng.Stop()

	got := readIndices(t, eng)
	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, int64(i), v)
	}
}

func TestEngineReportsEOFAsNil(t *testing.T) {
	strategy := newIndexStrategy(t, 4)
	eng := engine.New(strategy, &countingSource{n: 0}, engine.Config{BatchSize: 4}, nil)
	defer eng.Stop()

	ex, err := eng.ReadExample(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ex)
}

func TestEngineResetRestartsFromTheBeginning(t *testing.T) {
	strategy := newIndexStrategy(t, 2)
	eng := engine.New(strategy, &countingSource{n: 8}, engine.Config{
		BatchSize:        2,
		NumParallelReads: 2,
	}, nil)
	defer eng.Stop()

	first := readIndices(t, eng)
	eng.Reset()
	second := readIndices(t, eng)

	assert.Equal(t, first, second)
}

func TestEnginePropagatesTheFirstWorkerError(t *testing.T) {
	strategy := newIndexStrategy(t, 2)
	strategy.failOnIdx = 1

	eng := engine.New(strategy, &countingSource{n: 10}, engine.Config{
		BatchSize:        2,
		NumParallelReads: 2,
	}, nil)
	defer eng.Stop()

	var err error
	for {
		var ex *example.Example
		ex, err = eng.ReadExample(context.Background())
		if err != nil || ex == nil {
			break
		}
	}
	require.Error(t, err)
	assert.True(t, mlioerr.IsKind(err, mlioerr.KindInvalidInstance))
}

func TestEngineDropsSkippedBatches(t *testing.T) {
	strategy := newIndexStrategy(t, 2)
	strategy.skipOnIdx = 1

	eng := engine.New(strategy, &countingSource{n: 8}, engine.Config{
		BatchSize:        2,
		NumParallelReads: 2,
	}, engine.NewMetrics(prometheus.NewRegistry()))
	defer eng.Stop()

	got := readIndices(t, eng)
	assert.Equal(t, []int64{0, 1, 4, 5, 6, 7}, got)
}

func TestEnginePeekDoesNotConsume(t *testing.T) {
	strategy := newIndexStrategy(t, 2)
	eng := engine.New(strategy, &countingSource{n: 4}, engine.Config{
		BatchSize:        2,
		NumParallelReads: 1,
	}, nil)
	defer eng.Stop()

	peeked, err := eng.PeekExample(context.Background())
	require.NoError(t, err)
	require.NotNil(t, peeked)

	read, err := eng.ReadExample(context.Background())
	require.NoError(t, err)
	assert.Same(t, peeked, read)
}

func TestEngineHonorsContextCancellation(t *testing.T) {
	strategy := newIndexStrategy(t, 2)
	strategy.stall = 500 * time.Millisecond

	eng := engine.New(strategy, &countingSource{n: 4}, engine.Config{
		BatchSize:        2,
		NumParallelReads: 1,
	}, nil)
	defer eng.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The first decode is still stalled, so the public queue is empty and
	// the canceled context is the only ready branch.
	_, err := eng.ReadExample(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
