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

package sharding_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/sharding"
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

func drain(t *testing.T, src sharding.Source) []int {
	t.Helper()
	var out []int
	for {
		inst, err := src.ReadInstance()
		require.NoError(t, err)
		if inst == nil {
			return out
		}
		out = append(out, inst.Index)
	}
}

func TestSkipDiscardsLeadingInstances(t *testing.T) {
	s := sharding.NewSkip(&countingSource{n: 5}, 2)
	assert.Equal(t, []int{2, 3, 4}, drain(t, s))
}

func TestSkipPastEndYieldsEOF(t *testing.T) {
	s := sharding.NewSkip(&countingSource{n: 3}, 10)
	assert.Empty(t, drain(t, s))
}

func TestLimitCapsEmittedInstances(t *testing.T) {
	s := sharding.NewLimit(&countingSource{n: 10}, 4)
	assert.Equal(t, []int{0, 1, 2, 3}, drain(t, s))
}

func TestShardsPartitionTheDataset(t *testing.T) {
	const n = 3
	seen := make(map[int]int)
	for i := 0; i < n; i++ {
		shard := sharding.NewShard(&countingSource{n: 10}, i, n)
		for _, idx := range drain(t, shard) {
			seen[idx]++
		}
	}

	// Union over all shards is the full set, pairwise disjoint.
	require.Len(t, seen, 10)
	for idx, count := range seen {
		assert.Equal(t, 1, count, "instance %d appeared in more than one shard", idx)
	}
}

func TestSampleIsDeterministicForAFixedSeed(t *testing.T) {
	first := drain(t, sharding.NewSample(&countingSource{n: 100}, 0.5, 42))
	second := drain(t, sharding.NewSample(&countingSource{n: 100}, 0.5, 42))

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
	assert.Less(t, len(first), 100)
}

func TestSampleResetReplaysTheSameDraw(t *testing.T) {
	s := sharding.NewSample(&countingSource{n: 50}, 0.3, 7)
	first := drain(t, s)
	s.Reset()
	assert.Equal(t, first, drain(t, s))
}

func TestShuffleWindowedEmitsEveryInstanceExactlyOnce(t *testing.T) {
	seed := int64(11)
	s := sharding.NewShuffle(&countingSource{n: 20}, 5, &seed, false)

	out := drain(t, s)
	require.Len(t, out, 20)

	sorted := append([]int(nil), out...)
	sort.Ints(sorted)
	for i, v := range sorted {
		assert.Equal(t, i, v)
	}
}

func TestShufflePerfectEmitsAPermutation(t *testing.T) {
	seed := int64(3)
	s := sharding.NewShuffle(&countingSource{n: 16}, 0, &seed, false)

	out := drain(t, s)
	require.Len(t, out, 16)

	sorted := append([]int(nil), out...)
	sort.Ints(sorted)
	for i, v := range sorted {
		assert.Equal(t, i, v)
	}
}

func TestShuffleResetReplaysWithTheSameSeed(t *testing.T) {
	seed := int64(99)
	s := sharding.NewShuffle(&countingSource{n: 30}, 8, &seed, false)

	first := drain(t, s)
	s.Reset()
	second := drain(t, s)

	assert.Equal(t, first, second)
}

func TestShuffleSameSeedSameOrderAcrossInstances(t *testing.T) {
	seed := int64(5)
	first := drain(t, sharding.NewShuffle(&countingSource{n: 25}, 4, &seed, false))
	second := drain(t, sharding.NewShuffle(&countingSource{n: 25}, 4, &seed, false))
	assert.Equal(t, first, second)
}

func TestBuildComposesConfiguredStages(t *testing.T) {
	src := sharding.Build(&countingSource{n: 20}, sharding.Params{Skip: 2, Limit: 10, ShardIndex: 0, ShardCount: 2})

	// Skip 2, limit to 10 (2..11), then keep even positions of that range.
	assert.Equal(t, []int{2, 4, 6, 8, 10}, drain(t, src))
}

func TestBuildZeroParamsIsIdentity(t *testing.T) {
	src := sharding.Build(&countingSource{n: 4}, sharding.Params{})
	assert.Equal(t, []int{0, 1, 2, 3}, drain(t, src))
}

func TestBuildShuffleInstancesWithWindow(t *testing.T) {
	seed := int64(13)
	src := sharding.Build(&countingSource{n: 12}, sharding.Params{
		ShuffleInstances: true,
		ShuffleWindow:    4,
		ShuffleSeed:      &seed,
	})

	out := drain(t, src)
	require.Len(t, out, 12)

	sorted := append([]int(nil), out...)
	sort.Ints(sorted)
	for i, v := range sorted {
		assert.Equal(t, i, v)
	}
}

func TestBuildShuffleInstancesPerfectShuffle(t *testing.T) {
	// ShuffleWindow 0 with shuffling on means a whole-epoch shuffle, not
	// "no shuffle".
	seed := int64(13)
	src := sharding.Build(&countingSource{n: 12}, sharding.Params{
		ShuffleInstances: true,
		ShuffleWindow:    0,
		ShuffleSeed:      &seed,
	})

	out := drain(t, src)
	require.Len(t, out, 12)

	sorted := append([]int(nil), out...)
	sort.Ints(sorted)
	for i, v := range sorted {
		assert.Equal(t, i, v)
	}
}

func TestBuildWindowWithoutShuffleInstancesIsIdentity(t *testing.T) {
	src := sharding.Build(&countingSource{n: 4}, sharding.Params{ShuffleWindow: 2})
	assert.Equal(t, []int{0, 1, 2, 3}, drain(t, src))
}
