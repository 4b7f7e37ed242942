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

package sharding

// Params declaratively selects which of this package's stages to layer
// over a Source, in a fixed order: skip, limit, shard, sample, shuffle.
// A zero Params is the identity pipeline.
type Params struct {
	Skip  int
	Limit int

	ShardIndex int
	ShardCount int

	SampleRatio float64
	SampleSeed  int64

	// ShuffleInstances turns the shuffle stage on; ShuffleWindow bounds
	// the reservoir, with 0 meaning a perfect, whole-epoch shuffle.
	ShuffleInstances          bool
	ShuffleWindow             int
	ShuffleSeed               *int64
	ShuffleReshuffleEachEpoch bool
}

// Build layers the configured stages over src in order, skipping any stage
// whose Params leave it at its no-op value (Skip == 0, ShardCount <= 1,
// SampleRatio <= 0 or >= 1, ShuffleInstances false). A shuffle stage is
// added only when ShuffleInstances is set, since ShuffleWindow == 0 is a
// meaningful value of its own (a perfect shuffle) rather than "off".
func Build(src Source, p Params) Source {
	var s Source = src

	if p.Skip > 0 {
		s = NewSkip(s, p.Skip)
	}
	if p.Limit > 0 {
		s = NewLimit(s, p.Limit)
	}
	if p.ShardCount > 1 {
		s = NewShard(s, p.ShardIndex, p.ShardCount)
	}
	if p.SampleRatio > 0 && p.SampleRatio < 1 {
		s = NewSample(s, p.SampleRatio, p.SampleSeed)
	}
	if p.ShuffleInstances {
		s = NewShuffle(s, p.ShuffleWindow, p.ShuffleSeed, p.ShuffleReshuffleEachEpoch)
	}

	return s
}
