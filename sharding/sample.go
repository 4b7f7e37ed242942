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

import (
	"math/rand"

	"github.com/awslabs/mlio-go/instances"
)

// Sample keeps each instance independently with probability r, using a
// seeded PRNG so that, given the same seed, two runs draw identical
// instances.
type Sample struct {
	src  Source
	r    float64
	seed int64
	rng  *rand.Rand
}

func NewSample(src Source, r float64, seed int64) *Sample {
	return &Sample{src: src, r: r, seed: seed, rng: rand.New(rand.NewSource(seed))}
}

func (s *Sample) ReadInstance() (*instances.Instance, error) {
	for {
		inst, err := s.src.ReadInstance()
		if err != nil {
			return nil, err
		}
		if inst == nil {
			return nil, nil
		}
		if s.rng.Float64() < s.r {
			return inst, nil
		}
	}
}

func (s *Sample) Reset() {
	s.src.Reset()
	s.rng = rand.New(rand.NewSource(s.seed))
}
