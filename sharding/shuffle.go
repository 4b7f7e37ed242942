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
	"time"

	"github.com/awslabs/mlio-go/instances"
)

// Shuffle implements a windowed reservoir shuffle, with Window == 0
// falling back to a perfect, whole-epoch shuffle. Seed, when
// nil, draws fresh entropy on construction and on every reset unless
// ReshuffleEachEpoch is false, in which case the original draw is reused.
type Shuffle struct {
	src                Source
	window             int
	seed               *int64
	reshuffleEachEpoch bool

	rng        *rand.Rand
	activeSeed int64

	reservoir []instances.Instance
	filled    bool

	// perfect holds the materialized epoch when Window == 0; drawn is the
	// count of instances already handed out from it.
	perfect []instances.Instance
	drawn   int
}

func NewShuffle(src Source, window int, seed *int64, reshuffleEachEpoch bool) *Shuffle {
	s := &Shuffle{src: src, window: window, seed: seed, reshuffleEachEpoch: reshuffleEachEpoch}
	s.activeSeed = s.drawSeed()
	s.rng = rand.New(rand.NewSource(s.activeSeed))
	return s
}

func (s *Shuffle) drawSeed() int64 {
	if s.seed != nil {
		return *s.seed
	}
	return time.Now().UnixNano()
}

func (s *Shuffle) ReadInstance() (*instances.Instance, error) {
	if s.window == 0 {
		return s.readPerfect()
	}
	return s.readWindowed()
}

// readWindowed maintains a reservoir of up to Window instances: it fills
// the reservoir on first use, then on every read emits a uniformly random
// slot and refills that slot from the source, shrinking the reservoir once
// the source is drained.
func (s *Shuffle) readWindowed() (*instances.Instance, error) {
	if !s.filled {
		for len(s.reservoir) < s.window {
			inst, err := s.src.ReadInstance()
			if err != nil {
				return nil, err
			}
			if inst == nil {
				break
			}
			s.reservoir = append(s.reservoir, *inst)
		}
		s.filled = true
	}

	if len(s.reservoir) == 0 {
		return nil, nil
	}

	j := s.rng.Intn(len(s.reservoir))
	out := s.reservoir[j]

	next, err := s.src.ReadInstance()
	if err != nil {
		return nil, err
	}
	if next == nil {
		// Source exhausted: shrink the reservoir by moving the last
		// element into slot j.
		last := len(s.reservoir) - 1
		s.reservoir[j] = s.reservoir[last]
		s.reservoir = s.reservoir[:last]
	} else {
		s.reservoir[j] = *next
	}

	return &out, nil
}

// readPerfect materializes the whole epoch on first use, shuffles it with
// a Fisher-Yates pass, and then hands instances out in that order.
func (s *Shuffle) readPerfect() (*instances.Instance, error) {
	if !s.filled {
		for {
			inst, err := s.src.ReadInstance()
			if err != nil {
				return nil, err
			}
			if inst == nil {
				break
			}
			s.perfect = append(s.perfect, *inst)
		}
		s.rng.Shuffle(len(s.perfect), func(i, j int) {
			s.perfect[i], s.perfect[j] = s.perfect[j], s.perfect[i]
		})
		s.filled = true
	}

	if s.drawn >= len(s.perfect) {
		return nil, nil
	}
	out := s.perfect[s.drawn]
	s.drawn++
	return &out, nil
}

func (s *Shuffle) Reset() {
	s.src.Reset()
	s.reservoir = nil
	s.perfect = nil
	s.drawn = 0
	s.filled = false

	if s.reshuffleEachEpoch {
		s.activeSeed = s.drawSeed()
	}
	s.rng = rand.New(rand.NewSource(s.activeSeed))
}
