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

// Package sharding implements the resettable skip/limit/shard/sample/
// shuffle pipeline stages that wrap an instance reader.
package sharding

import "github.com/awslabs/mlio-go/instances"

// Source is anything that yields instances and can be reset; both
// instances.Reader and every stage in this package satisfy it, so stages
// compose.
type Source interface {
	ReadInstance() (*instances.Instance, error)
	Reset()
}

// Skip discards the first k instances, silently, on the first read after a
// reset.
type Skip struct {
	src      Source
	k        int
	skipped  int
	didSkip  bool
}

func NewSkip(src Source, k int) *Skip {
	return &Skip{src: src, k: k}
}

func (s *Skip) ReadInstance() (*instances.Instance, error) {
	if !s.didSkip {
		for s.skipped < s.k {
			inst, err := s.src.ReadInstance()
			if err != nil {
				return nil, err
			}
			if inst == nil {
				break
			}
			s.skipped++
		}
		s.didSkip = true
	}
	return s.src.ReadInstance()
}

func (s *Skip) Reset() {
	s.src.Reset()
	s.skipped = 0
	s.didSkip = false
}

// Limit reports EOF after m instances have been emitted.
type Limit struct {
	src     Source
	m       int
	emitted int
}

func NewLimit(src Source, m int) *Limit {
	return &Limit{src: src, m: m}
}

func (l *Limit) ReadInstance() (*instances.Instance, error) {
	if l.emitted >= l.m {
		return nil, nil
	}
	inst, err := l.src.ReadInstance()
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, nil
	}
	l.emitted++
	return inst, nil
}

func (l *Limit) Reset() {
	l.src.Reset()
	l.emitted = 0
}

// Shard passes through only instances whose global index satisfies
// index mod n == i.
type Shard struct {
	src   Source
	i, n  int
	index int
}

func NewShard(src Source, i, n int) *Shard {
	return &Shard{src: src, i: i, n: n}
}

func (s *Shard) ReadInstance() (*instances.Instance, error) {
	for {
		inst, err := s.src.ReadInstance()
		if err != nil {
			return nil, err
		}
		if inst == nil {
			return nil, nil
		}
		idx := s.index
		s.index++
		if s.n <= 0 || idx%s.n == s.i {
			return inst, nil
		}
	}
}

func (s *Shard) Reset() {
	s.src.Reset()
	s.index = 0
}
