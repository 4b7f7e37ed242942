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

// Package instances assembles record payloads into instances, reassembles
// split records, and batches instances for the decoder layer.
package instances

import (
	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/stores"
)

// Instance is a single logical row read from a store: either the payload
// assembled from one or more records (Bits set, Index is the per-store
// record-derived ordinal), or a lazily-loaded whole-store instance (Bits
// unset, Loaded false) for stores with no record framing — the "one image
// per file" case.
type Instance struct {
	Store  stores.DataStore
	Index  int
	Bits   memory.Slice
	Loaded bool
}

// Load materializes Bits for a whole-store instance by opening and
// draining the store; it is a no-op once already loaded.
func (i *Instance) Load() error {
	if i.Loaded {
		return nil
	}
	s, err := i.Store.OpenRead()
	if err != nil {
		return err
	}
	defer s.Close()

	var buf []byte
	chunk := make([]byte, 64*1024)
	for {
		n, err := s.Read(chunk)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		buf = append(buf, chunk[:n]...)
	}

	i.Bits = memory.NewSlice(memory.NewBlock(buf))
	i.Loaded = true
	return nil
}

// Batch groups up to Size instances; when Size exceeds len(Instances) the
// trailing slots are padding.
type Batch struct {
	Index     int
	Instances []Instance
	Size      int
}
