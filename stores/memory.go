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

package stores

import (
	"fmt"

	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/streams"
)

// InMemoryStore wraps an already in-memory chunk as a dataset member. It
// does not support CompressionInfer: there is no pathname to infer the
// format from.
type InMemoryStore struct {
	block       *memory.Block
	data        []byte
	id          string
	compression Compression
}

func NewInMemoryStore(data []byte, cmp Compression) (*InMemoryStore, error) {
	if cmp == CompressionInfer {
		return nil, mlioerr.NotSupportedError("the in-memory store does not support inferring compression")
	}
	block := memory.NewBlock(data)
	return &InMemoryStore{
		block:       block,
		data:        data,
		id:          fmt.Sprintf("mem+%#x", len(data)),
		compression: cmp,
	}, nil
}

func (m *InMemoryStore) OpenRead() (streams.Stream, error) {
	storeLog.Infow("opening in-memory store", "id", m.id)

	base := streams.NewMemoryStream(m.block, m.data)
	return wrapCompression(base, m.compression)
}

func (m *InMemoryStore) ID() string { return m.id }
func (m *InMemoryStore) Repr() string {
	return fmt.Sprintf("<in_memory_store id=%q size=%#x compression=%d>", m.id, len(m.data), m.compression)
}
