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

package instances

// LastExamplePolicy governs what happens to a trailing, short batch at the
// end of an epoch.
type LastExamplePolicy int

const (
	LastExampleNone LastExamplePolicy = iota
	LastExampleDrop
	LastExampleDropWarn
	LastExamplePad
	LastExamplePadWarn
)

// InstanceSource is any reader of individual instances that a BatchReader
// can group. sharding.Pipeline satisfies this, as does Reader directly.
type InstanceSource interface {
	ReadInstance() (*Instance, error)
	Reset()
}

// BatchReader groups instances from src into batches of BatchSize,
// applying policy to the final, short batch of an epoch.
type BatchReader struct {
	src       InstanceSource
	batchSize int
	policy    LastExamplePolicy

	batchIdx int
}

func NewBatchReader(src InstanceSource, batchSize int, policy LastExamplePolicy) *BatchReader {
	return &BatchReader{src: src, batchSize: batchSize, policy: policy}
}

// ReadBatch returns the next batch, or (nil, nil) at the end of the epoch.
func (b *BatchReader) ReadBatch() (*Batch, error) {
	var collected []Instance
	for len(collected) < b.batchSize {
		inst, err := b.src.ReadInstance()
		if err != nil {
			return nil, err
		}
		if inst == nil {
			break
		}
		collected = append(collected, *inst)
	}

	if len(collected) == 0 {
		return nil, nil
	}

	if len(collected) == b.batchSize {
		batch := &Batch{Index: b.batchIdx, Instances: collected, Size: b.batchSize}
		b.batchIdx++
		return batch, nil
	}

	// A short, final batch: apply the last-example policy.
	switch b.policy {
	case LastExampleDrop, LastExampleDropWarn:
		if b.policy == LastExampleDropWarn {
			instanceLog.Warnw("dropping a short final batch", "batch_size", len(collected), "configured_size", b.batchSize)
		}
		return nil, nil
	case LastExamplePad, LastExamplePadWarn:
		if b.policy == LastExamplePadWarn {
			instanceLog.Warnw("padding a short final batch", "batch_size", len(collected), "configured_size", b.batchSize)
		}
		batch := &Batch{Index: b.batchIdx, Instances: collected, Size: b.batchSize}
		b.batchIdx++
		return batch, nil
	default: // LastExampleNone
		batch := &Batch{Index: b.batchIdx, Instances: collected, Size: len(collected)}
		b.batchIdx++
		return batch, nil
	}
}

// Reset zeroes the batch counter and resets the underlying instance source.
func (b *BatchReader) Reset() {
	b.batchIdx = 0
	b.src.Reset()
}
