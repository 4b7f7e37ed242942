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

import (
	"fmt"

	"github.com/awslabs/mlio-go/internal/log"
	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/records"
	"github.com/awslabs/mlio-go/stores"
	"github.com/awslabs/mlio-go/streams"
)

var instanceLog = log.New(log.Instances)

// ZeroRecordPolicy decides what a store whose record reader yields zero
// records (an empty text file, for instance) contributes: a single,
// lazily-loaded instance, or nothing at all. AsSingleInstance is the
// default: it matches the behavior of stores with no record framing at
// all (e.g. a whole-file image store).
type ZeroRecordPolicy int

const (
	AsSingleInstance ZeroRecordPolicy = iota
	AsEmpty
)

// ReaderParams configures Reader.
type ReaderParams struct {
	Dataset          []stores.DataStore
	Factory          records.Factory
	ZeroRecordPolicy ZeroRecordPolicy
}

// Reader walks a dataset's stores, reassembling split records into
// instances.
type Reader struct {
	params ReaderParams

	storeIdx     int
	store        stores.DataStore
	stream       streams.Stream
	recordReader records.Reader

	instanceIdx int
	recordIdx   int

	hasCorruptSplitRecord bool

	peeked  *Instance
	hasPeek bool
}

func NewReader(params ReaderParams) *Reader {
	return &Reader{params: params}
}

// PeekInstance returns the next instance without consuming it: the
// following ReadInstance (or PeekInstance) call returns the same value.
// Callers use this to infer a schema from the dataset's first instance
// before handing the reader to a sharding.Pipeline, the way
// decode.Strategy.InferSchema needs a representative instance up front.
func (r *Reader) PeekInstance() (*Instance, error) {
	if r.hasPeek {
		return r.peeked, nil
	}
	inst, err := r.ReadInstance()
	if err != nil {
		return nil, err
	}
	r.peeked = inst
	r.hasPeek = true
	return inst, nil
}

// ReadInstance returns the next instance, or (nil, nil) at the end of the
// dataset.
func (r *Reader) ReadInstance() (*Instance, error) {
	if r.hasPeek {
		inst := r.peeked
		r.peeked = nil
		r.hasPeek = false
		return inst, nil
	}

	payload, err := r.readRecordPayload()
	if err != nil {
		return nil, r.wrapError(err)
	}

	if payload == nil {
		// Either the dataset is exhausted (store is nil), or the current
		// store has no record framing and becomes a single, lazily loaded
		// instance (the "one image per file" case).
		if r.store != nil {
			inst := Instance{Store: r.store, Index: 0}
			return &inst, nil
		}
		return nil, nil
	}

	inst := Instance{Store: r.store, Index: r.instanceIdx, Bits: *payload, Loaded: true}
	r.instanceIdx++
	return &inst, nil
}

// Reset rewinds the reader to the beginning of the dataset.
func (r *Reader) Reset() {
	r.closeStream()
	r.storeIdx = 0
	r.store = nil
	r.recordReader = nil
	r.instanceIdx = 0
	r.recordIdx = 0
	r.hasCorruptSplitRecord = false
	r.peeked = nil
	r.hasPeek = false
}

func (r *Reader) readRecordPayload() (*memory.Slice, error) {
	if r.hasCorruptSplitRecord {
		return nil, r.corruptSplitRecordError()
	}

	rec, err := r.readRecord()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	if rec.Kind == records.Complete {
		return &rec.Payload, nil
	}

	return r.readSplitRecordPayload(rec)
}

func (r *Reader) readSplitRecordPayload(first *records.Record) (*memory.Slice, error) {
	if first.Kind != records.Begin {
		return nil, r.corruptSplitRecordError()
	}

	parts := []memory.Slice{first.Payload}

	rec, err := r.readRecord()
	if err != nil {
		return nil, err
	}
	for rec != nil && rec.Kind == records.Middle {
		parts = append(parts, rec.Payload)
		rec, err = r.readRecord()
		if err != nil {
			return nil, err
		}
	}

	if rec == nil || rec.Kind != records.End {
		return nil, r.corruptSplitRecordError()
	}
	parts = append(parts, rec.Payload)

	merged := memory.Concat(parts)
	return &merged, nil
}

func (r *Reader) corruptSplitRecordError() error {
	r.hasCorruptSplitRecord = true
	return mlioerr.CorruptRecordError("corrupt split record encountered")
}

// readRecord pulls the next record from the current store's reader,
// advancing across stores as needed. It returns (nil, nil) either when the
// dataset is exhausted or when the current store is a single whole-store
// instance (r.store set, r.recordReader nil).
func (r *Reader) readRecord() (*records.Record, error) {
	for {
		if r.recordReader == nil {
			ok, err := r.initNextRecordReader()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
		}

		rec, err := r.recordReader.ReadRecord()
		if err != nil {
			return nil, err
		}
		if rec != nil {
			r.recordIdx++
			return rec, nil
		}

		// The current reader is exhausted. A store that never yielded a
		// single record is, under AsSingleInstance, treated the same as a
		// store with no framing at all: leave r.store set and clear the
		// reader so the caller reports a lazy whole-store instance.
		if r.params.ZeroRecordPolicy == AsSingleInstance && r.recordIdx == 0 {
			r.recordReader = nil
			return nil, nil
		}

		r.recordReader = nil
	}
}

// initNextRecordReader advances to the next store in the dataset and opens
// its record reader. It returns false either because the dataset is
// exhausted (r.store is left nil) or because the factory reports no
// framing for this store (r.store is set, but there is no reader — the
// store itself is the instance).
func (r *Reader) initNextRecordReader() (bool, error) {
	r.instanceIdx = 0
	r.recordIdx = 0
	r.closeStream()

	if r.storeIdx >= len(r.params.Dataset) {
		r.store = nil
		r.recordReader = nil
		return false, nil
	}

	store := r.params.Dataset[r.storeIdx]
	r.store = store

	s, err := store.OpenRead()
	if err != nil {
		return false, err
	}

	reader, err := r.params.Factory(s)
	if err != nil {
		s.Close()
		return false, err
	}

	// Only move past this store once the factory has succeeded; otherwise
	// a retry of the whole reader would skip it.
	r.storeIdx++
	r.stream = s
	r.recordReader = reader

	return reader != nil, nil
}

// closeStream releases the previous store's stream, if any.
func (r *Reader) closeStream() {
	if r.stream != nil {
		r.stream.Close()
		r.stream = nil
	}
}

// wrapError maps the lower layers' errors onto fixed DataReaderError
// messages naming the offending store. Errors
// already shaped as a DataReaderError (NoSuchStoreError/PermissionDeniedError
// from a failed store open) pass through unchanged.
func (r *Reader) wrapError(err error) error {
	if mlioerr.IsKind(err, mlioerr.KindDataReader) {
		return err
	}

	storeID := "<unknown>"
	if r.store != nil {
		storeID = r.store.ID()
	}

	switch {
	case mlioerr.IsKind(err, mlioerr.KindRecord):
		return mlioerr.DataReaderError(
			fmt.Sprintf("record #%d in the data store %q is corrupt or too large", r.recordIdx, storeID), err)
	case mlioerr.IsKind(err, mlioerr.KindStream):
		return mlioerr.DataReaderError(
			fmt.Sprintf("the data store %q contains corrupt data", storeID), err)
	case mlioerr.IsKind(err, mlioerr.KindNotSupported):
		return mlioerr.DataReaderError(
			fmt.Sprintf("the data store %q cannot be read", storeID), err)
	default:
		return mlioerr.DataReaderError(
			fmt.Sprintf("a system error occurred while reading the data store %q", storeID), err)
	}
}
