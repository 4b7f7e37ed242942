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

package recordioproto

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/awslabs/mlio-go/datatype"
	"github.com/awslabs/mlio-go/decode"
	"github.com/awslabs/mlio-go/example"
	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/internal/log"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/records"
	"github.com/awslabs/mlio-go/schema"
	"github.com/awslabs/mlio-go/streams"
	"github.com/awslabs/mlio-go/tensor"
)

var protoLog = log.New(log.RecordIO)

// parallelCutoff mirrors csv.parallelCutoff's role but is compared
// against the per-instance value count rather than a column count.
const parallelCutoff = 10_000_000

// Reader is the RecordIO-Protobuf decoder strategy: it implements
// decode.Strategy, inferring a schema from the first instance and decoding
// each batch into an Example whose features are either Dense or COO
// tensors depending on how the writer declared them.
type Reader struct {
	params           Params
	batchSize        int
	badPolicy        decode.BadExamplePolicy
	warnBadInstances bool
	workers          int

	sch              *schema.Schema
	hasSparseFeature bool
	numValuesPerInst int
}

// NewReader constructs a RecordIO-Protobuf decoder strategy. workers, when
// <= 0, defaults to GOMAXPROCS.
func NewReader(params Params, batchSize int, badPolicy decode.BadExamplePolicy, warnBadInstances bool, workers int) *Reader {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Reader{params: params, batchSize: batchSize, badPolicy: badPolicy, warnBadInstances: warnBadInstances, workers: workers}
}

// MakeRecordReader implements decode.Strategy. The wire format carries no
// header, so this is a bare RecordIO wrap.
func (r *Reader) MakeRecordReader(s streams.Stream) (records.Reader, error) {
	return records.NewRecordIOReader(s), nil
}

// InferSchema implements decode.Strategy.
func (r *Reader) InferSchema(first *instances.Instance) (*schema.Schema, error) {
	sch, numValues, err := r.inferSchema(first)
	if err != nil {
		return nil, err
	}
	r.sch = sch
	r.numValuesPerInst = numValues
	r.hasSparseFeature = false
	for _, a := range sch.Attributes() {
		if a.Sparse {
			r.hasSparseFeature = true
			break
		}
	}
	return sch, nil
}

// decodeTarget is the per-attribute destination state for one batch: a
// Dense tensor for dense attributes, a cooBuilder for sparse ones.
type decodeTarget struct {
	attr    schema.Attribute
	dense   *tensor.Dense
	builder *cooBuilder
}

// Decode implements decode.Strategy: it decodes batch's instances,
// applying the configured bad-example policy. Decode stays serial whenever
// any feature is sparse (COO rows must land in instance order) or the
// policy pads; otherwise large batches partition across workers.
func (r *Reader) Decode(batch *instances.Batch) (*example.Example, error) {
	targets := r.makeTargets()

	numInstances := len(batch.Instances)
	serial := r.hasSparseFeature ||
		r.badPolicy.Pads() ||
		r.numValuesPerInst*numInstances < parallelCutoff

	var goodRows int
	var err error
	if serial {
		goodRows, err = r.decodeSerial(targets, batch)
	} else {
		goodRows, err = r.decodeParallel(targets, batch)
	}
	if err != nil {
		return nil, err
	}

	if goodRows < 0 {
		if r.badPolicy == decode.BadExampleSkipWarn {
			protoLog.Warnw("skipping example with a bad instance", "batch_index", batch.Index)
		}
		return nil, nil
	}

	if goodRows != numInstances && r.badPolicy == decode.BadExamplePadWarn {
		protoLog.Warnw("padding example with bad instances", "batch_index", batch.Index, "bad_instances", numInstances-goodRows)
	}

	feats := make([]tensor.Tensor, len(targets))
	for i, t := range targets {
		if t.builder != nil {
			coo, err := t.builder.build()
			if err != nil {
				return nil, mlioerr.SchemaError(err.Error())
			}
			feats[i] = coo
		} else {
			feats[i] = t.dense
		}
	}

	return &example.Example{Schema: r.sch, Features: feats, Padding: batch.Size - goodRows}, nil
}

func (r *Reader) makeTargets() []decodeTarget {
	attrs := r.sch.Attributes()
	targets := make([]decodeTarget, len(attrs))
	for i, a := range attrs {
		if a.Sparse {
			targets[i] = decodeTarget{attr: a, builder: newCOOBuilder(a, r.batchSize)}
		} else {
			targets[i] = decodeTarget{attr: a, dense: tensor.NewDense(a.DType, a.Shape)}
		}
	}
	return targets
}

// decodeSerial decodes every instance in order. A bad instance does not
// advance the row cursor (and, for sparse features, the builder's row
// cursor), so under Pad/PadWarn the good rows pack in front of the
// padding; under Skip/SkipWarn the first bad instance returns -1.
func (r *Reader) decodeSerial(targets []decodeTarget, batch *instances.Batch) (int, error) {
	rowIdx := 0
	for i := range batch.Instances {
		ok, err := r.decodeInstance(targets, rowIdx, &batch.Instances[i])
		if err != nil {
			return 0, err
		}
		if ok {
			rowIdx++
			continue
		}
		if r.badPolicy == decode.BadExampleSkip || r.badPolicy == decode.BadExampleSkipWarn {
			return -1, nil
		}
	}
	return rowIdx, nil
}

// decodeParallel partitions batch.Instances across r.workers goroutines.
// It is only reachable when no attribute is sparse, so every target is a
// Dense tensor and rows can be written at arbitrary offsets without
// synchronization.
func (r *Reader) decodeParallel(targets []decodeTarget, batch *instances.Batch) (int, error) {
	n := len(batch.Instances)
	chunk := (n + r.workers - 1) / r.workers
	if chunk == 0 {
		chunk = n
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		skip     bool
	)

	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				ok, err := r.decodeInstance(targets, i, &batch.Instances[i])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				if !ok && (r.badPolicy == decode.BadExampleSkip || r.badPolicy == decode.BadExampleSkipWarn) {
					mu.Lock()
					skip = true
					mu.Unlock()
					return
				}
			}
		}(start, end)
	}
	wg.Wait()

	if firstErr != nil {
		return 0, firstErr
	}
	if skip {
		return -1, nil
	}
	return n, nil
}

// decodeInstance parses the instance's protobuf payload, decodes every
// label/feature entry into its target, and verifies the feature count
// read matches the schema.
func (r *Reader) decodeInstance(targets []decodeTarget, rowIdx int, inst *instances.Instance) (bool, error) {
	if err := inst.Load(); err != nil {
		return false, err
	}

	rec, err := UnmarshalRecord(inst.Bits.Bytes())
	if err != nil {
		return r.badInstance(inst, "contains a corrupt RecordIO-protobuf message")
	}

	numRead := 0
	for name, v := range rec.Label {
		ok, err := r.decodeFeature(targets, rowIdx, inst, labelNamePrefix+name, v)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		numRead++
	}
	for name, v := range rec.Features {
		ok, err := r.decodeFeature(targets, rowIdx, inst, name, v)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		numRead++
	}

	if numRead == len(targets) {
		return true, nil
	}

	return r.badInstance(inst, fmt.Sprintf("has %d feature(s) while it is expected to have %d features", numRead, len(targets)))
}

func (r *Reader) decodeFeature(targets []decodeTarget, rowIdx int, inst *instances.Instance, name string, v *Value) (bool, error) {
	idx, ok := r.sch.IndexOf(name)
	if !ok {
		return r.badInstance(inst, fmt.Sprintf("has an unknown feature named %q", name))
	}
	target := &targets[idx]

	switch {
	case v.Float32Tensor != nil:
		return r.decodeTensor(target, inst, rowIdx, datatype.Float32, v.Float32Tensor.Values, v.Float32Tensor.Keys, v.Float32Tensor.Shape,
			func() bool { return target.builder.appendFloat32(v.Float32Tensor.Values, v.Float32Tensor.Keys) },
			func(offset int) { copyDenseFloat32(target.dense, offset, v.Float32Tensor.Values) })
	case v.Float64Tensor != nil:
		return r.decodeTensor(target, inst, rowIdx, datatype.Float64, v.Float64Tensor.Values, v.Float64Tensor.Keys, v.Float64Tensor.Shape,
			func() bool { return target.builder.appendFloat64(v.Float64Tensor.Values, v.Float64Tensor.Keys) },
			func(offset int) { copyDenseFloat64(target.dense, offset, v.Float64Tensor.Values) })
	case v.Int32Tensor != nil:
		return r.decodeTensor(target, inst, rowIdx, datatype.Int32, v.Int32Tensor.Values, v.Int32Tensor.Keys, v.Int32Tensor.Shape,
			func() bool { return target.builder.appendInt32(v.Int32Tensor.Values, v.Int32Tensor.Keys) },
			func(offset int) { copyDenseInt32(target.dense, offset, v.Int32Tensor.Values) })
	default:
		return r.badInstance(inst, fmt.Sprintf("feature %q has an unexpected data type", target.attr.Name))
	}
}

// decodeTensor runs the shared per-feature body: dtype check, sparsity
// check, shape check, then dispatch to the dense-copy or COO-append path.
func (r *Reader) decodeTensor(
	target *decodeTarget,
	inst *instances.Instance,
	rowIdx int,
	dt datatype.DataType,
	values interface{},
	keys []uint64,
	wireShape []uint64,
	appendSparse func() bool,
	copyDense func(offset int),
) (bool, error) {
	if target.attr.DType != dt {
		return r.badInstance(inst, fmt.Sprintf("feature %q has the data type %v while it is expected to have the data type %v", target.attr.Name, dt, target.attr.DType))
	}

	numValues := reflectValuesLen(values)
	sparse := len(keys) > 0 || (len(wireShape) > 0 && numValues == 0)
	if sparse != target.attr.Sparse {
		if target.attr.Sparse {
			return r.badInstance(inst, fmt.Sprintf("feature %q is dense while it is expected to be sparse", target.attr.Name))
		}
		return r.badInstance(inst, fmt.Sprintf("feature %q is sparse while it is expected to be dense", target.attr.Name))
	}

	if !shapeEquals(target.attr, wireShape, numValues) {
		return r.badInstance(inst, fmt.Sprintf("feature %q does not have the expected shape", target.attr.Name))
	}

	if target.attr.Sparse {
		if len(keys) != numValues {
			return r.badInstance(inst, fmt.Sprintf("sparse feature %q has %d key(s) but %d value(s)", target.attr.Name, len(keys), numValues))
		}
		if !appendSparse() {
			return r.badInstance(inst, fmt.Sprintf("sparse feature %q has one or more invalid keys", target.attr.Name))
		}
		return true, nil
	}

	rowLen := target.attr.Strides[0]
	if rowLen != numValues {
		return r.badInstance(inst, fmt.Sprintf("feature %q has %d value(s) but a row width of %d", target.attr.Name, numValues, rowLen))
	}
	copyDense(rowIdx * rowLen)
	return true, nil
}

// shapeEquals compares a feature's wire shape against its attribute: a
// shape-less dense tensor is compared against the attribute's sole inner
// dimension by value count; a tensor with a declared shape is compared
// dimension-by-dimension, skipping the attribute's batch dimension.
func shapeEquals(attr schema.Attribute, wireShape []uint64, numValues int) bool {
	if len(wireShape) == 0 {
		if len(attr.Shape) != 2 {
			return false
		}
		return attr.Shape[1] == numValues
	}
	if len(attr.Shape)-1 != len(wireShape) {
		return false
	}
	for i, d := range wireShape {
		n, ok := narrowShapeDim(d)
		if !ok || attr.Shape[i+1] != n {
			return false
		}
	}
	return true
}

func reflectValuesLen(v interface{}) int {
	switch s := v.(type) {
	case []float32:
		return len(s)
	case []float64:
		return len(s)
	case []int32:
		return len(s)
	default:
		return 0
	}
}

func copyDenseFloat32(d *tensor.Dense, offset int, values []float32) {
	copy(d.Float32()[offset:], values)
}

func copyDenseFloat64(d *tensor.Dense, offset int, values []float64) {
	copy(d.Float64()[offset:], values)
}

func copyDenseInt32(d *tensor.Dense, offset int, values []int32) {
	copy(d.Int32()[offset:], values)
}

func (r *Reader) badInstance(inst *instances.Instance, msg string) (bool, error) {
	full := fmt.Sprintf("the instance #%d in the data store %q %s", inst.Index, inst.Store.ID(), msg)
	if r.warnBadInstances {
		protoLog.Warnw(full)
	}
	if r.badPolicy == decode.BadExampleError {
		return false, mlioerr.InvalidInstanceError(full)
	}
	return false, nil
}
