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

package csv

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

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

var csvLog = log.New(log.CSV)

// parallelCutoff is the columns*instances threshold above which row
// decode partitions across workers.
const parallelCutoff = 10_000_000

// Reader is the CSV decoder strategy: it implements decode.Strategy,
// inferring a schema from the first instance of the dataset and decoding
// each instance batch into a dense Example.
type Reader struct {
	params           Params
	batchSize        int
	badPolicy        decode.BadExamplePolicy
	warnBadInstances bool
	workers          int

	tokenizer *Tokenizer

	columnNames      []string
	shouldReadHeader bool

	columns []column
	sch     *schema.Schema
}

// NewReader constructs a CSV decoder strategy for the given batch size and
// bad-example policy. workers, when <= 0, defaults to GOMAXPROCS.
func NewReader(params Params, batchSize int, badPolicy decode.BadExamplePolicy, warnBadInstances bool, workers int) *Reader {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Reader{
		params:           params,
		batchSize:        batchSize,
		badPolicy:        badPolicy,
		warnBadInstances: warnBadInstances,
		workers:          workers,
		tokenizer:        NewTokenizer(params.Delimiter, params.QuoteChar),
		columnNames:      append([]string(nil), params.ColumnNames...),
		shouldReadHeader: true,
	}
}

// Reset re-arms the per-dataset header bookkeeping.
func (r *Reader) Reset() {
	r.shouldReadHeader = true
}

// MakeRecordReader implements decode.Strategy. Per store it skips or
// consumes header rows before the first data record is served.
func (r *Reader) MakeRecordReader(s streams.Stream) (records.Reader, error) {
	// CSV is a text format: re-encode the store's bytes to UTF-8, honoring
	// a declared encoding or a leading BOM.
	s = streams.NewUtf8Stream(s, streams.Encoding(strings.ToLower(r.params.Encoding)))

	lineParams := records.TextLineParams{SkipEmptyLines: r.params.SkipBlankLines, CommentChar: r.params.CommentChar}
	if r.params.MaxLineLength > 0 {
		maxLen := r.params.MaxLineLength
		lineParams.MaxLineLength = &maxLen
	}
	inner := records.NewTextLineReader(s, lineParams)
	rr := &rowReader{inner: inner, tokenizer: r.tokenizer, allowQuotedNewLines: r.params.AllowQuotedNewLines}

	if r.params.HeaderRowIndex != nil {
		if len(r.columnNames) == 0 {
			names, err := r.readNamesFromHeader(rr)
			if err != nil {
				return nil, err
			}
			r.columnNames = names
		} else if r.shouldReadHeader || !r.params.HasSingleHeader {
			if err := r.skipToHeaderRow(rr); err != nil {
				return nil, err
			}
			if _, err := rr.ReadRecord(); err != nil {
				return nil, err
			}
		}
		r.shouldReadHeader = false
	}

	return rr, nil
}

func (r *Reader) skipToHeaderRow(rr *rowReader) error {
	h := *r.params.HeaderRowIndex
	for i := 0; i < h; i++ {
		rec, err := rr.ReadRecord()
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
	}
	return nil
}

func (r *Reader) readNamesFromHeader(rr *rowReader) ([]string, error) {
	if err := r.skipToHeaderRow(rr); err != nil {
		return nil, err
	}
	rec, err := rr.ReadRecord()
	if err != nil {
		return nil, mlioerr.SchemaErrorf("the header row cannot be read: %v", err)
	}
	if rec == nil {
		return nil, nil
	}
	toks, err := r.tokenizer.Tokenize(rec.Payload.Bytes())
	if err != nil {
		return nil, mlioerr.SchemaErrorf("the header row cannot be read: %v", err)
	}
	names := make([]string, len(toks))
	for i, t := range toks {
		names[i] = r.params.NamePrefix + t.Text
	}
	if len(names) == 0 {
		names = []string{r.params.NamePrefix}
	}
	return names, nil
}

// InferSchema implements decode.Strategy.
func (r *Reader) InferSchema(first *instances.Instance) (*schema.Schema, error) {
	sch, err := r.inferSchema(first)
	if err != nil {
		return nil, err
	}
	r.sch = sch
	return sch, nil
}

// Decode implements decode.Strategy: it decodes batch's instances into a
// dense Example, applying the configured bad-example policy, and runs
// serially or in parallel depending on the batch's size.
func (r *Reader) Decode(batch *instances.Batch) (*example.Example, error) {
	tensors := r.makeTensors()

	numInstances := len(batch.Instances)
	serial := r.badPolicy.Pads() || len(r.columns)*numInstances < parallelCutoff

	var goodRows int
	var err error
	if serial {
		goodRows, err = r.decodeSerial(tensors, batch)
	} else {
		goodRows, err = r.decodeParallel(tensors, batch)
	}
	if err != nil {
		return nil, err
	}

	if goodRows < 0 {
		if r.badPolicy == decode.BadExampleSkipWarn {
			csvLog.Warnw("skipping example with a bad instance", "batch_index", batch.Index)
		}
		return nil, nil
	}

	if goodRows != numInstances && r.badPolicy == decode.BadExamplePadWarn {
		csvLog.Warnw("padding example with bad instances", "batch_index", batch.Index, "bad_instances", numInstances-goodRows)
	}

	feats := make([]tensor.Tensor, len(tensors))
	for i, d := range tensors {
		feats[i] = d
	}
	return &example.Example{Schema: r.sch, Features: feats, Padding: batch.Size - goodRows}, nil
}

func (r *Reader) makeTensors() []*tensor.Dense {
	tensors := make([]*tensor.Dense, 0, len(r.sch.Attributes()))
	for _, col := range r.columns {
		if col.skip {
			continue
		}
		tensors = append(tensors, tensor.NewDense(col.dtype, []int{r.batchSize, 1}))
	}
	return tensors
}

// decodeSerial decodes every instance in order with a single tokenizer,
// short-circuiting on Skip/SkipWarn, returning -1 to signal "drop the
// whole batch".
func (r *Reader) decodeSerial(tensors []*tensor.Dense, batch *instances.Batch) (int, error) {
	rowIdx := 0
	tok := NewTokenizer(r.params.Delimiter, r.params.QuoteChar)
	tok.MaxFieldLength = r.params.MaxFieldLength

	for _, inst := range batch.Instances {
		ok, err := r.decodeRow(tok, tensors, rowIdx, &inst)
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

// decodeParallel partitions batch.Instances across r.workers goroutines,
// each with its own tokenizer, writing into distinct row offsets with no
// synchronization. A bad instance under Skip/SkipWarn cancels the whole
// batch.
func (r *Reader) decodeParallel(tensors []*tensor.Dense, batch *instances.Batch) (int, error) {
	n := len(batch.Instances)
	chunk := (n + r.workers - 1) / r.workers
	if chunk == 0 {
		chunk = n
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		firstErr  error
		skip      bool
	)

	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			tok := NewTokenizer(r.params.Delimiter, r.params.QuoteChar)
			tok.MaxFieldLength = r.params.MaxFieldLength
			for i := start; i < end; i++ {
				ok, err := r.decodeRow(tok, tensors, i, &batch.Instances[i])
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

// decodeRow decodes one instance: tokenize the row, run each retained
// column's parser into (rowIdx, 0), and validate the token count matches
// the schema.
func (r *Reader) decodeRow(tok *Tokenizer, tensors []*tensor.Dense, rowIdx int, inst *instances.Instance) (bool, error) {
	if err := inst.Load(); err != nil {
		return false, err
	}

	toks, err := tok.Tokenize(inst.Bits.Bytes())
	if err != nil {
		return r.badInstance(inst, fmt.Sprintf("the row could not be tokenized: %v", err))
	}

	tsrIdx := 0
	colIdx := 0
	for _, t := range toks {
		if colIdx >= len(r.columns) {
			break
		}
		col := r.columns[colIdx]
		colIdx++

		if col.skip {
			continue
		}

		if t.Truncated {
			switch r.params.MaxFieldLengthHandling {
			case TreatAsBad:
				return r.badInstance(inst, fmt.Sprintf("column %q is too long; its truncated value is %q", col.name, t.Text))
			case TruncateWarn:
				csvLog.Warnw("truncated an over-long field", "column", col.name, "value", t.Text)
			case Truncate:
				// Silent.
			}
		}

		status := col.parser(t.Text, tensors[tsrIdx], rowIdx)
		tsrIdx++
		if status != ParseOK {
			return r.badInstance(inst, fmt.Sprintf("column %q cannot be parsed as %v; its string value is %q", col.name, col.dtype, t.Text))
		}
	}

	if colIdx == len(r.columns) && tsrIdx == len(tensors) && len(toks) == len(r.columns) {
		return true, nil
	}

	return r.badInstance(inst, fmt.Sprintf("the row has a different number of columns than expected (got %d, want %d)", len(toks), len(r.columns)))
}

func (r *Reader) badInstance(inst *instances.Instance, msg string) (bool, error) {
	full := fmt.Sprintf("row #%d in the data store %q: %s", inst.Index, inst.Store.ID(), msg)
	if r.warnBadInstances {
		csvLog.Warnw(full)
	}
	if r.badPolicy == decode.BadExampleError {
		return false, mlioerr.InvalidInstanceError(full)
	}
	return false, nil
}
