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

package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/awslabs/mlio-go/decode"
	"github.com/awslabs/mlio-go/example"
	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/internal/log"
	"github.com/awslabs/mlio-go/internal/mlioerr"
)

var engineLog = log.New(log.Engine)

// decodeResult is what a worker publishes back to the collector: the
// originating batch index (for reordering), the decoded example (nil on
// a skipped batch), and any error the strategy raised.
type decodeResult struct {
	index   int
	example *example.Example
	err     error
}

// Engine is the parallel reader engine: a producer pulls batches from
// src, a fixed pool of workers decodes them via strategy, and a collector
// restores batch order before handing examples to the client through
// ReadExample/PeekExample.
type Engine struct {
	id       string
	strategy decode.Strategy
	cfg      Config
	metrics  *Metrics

	batchReader *instances.BatchReader

	mu      sync.Mutex
	running bool

	ctx    context.Context
	cancel context.CancelFunc

	workCh   chan *instances.Batch
	resultCh chan decodeResult
	outCh    chan *example.Example
	workersWG sync.WaitGroup

	firstErr   error
	firstErrMu sync.Mutex

	peeked  *example.Example
	hasPeek bool
}

// New constructs an Engine over src using strategy to decode each batch.
// src is typically a sharding.Pipeline wrapping the dataset's instance
// stream; cfg.BatchSize groups it into instances.Batch values.
func New(strategy decode.Strategy, src instances.InstanceSource, cfg Config, metrics *Metrics) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		id:          uuid.NewString(),
		strategy:    strategy,
		cfg:         cfg,
		metrics:     metrics,
		batchReader: instances.NewBatchReader(src, cfg.BatchSize, cfg.LastExamplePolicy),
	}
}

// ensureStarted lazily launches the producer, worker pool and collector
// goroutines. Called with e.mu held.
func (e *Engine) ensureStarted() {
	if e.running {
		return
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.workCh = make(chan *instances.Batch, e.cfg.NumParallelReads)
	e.resultCh = make(chan decodeResult, e.cfg.NumParallelReads)
	e.outCh = make(chan *example.Example, e.cfg.NumPrefetchedExamples)
	e.firstErr = nil

	e.workersWG.Add(e.cfg.NumParallelReads)
	for i := 0; i < e.cfg.NumParallelReads; i++ {
		go e.runWorker()
	}

	go e.runProducer()

	go func() {
		e.workersWG.Wait()
		close(e.resultCh)
	}()

	go e.runCollector()

	e.running = true
}

func (e *Engine) runProducer() {
	defer close(e.workCh)
	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}

		batch, err := e.batchReader.ReadBatch()
		if err != nil {
			e.setErr(err)
			return
		}
		if batch == nil {
			return
		}

		select {
		case e.workCh <- batch:
		case <-e.ctx.Done():
			return
		}
	}
}

func (e *Engine) runWorker() {
	defer e.workersWG.Done()
	for batch := range e.workCh {
		ex, err := e.strategy.Decode(batch)
		select {
		case e.resultCh <- decodeResult{index: batch.Index, example: ex, err: err}:
		case <-e.ctx.Done():
			return
		}
	}
}

// runCollector reorders decodeResults by batch index and publishes each
// in-order, non-skipped example to outCh, closing it at end of stream so
// ReadExample can report EOF.
func (e *Engine) runCollector() {
	defer close(e.outCh)

	pending := make(map[int]decodeResult)
	next := 0

	for res := range e.resultCh {
		pending[res.index] = res

		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			if r.err != nil {
				e.setErr(r.err)
				return
			}
			if r.example == nil {
				e.metrics.observeSkip()
				continue
			}
			if r.example.Padding > 0 {
				e.metrics.observePadding(r.example.Padding)
			}

			select {
			case e.outCh <- r.example:
				e.metrics.setQueueDepth(len(e.outCh))
			case <-e.ctx.Done():
				return
			}
		}
	}
}

func (e *Engine) setErr(err error) {
	e.firstErrMu.Lock()
	defer e.firstErrMu.Unlock()
	if e.firstErr == nil {
		e.firstErr = err
		engineLog.Warnw("engine pipeline stopped on error",
			"engine_id", e.id, "error", err, "root_cause", mlioerr.RootCause(err))
	}
	e.cancel()
}

// ReadExample blocks until the next example is available, EOF is reached
// (nil, nil), or an error occurred anywhere in the pipeline (the first
// one raised wins).
func (e *Engine) ReadExample(ctx context.Context) (*example.Example, error) {
	e.mu.Lock()
	if e.hasPeek {
		ex := e.peeked
		e.peeked = nil
		e.hasPeek = false
		e.mu.Unlock()
		return ex, nil
	}
	e.ensureStarted()
	outCh := e.outCh
	e.mu.Unlock()

	select {
	case ex, ok := <-outCh:
		if !ok {
			return nil, e.err()
		}
		e.metrics.setQueueDepth(len(outCh))
		return ex, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PeekExample reads one example and caches it so the next ReadExample
// returns it without advancing further.
func (e *Engine) PeekExample(ctx context.Context) (*example.Example, error) {
	e.mu.Lock()
	if e.hasPeek {
		ex := e.peeked
		e.mu.Unlock()
		return ex, nil
	}
	e.mu.Unlock()

	ex, err := e.ReadExample(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.peeked = ex
	e.hasPeek = true
	e.mu.Unlock()

	return ex, nil
}

func (e *Engine) err() error {
	e.firstErrMu.Lock()
	defer e.firstErrMu.Unlock()
	return e.firstErr
}

// Reset stops the running pipeline, drains it, clears the peek cache and
// error state, and re-arms the batch reader (and, transitively, any
// shuffle stage) for a fresh epoch starting at the next ReadExample.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.batchReader.Reset()
	e.peeked = nil
	e.hasPeek = false
}

// Stop signals the producer and workers to exit. In-flight decodes
// complete but their results are dropped; safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if !e.running {
		return
	}
	e.cancel()
	for range e.outCh {
		// Drain so runCollector's send doesn't block forever.
	}
	e.running = false
}
