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
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/streams"
)

// SageMakerPipeStore reads a SageMaker pipe-mode channel: a sequence of
// named FIFOs "<pathname>_0", "<pathname>_1", ... opened one at a time,
// advancing to the next index on EOF. Open retries back off via
// github.com/cenkalti/backoff/v4 since the writer side may not have
// created the next FIFO yet.
type SageMakerPipeStore struct {
	pathname    string
	compression Compression

	mu       sync.Mutex
	nextFIFO int64
}

func NewSageMakerPipeStore(pathname string, cmp Compression) (*SageMakerPipeStore, error) {
	if cmp == CompressionInfer {
		return nil, mlioerr.NotSupportedError("the sagemaker pipe channel does not support inferring compression")
	}
	return &SageMakerPipeStore{pathname: pathname, compression: cmp}, nil
}

func (p *SageMakerPipeStore) OpenRead() (streams.Stream, error) {
	storeLog.Infow("opening sagemaker pipe channel", "pathname", p.pathname)

	p.mu.Lock()
	idx := p.nextFIFO
	p.mu.Unlock()

	fifo, err := openFIFOWithRetry(fmt.Sprintf("%s_%d", p.pathname, idx))
	if err != nil {
		return nil, mlioerr.StreamError(fmt.Sprintf("FIFO %d of the SageMaker pipe channel cannot be opened", idx), err)
	}

	p.mu.Lock()
	p.nextFIFO++
	p.mu.Unlock()

	base := streams.WrapReader(&timeoutFIFOReader{f: fifo, timeout: sageMakerPipeReadTimeout})
	return wrapCompression(base, p.compression)
}

func (p *SageMakerPipeStore) ID() string { return p.pathname }
func (p *SageMakerPipeStore) Repr() string {
	return fmt.Sprintf("<sagemaker_pipe pathname=%q compression=%d>", p.pathname, p.compression)
}

const sageMakerPipeReadTimeout = 60 * time.Second

// openFIFOWithRetry opens name for reading, retrying with backoff while the
// next FIFO in the sequence has not been created yet by the writer side.
func openFIFOWithRetry(name string) (*os.File, error) {
	var f *os.File

	operation := func() error {
		opened, err := os.OpenFile(name, os.O_RDONLY, 0)
		if err != nil {
			if os.IsNotExist(err) {
				return errors.Wrap(err, "waiting for the writer side to create the FIFO") // retryable
			}
			return backoff.Permanent(err)
		}
		f = opened
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), 3)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return f, nil
}

// timeoutFIFOReader wraps a FIFO file descriptor, raising a TimedOutError
// if no data arrives within timeout.
type timeoutFIFOReader struct {
	f       *os.File
	timeout time.Duration
}

func (r *timeoutFIFOReader) Read(p []byte) (int, error) {
	if err := r.f.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
		// Not every platform's pipe implementation supports read
		// deadlines; fall back to a blocking read in that case.
		return r.f.Read(p)
	}
	n, err := r.f.Read(p)
	if err != nil {
		if os.IsTimeout(err) {
			return n, mlioerr.TimedOutError(r.f.Name())
		}
		return n, err
	}
	return n, nil
}

func (r *timeoutFIFOReader) Close() error { return r.f.Close() }
