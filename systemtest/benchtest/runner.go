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

package benchtest

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/awslabs/mlio-go/csv"
	"github.com/awslabs/mlio-go/decode"
	"github.com/awslabs/mlio-go/engine"
	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/recordioproto"
	"github.com/awslabs/mlio-go/stores"
)

// Result is one (workers, run) throughput measurement.
type Result struct {
	Workers      int
	Run          int
	Examples     int
	PaddedRows   int
	Elapsed      time.Duration
	ExamplesPerSec float64
}

func newStrategy(workers int) (decode.Strategy, error) {
	switch *format {
	case "csv":
		return csv.NewReader(csv.DefaultParams(), *batchSize, decode.BadExampleError, false, workers), nil
	case "recordio_protobuf", "recordio", "protobuf":
		return recordioproto.NewReader(recordioproto.Params{}, *batchSize, decode.BadExampleError, false, workers), nil
	default:
		return nil, fmt.Errorf("unrecognized -format %q", *format)
	}
}

func newDataset() []stores.DataStore {
	dataset := make([]stores.DataStore, len(datasetList))
	for i, path := range datasetList {
		dataset[i] = stores.NewFileStore(path, stores.CompressionInfer)
	}
	return dataset
}

// runOnce decodes the configured dataset with a fresh engine for at most
// benchtime, after discarding warmupExamples examples, and reports the
// resulting throughput.
func runOnce(workers, run int) (Result, error) {
	strategy, err := newStrategy(workers)
	if err != nil {
		return Result{}, err
	}

	reader := instances.NewReader(instances.ReaderParams{Dataset: newDataset(), Factory: strategy.MakeRecordReader})
	first, err := reader.PeekInstance()
	if err != nil {
		return Result{}, err
	}
	if first == nil {
		return Result{}, fmt.Errorf("the configured dataset is empty")
	}
	if _, err := strategy.InferSchema(first); err != nil {
		return Result{}, err
	}

	metrics := engine.NewMetrics(prometheus.NewRegistry())
	eng := engine.New(strategy, reader, engine.Config{BatchSize: *batchSize, NumParallelReads: workers}, metrics)

	ctx := context.Background()
	for i := uint(0); i < *warmupExamples; i++ {
		ex, err := eng.ReadExample(ctx)
		if err != nil {
			return Result{}, err
		}
		if ex == nil {
			eng.Reset()
			break
		}
	}

	var minInterval time.Duration
	if maxEPS > 0 {
		minInterval = time.Second / time.Duration(maxEPS)
	}

	deadline := time.Now().Add(*benchtime)
	start := time.Now()
	var examples, paddedRows int
	for time.Now().Before(deadline) {
		iterStart := time.Now()
		ex, err := eng.ReadExample(ctx)
		if err != nil {
			return Result{}, err
		}
		if ex == nil {
			eng.Reset()
			continue
		}
		examples++
		paddedRows += ex.Padding

		if minInterval > 0 {
			if sleep := minInterval - time.Since(iterStart); sleep > 0 {
				time.Sleep(sleep)
			}
		}
	}
	elapsed := time.Since(start)

	return Result{
		Workers:        workers,
		Run:            run,
		Examples:       examples,
		PaddedRows:     paddedRows,
		Elapsed:        elapsed,
		ExamplesPerSec: float64(examples) / elapsed.Seconds(),
	}, nil
}

// Run sweeps workersList, running count repetitions of each, and returns
// every Result in sweep order. Honors -cpuprofile/-memprofile/
// -mutexprofile/-blockprofile across the whole sweep.
func Run() ([]Result, error) {
	stop, err := startProfiling()
	if err != nil {
		return nil, err
	}
	defer stop()

	var results []Result
	for _, workers := range workersList {
		name := fmt.Sprintf("workers=%d/format=%s", workers, *format)
		if runRE != nil && !runRE.MatchString(name) {
			continue
		}
		for run := uint(0); run < *count; run++ {
			res, err := runOnce(workers, int(run))
			if err != nil {
				return results, err
			}
			results = append(results, res)
			if *detailed {
				fmt.Fprintf(os.Stderr, "workers=%d run=%d examples=%d padded_rows=%d elapsed=%s rate=%.1f/s\n",
					res.Workers, res.Run, res.Examples, res.PaddedRows, res.Elapsed, res.ExamplesPerSec)
			}
		}
	}
	return results, nil
}

func startProfiling() (func(), error) {
	var closers []func()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return nil, err
		}
		closers = append(closers, pprof.StopCPUProfile)
	}
	if *blockprofile != "" {
		pprof.Lookup("block")
	}
	if *mutexprofile != "" {
		pprof.Lookup("mutex")
	}

	stop := func() {
		for _, c := range closers {
			c()
		}
		writeProfile(*memprofile, "heap")
		writeProfile(*blockprofile, "block")
		writeProfile(*mutexprofile, "mutex")
	}
	return stop, nil
}

func writeProfile(path, name string) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	pprof.Lookup(name).WriteTo(f, 0)
}
