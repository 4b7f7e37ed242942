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

// Package benchtest drives the parallel reader engine against a real
// dataset on disk and reports decode throughput across a sweep of
// worker-pool sizes.
package benchtest

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

var (
	datasetListStr = pflag.String("dataset", getenvDefault("MLIO_BENCH_DATASET", ""), "comma-separated `list` of files making up the dataset to benchmark")
	format         = pflag.String("format", "csv", "decoder format: csv or recordio_protobuf")
	count          = pflag.Uint("count", 1, "run each benchmark `n` times")
	workersListStr = pflag.String("workers", "1", "comma-separated `list` of decode worker-pool sizes to run each benchmark with")
	benchtime      = pflag.Duration("benchtime", time.Second, "run each benchmark for duration `d`")
	batchSize      = pflag.Int("batch-size", 256, "number of instances per decoded example")
	match          = pflag.String("run", "", "run only benchmarks matching `regexp`")

	cpuprofile   = pflag.String("cpuprofile", "", "Write a CPU profile to the specified file before exiting.")
	memprofile   = pflag.String("memprofile", "", "Write an allocation profile to the file before exiting.")
	mutexprofile = pflag.String("mutexprofile", "", "Write a mutex contention profile to the file before exiting.")
	blockprofile = pflag.String("blockprofile", "", "Write a goroutine blocking profile to the file before exiting.")

	warmupExamples = pflag.Uint("warmup-examples", 500, "The number of examples read to warm up the engine before each benchmark")
	maxRate        = pflag.String("max-rate", "-1eps", "Max example rate (e.g. 5eps), enforced as a minimum interval between reads; negative values mean no limit")
	detailed       = pflag.Bool("detailed", false, "Report each run's example and padded row counts recorded during the benchmark")

	maxEPS     int
	datasetList []string
	workersList []int
	runRE       *regexp.Regexp
)

func getenvDefault(name, defaultValue string) string {
	value := os.Getenv(name)
	if value != "" {
		return value
	}
	return defaultValue
}

// parseFlags parses the package's pflag.FlagSet and derives the package
// variables every benchmark reads from.
func parseFlags() error {
	pflag.Parse()

	datasetList = nil
	for _, val := range strings.Split(*datasetListStr, ",") {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		datasetList = append(datasetList, val)
	}
	if len(datasetList) == 0 {
		return fmt.Errorf("-dataset must name at least one file")
	}

	workersList = nil
	for _, val := range strings.Split(*workersListStr, ",") {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid value %q for -workers", val)
		}
		workersList = append(workersList, n)
	}

	if *match != "" {
		re, err := regexp.Compile(*match)
		if err != nil {
			return err
		}
		runRE = re
	} else {
		runRE = regexp.MustCompile(".")
	}

	errStr := "invalid value %s for -max-rate, valid examples: 5eps or 10epm"
	r := strings.Split(*maxRate, "ep")
	if len(r) != 2 {
		return fmt.Errorf(errStr, *maxRate)
	}
	rateVal, err := strconv.Atoi(r[0])
	if err != nil {
		return fmt.Errorf(errStr, *maxRate)
	}
	switch r[1] {
	case "s":
		maxEPS = rateVal
	case "m":
		maxEPS = rateVal / 60
	default:
		return fmt.Errorf(errStr, *maxRate)
	}

	// testing.Init registers package testing's own flags (including
	// test.benchtime) onto the standard flag.CommandLine, separate from
	// the pflag.CommandLine our own flags live on; set it directly so
	// -benchtime and -test.benchtime stay in sync.
	testing.Init()
	if err := flag.Set("test.benchtime", benchtime.String()); err != nil {
		return err
	}
	return nil
}
