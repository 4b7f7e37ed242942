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

// Command mlio-cat opens one or more files as a dataset, decodes them
// with the configured strategy, and prints the shape and dtype of every
// feature in every example it reads. It is the inspection counterpart to
// systemtest/benchtest: where that package measures decode throughput,
// this one shows what actually came out of the pipeline.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/awslabs/mlio-go/config"
	"github.com/awslabs/mlio-go/csv"
	"github.com/awslabs/mlio-go/decode"
	"github.com/awslabs/mlio-go/engine"
	"github.com/awslabs/mlio-go/example"
	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/recordioproto"
	"github.com/awslabs/mlio-go/schema"
	"github.com/awslabs/mlio-go/sharding"
	"github.com/awslabs/mlio-go/stores"
)

var (
	flagConfig    string
	flagFormat    string
	flagBatchSize int
	flagWorkers   int
	flagPrefetch  int
	flagBadPolicy string
	flagWarnBad   bool
	flagMaxExamples int
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mlio-cat [files...]",
		Short: "Decode a dataset and print each example's feature shapes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCat,
	}

	flags := cmd.Flags()
	flags.StringVar(&flagConfig, "config", "", "optional YAML config file overlaying csv/recordio_protobuf/engine/sharding settings")
	flags.StringVar(&flagFormat, "format", "csv", "dataset format: csv or recordio_protobuf")
	flags.IntVar(&flagBatchSize, "batch-size", 32, "number of instances per decoded example")
	flags.IntVar(&flagWorkers, "workers", 0, "decode worker goroutines (0: GOMAXPROCS)")
	flags.IntVar(&flagPrefetch, "prefetch", 0, "bounded depth of the prefetch queue (0: same as workers)")
	flags.StringVar(&flagBadPolicy, "bad-example-handling", "error", "error|skip|skip_warn|pad|pad_warn")
	flags.BoolVar(&flagWarnBad, "warn-bad-instances", false, "log every bad instance, in addition to --bad-example-handling")
	flags.IntVar(&flagMaxExamples, "max-examples", 0, "stop after printing this many examples (0: read to EOF)")

	return cmd
}

func runCat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("mlio-cat: loading configuration: %w", err)
	}

	dataset := make([]stores.DataStore, len(args))
	for i, path := range args {
		dataset[i] = stores.NewFileStore(path, stores.CompressionInfer)
	}

	badPolicy := cfg.Engine.BadExamplePolicy()
	if cmd.Flags().Changed("bad-example-handling") {
		badPolicy = config.EngineConfig{BadExampleHandling: flagBadPolicy}.BadExamplePolicy()
	}
	warnBad := cfg.Engine.WarnBadInstances || flagWarnBad

	var strategy decode.Strategy
	switch flagFormat {
	case "csv":
		params := cfg.CSV
		if params.Delimiter == 0 {
			params = csv.DefaultParams()
		}
		strategy = csv.NewReader(params, flagBatchSize, badPolicy, warnBad, flagWorkers)
	case "recordio_protobuf", "recordio", "protobuf":
		strategy = recordioproto.NewReader(cfg.RecordIO, flagBatchSize, badPolicy, warnBad, flagWorkers)
	default:
		return fmt.Errorf("mlio-cat: unrecognized --format %q", flagFormat)
	}

	reader := instances.NewReader(instances.ReaderParams{Dataset: dataset, Factory: strategy.MakeRecordReader})

	first, err := reader.PeekInstance()
	if err != nil {
		return fmt.Errorf("mlio-cat: reading the first instance: %w", err)
	}
	if first == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "the dataset is empty")
		return nil
	}
	sch, err := strategy.InferSchema(first)
	if err != nil {
		return fmt.Errorf("mlio-cat: inferring the schema: %w", err)
	}

	pipeline := sharding.Build(reader, cfg.Sharding.ToShardingParams())

	engCfg := cfg.Engine.ToEngineConfig()
	engCfg.BatchSize = flagBatchSize
	if flagWorkers > 0 {
		engCfg.NumParallelReads = flagWorkers
	}
	if flagPrefetch > 0 {
		engCfg.NumPrefetchedExamples = flagPrefetch
	}

	metrics := engine.NewMetrics(prometheus.NewRegistry())
	eng := engine.New(strategy, pipeline, engCfg, metrics)

	printSchema(cmd, sch)

	ctx := context.Background()
	count := 0
	for {
		ex, err := eng.ReadExample(ctx)
		if err != nil {
			return fmt.Errorf("mlio-cat: %w", err)
		}
		if ex == nil {
			break
		}
		printExample(cmd, count, ex)
		count++
		if flagMaxExamples > 0 && count >= flagMaxExamples {
			break
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d example(s) read\n", count)
	return nil
}

func printSchema(cmd *cobra.Command, sch *schema.Schema) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "schema:")
	for _, attr := range sch.Attributes() {
		kind := "dense"
		if attr.Sparse {
			kind = "sparse"
		}
		fmt.Fprintf(out, "  %-24s %-8s shape=%v (%s)\n", attr.Name, attr.DType, attr.Shape, kind)
	}
}

func printExample(cmd *cobra.Command, index int, ex *example.Example) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "example #%d (padding=%d):\n", index, ex.Padding)
	attrs := ex.Schema.Attributes()
	for i, feat := range ex.Features {
		name := fmt.Sprintf("feature[%d]", i)
		if i < len(attrs) {
			name = attrs[i].Name
		}
		fmt.Fprintf(out, "  %-24s shape=%v dtype=%v\n", name, feat.Shape(), feat.DType())
	}
}
