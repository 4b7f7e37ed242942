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

// Package config loads the reader's configuration surface (CSV parser
// options, RecordIO-Protobuf options, and the engine's prefetch/worker
// settings) from a layered YAML file + environment overlay.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/mitchellh/mapstructure"

	"github.com/awslabs/mlio-go/csv"
	"github.com/awslabs/mlio-go/datatype"
	"github.com/awslabs/mlio-go/decode"
	"github.com/awslabs/mlio-go/engine"
	"github.com/awslabs/mlio-go/instances"
	"github.com/awslabs/mlio-go/recordioproto"
	"github.com/awslabs/mlio-go/sharding"
)

// envPrefix is the environment variable namespace layered on top of any
// file-based configuration, e.g. MLIO_ENGINE__BATCH_SIZE=256.
const envPrefix = "MLIO_"

// Config is the root configuration document: CSV decoder parameters,
// RecordIO-Protobuf decoder parameters, and the engine's scheduling
// knobs, each independently optional so a reader that only uses one
// decoder need not configure the other.
type Config struct {
	CSV         csv.Params          `koanf:"csv"`
	RecordIO    recordioproto.Params `koanf:"recordio_protobuf"`
	Engine      EngineConfig        `koanf:"engine"`
	Sharding    ShardingConfig      `koanf:"sharding"`
}

// ShardingConfig mirrors sharding.Params in koanf-tagged form.
type ShardingConfig struct {
	Skip  int `koanf:"skip"`
	Limit int `koanf:"limit"`

	ShardIndex int `koanf:"shard_index"`
	ShardCount int `koanf:"shard_count"`

	SampleRatio float64 `koanf:"sample_ratio"`
	SampleSeed  int64   `koanf:"sample_seed"`

	ShuffleInstances          bool   `koanf:"shuffle_instances"`
	ShuffleWindow             int    `koanf:"shuffle_window"`
	ShuffleSeed               *int64 `koanf:"shuffle_seed"`
	ShuffleReshuffleEachEpoch bool   `koanf:"shuffle_reshuffle_each_epoch"`
}

// ToShardingParams translates the string-friendly ShardingConfig into
// sharding.Params.
func (c ShardingConfig) ToShardingParams() sharding.Params {
	return sharding.Params{
		Skip:                      c.Skip,
		Limit:                     c.Limit,
		ShardIndex:                c.ShardIndex,
		ShardCount:                c.ShardCount,
		SampleRatio:               c.SampleRatio,
		SampleSeed:                c.SampleSeed,
		ShuffleInstances:          c.ShuffleInstances,
		ShuffleWindow:             c.ShuffleWindow,
		ShuffleSeed:               c.ShuffleSeed,
		ShuffleReshuffleEachEpoch: c.ShuffleReshuffleEachEpoch,
	}
}

// EngineConfig mirrors engine.Config in koanf-tagged, string-friendly
// form (bad_example_handling and last_example_policy are spelled out as
// names rather than the raw enum ints engine.Config/decode use
// internally).
type EngineConfig struct {
	NumPrefetchedExamples int    `koanf:"num_prefetched_examples"`
	NumParallelReads      int    `koanf:"num_parallel_reads"`
	BatchSize             int    `koanf:"batch_size"`
	LastExamplePolicy     string `koanf:"last_example_policy"`
	BadExampleHandling    string `koanf:"bad_example_handling"`
	WarnBadInstances      bool   `koanf:"warn_bad_instances"`
}

// Load reads path (if non-empty) as YAML, then overlays any MLIO_-
// prefixed environment variables (double underscore as the nesting
// delimiter, e.g. MLIO_ENGINE__BATCH_SIZE), and decodes the result into a
// Config with DataType-aware string conversion.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, err
	}

	var cfg Config
	decodeConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				dataTypeHook,
				mapstructure.StringToSliceHookFunc(","),
			),
			Metadata:         nil,
			Result:           &cfg,
			WeaklyTypedInput: true,
			TagName:          "koanf",
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, decodeConf); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// dataTypeType is compared by exact reflect.Type, not Kind, so this hook
// only fires for datatype.DataType fields and leaves other byte-kinded
// fields (csv.Params.Delimiter, csv.Params.QuoteChar) untouched.
var dataTypeType = reflect.TypeOf(datatype.DataType(0))

// dataTypeHook lets schema overrides in config files/env vars spell out
// "float32", "int64", etc. instead of the raw datatype.DataType ordinal.
func dataTypeHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != dataTypeType {
		return data, nil
	}
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	return parseDataType(s)
}

func parseDataType(s string) (datatype.DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "size":
		return datatype.Size, nil
	case "float16":
		return datatype.Float16, nil
	case "float32":
		return datatype.Float32, nil
	case "float64":
		return datatype.Float64, nil
	case "int8":
		return datatype.Int8, nil
	case "int16":
		return datatype.Int16, nil
	case "int32":
		return datatype.Int32, nil
	case "int64":
		return datatype.Int64, nil
	case "uint8":
		return datatype.Uint8, nil
	case "uint16":
		return datatype.Uint16, nil
	case "uint32":
		return datatype.Uint32, nil
	case "uint64":
		return datatype.Uint64, nil
	case "string":
		return datatype.String, nil
	default:
		return 0, fmt.Errorf("config: %q is not a recognized data type", s)
	}
}

// ToEngineConfig translates the string-friendly EngineConfig into the
// engine package's native Config. The bad-example policy is not part of
// it: BadExamplePolicy translates that, for the caller to pass into the
// chosen decode.Strategy constructor.
func (c EngineConfig) ToEngineConfig() engine.Config {
	return engine.Config{
		NumPrefetchedExamples: c.NumPrefetchedExamples,
		NumParallelReads:      c.NumParallelReads,
		BatchSize:             c.BatchSize,
		LastExamplePolicy:     parseLastExamplePolicy(c.LastExamplePolicy),
	}
}

// BadExamplePolicy translates the configured string into decode's enum.
func (c EngineConfig) BadExamplePolicy() decode.BadExamplePolicy {
	switch strings.ToLower(strings.TrimSpace(c.BadExampleHandling)) {
	case "skip":
		return decode.BadExampleSkip
	case "skip_warn":
		return decode.BadExampleSkipWarn
	case "pad":
		return decode.BadExamplePad
	case "pad_warn":
		return decode.BadExamplePadWarn
	default:
		return decode.BadExampleError
	}
}

func parseLastExamplePolicy(s string) instances.LastExamplePolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop":
		return instances.LastExampleDrop
	case "drop_warn":
		return instances.LastExampleDropWarn
	case "pad":
		return instances.LastExamplePad
	case "pad_warn":
		return instances.LastExamplePadWarn
	default:
		return instances.LastExampleNone
	}
}
