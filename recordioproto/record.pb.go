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

// Package recordioproto decodes the SageMaker RecordIO-Protobuf wire
// format: each instance is a single protobuf-encoded Record message
// carrying named dense or sparse tensors, framed by the RecordIO container
// from the records package.
//
// record.pb.go hand-implements the wire codec for the fixed three-message
// schema (Record / Value / {Float32,Float64,Int32}Tensor) without a protoc
// step, using github.com/gogo/protobuf/proto's wire-format constants for
// tag arithmetic. The field layout matches the message definitions
// published with the SageMaker SDK.
package recordioproto

import (
	"math"

	"github.com/gogo/protobuf/proto"

	"github.com/awslabs/mlio-go/internal/mlioerr"
)

// Record is a single decoded instance: named label and feature tensors,
// keyed exactly as they appear on the wire.
type Record struct {
	Label    map[string]*Value
	Features map[string]*Value
}

// Value is the oneof of supported tensor payloads. Exactly one field is
// non-nil on a well-formed Record; support is scoped to the
// float32/float64/int32 tensor variants of the wire format. Bytes
// payloads are not supported.
type Value struct {
	Float32Tensor *Float32Tensor
	Float64Tensor *Float64Tensor
	Int32Tensor   *Int32Tensor
}

// Float32Tensor holds a dense or sparse float32 tensor: Values always
// present, Keys present only when sparse, Shape present whenever the
// writer supplied one.
type Float32Tensor struct {
	Values []float32
	Keys   []uint64
	Shape  []uint64
}

type Float64Tensor struct {
	Values []float64
	Keys   []uint64
	Shape  []uint64
}

type Int32Tensor struct {
	Values []int32
	Keys   []uint64
	Shape  []uint64
}

const (
	recordFieldLabel    = 1
	recordFieldFeatures = 2

	valueFieldFloat32Tensor = 1
	valueFieldFloat64Tensor = 2
	valueFieldInt32Tensor   = 3

	tensorFieldValues = 1
	tensorFieldKeys    = 2
	tensorFieldShape   = 3

	mapEntryFieldKey   = 1
	mapEntryFieldValue = 2
)

// UnmarshalRecord decodes a single protobuf-framed instance payload,
// reporting a corrupt-record error on any wire-format violation: bad tag,
// truncated varint/length, or an unsupported wire type on a known field.
func UnmarshalRecord(data []byte) (*Record, error) {
	rec := &Record{Label: map[string]*Value{}, Features: map[string]*Value{}}

	for len(data) > 0 {
		fieldNum, wireType, n, err := decodeTag(data)
		if err != nil {
			return nil, err
		}
		data = data[n:]

		switch {
		case fieldNum == recordFieldLabel && wireType == proto.WireBytes:
			entry, rest, err := decodeLengthDelimited(data)
			if err != nil {
				return nil, err
			}
			data = rest
			k, v, err := decodeValueMapEntry(entry)
			if err != nil {
				return nil, err
			}
			rec.Label[k] = v
		case fieldNum == recordFieldFeatures && wireType == proto.WireBytes:
			entry, rest, err := decodeLengthDelimited(data)
			if err != nil {
				return nil, err
			}
			data = rest
			k, v, err := decodeValueMapEntry(entry)
			if err != nil {
				return nil, err
			}
			rec.Features[k] = v
		default:
			rest, err := skipField(data, wireType)
			if err != nil {
				return nil, err
			}
			data = rest
		}
	}

	return rec, nil
}

func decodeValueMapEntry(data []byte) (string, *Value, error) {
	var key string
	var val *Value

	for len(data) > 0 {
		fieldNum, wireType, n, err := decodeTag(data)
		if err != nil {
			return "", nil, err
		}
		data = data[n:]

		switch {
		case fieldNum == mapEntryFieldKey && wireType == proto.WireBytes:
			s, rest, err := decodeLengthDelimited(data)
			if err != nil {
				return "", nil, err
			}
			key = string(s)
			data = rest
		case fieldNum == mapEntryFieldValue && wireType == proto.WireBytes:
			b, rest, err := decodeLengthDelimited(data)
			if err != nil {
				return "", nil, err
			}
			v, err := decodeValue(b)
			if err != nil {
				return "", nil, err
			}
			val = v
			data = rest
		default:
			rest, err := skipField(data, wireType)
			if err != nil {
				return "", nil, err
			}
			data = rest
		}
	}

	return key, val, nil
}

func decodeValue(data []byte) (*Value, error) {
	v := &Value{}
	for len(data) > 0 {
		fieldNum, wireType, n, err := decodeTag(data)
		if err != nil {
			return nil, err
		}
		data = data[n:]

		if wireType != proto.WireBytes {
			rest, err := skipField(data, wireType)
			if err != nil {
				return nil, err
			}
			data = rest
			continue
		}

		b, rest, err := decodeLengthDelimited(data)
		if err != nil {
			return nil, err
		}
		data = rest

		switch fieldNum {
		case valueFieldFloat32Tensor:
			t, err := decodeFloat32Tensor(b)
			if err != nil {
				return nil, err
			}
			v.Float32Tensor = t
		case valueFieldFloat64Tensor:
			t, err := decodeFloat64Tensor(b)
			if err != nil {
				return nil, err
			}
			v.Float64Tensor = t
		case valueFieldInt32Tensor:
			t, err := decodeInt32Tensor(b)
			if err != nil {
				return nil, err
			}
			v.Int32Tensor = t
		}
	}
	return v, nil
}

func decodeFloat32Tensor(data []byte) (*Float32Tensor, error) {
	t := &Float32Tensor{}
	for len(data) > 0 {
		fieldNum, wireType, n, err := decodeTag(data)
		if err != nil {
			return nil, err
		}
		data = data[n:]

		switch fieldNum {
		case tensorFieldValues:
			vals, rest, err := decodePackedFixed32AsFloat32(data, wireType)
			if err != nil {
				return nil, err
			}
			t.Values = vals
			data = rest
		case tensorFieldKeys:
			keys, rest, err := decodePackedVarint(data, wireType)
			if err != nil {
				return nil, err
			}
			t.Keys = keys
			data = rest
		case tensorFieldShape:
			shape, rest, err := decodePackedVarint(data, wireType)
			if err != nil {
				return nil, err
			}
			t.Shape = shape
			data = rest
		default:
			rest, err := skipField(data, wireType)
			if err != nil {
				return nil, err
			}
			data = rest
		}
	}
	return t, nil
}

func decodeFloat64Tensor(data []byte) (*Float64Tensor, error) {
	t := &Float64Tensor{}
	for len(data) > 0 {
		fieldNum, wireType, n, err := decodeTag(data)
		if err != nil {
			return nil, err
		}
		data = data[n:]

		switch fieldNum {
		case tensorFieldValues:
			vals, rest, err := decodePackedFixed64AsFloat64(data, wireType)
			if err != nil {
				return nil, err
			}
			t.Values = vals
			data = rest
		case tensorFieldKeys:
			keys, rest, err := decodePackedVarint(data, wireType)
			if err != nil {
				return nil, err
			}
			t.Keys = keys
			data = rest
		case tensorFieldShape:
			shape, rest, err := decodePackedVarint(data, wireType)
			if err != nil {
				return nil, err
			}
			t.Shape = shape
			data = rest
		default:
			rest, err := skipField(data, wireType)
			if err != nil {
				return nil, err
			}
			data = rest
		}
	}
	return t, nil
}

func decodeInt32Tensor(data []byte) (*Int32Tensor, error) {
	t := &Int32Tensor{}
	for len(data) > 0 {
		fieldNum, wireType, n, err := decodeTag(data)
		if err != nil {
			return nil, err
		}
		data = data[n:]

		switch fieldNum {
		case tensorFieldValues:
			vals, rest, err := decodePackedVarintAsInt32(data, wireType)
			if err != nil {
				return nil, err
			}
			t.Values = vals
			data = rest
		case tensorFieldKeys:
			keys, rest, err := decodePackedVarint(data, wireType)
			if err != nil {
				return nil, err
			}
			t.Keys = keys
			data = rest
		case tensorFieldShape:
			shape, rest, err := decodePackedVarint(data, wireType)
			if err != nil {
				return nil, err
			}
			t.Shape = shape
			data = rest
		default:
			rest, err := skipField(data, wireType)
			if err != nil {
				return nil, err
			}
			data = rest
		}
	}
	return t, nil
}

// decodeTag reads a varint tag and splits it into field number and wire
// type, returning the number of bytes consumed.
func decodeTag(data []byte) (fieldNum int, wireType int64, n int, err error) {
	v, n, err := decodeVarint(data)
	if err != nil {
		return 0, 0, 0, err
	}
	return int(v >> 3), int64(v & 0x7), n, nil
}

func decodeVarint(data []byte) (uint64, int, error) {
	var x uint64
	var s uint
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b < 0x80 {
			if i > 9 || (i == 9 && b > 1) {
				return 0, 0, mlioerr.CorruptRecordError("protobuf varint overflows 64 bits")
			}
			return x | uint64(b)<<s, i + 1, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0, mlioerr.CorruptRecordError("protobuf varint runs past the end of the record")
}

func decodeLengthDelimited(data []byte) ([]byte, []byte, error) {
	length, n, err := decodeVarint(data)
	if err != nil {
		return nil, nil, err
	}
	data = data[n:]
	if uint64(len(data)) < length {
		return nil, nil, mlioerr.CorruptRecordError("protobuf length-delimited field runs past the end of the record")
	}
	return data[:length], data[length:], nil
}

func skipField(data []byte, wireType int64) ([]byte, error) {
	switch wireType {
	case proto.WireVarint:
		_, n, err := decodeVarint(data)
		if err != nil {
			return nil, err
		}
		return data[n:], nil
	case proto.WireFixed64:
		if len(data) < 8 {
			return nil, mlioerr.CorruptRecordError("protobuf fixed64 field runs past the end of the record")
		}
		return data[8:], nil
	case proto.WireBytes:
		_, rest, err := decodeLengthDelimited(data)
		return rest, err
	case proto.WireFixed32:
		if len(data) < 4 {
			return nil, mlioerr.CorruptRecordError("protobuf fixed32 field runs past the end of the record")
		}
		return data[4:], nil
	default:
		return nil, mlioerr.CorruptRecordError("protobuf record uses an unsupported wire type")
	}
}

// decodePackedFixed32AsFloat32 accepts either the packed encoding (a
// single length-delimited run of fixed32 values) or the legacy unpacked
// encoding (one fixed32-wire-type tag per value), since both appear in
// the wild for this format.
func decodePackedFixed32AsFloat32(data []byte, wireType int64) ([]float32, []byte, error) {
	if wireType == proto.WireFixed32 {
		if len(data) < 4 {
			return nil, nil, mlioerr.CorruptRecordError("protobuf fixed32 field runs past the end of the record")
		}
		return []float32{decodeFloat32(data[:4])}, data[4:], nil
	}
	b, rest, err := decodeLengthDelimited(data)
	if err != nil {
		return nil, nil, err
	}
	if len(b)%4 != 0 {
		return nil, nil, mlioerr.CorruptRecordError("packed float32 field has a length that is not a multiple of 4")
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = decodeFloat32(b[i*4 : i*4+4])
	}
	return out, rest, nil
}

func decodePackedFixed64AsFloat64(data []byte, wireType int64) ([]float64, []byte, error) {
	if wireType == proto.WireFixed64 {
		if len(data) < 8 {
			return nil, nil, mlioerr.CorruptRecordError("protobuf fixed64 field runs past the end of the record")
		}
		return []float64{decodeFloat64(data[:8])}, data[8:], nil
	}
	b, rest, err := decodeLengthDelimited(data)
	if err != nil {
		return nil, nil, err
	}
	if len(b)%8 != 0 {
		return nil, nil, mlioerr.CorruptRecordError("packed float64 field has a length that is not a multiple of 8")
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = decodeFloat64(b[i*8 : i*8+8])
	}
	return out, rest, nil
}

func decodePackedVarint(data []byte, wireType int64) ([]uint64, []byte, error) {
	if wireType == proto.WireVarint {
		v, n, err := decodeVarint(data)
		if err != nil {
			return nil, nil, err
		}
		return []uint64{v}, data[n:], nil
	}
	b, rest, err := decodeLengthDelimited(data)
	if err != nil {
		return nil, nil, err
	}
	var out []uint64
	for len(b) > 0 {
		v, n, err := decodeVarint(b)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, v)
		b = b[n:]
	}
	return out, rest, nil
}

func decodePackedVarintAsInt32(data []byte, wireType int64) ([]int32, []byte, error) {
	raw, rest, err := decodePackedVarint(data, wireType)
	if err != nil {
		return nil, nil, err
	}
	out := make([]int32, len(raw))
	for i, v := range raw {
		out[i] = int32(v)
	}
	return out, rest, nil
}

func decodeFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}

func decodeFloat64(b []byte) float64 {
	bits := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
	return math.Float64frombits(bits)
}
