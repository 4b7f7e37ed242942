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

// Package mlioerr centralizes the reader pipeline's error taxonomy. Every
// kind carries an optional cause; Error satisfies both the standard
// library's Unwrap contract and github.com/pkg/errors' Causer contract, so
// errors.Cause (re-exported here as RootCause) digs out the innermost
// system error no matter how many pipeline layers re-wrapped it.
package mlioerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind discriminates the error taxonomy.
type Kind int

const (
	KindStream Kind = iota
	KindRecord
	KindSchema
	KindInvalidInstance
	KindNotSupported
	KindInvalidArgument
	KindDataReader
)

func (k Kind) String() string {
	switch k {
	case KindStream:
		return "stream error"
	case KindRecord:
		return "record error"
	case KindSchema:
		return "schema error"
	case KindInvalidInstance:
		return "invalid instance"
	case KindNotSupported:
		return "not supported"
	case KindInvalidArgument:
		return "invalid argument"
	case KindDataReader:
		return "data reader error"
	default:
		return "error"
	}
}

// Error is the concrete error type raised by every layer of the reader
// pipeline. Message carries the user-facing text; Cause, when present, is
// the lower-level error this one wraps (record error inside a stream
// error, system error inside a data reader error, and so on).
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause implements github.com/pkg/errors' Causer contract, so
// errors.Cause walks through Error values the same way errors.Unwrap does.
func (e *Error) Cause() error { return e.cause }

// RootCause returns the innermost error of a wrapped chain via
// github.com/pkg/errors, typically the raw system error underneath a
// DataReaderError or StreamError.
func RootCause(err error) error {
	return errors.Cause(err)
}

// Is supports errors.Is matching purely on Kind, so callers can write
// errors.Is(err, mlioerr.New(mlioerr.KindSchema, "")) to test the kind
// without caring about the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// StreamError, CorruptRecordError, and the rest are thin constructors
// kept around for call-site readability.
func StreamError(message string, cause error) *Error {
	return Wrap(KindStream, cause, message)
}

func CorruptRecordError(message string) *Error {
	return New(KindRecord, message)
}

func RecordTooLargeError(message string) *Error {
	return New(KindRecord, message)
}

func SchemaError(message string) *Error {
	return New(KindSchema, message)
}

func SchemaErrorf(format string, args ...interface{}) *Error {
	return New(KindSchema, fmt.Sprintf(format, args...))
}

func InvalidInstanceError(message string) *Error {
	return New(KindInvalidInstance, message)
}

func NotSupportedError(message string) *Error {
	return New(KindNotSupported, message)
}

func InvalidArgumentError(message string) *Error {
	return New(KindInvalidArgument, message)
}

// DataReaderError wraps cause with a message naming the offending store:
// record-too-large/corrupt-record/stream/not-supported/system errors are
// all re-raised as a DataReaderError naming the store.
func DataReaderError(message string, cause error) *Error {
	return Wrap(KindDataReader, cause, message)
}

// NoSuchStoreError maps a missing data store to a fixed message naming
// it.
func NoSuchStoreError(storeID string) *Error {
	return New(KindDataReader, fmt.Sprintf("the data store %q does not exist", storeID))
}

// PermissionDeniedError maps a permission failure to a fixed message
// naming the store.
func PermissionDeniedError(storeID string) *Error {
	return New(KindDataReader, fmt.Sprintf("permission denied reading the data store %q", storeID))
}

// TimedOutError maps a named-pipe read timeout to a fixed message naming
// the store.
func TimedOutError(storeID string) *Error {
	return New(KindDataReader, fmt.Sprintf("timed out reading the data store %q", storeID))
}
