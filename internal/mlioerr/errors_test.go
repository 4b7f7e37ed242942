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

package mlioerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKindMatchesDirectErrors(t *testing.T) {
	err := CorruptRecordError("bad frame")
	assert.True(t, IsKind(err, KindRecord))
	assert.False(t, IsKind(err, KindStream))
}

func TestIsKindWalksTheCausalChain(t *testing.T) {
	cause := CorruptRecordError("bad frame")
	wrapped := DataReaderError("record #3 in the data store \"x\" is corrupt or too large", cause)

	assert.True(t, IsKind(wrapped, KindDataReader))

	// The cause is reachable through Unwrap.
	var inner *Error
	require.True(t, errors.As(errors.Unwrap(wrapped), &inner))
	assert.Equal(t, KindRecord, inner.Kind)
}

func TestRootCauseDigsThroughTheTaxonomy(t *testing.T) {
	root := errors.New("EIO")
	err := DataReaderError("the data store \"x\" contains corrupt data",
		StreamError("read failed", root))

	assert.Same(t, root, RootCause(err))
	assert.Same(t, root, RootCause(RootCause(err)))
}

func TestErrorsIsMatchesOnKindOnly(t *testing.T) {
	err := SchemaErrorf("column %d is bad", 7)
	assert.True(t, errors.Is(err, New(KindSchema, "")))
	assert.False(t, errors.Is(err, New(KindRecord, "")))
}

func TestErrorStringIncludesKindAndCause(t *testing.T) {
	err := StreamError("read failed", errors.New("EIO"))
	assert.Contains(t, err.Error(), "stream error")
	assert.Contains(t, err.Error(), "read failed")
	assert.Contains(t, err.Error(), "EIO")
}

func TestFixedStoreMessages(t *testing.T) {
	assert.Contains(t, NoSuchStoreError("/tmp/x").Error(), `the data store "/tmp/x" does not exist`)
	assert.Contains(t, PermissionDeniedError("/tmp/x").Error(), "permission denied")
	assert.Contains(t, TimedOutError("/tmp/x").Error(), "timed out")
}
