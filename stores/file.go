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
	"strings"

	"github.com/awslabs/mlio-go/internal/log"
	"github.com/awslabs/mlio-go/internal/mlioerr"
	"github.com/awslabs/mlio-go/streams"
)

var storeLog = log.New(log.Stores)

// FileStore reads a dataset member from the local filesystem.
type FileStore struct {
	pathname    string
	compression Compression
}

// NewFileStore returns a FileStore for pathname. If cmp is CompressionInfer,
// the compression format is guessed from the file extension.
func NewFileStore(pathname string, cmp Compression) *FileStore {
	if cmp == CompressionInfer {
		cmp = inferCompression(pathname)
	}
	return &FileStore{pathname: pathname, compression: cmp}
}

func (f *FileStore) OpenRead() (streams.Stream, error) {
	storeLog.Infow("opening file store", "pathname", f.pathname)

	file, err := os.Open(f.pathname)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mlioerr.NoSuchStoreError(f.pathname)
		}
		if os.IsPermission(err) {
			return nil, mlioerr.PermissionDeniedError(f.pathname)
		}
		return nil, mlioerr.DataReaderError(fmt.Sprintf("failed to open the file %q", f.pathname), err)
	}

	base := streams.WrapReader(file)
	return wrapCompression(base, f.compression)
}

func (f *FileStore) ID() string   { return f.pathname }
func (f *FileStore) Repr() string {
	return fmt.Sprintf("<file pathname=%q compression=%d>", f.pathname, f.compression)
}

func inferCompression(pathname string) Compression {
	switch {
	case strings.HasSuffix(pathname, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(pathname, ".zz"), strings.HasSuffix(pathname, ".zlib"):
		return CompressionZlib
	default:
		return CompressionNone
	}
}

func wrapCompression(s streams.Stream, cmp Compression) (streams.Stream, error) {
	switch cmp {
	case CompressionNone, CompressionInfer:
		return s, nil
	case CompressionGzip:
		return streams.NewInflateStream(s, streams.FormatGzip)
	case CompressionZlib:
		return streams.NewInflateStream(s, streams.FormatZlib)
	default:
		return s, nil
	}
}
