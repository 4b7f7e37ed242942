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

package stores_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/mlio-go/stores"
	"github.com/awslabs/mlio-go/streams"
)

func drain(t *testing.T, s streams.Stream) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := s.Read(buf)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	return out
}

func TestFileStoreReadsContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	store := stores.NewFileStore(path, stores.CompressionNone)
	s, err := store.OpenRead()
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "a,b\n1,2\n", string(drain(t, s)))
	require.Equal(t, path, store.ID())
}

func TestFileStoreMissingFile(t *testing.T) {
	store := stores.NewFileStore("/nonexistent/path/does/not/exist.csv", stores.CompressionNone)
	_, err := store.OpenRead()
	require.Error(t, err)
}

func TestInMemoryStoreReadsContents(t *testing.T) {
	store, err := stores.NewInMemoryStore([]byte("hello world"), stores.CompressionNone)
	require.NoError(t, err)

	s, err := store.OpenRead()
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "hello world", string(drain(t, s)))
}

func TestInMemoryStoreRejectsInferredCompression(t *testing.T) {
	_, err := stores.NewInMemoryStore([]byte("x"), stores.CompressionInfer)
	require.Error(t, err)
}

func TestHTTPStoreReadsContents(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/dataset/{name}", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		if vars["name"] != "shard-0.csv" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, "a,b\n1,2\n")
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	store := stores.NewHTTPStore(srv.URL+"/dataset/shard-0.csv", nil, stores.CompressionNone)
	s, err := store.OpenRead()
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "a,b\n1,2\n", string(drain(t, s)))
}

func TestHTTPStoreMissingResource(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/dataset/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	store := stores.NewHTTPStore(srv.URL+"/dataset/missing.csv", nil, stores.CompressionNone)
	_, err := store.OpenRead()
	require.Error(t, err)
}
