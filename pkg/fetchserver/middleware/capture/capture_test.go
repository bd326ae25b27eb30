/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package capture_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/middleware/capture"
)

type readFromRecorder struct {
	called bool
	*httptest.ResponseRecorder
}

func (w *readFromRecorder) ReadFrom(src io.Reader) (int64, error) {
	w.called = true
	return io.Copy(w.ResponseRecorder, src)
}

func TestResponseCapture(t *testing.T) {
	t.Parallel()

	testWithHandler := func(t *testing.T, handler http.Handler) {
		t.Helper()

		rec := &readFromRecorder{ResponseRecorder: httptest.NewRecorder()}
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		response := capture.Response(rec, request, handler)

		assert.Equal(t, http.StatusOK, response.StatusCode())

		body, err := io.ReadAll(response.Body())
		require.NoError(t, err)
		assert.Equal(t, "OK", string(body))
	}

	t.Run("explicit status with Write", func(t *testing.T) {
		t.Parallel()

		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Add("Foo", "bar")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "OK")
		})
		testWithHandler(t, handler)
	})

	t.Run("implicit status", func(t *testing.T) {
		t.Parallel()

		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Add("Foo", "bar")
			_, _ = io.WriteString(w, "OK")
		})
		testWithHandler(t, handler)
	})

	// io.Copy prefers src.WriteTo/dst.ReadFrom over repeated Write calls,
	// so this exercises the Wrap's ReadFrom hook specifically.
	t.Run("io.Copy via ReadFrom", func(t *testing.T) {
		t.Parallel()

		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Add("Foo", "bar")
			w.WriteHeader(http.StatusOK)

			body := bytes.NewBufferString("OK")

			if readFrom, ok := w.(io.ReaderFrom); ok {
				_, _ = readFrom.ReadFrom(body)
			} else {
				_, _ = io.Copy(w, body)
			}
		})
		testWithHandler(t, handler)
	})

	t.Run("multiple writes", func(t *testing.T) {
		t.Parallel()

		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Add("Foo", "bar")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "O")
			_, _ = io.WriteString(w, "K")
		})
		testWithHandler(t, handler)
	})
}
