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

// Package capture wraps an http.ResponseWriter to record the response
// body and status code. cmd/fetchplan-server uses it in its diagnostics
// middleware to log the bodies of failed responses.
package capture

import (
	"bytes"
	"io"
	"net/http"

	"github.com/felixge/httpsnoop"
)

// Capture records a handler's response as it's written.
type Capture struct {
	body *bytes.Buffer
	code int
}

// New creates a ready-to-use Capture.
func New() *Capture {
	return &Capture{
		body: &bytes.Buffer{},
		code: http.StatusOK,
	}
}

// StatusCode returns the status the handler wrote, or 200 if it never
// called WriteHeader explicitly.
func (c *Capture) StatusCode() int {
	return c.code
}

// Body returns everything written to the response so far.
func (c *Capture) Body() *bytes.Buffer {
	return c.body
}

// Wrap returns a ResponseWriter that mirrors every write into c while
// passing it through to w unchanged.
func (c *Capture) Wrap(w http.ResponseWriter) http.ResponseWriter {
	return httpsnoop.Wrap(w, httpsnoop.Hooks{
		Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(p []byte) (int, error) {
				n, err := next(p)
				c.body.Write(p[:n])

				return n, err
			}
		},
		WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return func(statusCode int) {
				c.code = statusCode
				next(statusCode)
			}
		},
		ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return func(src io.Reader) (int64, error) {
				return next(io.TeeReader(src, c.body))
			}
		},
	})
}

// Response runs next against r, returning the Capture of what it wrote.
func Response(w http.ResponseWriter, r *http.Request, next http.Handler) *Capture {
	c := New()
	next.ServeHTTP(c.Wrap(w), r)

	return c
}
