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

// Package logging is chi middleware that logs one line per request (at
// V(1)) and one line per error response (unconditionally).
package logging

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

var sensitiveHeaders = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"X-Forwarded-For",
}

func redactHeaders(h http.Header) http.Header {
	if len(h) == 0 {
		return nil
	}

	out := h.Clone()

	for _, name := range sensitiveHeaders {
		out.Del(name)
	}

	return out
}

// requestLog is the deterministic field order printed for a request.
type requestLog struct {
	Method  string      `json:"method,omitempty"`
	Path    string      `json:"path,omitempty"`
	Query   string      `json:"query,omitempty"`
	Length  int64       `json:"length,omitempty"`
	Address string      `json:"address,omitempty"`
	Headers http.Header `json:"headers,omitempty"`
}

func describeRequest(r *http.Request) *requestLog {
	return &requestLog{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Length:  r.ContentLength,
		Address: r.RemoteAddr,
		Headers: redactHeaders(r.Header),
	}
}

// responseLog is the deterministic field order printed for a response.
type responseLog struct {
	Code   int   `json:"code"`
	Length int64 `json:"length"`
	TimeNS int64 `json:"timeNs"`
}

func describeResponse(metrics httpsnoop.Metrics) *responseLog {
	return &responseLog{
		Code:   metrics.Code,
		Length: metrics.Written,
		TimeNS: metrics.Duration.Nanoseconds(),
	}
}

// Middleware logs requests and error responses. It is a named type rather
// than a bare handler func so it shows up by name in pprof traces.
type Middleware struct{}

// New creates a logging Middleware.
func New() *Middleware {
	return &Middleware{}
}

func (m *Middleware) logRequest(r *http.Request) {
	logger := log.FromContext(r.Context())

	if !logger.V(1).Enabled() {
		return
	}

	logger.V(1).Info("http request", "request", describeRequest(r))
}

func (m *Middleware) logResponse(r *http.Request, metrics httpsnoop.Metrics) {
	logger := log.FromContext(r.Context())

	if metrics.Code < http.StatusBadRequest {
		if !logger.V(1).Enabled() {
			return
		}

		logger.V(1).Info("http response", "request", describeRequest(r), "response", describeResponse(metrics))

		return
	}

	logger.Info("http error response", "request", describeRequest(r), "response", describeResponse(metrics))
}

// Middleware adapts the logger into chi's middleware chain.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.logRequest(r)

		metrics := httpsnoop.CaptureMetrics(next, w, r)

		m.logResponse(r, metrics)
	})
}
