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

// Package apierror is the HTTP error envelope for cmd/fetchplan-server,
// adapted from the richer of the teacher's two error-envelope generations
// (pkg/server/errors), reduced to a single error code enum rather than one
// generated from an OpenAPI document.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-openapi/jsonpointer"
	"go.opentelemetry.io/otel/trace"
)

// Code is a terse, stable error code returned to API clients.
type Code string

const (
	CodeInvalidRequest  Code = "invalid_request"
	CodeAccessDenied    Code = "access_denied"
	CodeNotFound        Code = "not_found"
	CodeMethodNotAllow  Code = "method_not_allowed"
	CodePlanFailed      Code = "plan_failed"
	CodeTooManyRequests Code = "too_many_requests"
	CodeServerError     Code = "server_error"
)

// body is the wire format written to the client.
type body struct {
	Error            Code   `json:"error"`
	ErrorDescription string `json:"error_description"`
	Field            string `json:"field,omitempty"`
	TraceID          string `json:"trace_id,omitempty"`
}

// Error wraps a status/code pair with contextual information logged but
// never sent to the client.
type Error struct {
	status      int
	code        Code
	description string
	field       string
	header      http.Header
	err         error
	values      []any
}

func newError(status int, code Code, a ...any) *Error {
	return &Error{
		status:      status,
		code:        code,
		description: strings.TrimSuffix(fmt.Sprintln(a...), "\n"),
		header:      http.Header{},
	}
}

// WithError attaches the originating error, logged but not sent to the
// client.
func (e *Error) WithError(err error) *Error {
	e.err = err

	return e
}

// WithValues attaches structured logging fields.
func (e *Error) WithValues(values ...any) *Error {
	e.values = values

	return e
}

// WithField attaches a JSON Pointer (RFC 6901) naming the offending field
// in the request, returned to the client alongside the error so it can be
// highlighted without re-parsing the description. pointer must already be
// in JSON Pointer syntax (e.g. "/plans/demo/configMaps/0/name"); a
// malformed pointer is logged but otherwise dropped rather than failing
// the response.
func (e *Error) WithField(pointer string) *Error {
	ptr, err := jsonpointer.New(pointer)
	if err != nil {
		e.values = append(e.values, "invalidFieldPointer", pointer, "error", err)

		return e
	}

	e.field = ptr.String()

	return e
}

// Unwrap implements errors.Unwrap.
func (e *Error) Unwrap() error { return e.err }

// Error implements the error interface.
func (e *Error) Error() string { return e.description }

// Write logs the error's detail and writes the client-facing envelope.
func (e *Error) Write(w http.ResponseWriter, r *http.Request) {
	log := logr.FromContextOrDiscard(r.Context())

	var details []any

	if e.description != "" {
		details = append(details, "detail", e.description)
	}

	if e.err != nil {
		details = append(details, "error", e.err)
	}

	details = append(details, e.values...)

	log.Info("error detail", details...)

	for header, values := range e.header {
		for _, v := range values {
			w.Header().Add(header, v)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.status)

	resp := body{Error: e.code, ErrorDescription: e.description, Field: e.field}

	if id := trace.SpanContextFromContext(r.Context()).TraceID().String(); id != "" {
		resp.TraceID = id
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error(err, "failed to write error response")
	}
}

func asError(err error) *Error {
	var httpErr *Error

	if !errors.As(err, &httpErr) {
		return nil
	}

	return httpErr
}

func isErrorType(err error, status int) bool {
	httpErr := asError(err)

	return httpErr != nil && httpErr.status == status
}

// InvalidRequest is raised for malformed or schema-invalid requests.
func InvalidRequest(a ...any) *Error {
	return newError(http.StatusBadRequest, CodeInvalidRequest, a...)
}

// IsInvalidRequest reports whether err is an InvalidRequest.
func IsInvalidRequest(err error) bool { return isErrorType(err, http.StatusBadRequest) }

// AccessDenied is raised when bearer authentication fails.
func AccessDenied(a ...any) *Error {
	return newError(http.StatusUnauthorized, CodeAccessDenied, a...)
}

// IsAccessDenied reports whether err is an AccessDenied.
func IsAccessDenied(err error) bool { return isErrorType(err, http.StatusUnauthorized) }

// NotFound is raised when a named plan doesn't exist in the manifest.
func NotFound(a ...any) *Error {
	return newError(http.StatusNotFound, CodeNotFound, a...)
}

// IsNotFound reports whether err is a NotFound.
func IsNotFound(err error) bool { return isErrorType(err, http.StatusNotFound) }

// MethodNotAllowed is raised for an unsupported HTTP method on a route.
func MethodNotAllowed() *Error {
	return newError(http.StatusMethodNotAllowed, CodeMethodNotAllow, "method not allowed")
}

// TooManyRequests is raised by the rate limiting middleware.
func TooManyRequests() *Error {
	return newError(http.StatusTooManyRequests, CodeTooManyRequests, "rate limit exceeded")
}

// PlanFailed wraps a fetch.Run error for the client.
func PlanFailed(err error) *Error {
	return newError(http.StatusBadGateway, CodePlanFailed, "plan execution failed").WithError(err)
}

// HandleError is the single entry point every handler should call on
// error; it writes the structured envelope for an *Error, or falls back
// to an opaque 500 for anything else so internals never leak.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if httpErr := asError(err); httpErr != nil {
		httpErr.Write(w, r)

		return
	}

	newError(http.StatusInternalServerError, CodeServerError, "an internal error has occurred").WithError(err).Write(w, r)
}
