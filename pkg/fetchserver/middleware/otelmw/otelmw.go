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

// Package otelmw extracts incoming trace context, starts a server span
// for the request, and attaches a logger carrying the span's IDs to the
// request context so every downstream log line can be correlated back
// to a trace.
package otelmw

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/felixge/httpsnoop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.22.0"
	"go.opentelemetry.io/otel/trace"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

func logValuesFromSpanContext(name string, s trace.SpanContext) []any {
	return []any{
		"spanName", name,
		"spanID", s.SpanID().String(),
		"traceID", s.TraceID().String(),
	}
}

// headerBlackList are headers never turned into span attributes.
func headerBlackList() []string {
	return []string{
		"authorization",
		"user-agent",
	}
}

func httpHeaderAttributes(header http.Header, prefix string) []attribute.KeyValue {
	attr := make([]attribute.KeyValue, 0, len(header))

	for key, values := range header {
		normalizedKey := strings.ToLower(key)

		if slices.Contains(headerBlackList(), normalizedKey) {
			continue
		}

		key := attribute.Key(prefix + "." + normalizedKey)

		if len(values) == 1 {
			attr = append(attr, key.String(values[0]))
		} else {
			attr = append(attr, key.StringSlice(values))
		}
	}

	return attr
}

//nolint:cyclop
func httpRequestAttributes(r *http.Request) []attribute.KeyValue {
	var attr []attribute.KeyValue

	protoVersion := strings.Split(r.Proto, "/")
	if len(protoVersion) == 2 {
		attr = append(attr, semconv.NetworkProtocolName(protoVersion[0]))
		attr = append(attr, semconv.NetworkProtocolVersion(protoVersion[1]))
	}

	switch r.Method {
	case http.MethodGet:
		attr = append(attr, semconv.HTTPRequestMethodGet)
	case http.MethodPost:
		attr = append(attr, semconv.HTTPRequestMethodPost)
	case http.MethodPut:
		attr = append(attr, semconv.HTTPRequestMethodPut)
	case http.MethodDelete:
		attr = append(attr, semconv.HTTPRequestMethodDelete)
	case http.MethodPatch:
		attr = append(attr, semconv.HTTPRequestMethodPatch)
	default:
		attr = append(attr, semconv.HTTPRequestMethodOther)
	}

	attr = append(attr, semconv.HTTPRequestBodySize(int(r.ContentLength)))
	attr = append(attr, httpHeaderAttributes(r.Header, "http.request.header")...)

	if userAgent := r.UserAgent(); userAgent != "" {
		attr = append(attr, semconv.UserAgentOriginal(userAgent))
	}

	scheme := "http"
	if r.URL.Scheme != "" {
		scheme = r.URL.Scheme
	}

	attr = append(attr, semconv.URLScheme(scheme))
	attr = append(attr, semconv.URLPath(r.URL.Path))

	if r.URL.RawQuery != "" {
		attr = append(attr, semconv.URLQuery(r.URL.RawQuery))
	}

	clientHostPort := strings.Split(r.RemoteAddr, ":")
	if clientHostPort[0] != "" {
		attr = append(attr, semconv.ClientAddress(clientHostPort[0]))
	}

	if len(clientHostPort) > 1 {
		if clientPort, err := strconv.Atoi(clientHostPort[1]); err == nil {
			attr = append(attr, semconv.ClientPort(clientPort))
		}
	}

	return attr
}

func httpResponseAttributes(m httpsnoop.Metrics) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.HTTPResponseStatusCode(m.Code),
		semconv.HTTPResponseBodySize(int(m.Written)),
	}
}

func httpStatusToOtelCode(status int) (codes.Code, string) {
	code := codes.Ok

	if status >= http.StatusBadRequest {
		code = codes.Error
	}

	return code, http.StatusText(status)
}

// Middleware starts a server span per request and carries tracing
// metadata into the request's logger.
type Middleware struct {
	serviceName string
	version     string
}

// New creates a tracing Middleware identifying itself as serviceName/version
// in every span it emits.
func New(serviceName, version string) *Middleware {
	return &Middleware{
		serviceName: serviceName,
		version:     version,
	}
}

// Middleware adapts the tracer into chi's middleware chain.
func (o *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		attr := []attribute.KeyValue{
			semconv.ServiceName(o.serviceName),
			semconv.ServiceVersion(o.version),
		}
		attr = append(attr, httpRequestAttributes(r)...)

		tracer := otel.GetTracerProvider().Tracer("fetchplan-server")

		name := r.URL.Path

		ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(attr...))
		defer span.End()

		ctx = log.IntoContext(ctx, log.Log.WithValues(logValuesFromSpanContext(name, span.SpanContext())...))

		request := r.WithContext(ctx)

		metrics := httpsnoop.CaptureMetrics(next, w, request)

		span.SetAttributes(httpResponseAttributes(metrics)...)
		span.SetStatus(httpStatusToOtelCode(metrics.Code))
	})
}
