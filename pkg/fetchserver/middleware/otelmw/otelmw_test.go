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

package otelmw_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/middleware/otelmw"
)

func TestMiddlewareRecordsASpanPerRequest(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)

	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	mw := otelmw.New("fetchplan-server", "test")

	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	require.NoError(t, provider.ForceFlush(r.Context()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "/v1/plans", spans[0].Name)
	require.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestMiddlewareMarksErrorStatusOnFailure(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)

	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	mw := otelmw.New("fetchplan-server", "test")

	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	r := httptest.NewRequest(http.MethodPost, "/v1/plans/demo", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	require.NoError(t, provider.ForceFlush(r.Context()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status.Code)
}
