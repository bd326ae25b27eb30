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

package fetch

import (
	"github.com/go-logr/logr"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// environment is threaded through every plan evaluation. The cache outlives
// the whole run; the store is rebuilt empty at the start of each round;
// trace/log/tracer are immutable for the run's lifetime.
type environment struct {
	cache *cache
	store *store

	trace  bool
	log    logr.Logger
	tracer oteltrace.Tracer
}

// RunOption configures a single call to Run.
type RunOption func(*environment)

// WithTrace enables the one-line-per-event tracing described in the
// Observability section: cache hit, cache miss, duplicate-in-store,
// invalidation, round start/end.
func WithTrace(log logr.Logger) RunOption {
	return func(e *environment) {
		e.trace = true
		e.log = log
	}
}

// WithTracer attaches an OpenTelemetry tracer; when set, Run wraps each
// round's evaluation in its own span.
func WithTracer(tracer oteltrace.Tracer) RunOption {
	return func(e *environment) {
		e.tracer = tracer
	}
}

// WithCache attaches a Cache created with NewCache to this run, so that
// results (and invalidations) persist across separate Run calls sharing
// the same Cache value. Without this option each Run gets a private cache
// that is discarded when it returns.
func WithCache(c *Cache) RunOption {
	return func(e *environment) {
		e.cache = c.c
	}
}

func newEnvironment(opts ...RunOption) *environment {
	env := &environment{
		cache: newCache(),
		store: newStore(),
		log:   logr.Discard(),
	}

	for _, opt := range opts {
		opt(env)
	}

	return env
}
