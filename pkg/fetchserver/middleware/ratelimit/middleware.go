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

package ratelimit

import (
	"net/http"
	"sync"

	"github.com/spf13/pflag"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/apierror"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/middleware/routeresolver"
)

// Options provide rate limiting options to the operator.
type Options struct {
	globalRateLimitPerSecond   int64
	endpointRateLimitPerSecond int64
}

// AddFlags registers the rate limit flags on f.
func (o *Options) AddFlags(f *pflag.FlagSet) {
	f.Int64Var(&o.globalRateLimitPerSecond, "ratelimit-rps-global", 10000, "Number of requests that can be processed per second across all routes")
	f.Int64Var(&o.endpointRateLimitPerSecond, "ratelimit-rps-endpoint", 100, "Number of requests that can be processed per second against a single route")
}

// keyedRateLimiter allows rate limiters to be defined per-endpoint, keyed
// by method and templated route path, so every plan executed through
// POST /v1/plans/{name} shares one limiter.
//
// NOTE: the map is unconstrained, but its keys come from the route
// schema, so it holds at most one limiter per route.
type keyedRateLimiter struct {
	options *Options
	m       map[string]RateLimiter
	lock    sync.Mutex
}

func newKeyedRateLimiter(options *Options) *keyedRateLimiter {
	return &keyedRateLimiter{
		options: options,
		m:       map[string]RateLimiter{},
	}
}

func (r *keyedRateLimiter) get(key string) RateLimiter {
	r.lock.Lock()
	defer r.lock.Unlock()

	rateLimiter, ok := r.m[key]
	if ok {
		return rateLimiter
	}

	rateLimiter = NewLeakyBucket(r.options.endpointRateLimitPerSecond)

	r.m[key] = rateLimiter

	return rateLimiter
}

// Middleware guards against a single client starving out the rest of
// the plan-execution API, with both a global and a per-route limit.
type Middleware struct {
	options     *Options
	global      RateLimiter
	perEndpoint *keyedRateLimiter
}

// New creates a rate limiting Middleware from options.
func New(options *Options) *Middleware {
	return &Middleware{
		options:     options,
		global:      NewLeakyBucket(options.globalRateLimitPerSecond),
		perEndpoint: newKeyedRateLimiter(options),
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.global.Request(); err != nil {
			apierror.HandleError(w, r, err)
			return
		}

		if r.Method != http.MethodOptions {
			route, err := routeresolver.FromContext(r.Context())
			if err != nil {
				apierror.HandleError(w, r, err)
				return
			}

			endpointKey := route.Route.Method + ":" + route.Route.Path

			if err := m.perEndpoint.get(endpointKey).Request(); err != nil {
				apierror.HandleError(w, r, err)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
