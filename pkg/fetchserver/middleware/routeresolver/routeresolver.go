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

// Package routeresolver performs the relatively costly translation from
// request URL to an OpenAPI route once per request and stashes it in
// the context for reuse by the rate limiting middleware.
package routeresolver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/routers"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/apierror"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/openapi"
)

// RouteInfo is the resolved route and its path parameters.
type RouteInfo struct {
	Route      *routers.Route
	Parameters map[string]string
}

type routeInfoKeyType int

const routeInfoKey routeInfoKeyType = iota

// FromContext extracts the RouteInfo a prior Middleware call stashed.
func FromContext(ctx context.Context) (*RouteInfo, error) {
	v, ok := ctx.Value(routeInfoKey).(*RouteInfo)
	if !ok {
		return nil, fmt.Errorf("route info not present in request context")
	}

	return v, nil
}

// RouteResolver resolves requests against an openapi.Schema.
type RouteResolver struct {
	schema *openapi.Schema
}

// New creates a RouteResolver backed by schema.
func New(schema *openapi.Schema) *RouteResolver {
	return &RouteResolver{schema: schema}
}

// Middleware resolves r's route and stashes it in the request context
// before calling next. CORS preflight requests are special: the browser
// sends them as OPTIONS, so the route is resolved for the method named
// in the Access-Control-Request-Method header instead.
func (m *RouteResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routeRequest := r

		if r.Method == http.MethodOptions {
			method := r.Header.Get("Access-Control-Request-Method")
			if method == "" {
				apierror.InvalidRequest("OPTIONS request missing Access-Control-Request-Method header").Write(w, r)
				return
			}

			routeRequest = r.Clone(r.Context())
			routeRequest.Method = method
		}

		route, parameters, err := m.schema.FindRoute(routeRequest)
		if err != nil {
			apierror.HandleError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), routeInfoKey, &RouteInfo{
			Route:      route,
			Parameters: parameters,
		})

		next.ServeHTTP(w, r.Clone(ctx))
	})
}
