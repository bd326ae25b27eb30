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

// Package openapi embeds fetchplan-server's route schema and resolves
// incoming requests against it, so the rate limiter can key off a
// stable (method, templated path) pair rather than the
// literal request path.
package openapi

import (
	"embed"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers"
	chi "github.com/go-chi/chi/v5"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/apierror"
)

//go:embed spec.yaml
var specFS embed.FS

// Schema abstracts schema access and route resolution.
type Schema struct {
	spec *openapi3.T
}

// Load parses the embedded specification document.
func Load() (*Schema, error) {
	data, err := specFS.ReadFile("spec.yaml")
	if err != nil {
		return nil, err
	}

	spec, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return nil, err
	}

	if err := spec.Validate(nil); err != nil { //nolint:staticcheck
		return nil, err
	}

	return &Schema{spec: spec}, nil
}

// Spec exposes the underlying document for tooling, e.g. hack/validate_openapi.
func (s *Schema) Spec() *openapi3.T {
	return s.spec
}

// FindRoute resolves r against the schema, returning the matched route
// and any path parameters it carries.
//
// NOTE: this depends on r having already passed through chi's router so
// that a RouteContext is present, and is relatively slow, so callers
// should only do this once per request and propagate the result.
func (s *Schema) FindRoute(r *http.Request) (*routers.Route, map[string]string, error) {
	rctx := chi.RouteContext(r.Context())

	routePath := rctx.Routes.Find(rctx, r.Method, r.URL.Path)
	if routePath == "" {
		return nil, nil, apierror.NotFound("path", r.URL.String())
	}

	path := s.spec.Paths.Find(routePath)
	if path == nil {
		return nil, nil, apierror.NotFound("path", r.URL.String())
	}

	operation := path.GetOperation(r.Method)
	if operation == nil {
		return nil, nil, apierror.MethodNotAllowed()
	}

	route := &routers.Route{
		Spec:      s.spec,
		Path:      routePath,
		PathItem:  path,
		Method:    r.Method,
		Operation: operation,
	}

	parameters := make(map[string]string, len(rctx.URLParams.Keys))

	for i := range rctx.URLParams.Keys {
		parameters[rctx.URLParams.Keys[i]] = rctx.URLParams.Values[i]
	}

	return route, parameters, nil
}
