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

package planserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"

	"github.com/nscale-oss/fetchplan/pkg/fetch"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/apierror"
	"github.com/nscale-oss/fetchplan/pkg/server/util"
)

// Server exposes a Manifest of named plans as an HTTP API.
type Server struct {
	manifest *Manifest
	builder  *Builder
}

// NewServer builds a Server serving manifest's plans through builder. Each
// ExecutePlan call runs against its own private cache — sharing one across
// requests would reintroduce the cross-run cache persistence spec.md's
// Non-goals exclude. Sources that need to survive an individual request's
// cache (the k8s-object mirrors) keep their own longer-lived state and are
// resynced independently via invalidation.MirrorInvalidator.
func NewServer(manifest *Manifest, builder *Builder) *Server {
	return &Server{manifest: manifest, builder: builder}
}

// Routes mounts the plan API onto r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.Health)
	r.Get("/v1/plans", s.ListPlans)
	r.Post("/v1/plans/{name}", s.ExecutePlan)
}

// Health is a liveness probe.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ListPlans returns the names of every plan in the manifest.
func (s *Server) ListPlans(w http.ResponseWriter, r *http.Request) {
	util.WriteJSONResponse(w, r, http.StatusOK, s.manifest.Names())
}

// ExecutePlan looks the named plan up in the manifest, builds it, runs it
// to completion, and returns the Result as JSON.
func (s *Server) ExecutePlan(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	spec, ok := s.manifest.Lookup(name)
	if !ok {
		apierror.NotFound("plan", name).Write(w, r)

		return
	}

	plan := s.builder.Build(spec)

	result, err := fetch.Run(r.Context(), plan, fetch.WithTrace(logr.FromContextOrDiscard(r.Context())))
	if err != nil {
		apierror.PlanFailed(err).Write(w, r)

		return
	}

	util.WriteJSONResponse(w, r, http.StatusOK, result)
}
