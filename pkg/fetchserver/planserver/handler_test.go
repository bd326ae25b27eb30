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

package planserver_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/nscale-oss/fetchplan/pkg/fetch/sources/httpapi"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/planserver"
)

func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("ids"), ",")

		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasPrefix(r.URL.Path, "/users"):
			users := make([]httpapi.User, len(ids))
			for i, id := range ids {
				n, _ := strconv.Atoi(id)
				users[i] = httpapi.User{ID: n, Name: "user-" + id}
			}

			require.NoError(t, json.NewEncoder(w).Encode(users))
		case strings.HasPrefix(r.URL.Path, "/posts"):
			posts := make([]httpapi.Post, len(ids))
			for i, id := range ids {
				n, _ := strconv.Atoi(id)
				posts[i] = httpapi.Post{ID: n, UserID: 1, Title: "post-" + id}
			}

			require.NoError(t, json.NewEncoder(w).Encode(posts))
		}
	}))
}

func newTestServer(t *testing.T) (*httptest.Server, *planserver.Server) {
	t.Helper()

	upstream := fakeUpstream(t)
	t.Cleanup(upstream.Close)

	manifest := &planserver.Manifest{
		Plans: map[string]planserver.PlanSpec{
			"dashboard": {UserIDs: []int{1, 2}, PostIDs: []int{1}},
		},
	}

	builder := &planserver.Builder{
		Users: httpapi.NewUserSource(upstream.Client(), upstream.URL),
		Posts: httpapi.NewPostSource(upstream.Client(), upstream.URL),
	}

	return upstream, planserver.NewServer(manifest, builder)
}

func TestExecutePlanReturnsBatchedResult(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)

	r := chi.NewRouter()
	srv.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/v1/plans/dashboard", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result planserver.Result

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Users, 2)
	require.Len(t, result.Posts, 1)
}

func TestExecutePlanUnknownNameIsNotFound(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)

	r := chi.NewRouter()
	srv.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/v1/plans/missing", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPlansReturnsManifestNames(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)

	r := chi.NewRouter()
	srv.Routes(r)

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var names []string

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &names))
	require.Equal(t, []string{"dashboard"}, names)
}
