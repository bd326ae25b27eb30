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
	"github.com/nscale-oss/fetchplan/pkg/fetch"
	"github.com/nscale-oss/fetchplan/pkg/fetch/sources/httpapi"
	"github.com/nscale-oss/fetchplan/pkg/fetch/sources/k8sobjects"
)

// Result is what a PlanSpec resolves to, in request order within each
// field.
type Result struct {
	Users      []httpapi.User      `json:"users,omitempty"`
	Posts      []httpapi.Post      `json:"posts,omitempty"`
	ConfigMaps []map[string]string `json:"configMaps,omitempty"`
	Secrets    []map[string][]byte `json:"secrets,omitempty"`
}

// Builder turns a PlanSpec into a runnable fetch.Fetch[Result] against a
// fixed set of concrete sources.
type Builder struct {
	Users      *httpapi.UserSource
	Posts      *httpapi.PostSource
	ConfigMaps *k8sobjects.ConfigMapSource
	Secrets    *k8sobjects.SecretSource
}

// Build constructs a single plan covering every field of spec. Every
// requested id within a field, and every field itself, is wired together
// with Ap (via Sequence and Zip4), so independent blocked requests across
// all four sources land in the same round.
func (b *Builder) Build(spec PlanSpec) fetch.Fetch[Result] {
	users := fetch.MapSeq(spec.UserIDs, func(id int) fetch.Fetch[httpapi.User] {
		return fetch.DataFetch[httpapi.ID, httpapi.User](b.Users, httpapi.ID(id))
	})

	posts := fetch.MapSeq(spec.PostIDs, func(id int) fetch.Fetch[httpapi.Post] {
		return fetch.DataFetch[httpapi.ID, httpapi.Post](b.Posts, httpapi.ID(id))
	})

	configMaps := fetch.MapSeq(spec.ConfigMaps, func(ref ObjectRef) fetch.Fetch[map[string]string] {
		req := k8sobjects.ObjectRequest{Namespace: ref.Namespace, Name: ref.Name}

		return fetch.DataFetch[k8sobjects.ObjectRequest, map[string]string](b.ConfigMaps, req)
	})

	secrets := fetch.MapSeq(spec.Secrets, func(ref ObjectRef) fetch.Fetch[map[string][]byte] {
		req := k8sobjects.ObjectRequest{Namespace: ref.Namespace, Name: ref.Name}

		return fetch.DataFetch[k8sobjects.ObjectRequest, map[string][]byte](b.Secrets, req)
	})

	return fetch.Map(fetch.Zip4(users, posts, configMaps, secrets), func(q fetch.Quad[[]httpapi.User, []httpapi.Post, []map[string]string, []map[string][]byte]) Result {
		return Result{
			Users:      q.First,
			Posts:      q.Second,
			ConfigMaps: q.Third,
			Secrets:    q.Fourth,
		}
	})
}
