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

// Package httpapi provides fetch.Source implementations backed by a JSON
// HTTP API: Users and Posts, the two sources named in the algebra's own
// worked examples. Both batch their requests into a single outgoing HTTP
// call per round using a "?ids=" query parameter, so Zip/Sequence plans
// that request several ids from the same source genuinely make one round
// trip.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/nscale-oss/fetchplan/pkg/fetch"
)

// ID requests a single resource by its numeric id.
type ID int

// Identifier implements fetch.Request.
func (id ID) Identifier() string { return strconv.Itoa(int(id)) }

// User is the shape returned by the Users source.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Post is the shape returned by the Posts source.
type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
}

// client is the minimal HTTP surface both sources need, batching a set of
// ids into one request and unmarshalling a slice of results keyed by id.
type client struct {
	httpClient *http.Client
	baseURL    string
	path       string
}

func (c *client) fetchBatch(ctx context.Context, ids []int, out any) error {
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = strconv.Itoa(id)
	}

	url := fmt.Sprintf("%s%s?ids=%s", c.baseURL, c.path, strings.Join(idStrs, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("httpapi: building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpapi: %s: %w", c.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpapi: %s: unexpected status %d", c.path, resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("httpapi: %s: reading body: %w", c.path, err)
	}

	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return fmt.Errorf("httpapi: %s: decoding body: %w", c.path, err)
	}

	return nil
}

// UserSource batches GET /users?ids=1,2,3 into the individual cells of a
// round's Users requests.
type UserSource struct {
	client *client
}

var _ fetch.Source[ID, User] = (*UserSource)(nil)

// NewUserSource builds a UserSource against baseURL, e.g.
// "https://api.example.com".
func NewUserSource(httpClient *http.Client, baseURL string) *UserSource {
	return &UserSource{client: &client{httpClient: httpClient, baseURL: baseURL, path: "/users"}}
}

// Name implements fetch.Source and sources.Registered.
func (s *UserSource) Name() string { return "Users" }

// APIVersion implements sources.Registered.
func (s *UserSource) APIVersion() string { return "1.0.0" }

// Fetch implements fetch.Source. The whole batch is issued as a single
// Async task: one HTTP round trip per round, regardless of batch size.
func (s *UserSource) Fetch(_ context.Context, batch []fetch.BlockedFetch[ID, User]) []fetch.PerformFetch {
	ids := make([]int, len(batch))
	for i, b := range batch {
		ids[i] = int(b.Request)
	}

	task := func(ctx context.Context) error {
		var users []User

		if err := s.client.fetchBatch(ctx, ids, &users); err != nil {
			for _, b := range batch {
				b.Cell.PutFailure(err)
			}

			return nil
		}

		byID := make(map[int]User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}

		for _, b := range batch {
			u, ok := byID[int(b.Request)]
			if !ok {
				b.Cell.PutFailure(fmt.Errorf("httpapi: user %d not found", int(b.Request)))

				continue
			}

			b.Cell.PutSuccess(u)
		}

		return nil
	}

	return []fetch.PerformFetch{fetch.Async(task)}
}

// PostSource batches GET /posts?ids=1,2,3.
type PostSource struct {
	client *client
}

var _ fetch.Source[ID, Post] = (*PostSource)(nil)

// NewPostSource builds a PostSource against baseURL.
func NewPostSource(httpClient *http.Client, baseURL string) *PostSource {
	return &PostSource{client: &client{httpClient: httpClient, baseURL: baseURL, path: "/posts"}}
}

// Name implements fetch.Source and sources.Registered.
func (s *PostSource) Name() string { return "Posts" }

// APIVersion implements sources.Registered.
func (s *PostSource) APIVersion() string { return "1.0.0" }

// Fetch implements fetch.Source.
func (s *PostSource) Fetch(_ context.Context, batch []fetch.BlockedFetch[ID, Post]) []fetch.PerformFetch {
	ids := make([]int, len(batch))
	for i, b := range batch {
		ids[i] = int(b.Request)
	}

	task := func(ctx context.Context) error {
		var posts []Post

		if err := s.client.fetchBatch(ctx, ids, &posts); err != nil {
			for _, b := range batch {
				b.Cell.PutFailure(err)
			}

			return nil
		}

		byID := make(map[int]Post, len(posts))
		for _, p := range posts {
			byID[p.ID] = p
		}

		for _, b := range batch {
			p, ok := byID[int(b.Request)]
			if !ok {
				b.Cell.PutFailure(fmt.Errorf("httpapi: post %d not found", int(b.Request)))

				continue
			}

			b.Cell.PutSuccess(p)
		}

		return nil
	}

	return []fetch.PerformFetch{fetch.Async(task)}
}
