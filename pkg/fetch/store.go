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
	"context"
	"reflect"
	"sync"

	"golang.org/x/sync/errgroup"
)

// storeKey groups blocked fetches by source. It keys by (source name,
// request type): sources that share a name but take different request
// types land in separate buckets. Two Source values that share both a Name
// and a request type land in the same bucket, and the whole bucket is
// handed to whichever of them queued a request first in that round. Go
// has no cheap notion of "the source's identity address" the way a
// reference-counted systems language does (a Source value backing a method
// set isn't comparable in general), so reflect.Type on the request is kept
// rather than switching key shapes — see the Open Question note in
// DESIGN.md.
type storeKey struct {
	name    string
	reqType reflect.Type
}

// untypedSource is the type-erased adapter the store actually holds. It is
// constructed once per dataFetch/uncachedFetch call site from the caller's
// typed Source[R, T], closing over the type parameters so the store itself
// never needs to know R or T.
type untypedSource interface {
	sourceName() string
	fetch(ctx context.Context, batch []blockedFetchUntyped) []PerformFetch
}

// blockedFetchUntyped is what the store actually accumulates: the request
// (kept as the Request interface) and the cell it will resolve into.
type blockedFetchUntyped struct {
	request Request
	cl      *cell
}

// sourceGroup is one source's share of the current round.
type sourceGroup struct {
	source  untypedSource
	blocked []blockedFetchUntyped
}

// store is the request store (C3): grouping of not-yet-issued blocked
// requests by source, rebuilt empty at the start of every round.
type store struct {
	mu     sync.Mutex
	groups map[storeKey]*sourceGroup
}

func newStore() *store {
	return &store{groups: make(map[storeKey]*sourceGroup)}
}

// add registers one blocked fetch under key, creating the group on first
// use. Called by dataFetch/uncachedFetch while a plan is being evaluated;
// never by a source.
func (s *store) add(key storeKey, src untypedSource, req Request, cl *cell) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[key]
	if !ok {
		g = &sourceGroup{source: src}
		s.groups[key] = g
	}

	g.blocked = append(g.blocked, blockedFetchUntyped{request: req, cl: cl})
}

// size is the total number of blocked fetches queued this round, across
// every source — used for the round-start trace line, and by Run to
// detect a plan that is blocked with nothing queued (ErrNotDrained).
func (s *store) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, g := range s.groups {
		n += len(g.blocked)
	}

	return n
}

// drain invokes every group's source batch handler exactly once, runs
// every Sync task it returns inline as it's received, and gathers every
// Async task from every group into one parallel wait. The order in which
// sources are drained, and the order of blocked fetches within a group
// (append order here, since Go slices have no reason to prepend the way a
// persistent-list-based reference implementation might), are both
// unspecified by the spec — sources must not depend on either.
//
// By the time drain returns without error, every cell handed to every
// source this round must be in a terminal state; anything still
// NotFetched afterwards is an invariant violation the evaluator will catch
// the next time a continuation reads it (ErrNotDrained).
func (s *store) drain(ctx context.Context) error {
	s.mu.Lock()
	groups := make([]*sourceGroup, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	s.mu.Unlock()

	eg, egctx := errgroup.WithContext(ctx)

	for _, g := range groups {
		if len(g.blocked) == 0 {
			continue
		}

		tasks := g.source.fetch(egctx, g.blocked)

		for _, t := range tasks {
			if !t.async {
				t.sync()
				continue
			}

			task := t.task
			eg.Go(func() error {
				return task(egctx)
			})
		}
	}

	return eg.Wait()
}
