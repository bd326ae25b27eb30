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
	"sync"

	"github.com/brunoga/deep"
)

// cache maps a request identifier to the cell tracking its result. It is
// the single piece of state that outlives a round: cells queued in round n
// are still here, terminal, in round n+1.
//
// Invariants (spec): once a key holds Success/Error it stays that way for
// the life of the run; a NotFetched entry only ever exists for a key queued
// in the current round, and is guaranteed to be transitioned to a terminal
// state by the time that round's drain returns.
//
// A plain map guarded by a RWMutex is sufficient here, mirroring
// RefreshAheadCache's own locking policy: this map's keys are written by
// the single-threaded evaluator (new NotFetched cells, invalidate's
// removals) and removed by Cache.Invalidate, which may run concurrently; the
// concurrency that actually needs protecting is inside each *cell*, written
// by whichever source owns it, possibly from a worker goroutine spawned by
// drain's errgroup.
type cache struct {
	mu sync.RWMutex
	m  map[string]*cell

	// copyOnRead, when set, deep-copies a Success value out of the cache
	// before handing it to a plan continuation, so that a caller mutating
	// the returned value in place cannot corrupt what other branches of
	// the same run (or a later round) will observe from the same cell.
	// Off by default: most request result types are treated as immutable
	// by convention, and the copy has a real cost for anything non-trivial.
	copyOnRead bool
}

// CacheOption configures a Cache constructed via NewCache.
type CacheOption func(*cache)

// WithCopyOnRead enables defensive deep-copying of cached Success values on
// every read. See the copyOnRead field of cache for the tradeoff.
func WithCopyOnRead() CacheOption {
	return func(c *cache) {
		c.copyOnRead = true
	}
}

func newCache(opts ...CacheOption) *cache {
	c := &cache{m: make(map[string]*cell)}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get returns the cell registered for id, if any.
func (c *cache) get(id string) (*cell, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cl, ok := c.m[id]

	return cl, ok
}

// put inserts or overwrites unconditionally, used by new-cell insertion and
// by invalidate.
func (c *cache) put(id string, cl *cell) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.m[id] = cl
}

// remove deletes the entry for id, if present. A no-op if absent, which is
// the common case for invalidate on a never-fetched identifier.
func (c *cache) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.m, id)
}

// Cache is a handle to a result cache that can outlive a single Run call.
// Share one Cache across repeated Run invocations to get memoization
// across calls, not just within one plan's rounds; pair it with
// Invalidate (directly, or driven by an invalidation bus consumer) to
// evict entries that are known to be stale.
type Cache struct {
	c *cache
}

// NewCache constructs a Cache for repeated use across Run calls. Passing
// one to WithCache is optional — Run defaults to a private, single-use
// cache when none is supplied.
func NewCache(opts ...CacheOption) *Cache {
	return &Cache{c: newCache(opts...)}
}

// Invalidate evicts id, if present, so that the next Run to reference it
// issues a fresh fetch rather than reusing the old result. It is safe to
// call concurrently with an in-flight Run sharing the same Cache; the
// worst case is that the in-flight run still observes the stale value for
// requests it has already resolved this round.
func (pc *Cache) Invalidate(id string) {
	pc.c.remove(id)
}

// readValue applies the copyOnRead policy to a Success value pulled from a
// cell before it's handed to a plan continuation.
func (c *cache) readValue(v any) any {
	if !c.copyOnRead {
		return v
	}

	copied, err := deep.Copy(v)
	if err != nil {
		// deep.Copy only fails on genuinely uncopyable values (e.g. an
		// unexported field holding a channel or func); fall back to the
		// original rather than losing the result.
		return v
	}

	return copied
}
