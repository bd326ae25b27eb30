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

import "context"

// Request is an opaque value with a stable identifier used for cache
// keying. Two requests are "the same" iff their identifiers are equal — it
// is the client's responsibility to make Identifier encode every input that
// affects the result.
type Request interface {
	// Identifier returns the cache key for this request.
	Identifier() string
}

// Cell is the typed view of a result cell handed to a source's batch
// handler. A source calls exactly one of PutSuccess/PutFailure per blocked
// fetch it was given; calling neither leaves the evaluator unable to
// proceed past the round and is reported as an invariant violation the next
// time anything reads the cell.
type Cell[T any] struct {
	raw *cell
}

// PutSuccess transitions the underlying cell to Success(v).
func (c Cell[T]) PutSuccess(v T) {
	c.raw.putSuccess(v)
}

// PutFailure transitions the underlying cell to Error(err).
func (c Cell[T]) PutFailure(err error) {
	c.raw.putFailure(err)
}

// BlockedFetch is what a Source sees for each request in its batch: the
// original typed request, and a cell to resolve it into.
type BlockedFetch[R Request, T any] struct {
	Request R
	Cell    Cell[T]
}

// PerformFetch is the task a Source hands back to the evaluator for each
// unit of work in a batch: either a synchronous thunk, run inline in the
// order the source returned it, or an asynchronous one, gathered into a
// single parallel wait with every other async task of the round.
type PerformFetch struct {
	async bool
	sync  func()
	task  func(ctx context.Context) error
}

// Sync wraps a synchronous unit of work. The evaluator runs it eagerly,
// inline on the evaluator's goroutine, as soon as it's received from the
// source.
func Sync(thunk func()) PerformFetch {
	return PerformFetch{sync: thunk}
}

// Async wraps an asynchronous unit of work. Every Async task returned by
// every source drained in a round runs concurrently; the evaluator blocks
// until all of them complete before re-evaluating the plan.
func Async(thunk func(ctx context.Context) error) PerformFetch {
	return PerformFetch{async: true, task: thunk}
}

// Source is the named carrier of a batch handler for one request type. A
// source is polymorphic in its request type at the type-parameter level;
// internally the store carries a type-erased adapter that downcasts safely
// because fetches are grouped by source before Fetch is ever called.
type Source[R Request, T any] interface {
	// Name identifies the source for store grouping and tracing. Two
	// Source values with the same Name but different request types are
	// still kept in separate store buckets (see storeKey).
	Name() string

	// Fetch turns a non-empty batch of blocked fetches into a list of
	// scheduled tasks. Every cell in batch must be in a terminal state by
	// the time its corresponding task (sync: immediately; async: when its
	// future completes) has run.
	Fetch(ctx context.Context, batch []BlockedFetch[R, T]) []PerformFetch
}
