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

import "errors"

var (
	// ErrNotDrained is surfaced when a plan continuation observes a cell
	// still NotFetched after the store claims to have drained it — either
	// a source failed to transition a cell it was handed, or the
	// continuation is being re-run without an intervening drain. This is
	// always a bug in the evaluator or in a Source, never a condition a
	// well-behaved caller can trigger.
	ErrNotDrained = errors.New("fetch: expected complete fetch, cell still not fetched")

	// ErrEmptyBatch names a source invoked with an empty batch. Nothing in
	// this package returns it: the store only creates a group when it has
	// at least one blocked fetch to put in it, and drain skips any group
	// that is empty rather than invoking its source.
	ErrEmptyBatch = errors.New("fetch: source invoked with an empty batch")

	// ErrSourceMismatch is the panic value used when a queued request
	// cannot be converted back to the request type of the Source its store
	// bucket was handed to. Because buckets are keyed by request type, the
	// conversion always succeeds and this value is not raised in practice.
	ErrSourceMismatch = errors.New("fetch: cell value does not match the expected result type")
)
