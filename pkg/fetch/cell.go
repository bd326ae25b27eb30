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

import "sync"

// cellState is the lifecycle state of a result cell.
type cellState int

const (
	// cellNotFetched means the cell has been allocated and queued in the
	// store, but no source has transitioned it yet.
	cellNotFetched cellState = iota
	// cellSuccess means a source wrote a value.
	cellSuccess
	// cellError means a source (or the evaluator, for an invariant
	// violation) wrote a failure.
	cellError
)

// cell is the mutable, type-erased container behind every in-flight
// request. One cell exists per request identifier per run. It is created
// NotFetched when a request first enters the store, mutated exactly once
// by the owning source's batch handler, and thereafter only read.
//
// Mutation by anyone other than the source that owns it is a contract
// violation, not something this type polices at runtime: the store only
// ever hands a blocked fetch's cell to the one source grouped under it.
type cell struct {
	mu    sync.Mutex
	state cellState
	value any
	err   error
}

// newCell allocates a fresh NotFetched cell.
func newCell() *cell {
	return &cell{state: cellNotFetched}
}

// putSuccess transitions the cell to Success. Calling it more than once,
// or after putFailure, is a contract violation by the source and will
// silently lose the earlier value — sources are trusted to write exactly
// once per spec.
func (c *cell) putSuccess(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = cellSuccess
	c.value = v
	c.err = nil
}

// putFailure transitions the cell to Error.
func (c *cell) putFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = cellError
	c.err = err
}

// status returns a point-in-time snapshot of the cell's state.
func (c *cell) status() (cellState, any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state, c.value, c.err
}
