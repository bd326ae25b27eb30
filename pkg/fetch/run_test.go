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

package fetch_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nscale-oss/fetchplan/pkg/fetch"
)

// idReq is the test request type shared by every recordingSource in this
// file: a bare identifier, batched by source name.
type idReq struct {
	id string
}

func (r idReq) Identifier() string { return r.id }

// recordingSource resolves each request to len(id) by default, and
// remembers the id set of every Fetch invocation it receives, so tests can
// assert on how many rounds/batches a plan actually took.
type recordingSource struct {
	mu      sync.Mutex
	name    string
	batches [][]string
	resolve func(id string) (int, error)
	// stall, if set, makes the source never resolve the cell for this id
	// — used to exercise the ErrNotDrained path.
	stall map[string]bool
}

func newRecordingSource(name string) *recordingSource {
	return &recordingSource{
		name: name,
		resolve: func(id string) (int, error) {
			return len(id), nil
		},
	}
}

func (s *recordingSource) Name() string { return s.name }

func (s *recordingSource) Fetch(_ context.Context, batch []fetch.BlockedFetch[idReq, int]) []fetch.PerformFetch {
	ids := make([]string, len(batch))
	for i, b := range batch {
		ids[i] = b.Request.id
	}

	s.mu.Lock()
	s.batches = append(s.batches, ids)
	s.mu.Unlock()

	tasks := make([]fetch.PerformFetch, 0, len(batch))

	for _, b := range batch {
		b := b

		if s.stall[b.Request.id] {
			continue
		}

		tasks = append(tasks, fetch.Sync(func() {
			v, err := s.resolve(b.Request.id)
			if err != nil {
				b.Cell.PutFailure(err)

				return
			}

			b.Cell.PutSuccess(v)
		}))
	}

	return tasks
}

func (s *recordingSource) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.batches)
}

func (s *recordingSource) idsInBatch(i int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := append([]string(nil), s.batches[i]...)
	sort.Strings(ids)

	return ids
}

func TestLiftNeverBlocks(t *testing.T) {
	v, err := fetch.Run(context.Background(), fetch.Lift(42))
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestMapIdentityAndComposition(t *testing.T) {
	id := func(v int) int { return v }
	plan := fetch.Map(fetch.Lift(7), id)

	v, err := fetch.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 7, v)

	double := func(v int) int { return v * 2 }
	incr := func(v int) int { return v + 1 }

	composed := fetch.Map(fetch.Map(fetch.Lift(7), double), incr)

	v, err = fetch.Run(context.Background(), composed)
	require.NoError(t, err)
	require.Equal(t, incr(double(7)), v)
}

func TestFailPropagatesThroughMap(t *testing.T) {
	sentinel := errors.New("boom")
	plan := fetch.Map(fetch.Fail[int](sentinel), func(v int) int { return v + 1 })

	_, err := fetch.Run(context.Background(), plan)
	require.ErrorIs(t, err, sentinel)
}

func TestApBatchesIndependentFetches(t *testing.T) {
	src := newRecordingSource("widgets")

	plan := fetch.Zip2(
		fetch.DataFetch[idReq, int](src, idReq{id: "a"}),
		fetch.DataFetch[idReq, int](src, idReq{id: "bb"}),
	)

	v, err := fetch.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, fetch.Pair[int, int]{First: 1, Second: 2}, v)

	require.Equal(t, 1, src.batchCount(), "independent fetches combined with Ap must land in one round")
	require.Equal(t, []string{"a", "bb"}, src.idsInBatch(0))
}

func TestBindDoesNotBatch(t *testing.T) {
	src := newRecordingSource("widgets")

	plan := fetch.Bind(
		fetch.DataFetch[idReq, int](src, idReq{id: "a"}),
		func(int) fetch.Fetch[int] {
			return fetch.DataFetch[idReq, int](src, idReq{id: "bb"})
		},
	)

	v, err := fetch.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 2, v)

	require.Equal(t, 2, src.batchCount(), "bind's continuation is only discovered after its predecessor resolves")
	require.Equal(t, []string{"a"}, src.idsInBatch(0))
	require.Equal(t, []string{"bb"}, src.idsInBatch(1))
}

func TestDataFetchDedupesWithinRun(t *testing.T) {
	src := newRecordingSource("widgets")

	plan := fetch.Zip2(
		fetch.DataFetch[idReq, int](src, idReq{id: "dup"}),
		fetch.DataFetch[idReq, int](src, idReq{id: "dup"}),
	)

	v, err := fetch.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, fetch.Pair[int, int]{First: 3, Second: 3}, v)

	require.Equal(t, 1, src.batchCount())
	require.Equal(t, []string{"dup"}, src.idsInBatch(0), "a second DataFetch for the same id must not re-enter the batch")
}

func TestUncachedFetchIsNotDeduped(t *testing.T) {
	src := newRecordingSource("widgets")

	plan := fetch.Zip2(
		fetch.UncachedFetch[idReq, int](src, idReq{id: "dup"}),
		fetch.UncachedFetch[idReq, int](src, idReq{id: "dup"}),
	)

	v, err := fetch.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, fetch.Pair[int, int]{First: 3, Second: 3}, v)

	require.Equal(t, 1, src.batchCount())
	require.Equal(t, []string{"dup", "dup"}, src.idsInBatch(0))
}

func TestInvalidateForcesRefetchAcrossRuns(t *testing.T) {
	generation := 0
	src := newRecordingSource("widgets")
	src.resolve = func(string) (int, error) {
		generation++

		return generation, nil
	}

	cache := fetch.NewCache()

	v1, err := fetch.Run(context.Background(),
		fetch.DataFetch[idReq, int](src, idReq{id: "a"}),
		fetch.WithCache(cache))
	require.NoError(t, err)
	require.Equal(t, 1, v1)

	v2, err := fetch.Run(context.Background(),
		fetch.DataFetch[idReq, int](src, idReq{id: "a"}),
		fetch.WithCache(cache))
	require.NoError(t, err)
	require.Equal(t, 1, v2, "second run must observe the cached value, not refetch")
	require.Equal(t, 1, src.batchCount())

	cache.Invalidate("a")

	v3, err := fetch.Run(context.Background(),
		fetch.DataFetch[idReq, int](src, idReq{id: "a"}),
		fetch.WithCache(cache))
	require.NoError(t, err)
	require.Equal(t, 2, v3, "after Invalidate the next run must refetch")
	require.Equal(t, 2, src.batchCount())
}

func TestInvalidatePrimitiveForcesRefetchWithinOneRun(t *testing.T) {
	src := newRecordingSource("widgets")

	plan := fetch.Bind(
		fetch.Invalidate[int](idReq{id: "a"}, fetch.DataFetch[idReq, int](src, idReq{id: "a"})),
		func(int) fetch.Fetch[int] {
			return fetch.DataFetch[idReq, int](src, idReq{id: "a"})
		},
	)

	v, err := fetch.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	require.Equal(t, 2, src.batchCount(), "invalidate must force the continuation's read of the same id to refetch")
	require.Equal(t, []string{"a"}, src.idsInBatch(0))
	require.Equal(t, []string{"a"}, src.idsInBatch(1))
}

func TestApFunctionBranchFailureStillDrainsValueBranch(t *testing.T) {
	src := newRecordingSource("widgets")
	sentinel := errors.New("no function for you")

	fn := fetch.Fail[func(int) int](sentinel)
	plan := fetch.Ap(fn, fetch.DataFetch[idReq, int](src, idReq{id: "a"}))

	_, err := fetch.Run(context.Background(), plan)
	require.ErrorIs(t, err, sentinel)

	require.Equal(t, 1, src.batchCount(),
		"the blocked value branch must still be drained even though the function branch already failed")
}

func TestRunReportsNotDrainedWhenASourceLeavesACellUnresolved(t *testing.T) {
	src := newRecordingSource("widgets")
	src.stall = map[string]bool{"stuck": true}

	plan := fetch.DataFetch[idReq, int](src, idReq{id: "stuck"})

	_, err := fetch.Run(context.Background(), plan)
	require.ErrorIs(t, err, fetch.ErrNotDrained)
}

func TestSequencePreservesOrderAndBatches(t *testing.T) {
	src := newRecordingSource("widgets")

	plans := []fetch.Fetch[int]{
		fetch.DataFetch[idReq, int](src, idReq{id: "a"}),
		fetch.DataFetch[idReq, int](src, idReq{id: "bb"}),
		fetch.DataFetch[idReq, int](src, idReq{id: "ccc"}),
	}

	v, err := fetch.Run(context.Background(), fetch.Sequence(plans))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, v)
	require.Equal(t, 1, src.batchCount(), "Sequence must batch every independent element in one round")
}

func TestMapSeqMatchesSequenceOfMap(t *testing.T) {
	src := newRecordingSource("widgets")

	ids := []string{"a", "bb", "ccc"}
	plan := fetch.MapSeq(ids, func(id string) fetch.Fetch[int] {
		return fetch.DataFetch[idReq, int](src, idReq{id: id})
	})

	v, err := fetch.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, v)
}

func TestZip3AndZip4Batch(t *testing.T) {
	src := newRecordingSource("widgets")

	plan4 := fetch.Zip4(
		fetch.DataFetch[idReq, int](src, idReq{id: "a"}),
		fetch.DataFetch[idReq, int](src, idReq{id: "bb"}),
		fetch.DataFetch[idReq, int](src, idReq{id: "ccc"}),
		fetch.DataFetch[idReq, int](src, idReq{id: "dddd"}),
	)

	v, err := fetch.Run(context.Background(), plan4)
	require.NoError(t, err)
	require.Equal(t, 1, v.First)
	require.Equal(t, 2, v.Second)
	require.Equal(t, 3, v.Third)
	require.Equal(t, 4, v.Fourth)

	require.Equal(t, 1, src.batchCount(), "Zip4 must still batch all four branches in a single round")
}
