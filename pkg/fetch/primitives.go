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
)

// Fetch[T] is a suspended fetch plan that eventually produces a T. The
// zero value is not usable; build one with Lift, Fail, DataFetch,
// UncachedFetch, or by combining existing plans with Map, Ap, Bind, Zip2,
// Zip3, Zip4, Sequence or MapSeq.
type Fetch[T any] struct {
	raw rawExpr
}

// Lift builds a plan that is immediately Done with v, without ever
// blocking.
func Lift[T any](v T) Fetch[T] {
	return Fetch[T]{raw: &rawConst{value: v}}
}

// Fail builds a plan that is immediately Failed with err.
func Fail[T any](err error) Fetch[T] {
	return Fetch[T]{raw: &rawConst{err: err, isErr: true}}
}

// Map applies f to the eventual result of fa. It never introduces a new
// round: if fa is Blocked, the continuation carries f forward, fused with
// any Map already waiting there.
func Map[T, U any](fa Fetch[T], f func(T) U) Fetch[U] {
	wrapped := func(v any) any { return f(v.(T)) }

	return Fetch[U]{raw: fuseMap(wrapped, fa.raw)}
}

// Ap applies the eventual result of ff to the eventual result of fa. Both
// are evaluated every round regardless of which one resolves first, so
// that independent blocked requests on either side still land in the same
// round's batch — this is what lets two unrelated DataFetch calls
// combined with Ap batch together, where the same two calls chained with
// Bind could not.
func Ap[T, U any](ff Fetch[func(T) U], fa Fetch[T]) Fetch[U] {
	adapt := func(v any) any {
		fn := v.(func(T) U)

		return func(a any) any { return fn(a.(T)) }
	}

	return Fetch[U]{raw: &rawApplyExpr{ef: fuseMap(adapt, ff.raw), ex: fa.raw}}
}

// Bind sequences fa with a continuation k that can only be built once fa's
// value is known. Requests discovered inside k are therefore always at
// least one round behind fa's own requests: Bind cannot batch across the
// two stages the way Ap can.
func Bind[T, U any](fa Fetch[T], k func(T) Fetch[U]) Fetch[U] {
	rawK := func(v any) rawExpr { return k(v.(T)).raw }

	return Fetch[U]{raw: &rawBindExpr{inner: fa.raw, k: rawK}}
}

// Pair is the result of Zip2.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is the result of Zip3.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// Quad is the result of Zip4.
type Quad[A, B, C, D any] struct {
	First  A
	Second B
	Third  C
	Fourth D
}

// Zip2 combines two independent plans with Ap, batching their requests
// whenever both are blocked in the same round.
func Zip2[A, B any](fa Fetch[A], fb Fetch[B]) Fetch[Pair[A, B]] {
	mk := Map(fa, func(a A) func(B) Pair[A, B] {
		return func(b B) Pair[A, B] { return Pair[A, B]{First: a, Second: b} }
	})

	return Ap(mk, fb)
}

// Zip3 combines three independent plans with Ap.
func Zip3[A, B, C any](fa Fetch[A], fb Fetch[B], fc Fetch[C]) Fetch[Triple[A, B, C]] {
	p := Zip2(fa, fb)

	return Map(Zip2(p, fc), func(x Pair[Pair[A, B], C]) Triple[A, B, C] {
		return Triple[A, B, C]{First: x.First.First, Second: x.First.Second, Third: x.Second}
	})
}

// Zip4 combines four independent plans with Ap.
func Zip4[A, B, C, D any](fa Fetch[A], fb Fetch[B], fc Fetch[C], fd Fetch[D]) Fetch[Quad[A, B, C, D]] {
	p := Zip3(fa, fb, fc)

	return Map(Zip2(p, fd), func(x Pair[Triple[A, B, C], D]) Quad[A, B, C, D] {
		return Quad[A, B, C, D]{
			First:  x.First.First,
			Second: x.First.Second,
			Third:  x.First.Third,
			Fourth: x.Second,
		}
	})
}

// Sequence combines a slice of independent plans into one plan of a slice,
// batching requests across every element that is blocked in the same
// round. Order of fs is preserved in the result.
func Sequence[T any](fs []Fetch[T]) Fetch[[]T] {
	acc := Lift[[]T](nil)

	for _, f := range fs {
		f := f

		acc = Ap(Map(acc, func(xs []T) func(T) []T {
			return func(x T) []T {
				out := make([]T, len(xs), len(xs)+1)
				copy(out, xs)

				return append(out, x)
			}
		}), f)
	}

	return acc
}

// MapSeq applies f to every element of xs and combines the results with
// Sequence.
func MapSeq[T, U any](xs []T, f func(T) Fetch[U]) Fetch[[]U] {
	fs := make([]Fetch[U], len(xs))
	for i, x := range xs {
		fs[i] = f(x)
	}

	return Sequence(fs)
}

// Invalidate returns a plan that evicts req.Identifier() from the run's
// cache, then evaluates p. The eviction happens before p's own reads, so a
// DataFetch for req inside p never observes a value left over from earlier
// in the plan, and again once p's value is known, so a DataFetch for req
// anywhere after this node in the same run re-queries the source instead
// of reusing p's result.
func Invalidate[T any](req Request, p Fetch[T]) Fetch[T] {
	return Fetch[T]{raw: &rawInvalidateExpr{id: req.Identifier(), inner: p.raw}}
}

// sourceAdapter closes over a typed Source's type parameters so the store
// can hold it behind the untypedSource interface.
type sourceAdapter[R Request, T any] struct {
	src Source[R, T]
}

func (a *sourceAdapter[R, T]) sourceName() string { return a.src.Name() }

func (a *sourceAdapter[R, T]) fetch(ctx context.Context, batch []blockedFetchUntyped) []PerformFetch {
	typed := make([]BlockedFetch[R, T], len(batch))

	for i, b := range batch {
		req, ok := b.request.(R)
		if !ok {
			// The store only ever groups requests under a (source name,
			// request type) key built from reflect.TypeOf(R), so every
			// member of batch is already an R and this branch is not
			// reached. Two Source values that share both a name and a
			// request type do share a bucket, but their requests are
			// still Rs, so they pass this assertion (see storeKey).
			panic(ErrSourceMismatch)
		}

		typed[i] = BlockedFetch[R, T]{Request: req, Cell: Cell[T]{raw: b.cl}}
	}

	return a.src.Fetch(ctx, typed)
}

func buildFetchNode[R Request, T any](src Source[R, T], req R, cached bool) rawExpr {
	key := storeKey{name: src.Name(), reqType: reflect.TypeOf(req)}

	return &rawFetchNode{key: key, req: req, src: &sourceAdapter[R, T]{src: src}, cached: cached}
}

// DataFetch issues req against src, deduplicated and memoized against the
// run's cache by req.Identifier(). A second DataFetch for the same
// identifier, from src or not, within the same run observes the first
// one's result without ever invoking src again.
func DataFetch[R Request, T any](src Source[R, T], req R) Fetch[T] {
	return Fetch[T]{raw: buildFetchNode(src, req, true)}
}

// UncachedFetch issues req against src every time it is evaluated,
// bypassing the cache entirely: two UncachedFetch calls for the same
// identifier still result in two separate fetches, though both are still
// batched together with anything else blocked in the same round.
func UncachedFetch[R Request, T any](src Source[R, T], req R) Fetch[T] {
	return Fetch[T]{raw: buildFetchNode(src, req, false)}
}
