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

// This file holds the untyped evaluation core. Go generics have no
// existential types, so a heterogeneous tree of suspended continuations
// (a Map node over one round's leftover Bind, nested under an Apply whose
// other branch is itself a fused Map-of-Map) cannot be expressed as
// Expr[T] all the way down without knowing every intermediate type
// parameter at the node that fuses them. Instead the tree below is built
// entirely out of `any`; Expr[T] and Fetch[T] in primitives.go are thin,
// type-safe wrappers applied only at the public boundary.

// evalState is the outcome of evaluating a rawExpr for one round.
type evalState int

const (
	stateDone evalState = iota
	stateBlocked
	stateFailed
)

// evalResult is what every rawExpr.eval returns. cont is only meaningful
// when state is stateBlocked: it is the suspended continuation to
// re-evaluate next round, after the round's drain has run.
type evalResult struct {
	state evalState
	value any
	err   error
	cont  rawExpr
}

func doneResult(v any) evalResult       { return evalResult{state: stateDone, value: v} }
func failedResult(err error) evalResult { return evalResult{state: stateFailed, err: err} }
func blockedResult(cont rawExpr) evalResult {
	return evalResult{state: stateBlocked, cont: cont}
}

// rawExpr is one node of a suspended fetch plan.
type rawExpr interface {
	eval(env *environment) evalResult
}

// constFromResult freezes an already-known Done or Failed result into a
// standalone node, reusable as one branch of an Apply whose sibling branch
// is still Blocked. This is how a failure discovered this round on one
// side of an Ap is made to wait: wrapping it in rawConst defers surfacing
// it until the sibling's own continuation is re-evaluated next round,
// after this round's drain has actually run the sibling's requests.
func constFromResult(r evalResult) rawExpr {
	if r.state == stateFailed {
		return &rawConst{err: r.err, isErr: true}
	}

	return &rawConst{value: r.value}
}

// rawConst is a node that is always already resolved.
type rawConst struct {
	value any
	err   error
	isErr bool
}

func (c *rawConst) eval(_ *environment) evalResult {
	if c.isErr {
		return failedResult(c.err)
	}

	return doneResult(c.value)
}

// rawFetchNode is a single data-fetch leaf: DataFetch when cached is true,
// UncachedFetch otherwise.
type rawFetchNode struct {
	key    storeKey
	req    Request
	src    untypedSource
	cached bool

	// cell backs the uncached path only. The node UncachedFetch builds never
	// holds one: each evaluation of it allocates a fresh cell, queues it,
	// and blocks on a continuation node that carries that cell, so reusing
	// one UncachedFetch value (or re-running it) issues a new request every
	// time.
	cell *cell
}

func (n *rawFetchNode) eval(env *environment) evalResult {
	if !n.cached {
		return n.evalUncached(env)
	}

	id := n.req.Identifier()

	cl, ok := env.cache.get(id)
	if !ok {
		cl = newCell()
		env.cache.put(id, cl)
		env.store.add(n.key, n.src, n.req, cl)
		env.traceMiss(n.key.name, id)

		return blockedResult(n)
	}

	state, value, err := cl.status()

	switch state {
	case cellNotFetched:
		env.traceDup(n.key.name, id)

		return blockedResult(n)
	case cellSuccess:
		env.traceHit(n.key.name, id)

		return doneResult(env.cache.readValue(value))
	default:
		env.traceHit(n.key.name, id)

		return failedResult(err)
	}
}

func (n *rawFetchNode) evalUncached(env *environment) evalResult {
	if n.cell == nil {
		cl := newCell()
		env.store.add(n.key, n.src, n.req, cl)
		env.traceMiss(n.key.name, n.req.Identifier())

		return blockedResult(&rawFetchNode{key: n.key, req: n.req, src: n.src, cached: false, cell: cl})
	}

	state, value, err := n.cell.status()

	switch state {
	case cellNotFetched:
		return blockedResult(n)
	case cellSuccess:
		return doneResult(value)
	default:
		return failedResult(err)
	}
}

// rawMapExpr applies f to the eventual value of inner. Map-of-Map is fused
// by fuseMap so the continuation carried across a round never grows a
// chain of wrapper nodes.
type rawMapExpr struct {
	f     func(any) any
	inner rawExpr
}

func fuseMap(f func(any) any, inner rawExpr) rawExpr {
	if m, ok := inner.(*rawMapExpr); ok {
		g := m.f
		composed := func(v any) any { return f(g(v)) }

		return &rawMapExpr{f: composed, inner: m.inner}
	}

	return &rawMapExpr{f: f, inner: inner}
}

func (n *rawMapExpr) eval(env *environment) evalResult {
	r := n.inner.eval(env)

	switch r.state {
	case stateDone:
		return doneResult(n.f(r.value))
	case stateFailed:
		return r
	default:
		return blockedResult(fuseMap(n.f, r.cont))
	}
}

// rawApplyExpr is the applicative combinator: both branches are evaluated
// every round regardless of whether one of them is already resolved, so
// that independent blocked requests on either side still land in the same
// round's batch. Apply nodes are never fused across rounds — doing so
// would collapse the parallel structure the whole point of Ap is to
// preserve.
type rawApplyExpr struct {
	ef rawExpr
	ex rawExpr
}

func (n *rawApplyExpr) eval(env *environment) evalResult {
	rf := n.ef.eval(env)
	rx := n.ex.eval(env)

	switch rf.state {
	case stateDone:
		switch rx.state {
		case stateDone:
			fn, _ := rf.value.(func(any) any)

			return doneResult(fn(rx.value))
		case stateFailed:
			return rx
		default:
			return blockedResult(&rawApplyExpr{ef: constFromResult(rf), ex: rx.cont})
		}
	case stateFailed:
		if rx.state == stateBlocked {
			return blockedResult(&rawApplyExpr{ef: constFromResult(rf), ex: rx.cont})
		}
		// Both sides resolved (or rx also failed): the function branch's
		// failure wins. Order between two simultaneous failures is
		// otherwise unspecified by the spec.
		return rf
	default: // rf blocked
		switch rx.state {
		case stateDone, stateFailed:
			return blockedResult(&rawApplyExpr{ef: rf.cont, ex: constFromResult(rx)})
		default:
			return blockedResult(&rawApplyExpr{ef: rf.cont, ex: rx.cont})
		}
	}
}

// rawBindExpr is the monadic combinator. k is only ever invoked once inner
// resolves to Done; any requests k's result discovers are therefore
// necessarily deferred to a later round than inner's own requests, which is
// precisely why Bind cannot batch across the two.
type rawBindExpr struct {
	inner rawExpr
	k     func(any) rawExpr
}

func fuseBind(inner rawExpr, k func(any) rawExpr) rawExpr {
	if b, ok := inner.(*rawBindExpr); ok {
		innerK := b.k
		composed := func(v any) rawExpr {
			return &rawBindExpr{inner: innerK(v), k: k}
		}

		return &rawBindExpr{inner: b.inner, k: composed}
	}

	return &rawBindExpr{inner: inner, k: k}
}

func (n *rawBindExpr) eval(env *environment) evalResult {
	r := n.inner.eval(env)

	switch r.state {
	case stateFailed:
		return r
	case stateBlocked:
		return blockedResult(fuseBind(r.cont, n.k))
	default:
		return n.k(r.value).eval(env)
	}
}

// rawInvalidateExpr evicts id from the cache before inner is first
// evaluated, so inner's own fetch never observes a value left over from
// earlier in the same run. It evicts id a second time once inner finally
// resolves, so that anything evaluated after this node — in the same round
// or a later one — also re-queries the source rather than reusing the
// value this node just produced. Only the leading eviction is conditional
// on removed: once a continuation has been handed back from a Blocked
// round, the leading eviction already happened and must not repeat, or
// inner would never be allowed to settle.
type rawInvalidateExpr struct {
	id      string
	inner   rawExpr
	removed bool
}

func (n *rawInvalidateExpr) eval(env *environment) evalResult {
	if !n.removed {
		env.cache.remove(n.id)
		env.traceInvalidate(n.id)
	}

	r := n.inner.eval(env)

	switch r.state {
	case stateBlocked:
		return blockedResult(&rawInvalidateExpr{id: n.id, inner: r.cont, removed: true})
	case stateDone:
		env.cache.remove(n.id)
		env.traceInvalidate(n.id)

		return r
	default:
		return r
	}
}
