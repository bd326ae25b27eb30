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
	"fmt"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// Run evaluates plan to completion: evaluate, and if the result is
// Blocked, drain the round's store (issuing every source's batch handler,
// running Sync tasks inline and gathering Async tasks concurrently), then
// re-evaluate the suspended continuation against the now-resolved cells.
// Repeats until the plan reaches Done or Failed.
func Run[T any](ctx context.Context, plan Fetch[T], opts ...RunOption) (T, error) {
	var zero T

	env := newEnvironment(opts...)
	cur := plan.raw
	round := 0

	for {
		env.store = newStore()

		roundCtx := ctx

		var span oteltrace.Span
		if env.tracer != nil {
			roundCtx, span = env.tracer.Start(ctx, "fetch.round")
		}

		r := cur.eval(env)

		if span != nil {
			span.End()
		}

		switch r.state {
		case stateDone:
			env.traceDone(round)

			v, ok := r.value.(T)
			if !ok {
				return zero, fmt.Errorf("fetch: internal: plan resolved to %T, want %T", r.value, zero)
			}

			return v, nil

		case stateFailed:
			env.traceFailed(round, r.err)

			return zero, r.err

		default:
			if env.store.size() == 0 {
				// Blocked again with nothing new queued: some earlier
				// round's cell was never resolved to a terminal state by
				// its source.
				return zero, ErrNotDrained
			}

			round++
			env.traceRoundStart(round, env.store.size())

			if err := env.store.drain(roundCtx); err != nil {
				return zero, err
			}

			env.traceRoundEnd(round)
			cur = r.cont
		}
	}
}
