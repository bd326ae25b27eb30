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

// Tracing is one log line per event, at V(1), in the style the rest of the
// pack uses controller-runtime/go-logr for: structured key/value pairs,
// never format strings. It is entirely opt-in (WithTrace) and costs a
// branch when off.

func (e *environment) traceMiss(source, id string) {
	if !e.trace {
		return
	}

	e.log.V(1).Info("cache miss", "source", source, "id", id)
}

func (e *environment) traceDup(source, id string) {
	if !e.trace {
		return
	}

	e.log.V(1).Info("duplicate request in round", "source", source, "id", id)
}

func (e *environment) traceHit(source, id string) {
	if !e.trace {
		return
	}

	e.log.V(1).Info("cache hit", "source", source, "id", id)
}

func (e *environment) traceInvalidate(id string) {
	if !e.trace {
		return
	}

	e.log.V(1).Info("cache invalidate", "id", id)
}

func (e *environment) traceRoundStart(round, size int) {
	if !e.trace {
		return
	}

	e.log.V(1).Info("round start", "round", round, "requests", size)
}

func (e *environment) traceRoundEnd(round int) {
	if !e.trace {
		return
	}

	e.log.V(1).Info("round end", "round", round)
}

func (e *environment) traceDone(rounds int) {
	if !e.trace {
		return
	}

	e.log.V(1).Info("plan complete", "rounds", rounds)
}

func (e *environment) traceFailed(rounds int, err error) {
	if !e.trace {
		return
	}

	e.log.V(1).Info("plan failed", "rounds", rounds, "error", err.Error())
}
