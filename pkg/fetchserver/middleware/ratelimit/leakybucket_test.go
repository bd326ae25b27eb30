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

package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/middleware/ratelimit"
)

func TestLeakyBucket(t *testing.T) {
	t.Parallel()

	rps := 100

	// One request every 10ms.
	b := ratelimit.NewLeakyBucket(100)

	steady := time.NewTicker(10 * time.Millisecond)
	defer steady.Stop()

	t.Log("steady rate traffic")

	timeout := time.After(2 * time.Second)

	var done bool

	for !done {
		select {
		case <-timeout:
			done = true
		case <-steady.C:
			require.NoError(t, b.Request())
		}
	}

	t.Log("burst traffic")

	for range rps >> 1 {
		require.NoError(t, b.Request())
	}

	t.Log("rate limiting triggers")

	var seen bool

	for range rps << 1 {
		if err := b.Request(); err != nil {
			seen = true
		}
	}

	require.True(t, seen)

	t.Log("steady rate traffic again after drain")

	time.Sleep(100 * time.Millisecond)

	timeout = time.After(2 * time.Second)

	done = false

	for !done {
		select {
		case <-timeout:
			done = true
		case <-steady.C:
			require.NoError(t, b.Request())
		}
	}
}
