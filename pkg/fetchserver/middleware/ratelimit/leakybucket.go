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

package ratelimit

import (
	"sync"
	"time"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/apierror"
)

// RateLimiter either admits or rejects the current request.
type RateLimiter interface {
	Request() error
}

// leakyBucket implements the leaky bucket as a meter algorithm for rate
// limiting. The bucket starts empty and fills as requests come in, and
// empties via a leak at a fixed period derived from the requests per
// second. If the bucket would overflow, requests are rejected with a
// 429. This allows for bursty workloads rather than a strict token
// refill schedule.
type leakyBucket struct {
	rps             int64
	durationPerLeak time.Duration
	lock            sync.Mutex
	counter         int64
	lastLeak        time.Time
}

// NewLeakyBucket creates a new leaky bucket implementation.
func NewLeakyBucket(rps int64) RateLimiter {
	return &leakyBucket{
		rps:             rps,
		durationPerLeak: time.Second / time.Duration(rps),
		lastLeak:        time.Now(),
	}
}

// Request either allows or denies the request.
func (b *leakyBucket) Request() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	delta := time.Since(b.lastLeak)

	requests := int64(delta) / int64(b.durationPerLeak)
	if requests > 0 {
		b.lastLeak = b.lastLeak.Add(delta.Truncate(b.durationPerLeak))

		b.counter -= requests
		if b.counter < 0 {
			b.counter = 0
		}
	}

	if b.counter == b.rps {
		return apierror.TooManyRequests()
	}

	b.counter++

	return nil
}
