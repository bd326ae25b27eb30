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

// Package invalidation lets an external event source (a webhook, an
// informer, a broker subscription) tell a long-lived fetchplan host that a
// particular request identifier is stale. Two kinds of staleness need
// reacting to differently: a caller that explicitly opted a fetch.Cache into
// WithCache across several fetch.Run calls wants that one entry evicted
// (CacheInvalidator); a Source backed by its own longer-lived mirror (e.g.
// pkg/fetch/sources/k8sobjects's refresh-ahead cache) wants an early resync
// instead, since its mirror already outlives any single run by design
// (MirrorInvalidator).
package invalidation

import (
	"context"
	"fmt"
)

// Envelope identifies one cache entry that changed upstream.
type Envelope struct {
	// RequestID is the Identifier() of the Request whose cached result is
	// now stale.
	RequestID string
}

// Consumer reacts to one invalidation event.
type Consumer interface {
	Consume(ctx context.Context, envelope *Envelope) error
}

// Queue is an abstract source of invalidation events. Run blocks until ctx
// is cancelled or the underlying source is exhausted.
type Queue interface {
	Run(ctx context.Context, consumers ...Consumer) error
}

// invalidator is the Cache's own Invalidate method, kept as an interface
// here so this package never imports the fetch package back (fetch does
// not need to know invalidation exists).
type invalidator interface {
	Invalidate(id string)
}

// CacheInvalidator is a Consumer that evicts the request named by each
// Envelope from a Cache.
type CacheInvalidator struct {
	cache invalidator
}

var _ Consumer = (*CacheInvalidator)(nil)

// NewCacheInvalidator builds a Consumer bound to cache.
func NewCacheInvalidator(cache invalidator) *CacheInvalidator {
	return &CacheInvalidator{cache: cache}
}

// Consume evicts envelope.RequestID.
func (c *CacheInvalidator) Consume(_ context.Context, envelope *Envelope) error {
	c.cache.Invalidate(envelope.RequestID)

	return nil
}

// Resyncer forces an out-of-band, synchronous refresh of a mirror-backed
// Source, such as k8sobjects.ConfigMapSource/SecretSource.
type Resyncer interface {
	Invalidate() error
}

// MirrorInvalidator is a Consumer that resyncs every one of its mirrors on
// each Envelope, regardless of which identifier changed: a refresh-ahead
// mirror has no cheaper way to pick up one changed object than a full
// list-and-diff, and concurrent resyncs that arrive while a refresh is
// still queued coalesce onto it (RefreshAheadCache.Invalidate).
type MirrorInvalidator struct {
	mirrors []Resyncer
}

var _ Consumer = (*MirrorInvalidator)(nil)

// NewMirrorInvalidator builds a Consumer that resyncs every one of mirrors
// whenever an Envelope arrives.
func NewMirrorInvalidator(mirrors ...Resyncer) *MirrorInvalidator {
	return &MirrorInvalidator{mirrors: mirrors}
}

// Consume resyncs every mirror, stopping at (and returning) the first
// failure.
func (m *MirrorInvalidator) Consume(_ context.Context, envelope *Envelope) error {
	for _, mirror := range m.mirrors {
		if err := mirror.Invalidate(); err != nil {
			return fmt.Errorf("invalidation: resyncing mirror for %s: %w", envelope.RequestID, err)
		}
	}

	return nil
}
