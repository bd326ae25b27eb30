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

package invalidation

import (
	"context"

	"github.com/go-logr/logr"
)

// ChannelQueue is a channel-backed Queue: something upstream of the
// fetchplan host (a webhook handler, an informer, a broker subscription)
// calls Publish, and every registered Consumer sees every Envelope in
// publish order. Unlike a Kubernetes-informer-backed queue there is no
// replay of existing state on restart — this queue only ever carries
// "this identifier changed just now" events.
type ChannelQueue struct {
	events chan *Envelope
}

var _ Queue = (*ChannelQueue)(nil)

// NewChannelQueue constructs a ChannelQueue with the given buffer size.
func NewChannelQueue(buffer int) *ChannelQueue {
	return &ChannelQueue{events: make(chan *Envelope, buffer)}
}

// Publish enqueues envelope. It blocks if the queue's buffer is full.
func (q *ChannelQueue) Publish(ctx context.Context, envelope *Envelope) error {
	select {
	case q.events <- envelope:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run fans every published Envelope out to every consumer, in order, until
// ctx is cancelled. The first consumer to return an error for an event
// aborts Run; it is the caller's responsibility to make Consume resilient
// to transient failures if that's undesirable.
func (q *ChannelQueue) Run(ctx context.Context, consumers ...Consumer) error {
	log := logr.FromContextOrDiscard(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case envelope := <-q.events:
			for _, c := range consumers {
				if err := c.Consume(ctx, envelope); err != nil {
					log.Error(err, "invalidation consumer failed", "id", envelope.RequestID)

					return err
				}
			}
		}
	}
}
