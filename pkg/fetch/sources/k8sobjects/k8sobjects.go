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

// Package k8sobjects provides fetch.Source implementations for
// ConfigMaps and Secrets, backed by a refresh-ahead local mirror so that
// a round's batch handler never blocks on the Kubernetes API server.
package k8sobjects

import (
	"context"
	"errors"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/nscale-oss/fetchplan/pkg/fetch"
	ucache "github.com/nscale-oss/fetchplan/pkg/util/cache"
)

// ErrMirrorNotStarted is returned for any request arriving before the
// mirror has completed its first synchronous refresh.
var ErrMirrorNotStarted = errors.New("k8sobjects: mirror has not completed its first refresh")

// listLimit bounds each List call against the API server; the mirror
// still paginates internally via the controller-runtime client, this only
// caps how much is requested per page.
var listLimit = ptr.To(int64(500))

// ObjectRequest identifies a namespaced object by name. The Kind field
// distinguishes ConfigMap requests from Secret requests sharing the same
// Source, even though in practice each concrete Source below only ever
// sees one Kind.
type ObjectRequest struct {
	Namespace string
	Name      string
}

// Identifier implements fetch.Request.
func (r ObjectRequest) Identifier() string {
	return r.Namespace + "/" + r.Name
}

// mirroredObject is the refresh-ahead cache's element type: a minimal,
// locally defined projection of a ConfigMap or Secret, since
// ucache.Cacheable requires methods this package can define, which rules
// out using corev1.ConfigMap/Secret directly.
type mirroredObject struct {
	namespace string
	name      string
	data      map[string][]byte
}

// Index implements ucache.Cacheable.
func (m *mirroredObject) Index() string {
	return m.namespace + "/" + m.name
}

// Equal implements ucache.Cacheable.
func (m *mirroredObject) Equal(other *mirroredObject) bool {
	if len(m.data) != len(other.data) {
		return false
	}

	for k, v := range m.data {
		ov, ok := other.data[k]
		if !ok || string(v) != string(ov) {
			return false
		}
	}

	return true
}

// ConfigMapSource batches ConfigMap.Data lookups.
type ConfigMapSource struct {
	mirror *ucache.RefreshAheadCache[mirroredObject, *mirroredObject]
}

var _ fetch.Source[ObjectRequest, map[string]string] = (*ConfigMapSource)(nil)

// NewConfigMapSource builds a ConfigMapSource that mirrors every ConfigMap
// in namespace, refreshing in the background every refreshPeriod (zero
// picks the mirror's own default).
func NewConfigMapSource(cl client.Client, namespace string, refreshPeriod time.Duration) *ConfigMapSource {
	refresh := func(ctx context.Context) ([]*mirroredObject, error) {
		var list corev1.ConfigMapList

		if err := cl.List(ctx, &list, client.InNamespace(namespace), client.Limit(*listLimit)); err != nil {
			return nil, fmt.Errorf("k8sobjects: listing configmaps: %w", err)
		}

		out := make([]*mirroredObject, len(list.Items))

		for i := range list.Items {
			data := make(map[string][]byte, len(list.Items[i].Data))
			for k, v := range list.Items[i].Data {
				data[k] = []byte(v)
			}

			out[i] = &mirroredObject{
				namespace: list.Items[i].Namespace,
				name:      list.Items[i].Name,
				data:      data,
			}
		}

		return out, nil
	}

	return &ConfigMapSource{
		mirror: ucache.NewRefreshAheadCache[mirroredObject](refresh, &ucache.RefreshAheadCacheOptions{RefreshPeriod: refreshPeriod}),
	}
}

// Start performs the initial synchronous refresh and launches the
// background refresher. It must complete before Fetch is first invoked.
func (s *ConfigMapSource) Start(ctx context.Context) error {
	return s.mirror.Run(ctx)
}

// Invalidate forces an out-of-band synchronous refresh, e.g. in response
// to a watch event or an invalidation.Envelope.
func (s *ConfigMapSource) Invalidate() error {
	return s.mirror.Invalidate()
}

// Name implements fetch.Source and sources.Registered.
func (s *ConfigMapSource) Name() string { return "k8s.configmaps" }

// APIVersion implements sources.Registered.
func (s *ConfigMapSource) APIVersion() string { return "1.0.0" }

// Fetch implements fetch.Source.
func (s *ConfigMapSource) Fetch(_ context.Context, batch []fetch.BlockedFetch[ObjectRequest, map[string]string]) []fetch.PerformFetch {
	tasks := make([]fetch.PerformFetch, len(batch))

	for i, b := range batch {
		b := b

		tasks[i] = fetch.Sync(func() {
			if !s.mirror.Started() {
				b.Cell.PutFailure(ErrMirrorNotStarted)

				return
			}

			snap, err := s.mirror.Get(b.Request.Identifier())
			if err != nil {
				b.Cell.PutFailure(fmt.Errorf("k8sobjects: configmap %s: %w", b.Request.Identifier(), err))

				return
			}

			out := make(map[string]string, len(snap.Item.data))
			for k, v := range snap.Item.data {
				out[k] = string(v)
			}

			b.Cell.PutSuccess(out)
		})
	}

	return tasks
}

// SecretSource batches Secret.Data lookups, returning raw bytes rather
// than decoded strings.
type SecretSource struct {
	mirror *ucache.RefreshAheadCache[mirroredObject, *mirroredObject]
}

var _ fetch.Source[ObjectRequest, map[string][]byte] = (*SecretSource)(nil)

// NewSecretSource builds a SecretSource that mirrors every Secret in
// namespace.
func NewSecretSource(cl client.Client, namespace string, refreshPeriod time.Duration) *SecretSource {
	refresh := func(ctx context.Context) ([]*mirroredObject, error) {
		var list corev1.SecretList

		if err := cl.List(ctx, &list, client.InNamespace(namespace), client.Limit(*listLimit)); err != nil {
			return nil, fmt.Errorf("k8sobjects: listing secrets: %w", err)
		}

		out := make([]*mirroredObject, len(list.Items))

		for i := range list.Items {
			out[i] = &mirroredObject{
				namespace: list.Items[i].Namespace,
				name:      list.Items[i].Name,
				data:      list.Items[i].Data,
			}
		}

		return out, nil
	}

	return &SecretSource{
		mirror: ucache.NewRefreshAheadCache[mirroredObject](refresh, &ucache.RefreshAheadCacheOptions{RefreshPeriod: refreshPeriod}),
	}
}

// Start performs the initial synchronous refresh and launches the
// background refresher.
func (s *SecretSource) Start(ctx context.Context) error {
	return s.mirror.Run(ctx)
}

// Invalidate forces an out-of-band synchronous refresh.
func (s *SecretSource) Invalidate() error {
	return s.mirror.Invalidate()
}

// Name implements fetch.Source and sources.Registered.
func (s *SecretSource) Name() string { return "k8s.secrets" }

// APIVersion implements sources.Registered.
func (s *SecretSource) APIVersion() string { return "1.0.0" }

// Fetch implements fetch.Source.
func (s *SecretSource) Fetch(_ context.Context, batch []fetch.BlockedFetch[ObjectRequest, map[string][]byte]) []fetch.PerformFetch {
	tasks := make([]fetch.PerformFetch, len(batch))

	for i, b := range batch {
		b := b

		tasks[i] = fetch.Sync(func() {
			if !s.mirror.Started() {
				b.Cell.PutFailure(ErrMirrorNotStarted)

				return
			}

			snap, err := s.mirror.Get(b.Request.Identifier())
			if err != nil {
				b.Cell.PutFailure(fmt.Errorf("k8sobjects: secret %s: %w", b.Request.Identifier(), err))

				return
			}

			b.Cell.PutSuccess(snap.Item.data)
		})
	}

	return tasks
}
