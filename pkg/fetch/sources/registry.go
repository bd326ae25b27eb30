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

// Package sources is a place to register named data sources once, so
// application code can look one up by name instead of threading concrete
// fetch.Source values through every call site that builds a plan.
package sources

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// ErrNotRegistered is returned by Registry.Lookup for an unknown name.
var ErrNotRegistered = errors.New("sources: no source registered under this name")

// ErrIncompatible is returned by Register when a source's declared
// APIVersion does not satisfy the registry's minimum constraint.
var ErrIncompatible = errors.New("sources: source API version does not satisfy the registry's constraint")

// Registered is anything that can be registered: every fetch.Source
// satisfies this by having a Name, plus an explicit APIVersion so the
// registry can enforce compatibility independently of the Go type system.
type Registered interface {
	Name() string
	APIVersion() string
}

// Registry holds named sources gated by a minimum semver constraint on
// their declared APIVersion. This lets a host process upgrade the
// constraint over time and have incompatible sources rejected at
// registration rather than failing obscurely the first time they're used.
type Registry struct {
	mu         sync.RWMutex
	minVersion *semver.Constraints
	entries    map[string]Registered
}

// NewRegistry builds a Registry. minVersion is a constraint string as
// understood by Masterminds/semver, e.g. ">= 1.0.0".
func NewRegistry(minVersion string) (*Registry, error) {
	constraint, err := semver.NewConstraint(minVersion)
	if err != nil {
		return nil, fmt.Errorf("sources: invalid minimum version constraint: %w", err)
	}

	return &Registry{
		minVersion: constraint,
		entries:    make(map[string]Registered),
	}, nil
}

// Register adds src under its own Name(), after checking its APIVersion
// against the registry's constraint.
func (r *Registry) Register(src Registered) error {
	version, err := semver.NewVersion(src.APIVersion())
	if err != nil {
		return fmt.Errorf("sources: %s: invalid API version %q: %w", src.Name(), src.APIVersion(), err)
	}

	if !r.minVersion.Check(version) {
		return fmt.Errorf("%w: %s declares %s", ErrIncompatible, src.Name(), src.APIVersion())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[src.Name()] = src

	return nil
}

// Lookup returns the source registered under name.
func (r *Registry) Lookup(name string) (Registered, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	return src, nil
}

// Names returns every registered source name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}

	return names
}
