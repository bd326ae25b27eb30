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

package sources_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nscale-oss/fetchplan/pkg/fetch/sources"
)

type fakeSource struct {
	name    string
	version string
}

func (f fakeSource) Name() string       { return f.name }
func (f fakeSource) APIVersion() string { return f.version }

func TestRegisterAndLookup(t *testing.T) {
	t.Parallel()

	registry, err := sources.NewRegistry(">= 1.0.0")
	require.NoError(t, err)

	require.NoError(t, registry.Register(fakeSource{name: "Users", version: "1.2.0"}))

	src, err := registry.Lookup("Users")
	require.NoError(t, err)
	require.Equal(t, "1.2.0", src.APIVersion())
	require.Equal(t, []string{"Users"}, registry.Names())
}

func TestRegisterRejectsIncompatibleVersion(t *testing.T) {
	t.Parallel()

	registry, err := sources.NewRegistry(">= 2.0.0")
	require.NoError(t, err)

	err = registry.Register(fakeSource{name: "Users", version: "1.0.0"})
	require.ErrorIs(t, err, sources.ErrIncompatible)
}

func TestRegisterRejectsMalformedVersion(t *testing.T) {
	t.Parallel()

	registry, err := sources.NewRegistry(">= 1.0.0")
	require.NoError(t, err)

	err = registry.Register(fakeSource{name: "Users", version: "not-a-version"})
	require.Error(t, err)
}

func TestLookupUnknownNameFails(t *testing.T) {
	t.Parallel()

	registry, err := sources.NewRegistry(">= 1.0.0")
	require.NoError(t, err)

	_, err = registry.Lookup("missing")
	require.ErrorIs(t, err, sources.ErrNotRegistered)
}

func TestNewRegistryRejectsMalformedConstraint(t *testing.T) {
	t.Parallel()

	_, err := sources.NewRegistry("not a constraint")
	require.Error(t, err)
}
