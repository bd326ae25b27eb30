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

package options_test

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/options"
)

func TestServerOptionsDefaults(t *testing.T) {
	t.Parallel()

	var opts options.ServerOptions

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)
	require.NoError(t, fs.Parse(nil))

	require.Equal(t, ":6080", opts.ListenAddress)
	require.Equal(t, time.Second, opts.ReadTimeout)
	require.Equal(t, 10*time.Second, opts.WriteTimeout)
	require.Equal(t, 30*time.Second, opts.RequestTimeout)
}

func TestServerOptionsOverride(t *testing.T) {
	t.Parallel()

	var opts options.ServerOptions

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--server-listen-address", ":9090"}))

	require.Equal(t, ":9090", opts.ListenAddress)
}

func TestPlanOptionsDefaults(t *testing.T) {
	t.Parallel()

	var opts options.PlanOptions

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)
	require.NoError(t, fs.Parse(nil))

	require.Equal(t, "plans.yaml", opts.ManifestPath)
}

func TestAuthOptionsDefaultsToDisabled(t *testing.T) {
	t.Parallel()

	var opts options.AuthOptions

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)
	require.NoError(t, fs.Parse(nil))

	require.Empty(t, opts.JWKSPath)
	require.Empty(t, opts.Issuer)
}

func TestCoreOptionsDefaults(t *testing.T) {
	t.Parallel()

	var opts options.CoreOptions

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)
	require.NoError(t, fs.Parse(nil))

	require.Equal(t, "default", opts.Namespace)
	require.Empty(t, opts.OTLPEndpoint)
}
