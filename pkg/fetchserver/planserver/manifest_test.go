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

package planserver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/apierror"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/planserver"
)

func TestManifestValidateAcceptsCompleteRefs(t *testing.T) {
	t.Parallel()

	manifest := &planserver.Manifest{
		Plans: map[string]planserver.PlanSpec{
			"dashboard": {
				ConfigMaps: []planserver.ObjectRef{{Namespace: "default", Name: "settings"}},
				Secrets:    []planserver.ObjectRef{{Namespace: "default", Name: "creds"}},
			},
		},
	}

	require.NoError(t, manifest.Validate())
}

func TestManifestValidateReportsMissingName(t *testing.T) {
	t.Parallel()

	manifest := &planserver.Manifest{
		Plans: map[string]planserver.PlanSpec{
			"dashboard": {
				ConfigMaps: []planserver.ObjectRef{{Namespace: "default"}},
			},
		},
	}

	err := manifest.Validate()
	require.Error(t, err)
	require.True(t, apierror.IsInvalidRequest(err))
}

func TestLoadManifestRejectsIncompleteObjectRef(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manifest.yaml")

	data := []byte(`
plans:
  dashboard:
    configMaps:
      - namespace: default
`)

	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err := planserver.LoadManifest(path)
	require.Error(t, err)
}
