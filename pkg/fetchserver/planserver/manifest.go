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

// Package planserver loads a declarative manifest of named fetch plans
// and executes them against the k8s object and HTTP demo sources over
// fetch.Run.
package planserver

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/apierror"
)

// ObjectRef names a namespaced ConfigMap or Secret.
type ObjectRef struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// fieldPointer builds a JSON Pointer (RFC 6901) from path segments,
// escaping "~" and "/" per the spec.
func fieldPointer(segments ...string) string {
	escaped := make([]string, len(segments))

	replacer := strings.NewReplacer("~", "~0", "/", "~1")
	for i, s := range segments {
		escaped[i] = replacer.Replace(s)
	}

	return "/" + strings.Join(escaped, "/")
}

// validate reports an apierror.InvalidRequest pointing at the first empty
// field, or nil if ref names both a namespace and a name. prefix is the
// JSON Pointer segments locating ref within the manifest.
func (ref ObjectRef) validate(prefix ...string) error {
	if ref.Namespace == "" {
		return apierror.InvalidRequest("object reference missing namespace").WithField(fieldPointer(append(prefix, "namespace")...))
	}

	if ref.Name == "" {
		return apierror.InvalidRequest("object reference missing name").WithField(fieldPointer(append(prefix, "name")...))
	}

	return nil
}

// PlanSpec is everything one named plan fetches. Every field is
// independent and batched together: a plan naming three user ids and two
// posts issues at most one Users call and one Posts call per round.
type PlanSpec struct {
	UserIDs    []int       `json:"users,omitempty"`
	PostIDs    []int       `json:"posts,omitempty"`
	ConfigMaps []ObjectRef `json:"configMaps,omitempty"`
	Secrets    []ObjectRef `json:"secrets,omitempty"`
}

// Manifest maps plan names to their specification.
type Manifest struct {
	Plans map[string]PlanSpec `json:"plans"`
}

// LoadManifest reads, parses, and validates a YAML manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("planserver: reading manifest: %w", err)
	}

	var manifest Manifest

	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("planserver: parsing manifest: %w", err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("planserver: %w", err)
	}

	return &manifest, nil
}

// Validate reports an apierror.InvalidRequest for the first ConfigMap or
// Secret reference missing a namespace or name, identifying it by JSON
// Pointer, e.g. "/plans/demo/configMaps/0/namespace".
func (m *Manifest) Validate() error {
	for name, spec := range m.Plans {
		for i, ref := range spec.ConfigMaps {
			if err := ref.validate("plans", name, "configMaps", strconv.Itoa(i)); err != nil {
				return err
			}
		}

		for i, ref := range spec.Secrets {
			if err := ref.validate("plans", name, "secrets", strconv.Itoa(i)); err != nil {
				return err
			}
		}
	}

	return nil
}

// Lookup returns the named plan's spec.
func (m *Manifest) Lookup(name string) (PlanSpec, bool) {
	spec, ok := m.Plans[name]

	return spec, ok
}

// Names returns every plan name in the manifest.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Plans))
	for name := range m.Plans {
		names = append(names, name)
	}

	return names
}
