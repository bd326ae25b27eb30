/*
Copyright 2024-2025 the Unikorn Authors.
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

package util

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/rand"
)

// GenerateRandomName generates a random name with the given prefix.
func GenerateRandomName(prefix string) string {
	randomStr := rand.String(8)
	return fmt.Sprintf("%s-%s", prefix, randomStr)
}

// GenerateTestID generates a random test ID with "test" prefix.
func GenerateTestID() string {
	return GenerateRandomName("test")
}
