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

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/openapi"
)

//nolint:gochecknoglobals
var failed bool

func report(v ...any) {
	fmt.Println(v...)

	failed = true
}

// main validates the embedded route schema beyond what Schema.Load already
// checks (openapi3.Validate): every operation must declare at least one
// response, and POST operations must document a path parameter for the
// resource they act on.
func main() {
	schema, err := openapi.Load()
	if err != nil {
		report("failed to load or validate spec", err)
		os.Exit(1)
	}

	spec := schema.Spec()

	for _, pathName := range spec.Paths.InMatchingOrder() {
		path := spec.Paths.Find(pathName)

		for method, operation := range path.Operations() {
			if operation.OperationID == "" {
				report("no operationId set for", method, pathName)
			}

			if operation.Responses == nil || operation.Responses.Len() == 0 {
				report("no responses set for", method, pathName)
			}

			if method == http.MethodPost {
				if len(operation.Parameters) == 0 {
					report("no path parameters set for", method, pathName)
				}
			}
		}
	}

	if failed {
		os.Exit(1)
	}
}
