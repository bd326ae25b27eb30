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

// Package cors configures cross-origin access to the plan API.
package cors

import (
	gochicors "github.com/go-chi/cors"
)

// Options configures the set of origins permitted to make cross-origin
// requests.
type Options struct {
	AllowedOrigins []string
}

// New builds the chi CORS middleware for the plan API's fixed route set:
// GET for listing/health, POST for executing a plan.
func New(options *Options) *gochicors.Cors {
	return gochicors.New(gochicors.Options{
		AllowedOrigins:   options.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "traceparent", "tracestate"},
		MaxAge:           0,
		AllowCredentials: false,
	})
}
