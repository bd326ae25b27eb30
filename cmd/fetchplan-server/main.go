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

// Command fetchplan-server demonstrates the fetch algebra end to end: it
// loads a manifest of named plans, serves them over HTTP, and fetches
// each plan's users/posts from a demo HTTP API and its ConfigMaps/Secrets
// from the cluster it's running in, batching independent requests across
// all of them within a round.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"

	"sigs.k8s.io/controller-runtime/pkg/client"
	clientconfig "sigs.k8s.io/controller-runtime/pkg/client/config"
	"sigs.k8s.io/controller-runtime/pkg/log"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"

	"github.com/nscale-oss/fetchplan/pkg/fetch/invalidation"
	"github.com/nscale-oss/fetchplan/pkg/fetch/sources"
	"github.com/nscale-oss/fetchplan/pkg/fetch/sources/httpapi"
	"github.com/nscale-oss/fetchplan/pkg/fetch/sources/k8sobjects"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/auth"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/middleware/capture"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/middleware/cors"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/middleware/logging"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/middleware/otelmw"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/middleware/ratelimit"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/middleware/routeresolver"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/openapi"
	fetchopts "github.com/nscale-oss/fetchplan/pkg/fetchserver/options"
	"github.com/nscale-oss/fetchplan/pkg/fetchserver/planserver"
)

const (
	application = "fetchplan-server"
	version     = "0.1.0"
)

func newScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()

	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, err
	}

	if err := corev1.AddToScheme(scheme); err != nil {
		return nil, err
	}

	return scheme, nil
}

func run() error {
	core := &fetchopts.CoreOptions{}
	core.AddFlags(pflag.CommandLine)

	serverOpts := &fetchopts.ServerOptions{}
	serverOpts.AddFlags(pflag.CommandLine)

	planOpts := &fetchopts.PlanOptions{}
	planOpts.AddFlags(pflag.CommandLine)

	authOpts := &fetchopts.AuthOptions{}
	authOpts.AddFlags(pflag.CommandLine)

	rateLimitOpts := &ratelimit.Options{}
	rateLimitOpts.AddFlags(pflag.CommandLine)

	upstreamURL := pflag.String("demo-upstream-url", "http://localhost:8081", "Base URL of the demo Users/Posts HTTP API.")

	pflag.Parse()

	core.SetupLogging()

	ctx := context.Background()

	if err := core.SetupOpenTelemetry(ctx); err != nil {
		return err
	}

	logger := log.Log.WithName("init")
	logger.Info("service starting", "application", application, "version", version)

	manifest, err := planserver.LoadManifest(planOpts.ManifestPath)
	if err != nil {
		return err
	}

	scheme, err := newScheme()
	if err != nil {
		return err
	}

	config, err := clientconfig.GetConfig()
	if err != nil {
		return err
	}

	k8sClient, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		return err
	}

	configMaps := k8sobjects.NewConfigMapSource(k8sClient, core.Namespace, 30*time.Second)
	secrets := k8sobjects.NewSecretSource(k8sClient, core.Namespace, 30*time.Second)

	if err := configMaps.Start(ctx); err != nil {
		return err
	}

	if err := secrets.Start(ctx); err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: serverOpts.RequestTimeout}

	users := httpapi.NewUserSource(httpClient, *upstreamURL)
	posts := httpapi.NewPostSource(httpClient, *upstreamURL)

	registry, err := sources.NewRegistry(">= 1.0.0")
	if err != nil {
		return err
	}

	for _, src := range []sources.Registered{users, posts, configMaps, secrets} {
		if err := registry.Register(src); err != nil {
			return err
		}
	}

	queue := invalidation.NewChannelQueue(64)

	go func() {
		if err := queue.Run(ctx, invalidation.NewMirrorInvalidator(configMaps, secrets)); err != nil {
			logger.Error(err, "invalidation queue terminated")
		}
	}()

	builder := &planserver.Builder{Users: users, Posts: posts, ConfigMaps: configMaps, Secrets: secrets}
	planSrv := planserver.NewServer(manifest, builder)

	schema, err := openapi.Load()
	if err != nil {
		return err
	}

	verifier, err := auth.LoadVerifier(authOpts.JWKSPath, authOpts.Issuer)
	if err != nil {
		return err
	}

	r := newRouter(planSrv, schema, verifier, rateLimitOpts)

	httpServer := &http.Server{
		Addr:              serverOpts.ListenAddress,
		Handler:           r,
		ReadTimeout:       serverOpts.ReadTimeout,
		ReadHeaderTimeout: serverOpts.ReadHeaderTimeout,
		WriteTimeout:      serverOpts.WriteTimeout,
	}

	logger.Info("listening", "address", serverOpts.ListenAddress)

	return httpServer.ListenAndServe()
}

// newRouter wires the full middleware chain around planSrv's routes. Split
// out from run so integration tests can exercise it directly against an
// httptest.Server without binding a real listener.
func newRouter(planSrv *planserver.Server, schema *openapi.Schema, verifier *auth.Verifier, rateLimitOpts *ratelimit.Options) http.Handler {
	diagnostics := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			response := capture.Response(w, r, next)

			if response.StatusCode() >= http.StatusInternalServerError {
				log.FromContext(r.Context()).Info("failed response body", "body", response.Body().String())
			}
		})
	}

	routeResolverMw := routeresolver.New(schema)
	otelMw := otelmw.New(application, version)
	corsMw := cors.New(&cors.Options{AllowedOrigins: []string{"*"}})
	logMw := logging.New()
	rateLimitMw := ratelimit.New(rateLimitOpts)

	r := chi.NewRouter()
	r.Use(otelMw.Middleware)
	r.Use(logMw.Middleware)
	r.Use(routeResolverMw.Middleware)
	r.Use(corsMw.Handler)
	r.Use(rateLimitMw.Middleware)
	r.Use(verifier.Middleware)
	r.Use(diagnostics)

	planSrv.Routes(r)

	return r
}

func main() {
	if err := run(); err != nil {
		log.Log.Error(err, "fetchplan-server exited with an error")
		os.Exit(1)
	}
}
