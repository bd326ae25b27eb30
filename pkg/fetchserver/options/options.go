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

// Package options binds fetchplan-server's CLI flags, bootstraps
// logging and tracing from them, and holds the server listener and
// plan-source configuration shared across cmd/fetchplan-server.
package options

import (
	"context"
	"flag"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"

	klog "k8s.io/klog/v2"

	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// CoreOptions are process-wide flags every cmd/fetchplan-server
// invocation needs regardless of which sources it wires up.
type CoreOptions struct {
	// Namespace is the namespace the process is running in, used by the
	// Kubernetes object sources to scope their watches.
	Namespace string
	// OTLPEndpoint is an optional OpenTelemetry collector endpoint.
	OTLPEndpoint string
	// Zap controls common logging.
	Zap zap.Options
}

func (o *CoreOptions) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.Namespace, "namespace", "default", "Namespace the Kubernetes object sources watch.")
	flags.StringVar(&o.OTLPEndpoint, "otlp-endpoint", "", "An optional OTLP endpoint.")

	z := flag.NewFlagSet("", flag.ExitOnError)
	o.Zap.BindFlags(z)

	flags.AddGoFlagSet(z)
}

// SetupLogging installs the zap logger as the ambient logr.Logger for
// controller-runtime, klog, and otel.
func (o *CoreOptions) SetupLogging() {
	logr := zap.New(zap.UseFlagOptions(&o.Zap))

	log.SetLogger(logr)
	klog.SetLogger(logr)
	otel.SetLogger(logr)
}

// SetupOpenTelemetry installs the global tracer provider, exporting via
// OTLP/HTTP when OTLPEndpoint is set and otherwise tracing in memory
// only (spans are still created, just never shipped anywhere).
func (o *CoreOptions) SetupOpenTelemetry(ctx context.Context, opts ...trace.TracerProviderOption) error {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if o.OTLPEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(o.OTLPEndpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return err
		}

		opts = append(opts, trace.WithBatcher(exporter))
	}

	otel.SetTracerProvider(trace.NewTracerProvider(opts...))

	return nil
}

// ServerOptions are the HTTP listener settings.
type ServerOptions struct {
	ListenAddress     string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	RequestTimeout    time.Duration
}

func (o *ServerOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&o.ListenAddress, "server-listen-address", ":6080", "API listener address.")
	f.DurationVar(&o.ReadTimeout, "server-read-timeout", time.Second, "How long to wait for the client to send the request body.")
	f.DurationVar(&o.ReadHeaderTimeout, "server-read-header-timeout", time.Second, "How long to wait for the client to send headers.")
	f.DurationVar(&o.WriteTimeout, "server-write-timeout", 10*time.Second, "How long to wait for a plan to finish executing before giving up on the client.")
	f.DurationVar(&o.RequestTimeout, "server-request-timeout", 30*time.Second, "Timeout for each outgoing HTTP request made to the Users/Posts API.")
}

// PlanOptions locate the manifest of named plans the server serves.
type PlanOptions struct {
	// ManifestPath is a YAML file mapping plan names to their definitions.
	ManifestPath string
}

func (o *PlanOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&o.ManifestPath, "plan-manifest", "plans.yaml", "Path to the YAML manifest of named plans to serve.")
}

// AuthOptions configure bearer JWT verification.
type AuthOptions struct {
	// JWKSPath points at a JSON Web Key Set used to verify bearer tokens.
	// An empty path disables authentication, which is only ever
	// appropriate for local development.
	JWKSPath string
	// Issuer, when set, is checked against the token's iss claim.
	Issuer string
}

func (o *AuthOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&o.JWKSPath, "auth-jwks-path", "", "Path to a JSON Web Key Set used to verify bearer tokens; empty disables auth.")
	f.StringVar(&o.Issuer, "auth-issuer", "", "Expected iss claim on bearer tokens; empty skips the check.")
}
