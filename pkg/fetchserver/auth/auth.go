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

// Package auth verifies bearer JWTs against a JSON Web Key Set before
// letting a request reach a plan handler.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/apierror"
)

// Claims is what callers can expect to find in the verified token.
type Claims struct {
	Subject string
	Issuer  string
}

type claimsKeyType int

const claimsKey claimsKeyType = iota

// FromContext extracts the Claims a prior Middleware call verified.
func FromContext(ctx context.Context) (*Claims, bool) {
	v, ok := ctx.Value(claimsKey).(*Claims)

	return v, ok
}

// Verifier checks bearer tokens against a JSON Web Key Set.
type Verifier struct {
	keys   jose.JSONWebKeySet
	issuer string
}

// LoadVerifier reads a JWKS document from path. An empty path returns a
// nil *Verifier, which Middleware treats as "authentication disabled" -
// only ever appropriate for local development.
func LoadVerifier(path, issuer string) (*Verifier, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var keys jose.JSONWebKeySet

	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, err
	}

	return &Verifier{keys: keys, issuer: issuer}, nil
}

func (v *Verifier) verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.RS256, jose.ES256})
	if err != nil {
		return nil, apierror.AccessDenied("malformed bearer token").WithError(err)
	}

	var claims jwt.Claims

	verified := false

	for _, key := range v.keys.Keys {
		if err := parsed.Claims(key, &claims); err == nil {
			verified = true
			break
		}
	}

	if !verified {
		return nil, apierror.AccessDenied("bearer token signature not verified by any known key")
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, apierror.AccessDenied("unexpected token issuer", "issuer", claims.Issuer)
	}

	return &Claims{Subject: claims.Subject, Issuer: claims.Issuer}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	const prefix = "Bearer "

	if !strings.HasPrefix(header, prefix) {
		return "", false
	}

	return strings.TrimPrefix(header, prefix), true
}

// Middleware verifies the request's bearer token and attaches its
// Claims to the request context. When v is nil, every request passes
// through unauthenticated.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	if v == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			apierror.AccessDenied("missing bearer token").Write(w, r)
			return
		}

		claims, err := v.verify(token)
		if err != nil {
			apierror.HandleError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
