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

package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"

	"github.com/nscale-oss/fetchplan/pkg/fetchserver/auth"
)

func writeJWKS(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()

	jwk := jose.JSONWebKey{Key: &key.PublicKey, Algorithm: string(jose.RS256), KeyID: "test"}

	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}}

	data, err := json.Marshal(set)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jwks.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.Claims) string {
	t.Helper()

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, &jose.SignerOptions{})
	require.NoError(t, err)

	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	require.NoError(t, err)

	return token
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	path := writeJWKS(t, key)

	verifier, err := auth.LoadVerifier(path, "fetchplan")
	require.NoError(t, err)
	require.NotNil(t, verifier)

	token := signToken(t, key, jwt.Claims{Subject: "alice", Issuer: "fetchplan"})

	var sawClaims *auth.Claims

	handler := verifier.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		c, ok := auth.FromContext(r.Context())
		require.True(t, ok)
		sawClaims = c
	}))

	r := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", sawClaims.Subject)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	verifier, err := auth.LoadVerifier(writeJWKS(t, key), "")
	require.NoError(t, err)

	handler := verifier.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not run without a bearer token")
	}))

	r := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	verifier, err := auth.LoadVerifier(writeJWKS(t, key), "fetchplan")
	require.NoError(t, err)

	token := signToken(t, key, jwt.Claims{Subject: "alice", Issuer: "someone-else"})

	handler := verifier.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not run with the wrong issuer")
	}))

	r := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoadVerifierDisabledWhenPathEmpty(t *testing.T) {
	t.Parallel()

	verifier, err := auth.LoadVerifier("", "")
	require.NoError(t, err)
	require.Nil(t, verifier)

	handler := verifier.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
}
