// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewDefaults(t *testing.T) {
	s := New()
	assert.Equal(t, ":8080", s.httpServer.Addr)
	assert.Equal(t, "nna-operator", s.config.Name)

	s = New(WithPort(9090), WithName("x"), WithVersion("v1"))
	assert.Equal(t, ":9090", s.httpServer.Addr)
	assert.Equal(t, "v1", s.config.Version)
}

func TestHealthAndReady(t *testing.T) {
	s := New()
	h := s.Handler()

	rec := get(t, h, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = get(t, h, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")

	s.SetReady(true)
	rec = get(t, h, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReadinessCheck(t *testing.T) {
	var blocked error
	s := New(WithReadinessCheck(func() error { return blocked }))
	s.SetReady(true)
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/ready", nil).Code)

	blocked = errors.New("controller blocked: [RESOURCE_APPLY] failed to apply resources")
	rec := get(t, h, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ProbeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Contains(t, body.Reason, "RESOURCE_APPLY")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, New().Handler(), "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestIndexListsRoutes(t *testing.T) {
	s := New(WithVersion("v0.1.0"), WithHandler(map[string]http.HandlerFunc{
		"/v1/status": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
	}))

	rec := get(t, s.Handler(), "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Version string   `json:"version"`
		Routes  []string `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "v0.1.0", body.Version)
	assert.Contains(t, body.Routes, "GET /v1/status")

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/nope", nil).Code)
}

func TestRequestID(t *testing.T) {
	s := New(WithHandler(map[string]http.HandlerFunc{
		"/v1/status": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
	}))

	id := uuid.NewString()
	rec := get(t, s.Handler(), "/v1/status", map[string]string{"X-Request-Id": id})
	assert.Equal(t, id, rec.Header().Get("X-Request-Id"))

	rec = get(t, s.Handler(), "/v1/status", map[string]string{"X-Request-Id": "not-a-uuid"})
	generated := rec.Header().Get("X-Request-Id")
	assert.NotEqual(t, "not-a-uuid", generated)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
}

func TestRateLimit(t *testing.T) {
	s := New(
		WithRateLimit(1, 1),
		WithHandler(map[string]http.HandlerFunc{
			"/v1/status": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
		}),
	)

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/status", nil).Code)

	rec := get(t, s.Handler(), "/v1/status", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", string(body.Code))
	assert.True(t, body.Retryable)
	assert.NotEmpty(t, body.RequestID)

	// system endpoints are not limited
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/health", nil).Code)
}

func TestPanicRecovery(t *testing.T) {
	s := New(WithHandler(map[string]http.HandlerFunc{
		"/v1/boom": func(http.ResponseWriter, *http.Request) { panic("boom") },
	}))

	rec := get(t, s.Handler(), "/v1/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL"`)
}

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/ready")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.False(t, s.IsReady())
}
