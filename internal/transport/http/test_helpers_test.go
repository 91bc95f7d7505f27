package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolkov/directline/internal/auth"
	"github.com/avolkov/directline/internal/backplane"
	"github.com/avolkov/directline/internal/config"
	"github.com/avolkov/directline/internal/core"
	"github.com/avolkov/directline/internal/store"
	"github.com/avolkov/directline/internal/store/sqlite"
)

type testServer struct {
	ts    *httptest.Server
	store store.Store
	hub   *core.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	hub := core.NewHub(st, backplane.NewNoop(), &logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Run(ctx) }()

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "directline-test",
		Audience: "directline-clients",
		TTL:      time.Hour,
	})

	cfg := config.Default()
	srv := NewServer(hub, authService, st, cfg, &logger)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, store: st, hub: hub}
}

func (s *testServer) postJSON(t *testing.T, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, s.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return s.do(t, req)
}

func (s *testServer) getJSON(t *testing.T, path, token string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.ts.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return s.do(t, req)
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, data
}

// register creates an account through the API and returns its token and user.
func (s *testServer) register(t *testing.T, name, username string) AuthResponse {
	t.Helper()

	resp, body := s.postJSON(t, "/api/auth/register", "", RegisterRequest{
		Name:     name,
		Username: username,
		Password: "password1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", username, resp.StatusCode, body)
	}

	var out AuthResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return out
}

func decodeAs[T any](t *testing.T, data []byte) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return out
}

func (s *testServer) wsURL(token string) string {
	u := "ws" + s.ts.URL[len("http"):] + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}
