package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	agenterr "github.com/loanify/agent/internal/errors"
)

func TestDoJSONRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(2*time.Second, 3)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	var out struct {
		OK bool `json:"ok"`
	}
	if _, err := c.DoJSON(context.Background(), req, &out); err != nil {
		t.Fatalf("DoJSON failed: %v", err)
	}
	if !out.OK {
		t.Fatal("expected decoded response")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoJSONDoesNotRetryAuthFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(2*time.Second, 5)
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	_, err := c.DoJSON(context.Background(), req, nil)
	if err == nil {
		t.Fatal("expected auth error")
	}
	typed, ok := agenterr.As(err)
	if !ok || typed.Code != agenterr.CodeAuth {
		t.Fatalf("expected CodeAuth, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected single attempt, got %d", attempts)
	}
}

func TestDoJSONMapsNotFoundToNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(2*time.Second, 0)
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	_, err := c.DoJSON(context.Background(), req, nil)
	typed, ok := agenterr.As(err)
	if !ok || typed.Code != agenterr.CodeNoRoute {
		t.Fatalf("expected CodeNoRoute, got %v", err)
	}
}

func TestPostJSONSetsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing content type header")
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("missing custom header")
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(2*time.Second, 0)
	var out map[string]any
	if _, err := c.PostJSON(context.Background(), srv.URL, map[string]string{"a": "b"}, map[string]string{"X-Api-Key": "secret"}, &out); err != nil {
		t.Fatalf("PostJSON failed: %v", err)
	}
}
