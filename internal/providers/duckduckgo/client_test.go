package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/httpx"
)

func newSearchServer(t *testing.T, body string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			t.Fatalf("expected format=json, got %q", r.URL.Query().Get("format"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	c := New(httpx.New(2*time.Second, 0))
	c.SetBaseURL(server.URL)
	return c
}

func TestSearchPrefersDirectAnswer(t *testing.T) {
	c := newSearchServer(t, `{"Answer":"42","AbstractText":"some abstract"}`)
	got, err := c.Search(context.Background(), "meaning of life")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if got != "42" {
		t.Fatalf("unexpected answer: %s", got)
	}
}

func TestSearchFallsBackToAbstract(t *testing.T) {
	c := newSearchServer(t, `{"AbstractText":"Aave is a lending protocol.","AbstractURL":"https://example.org/aave"}`)
	got, err := c.Search(context.Background(), "aave")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !strings.Contains(got, "lending protocol") || !strings.Contains(got, "example.org") {
		t.Fatalf("unexpected answer: %s", got)
	}
}

func TestSearchRelatedTopicsCapped(t *testing.T) {
	c := newSearchServer(t, `{"RelatedTopics":[
		{"Text":"one"},{"Text":"two"},{"Text":"three"},
		{"Text":"four"},{"Text":"five"},{"Text":"six"}
	]}`)
	got, err := c.Search(context.Background(), "topics")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if strings.Count(got, "\n") != 4 {
		t.Fatalf("expected five lines, got: %q", got)
	}
	if strings.Contains(got, "six") {
		t.Fatalf("results should be capped at five entries: %q", got)
	}
}

func TestSearchEmptyResultIsTypedError(t *testing.T) {
	c := newSearchServer(t, `{}`)
	_, err := c.Search(context.Background(), "nothing")
	typed, ok := agenterr.As(err)
	if !ok || typed.Code != agenterr.CodeNoRoute {
		t.Fatalf("expected no-results error, got %v", err)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	c := New(httpx.New(time.Second, 0))
	_, err := c.Search(context.Background(), "   ")
	typed, ok := agenterr.As(err)
	if !ok || typed.Code != agenterr.CodeUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
}
