package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loanify/agent/internal/httpx"
)

func TestChatModelInvoke(t *testing.T) {
	var gotAuth string
	var gotBody chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{
				"message": {
					"role": "assistant",
					"tool_calls": [{
						"id": "call-1",
						"type": "function",
						"function": {"name": "prepare_aave_deposit", "arguments": "{\"amountInEth\":\"0.5\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}]
		}`))
	}))
	defer server.Close()

	m := NewChatModel(httpx.New(2*time.Second, 0), server.URL, "key-123", "test-model")
	msg, err := m.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "deposit"}}, []ToolSpec{
		{Name: "prepare_aave_deposit", Description: "d", Parameters: objectSchema(nil, map[string]any{})},
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if gotAuth != "Bearer key-123" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotBody.Model != "test-model" {
		t.Fatalf("unexpected model id: %s", gotBody.Model)
	}
	if gotBody.Temperature != 0 {
		t.Fatalf("temperature must be pinned to zero, got %v", gotBody.Temperature)
	}
	if len(gotBody.Tools) != 1 || gotBody.Tools[0].Type != "function" {
		t.Fatalf("tools must be sent in function wire shape: %+v", gotBody.Tools)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Function.Name != "prepare_aave_deposit" {
		t.Fatalf("unexpected tool calls: %+v", msg.ToolCalls)
	}
	if msg.ToolCalls[0].Function.Arguments != `{"amountInEth":"0.5"}` {
		t.Fatalf("arguments must stay raw JSON: %s", msg.ToolCalls[0].Function.Arguments)
	}
}

func TestChatModelNoChoicesIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	m := NewChatModel(httpx.New(2*time.Second, 0), server.URL, "", "test-model")
	if _, err := m.Invoke(context.Background(), nil, nil); err == nil {
		t.Fatalf("empty choices must be an error")
	}
}
