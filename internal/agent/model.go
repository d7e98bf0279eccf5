package agent

import (
	"context"
	"strings"

	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/httpx"
)

// Message is one turn of a conversation in the chat-completions wire shape.
// Tool results are carried as role "tool" messages keyed by ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a model-selected tool invocation.
type ToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction names the tool and carries its arguments as raw JSON.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec is the schema advertisement handed to the model per request.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Model produces one assistant turn given the conversation so far and the
// tools it may select from.
type Model interface {
	Invoke(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error)
}

// ChatModel talks to an OpenAI-compatible chat-completions endpoint.
// Temperature is pinned to zero: tool selection must be deterministic, not
// creative.
type ChatModel struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	modelID string
}

func NewChatModel(httpClient *httpx.Client, baseURL, apiKey, modelID string) *ChatModel {
	return &ChatModel{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		modelID: modelID,
	}
}

type chatCompletionRequest struct {
	Model       string         `json:"model"`
	Messages    []Message      `json:"messages"`
	Tools       []chatToolWire `json:"tools,omitempty"`
	Temperature float64        `json:"temperature"`
}

type chatToolWire struct {
	Type     string           `json:"type"`
	Function chatFunctionWire `json:"function"`
}

type chatFunctionWire struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

func (m *ChatModel) Invoke(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error) {
	req := chatCompletionRequest{
		Model:       m.modelID,
		Messages:    messages,
		Temperature: 0,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, chatToolWire{
			Type: "function",
			Function: chatFunctionWire{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	headers := map[string]string{}
	if m.apiKey != "" {
		headers["Authorization"] = "Bearer " + m.apiKey
	}
	var resp chatCompletionResponse
	if _, err := m.http.PostJSON(ctx, m.baseURL+"/chat/completions", req, headers, &resp); err != nil {
		return Message{}, err
	}
	if len(resp.Choices) == 0 {
		return Message{}, agenterr.New(agenterr.CodeUnavailable, "model returned no choices")
	}
	msg := resp.Choices[0].Message
	if msg.Role == "" {
		msg.Role = RoleAssistant
	}
	return msg, nil
}
