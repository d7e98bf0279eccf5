package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/loanify/agent/internal/model"
)

type scriptedModel struct {
	responses []Message
	calls     int
	sawTools  []ToolSpec
}

func (m *scriptedModel) Invoke(_ context.Context, _ []Message, tools []ToolSpec) (Message, error) {
	m.sawTools = tools
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func echoTool(name string) Tool {
	return Tool{
		Name:       name,
		Parameters: objectSchema(nil, map[string]any{}),
		Handler: func(_ context.Context, args json.RawMessage, chatCtx model.ChatContext) model.ToolResult {
			return model.ToolResult{
				Status:   model.StatusSuccess,
				LastTool: name,
				Message:  "echo:" + string(args) + ":" + chatCtx.Address,
			}
		},
	}
}

func TestGraphForcesFallbackWhenModelPicksNothing(t *testing.T) {
	m := &scriptedModel{responses: []Message{{Role: RoleAssistant, Content: "hello there"}}}
	g := NewGraph(m, NewRegistry(fallbackTool()), quietLogger())

	state, err := g.Run(context.Background(), State{Messages: []Message{{Role: RoleUser, Content: "hi"}}}, model.ChatContext{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	last := state.Messages[len(state.Messages)-1]
	if last.Role != RoleTool {
		t.Fatalf("run must terminate in a tool message, got role %s", last.Role)
	}
	if last.Name != FallbackToolName {
		t.Fatalf("expected forced fallback, got %s", last.Name)
	}
	var result model.ToolResult
	if err := json.Unmarshal([]byte(last.Content), &result); err != nil {
		t.Fatalf("tool content must be JSON: %v", err)
	}
	if result.LastTool != FallbackToolName || result.Status != model.StatusSuccess {
		t.Fatalf("unexpected fallback result: %+v", result)
	}
}

func TestGraphExecutesSelectedTool(t *testing.T) {
	m := &scriptedModel{responses: []Message{{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{{
			ID:       "call-1",
			Function: ToolCallFunction{Name: "echo", Arguments: `{"k":"v"}`},
		}},
	}}}
	g := NewGraph(m, NewRegistry(echoTool("echo")), quietLogger())

	state, err := g.Run(context.Background(), State{Messages: []Message{{Role: RoleUser, Content: "go"}}},
		model.ChatContext{Address: "0xabc"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// user + assistant + tool
	if len(state.Messages) != 3 {
		t.Fatalf("unexpected message count: %d", len(state.Messages))
	}
	last := state.Messages[len(state.Messages)-1]
	if last.ToolCallID != "call-1" {
		t.Fatalf("tool message must reference the call id, got %q", last.ToolCallID)
	}
	var result model.ToolResult
	if err := json.Unmarshal([]byte(last.Content), &result); err != nil {
		t.Fatalf("tool content must be JSON: %v", err)
	}
	if result.Message != `echo:{"k":"v"}:0xabc` {
		t.Fatalf("tool handler must see arguments and chat context: %s", result.Message)
	}
}

func TestGraphUnknownToolIsFailResult(t *testing.T) {
	m := &scriptedModel{responses: []Message{{
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{{Function: ToolCallFunction{Name: "no_such_tool", Arguments: "{}"}}},
	}}}
	g := NewGraph(m, NewRegistry(fallbackTool()), quietLogger())

	state, err := g.Run(context.Background(), State{}, model.ChatContext{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	var result model.ToolResult
	last := state.Messages[len(state.Messages)-1]
	if err := json.Unmarshal([]byte(last.Content), &result); err != nil {
		t.Fatalf("tool content must be JSON: %v", err)
	}
	if result.Status != model.StatusFail {
		t.Fatalf("unknown tool must fail gracefully, got %+v", result)
	}
}

func TestGraphAdvertisesToolSchemas(t *testing.T) {
	m := &scriptedModel{responses: []Message{{Role: RoleAssistant}}}
	g := NewGraph(m, NewRegistry(fallbackTool(), echoTool("echo")), quietLogger())

	if _, err := g.Run(context.Background(), State{}, model.ChatContext{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(m.sawTools) != 2 {
		t.Fatalf("model must see every registered tool, got %d", len(m.sawTools))
	}
	if m.sawTools[0].Name != FallbackToolName {
		t.Fatalf("tool order must be stable, got %s first", m.sawTools[0].Name)
	}
}

func TestRouteAfterModel(t *testing.T) {
	withCalls := State{Messages: []Message{{
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{{Function: ToolCallFunction{Name: "x"}}},
	}}}
	if routeAfterModel(withCalls) != nodeTools {
		t.Fatalf("assistant message with calls must route to tools")
	}
	without := State{Messages: []Message{{Role: RoleAssistant, Content: "done"}}}
	if routeAfterModel(without) != nodeEnd {
		t.Fatalf("assistant message without calls must route to end")
	}
}
