package agent

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/loanify/agent/internal/model"
)

// Graph is the two-node control flow the agent runs per request:
//
//	START -> model -> tools -> END
//	              \-> END
//
// The model node always yields at least one tool call (the fallback is
// forced when the model picks nothing), so in practice every run terminates
// through the tools node. The conditional edge stays in place for the case
// where a checkpoint replays an assistant turn without calls.
type Graph struct {
	model    Model
	registry *Registry
	log      *logrus.Entry
}

func NewGraph(m Model, registry *Registry, log *logrus.Logger) *Graph {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Graph{
		model:    m,
		registry: registry,
		log:      log.WithField("component", "graph"),
	}
}

// State is the conversation being threaded through the graph nodes.
type State struct {
	Messages []Message
}

const (
	nodeTools = "tools"
	nodeEnd   = "end"
)

// Run executes one graph invocation and returns the final state.
func (g *Graph) Run(ctx context.Context, state State, chatCtx model.ChatContext) (State, error) {
	state, err := g.callModel(ctx, state)
	if err != nil {
		return state, err
	}
	if routeAfterModel(state) == nodeTools {
		state = g.callTools(ctx, state, chatCtx)
	}
	return state, nil
}

// callModel invokes the model with the tool schemas bound. A response with
// no tool selection gets the fallback forced onto it so the run cannot end
// in free text.
func (g *Graph) callModel(ctx context.Context, state State) (State, error) {
	response, err := g.model.Invoke(ctx, state.Messages, g.registry.Specs())
	if err != nil {
		return state, err
	}
	if len(response.ToolCalls) == 0 {
		response.ToolCalls = []ToolCall{{
			Function: ToolCallFunction{Name: FallbackToolName, Arguments: "{}"},
		}}
	}
	state.Messages = append(state.Messages, response)
	return state, nil
}

// callTools executes every call on the last assistant message, appending one
// tool message per call. Tool failures are results, not errors.
func (g *Graph) callTools(ctx context.Context, state State, chatCtx model.ChatContext) State {
	last := state.Messages[len(state.Messages)-1]
	for _, call := range last.ToolCalls {
		g.log.WithField("tool", call.Function.Name).Info("executing tool")
		result := g.registry.Execute(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments), chatCtx)
		payload, err := json.Marshal(result)
		if err != nil {
			g.log.WithError(err).Error("encode tool result")
			payload = []byte(`{"status":"fail","message":"internal error encoding tool result"}`)
		}
		state.Messages = append(state.Messages, Message{
			Role:       RoleTool,
			Content:    string(payload),
			ToolCallID: call.ID,
			Name:       call.Function.Name,
		})
	}
	return state
}

func routeAfterModel(state State) string {
	if len(state.Messages) == 0 {
		return nodeEnd
	}
	last := state.Messages[len(state.Messages)-1]
	if len(last.ToolCalls) > 0 {
		return nodeTools
	}
	return nodeEnd
}
