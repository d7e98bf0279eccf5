package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/loanify/agent/internal/model"
)

const systemPrompt = "You are a helpful AI Assistant. You MUST respond by calling a tool."

// Invoker seeds a conversation, runs the graph under a per-conversation
// thread identifier and extracts the final tool's structured output.
type Invoker struct {
	graph      *Graph
	checkpoint Checkpointer
	log        *logrus.Entry
}

func NewInvoker(graph *Graph, checkpoint Checkpointer, log *logrus.Logger) *Invoker {
	if checkpoint == nil {
		checkpoint = NewMemorySaver()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Invoker{
		graph:      graph,
		checkpoint: checkpoint,
		log:        log.WithField("component", "invoker"),
	}
}

// Invoke runs one chat turn. The thread identifier comes from the request's
// session id; absent one, a fresh conversation is started under a random id.
// The final tool message is parsed as a ToolResult; content that is not
// valid JSON degrades to a plain message so the client always gets a
// renderable response.
func (inv *Invoker) Invoke(ctx context.Context, message string, chatCtx model.ChatContext) (model.ToolResult, error) {
	threadID := strings.TrimSpace(chatCtx.SessionID)
	if threadID == "" {
		threadID = uuid.NewString()
	}

	history, err := inv.checkpoint.Load(threadID)
	if err != nil {
		return model.ToolResult{}, err
	}
	if len(history) == 0 {
		history = append(history, Message{Role: RoleSystem, Content: systemPrompt})
	}
	history = append(history, Message{Role: RoleUser, Content: message})

	state, err := inv.graph.Run(ctx, State{Messages: history}, chatCtx)
	if err != nil {
		return model.ToolResult{}, err
	}
	if err := inv.checkpoint.Save(threadID, state.Messages); err != nil {
		inv.log.WithError(err).WithField("thread", threadID).Error("persist conversation")
	}

	last := state.Messages[len(state.Messages)-1]
	var result model.ToolResult
	if err := json.Unmarshal([]byte(last.Content), &result); err != nil {
		return model.ToolResult{Message: last.Content}, nil
	}
	return result, nil
}
