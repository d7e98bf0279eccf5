package agent

import (
	"sync"
)

// Checkpointer persists per-thread conversation state between graph runs.
// Threads are addressed exclusively by identifier; concurrent requests on
// distinct threads never contend on the same entry.
type Checkpointer interface {
	Load(threadID string) ([]Message, error)
	Save(threadID string, messages []Message) error
}

// MemorySaver is the default checkpointer: an in-process map guarded by a
// mutex. Conversations do not survive a restart.
type MemorySaver struct {
	mu      sync.Mutex
	threads map[string][]Message
}

func NewMemorySaver() *MemorySaver {
	return &MemorySaver{threads: make(map[string][]Message)}
}

func (m *MemorySaver) Load(threadID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.threads[threadID]
	out := make([]Message, len(stored))
	copy(out, stored)
	return out, nil
}

func (m *MemorySaver) Save(threadID string, messages []Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]Message, len(messages))
	copy(stored, messages)
	m.threads[threadID] = stored
	return nil
}
