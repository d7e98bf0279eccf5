package agent

import (
	"path/filepath"
	"testing"
)

func newTestThreadStore(t *testing.T) *ThreadStore {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenThreadStore(filepath.Join(dir, "threads.db"), filepath.Join(dir, "threads.lock"))
	if err != nil {
		t.Fatalf("OpenThreadStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestThreadStoreRoundTrip(t *testing.T) {
	store := newTestThreadStore(t)

	messages := []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: "deposit 1 eth"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{
			ID:       "call-1",
			Function: ToolCallFunction{Name: "prepare_aave_deposit", Arguments: `{"amountInEth":"1"}`},
		}}},
	}
	if err := store.Save("t1", messages); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load("t1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("unexpected message count: %d", len(loaded))
	}
	if loaded[2].ToolCalls[0].Function.Name != "prepare_aave_deposit" {
		t.Fatalf("tool calls must survive the round trip")
	}
}

func TestThreadStoreMissingThreadIsEmpty(t *testing.T) {
	store := newTestThreadStore(t)
	loaded, err := store.Load("missing")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != nil {
		t.Fatalf("missing thread must load as empty, got %d messages", len(loaded))
	}
}

func TestThreadStoreOverwrite(t *testing.T) {
	store := newTestThreadStore(t)

	if err := store.Save("t1", []Message{{Role: RoleUser, Content: "one"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save("t1", []Message{
		{Role: RoleUser, Content: "one"},
		{Role: RoleAssistant, Content: "two"},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load("t1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("save must replace the stored conversation, got %d messages", len(loaded))
	}
}

func TestThreadStoreRejectsEmptyID(t *testing.T) {
	store := newTestThreadStore(t)
	if err := store.Save("", nil); err == nil {
		t.Fatalf("empty thread id must be rejected")
	}
}
