package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// ThreadStore is a durable checkpointer backed by sqlite, for deployments
// where conversations must survive a restart. A file lock serializes writers
// across processes sharing the same database.
type ThreadStore struct {
	db   *sql.DB
	lock *flock.Flock
}

func OpenThreadStore(path, lockPath string) (*ThreadStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create thread store directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create thread lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open thread sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			updated_at INTEGER NOT NULL,
			messages BLOB NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init thread schema: %w", err)
		}
	}
	return &ThreadStore{db: db, lock: flock.New(lockPath)}, nil
}

func (s *ThreadStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *ThreadStore) Load(threadID string) ([]Message, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT messages FROM threads WHERE thread_id = ?", threadID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read thread: %w", err)
	}
	var messages []Message
	if err := json.Unmarshal(payload, &messages); err != nil {
		return nil, fmt.Errorf("decode thread payload: %w", err)
	}
	return messages, nil
}

func (s *ThreadStore) Save(threadID string, messages []Message) error {
	if threadID == "" {
		return fmt.Errorf("save thread: missing thread id")
	}
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock thread store: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock thread store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal thread messages: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO threads (thread_id, updated_at, messages)
		VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			updated_at=excluded.updated_at,
			messages=excluded.messages
	`, threadID, time.Now().UTC().Unix(), payload)
	if err != nil {
		return fmt.Errorf("save thread: %w", err)
	}
	return nil
}
