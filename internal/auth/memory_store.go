package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

// MemoryStore はプロセス内で完結する Store 実装です（開発・テスト用）。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get はセッション情報のコピーを返します。
func (s *MemoryStore) Get(ctx context.Context, token string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, token)
		return nil, nil
	}
	record := entry.record
	return &record, nil
}

// Save はセッション情報を ttl 付きで保存します。
func (s *MemoryStore) Save(ctx context.Context, record *Record, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if record.Token == "" {
		return fmt.Errorf("record.Token is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[record.Token] = memoryEntry{record: *record, expiresAt: s.now().Add(ttl)}
	return nil
}

// Touch は最終アクセス時刻を更新します。
func (s *MemoryStore) Touch(ctx context.Context, token string, seen time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok {
		return nil
	}
	entry.record.LastSeen = seen
	s.entries[token] = entry
	return nil
}

// Delete はセッション情報を削除します。
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

// Len は保存中のセッション数を返します。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
