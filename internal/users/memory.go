package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore はプロセス内マップで動作する Store 実装です（開発・テスト用）。
type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]User
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: make(map[string]User)}
}

// FindByEmail はメールアドレスでユーザーを検索します。
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, &PersistenceError{Op: "find", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// Create はユーザーを保存します。同じメールアドレスが存在する場合は ErrDuplicateEmail を返します。
func (s *MemoryStore) Create(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, fmt.Errorf("user is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, &PersistenceError{Op: "create", Err: err}
	}

	record := *user
	record.Email = NormalizeEmail(record.Email)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[record.Email]; exists {
		return nil, ErrDuplicateEmail
	}
	s.byEmail[record.Email] = record

	stored := record
	return &stored, nil
}

// Len は保存済みユーザー数を返します。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail)
}
