// Package users はユーザーレコードの永続化（ゲートウェイ）を提供します。
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound は指定したメールアドレスのユーザーが存在しないことを表します。
	ErrNotFound = errors.New("users: not found")
	// ErrDuplicateEmail は一意制約によって登録が拒否されたことを表します。
	ErrDuplicateEmail = errors.New("users: email already registered")
)

// PersistenceError はストアへの接続・通信障害を表します。
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("users: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// User は永続化されたユーザーレコードです。PasswordHash には bcrypt ハッシュのみを保持します。
type User struct {
	ID           string
	Fullname     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Store はユーザーレコードの参照と作成を行います。
// メールアドレスの重複検出はストア側の一意制約だけに依存します。
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
}

// NormalizeEmail は検索・保存に使うメールアドレスの正規形を返します。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
