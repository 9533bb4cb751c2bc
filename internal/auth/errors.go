package auth

import (
	"errors"
	"fmt"
)

// ValidationError はフォーム入力の検証エラーです。Message は利用者にそのまま表示できる文言です。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("auth: invalid %s: %s", e.Field, e.Message)
}

var (
	ErrMissingFields    = &ValidationError{Field: "form", Message: "All fields are required!"}
	ErrPasswordMismatch = &ValidationError{Field: "confirmPassword", Message: "Passwords do not match!"}
	ErrPasswordTooLong  = &ValidationError{Field: "password", Message: "Password must be at most 72 bytes!"}

	// ErrCredentialMismatch は送信されたパスワードが保存済みハッシュと一致しないことを表します。
	ErrCredentialMismatch = errors.New("auth: credential mismatch")
)

// SessionError はセッションストアの障害を表します。
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session: %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
