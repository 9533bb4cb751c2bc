package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt は 72 バイトを超える入力を扱えない
const maxPasswordBytes = 72

// RegistrationInput は登録フォームの入力値です。
type RegistrationInput struct {
	Fullname        string
	Email           string
	Password        string
	ConfirmPassword string
}

// ValidateRegistration は登録フォームを検証します。永続化層には一切触れません。
func ValidateRegistration(in RegistrationInput) error {
	if strings.TrimSpace(in.Fullname) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return ErrMissingFields
	}
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(in.Password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidateLogin は送信されたパスワードを保存済みの bcrypt ハッシュと比較します。
func ValidateLogin(submitted, storedHash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(submitted))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrCredentialMismatch
	}
	// 壊れたハッシュも利用者から見れば不一致として扱う
	return fmt.Errorf("%w: %v", ErrCredentialMismatch, err)
}

// Hasher はパスワードを bcrypt でハッシュ化します。
type Hasher struct {
	cost int
}

// NewHasher は指定コストの Hasher を作成します。範囲外のコストは DefaultCost に置き換えます。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash はパスワードのハッシュを返します。
func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
