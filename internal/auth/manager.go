// Package auth は資格情報の検証とサーバー側セッションの管理を提供します。
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	SessionCookieName = "sa_session"
	sessionKeyToken   = "session_token"
)

// 既定のセッション有効期限
const (
	DefaultSessionTTL  = 12 * time.Hour
	DefaultIdleTimeout = 30 * time.Minute
)

// Options はセッションの有効期限設定です。
type Options struct {
	TTL         time.Duration // ログインからの絶対有効期限
	IdleTimeout time.Duration // 無操作でセッションを破棄するまでの時間
	Secure      bool          // クッキーに Secure 属性を付与するか
}

// Manager はクライアントのトークンとサーバー側セッションを結び付けます。
//
// クッキーには不透明なトークンだけを保存し、ユーザー情報は Store 側に保持します。
type Manager struct {
	store  Store
	ttl    time.Duration
	idle   time.Duration
	secure bool
	logger *slog.Logger
	now    func() time.Time
}

// NewManager はセッションマネージャーを作成します。
func NewManager(store Store, opts Options, logger *slog.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		ttl:    opts.TTL,
		idle:   opts.IdleTimeout,
		secure: opts.Secure,
		logger: logger,
		now:    time.Now,
	}
}

// CookieOptions はセッションクッキーの属性を返します。
func (m *Manager) CookieOptions() sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Middleware はセッションクッキーを読み書きする gin ミドルウェアを返します。
func (m *Manager) Middleware(store sessions.Store) gin.HandlerFunc {
	store.Options(m.CookieOptions())
	return sessions.Sessions(SessionCookieName, store)
}

// CurrentUser はログイン中のユーザーを返します。未ログイン・期限切れの場合は nil を返します。
func (m *Manager) CurrentUser(c *gin.Context) (*Identity, error) {
	session := sessions.Default(c)
	token, ok := session.Get(sessionKeyToken).(string)
	if !ok || token == "" {
		return nil, nil
	}

	ctx := c.Request.Context()
	record, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, &SessionError{Op: "load", Err: err}
	}
	if record == nil {
		return nil, nil
	}

	now := m.now()
	if now.Sub(record.IssuedAt) > m.ttl || now.Sub(record.LastSeen) > m.idle {
		if err := m.store.Delete(ctx, token); err != nil {
			m.logger.Warn("failed to drop expired session", "error", err)
		}
		return nil, nil
	}

	if err := m.store.Touch(ctx, token, now); err != nil {
		m.logger.Warn("failed to refresh session activity", "error", err)
	}

	identity := record.Identity
	return &identity, nil
}

// Login は新しいトークンを発行してセッションを確立します。既存のトークンは破棄します。
func (m *Manager) Login(c *gin.Context, identity Identity) error {
	token, err := generateToken()
	if err != nil {
		return &SessionError{Op: "issue token", Err: err}
	}

	ctx := c.Request.Context()
	session := sessions.Default(c)
	if previous, ok := session.Get(sessionKeyToken).(string); ok && previous != "" {
		if err := m.store.Delete(ctx, previous); err != nil {
			m.logger.Warn("failed to drop previous session", "error", err)
		}
	}

	now := m.now()
	record := &Record{
		Token:    token,
		Identity: identity,
		IssuedAt: now,
		LastSeen: now,
	}
	if err := m.store.Save(ctx, record, m.ttl); err != nil {
		return &SessionError{Op: "save", Err: err}
	}

	session.Set(sessionKeyToken, token)
	if err := session.Save(); err != nil {
		_ = m.store.Delete(ctx, token)
		return &SessionError{Op: "write cookie", Err: err}
	}
	return nil
}

// Logout はサーバー側セッションを削除し、クッキーを失効させます。
// 削除に失敗した場合は SessionError を返し、セッションはそのまま残ります。
func (m *Manager) Logout(c *gin.Context) error {
	session := sessions.Default(c)
	if token, ok := session.Get(sessionKeyToken).(string); ok && token != "" {
		if err := m.store.Delete(c.Request.Context(), token); err != nil {
			return &SessionError{Op: "destroy", Err: err}
		}
	}

	session.Clear()
	session.Options(sessions.Options{
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	if err := session.Save(); err != nil {
		return &SessionError{Op: "clear cookie", Err: err}
	}
	return nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
