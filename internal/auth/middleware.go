package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextIdentityKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextIdentityKey = "auth.identity"

// RequireLogin は未ログインのクライアントを loginPath へリダイレクトするミドルウェアを返します。
// セッションストアの読み出しに失敗した場合も未ログインとして扱います。
func (m *Manager) RequireLogin(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := m.CurrentUser(c)
		if err != nil {
			m.logger.Error("session lookup failed", "path", c.Request.URL.Path, "error", err)
		}
		if identity == nil {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}

		// ログアウト後に戻るボタンで表示されないようにする
		c.Header("Cache-Control", "no-store")
		c.Set(ContextIdentityKey, *identity)
		c.Next()
	}
}

// IdentityFrom は RequireLogin が保存したユーザー情報を取り出します。
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}
