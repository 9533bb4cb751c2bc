package auth

import "github.com/yourusername/session-auth/internal/users"

// Identity はログイン時点のユーザー情報のスナップショットです。
// 値としてコピーして扱い、ユーザーレコードの後続の変更は反映されません。
type Identity struct {
	UserID   string `json:"userId"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// IdentityOf はユーザーレコードからスナップショットを作成します。パスワードハッシュは含めません。
func IdentityOf(u *users.User) Identity {
	return Identity{
		UserID:   u.ID,
		Fullname: u.Fullname,
		Email:    u.Email,
	}
}
