// Package web は登録・ログイン・ホーム・ログアウトの HTTP ハンドラーを提供します。
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/session-auth/internal/auth"
	"github.com/yourusername/session-auth/internal/users"
)

const (
	loginPath    = "/login"
	registerPath = "/register"
	homePath     = "/home"
)

// 利用者に表示するメッセージ
var (
	msgInvalidForm      = message{Text: "Invalid form submission!", LinkHref: registerPath, LinkText: "Go back"}
	msgUserExists       = message{Text: "User already exists with this email!", LinkHref: registerPath, LinkText: "Go back"}
	msgRegistered       = message{Text: "Registration successful!", LinkHref: loginPath, LinkText: "Login"}
	msgRegisterFailed   = message{Text: "Error registering user!", LinkHref: registerPath, LinkText: "Try again"}
	msgMissingLogin     = message{Text: "Email and password are required!", LinkHref: loginPath, LinkText: "Try again"}
	msgUserNotFound     = message{Text: "User not found!", LinkHref: loginPath, LinkText: "Try again"}
	msgWrongPassword    = message{Text: "Incorrect password!", LinkHref: loginPath, LinkText: "Try again"}
	msgLoginFailed      = message{Text: "Error logging in!", LinkHref: loginPath, LinkText: "Try again"}
	msgLogoutFailed     = message{Text: "Error logging out!", LinkHref: homePath, LinkText: "Back"}
)

// Handler はルートハンドラーが依存するコンポーネントをまとめた構造体です。
type Handler struct {
	users    users.Store
	sessions *auth.Manager
	hasher   *auth.Hasher
	logger   *slog.Logger
}

// NewHandler はハンドラーを作成します。
func NewHandler(store users.Store, sessions *auth.Manager, hasher *auth.Hasher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		users:    store,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}
}

// Mount はテンプレートとルートをルーターに登録します。
func (h *Handler) Mount(router *gin.Engine) {
	router.SetHTMLTemplate(Templates())

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, homePath)
	})
	router.GET(loginPath, h.LoginForm)
	router.GET(registerPath, h.RegisterForm)
	router.POST(registerPath, h.Register)
	router.POST(loginPath, h.Login)
	router.GET(homePath, h.sessions.RequireLogin(loginPath), h.Home)
	router.GET("/logout", h.Logout)
}

// LoginForm は GET /login のハンドラーです。
func (h *Handler) LoginForm(c *gin.Context) {
	c.Data(http.StatusOK, htmlContentType, loginPage)
}

// RegisterForm は GET /register のハンドラーです。
func (h *Handler) RegisterForm(c *gin.Context) {
	c.Data(http.StatusOK, htmlContentType, registerPage)
}

type registerForm struct {
	Fullname        string `form:"fullname"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirmPassword"`
}

// Register は POST /register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		renderMessage(c, http.StatusBadRequest, msgInvalidForm)
		return
	}

	input := auth.RegistrationInput{
		Fullname:        form.Fullname,
		Email:           form.Email,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
	}
	if err := auth.ValidateRegistration(input); err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			renderMessage(c, http.StatusBadRequest, message{Text: verr.Message, LinkHref: registerPath, LinkText: "Go back"})
			return
		}
		renderMessage(c, http.StatusBadRequest, msgInvalidForm)
		return
	}

	hash, err := h.hasher.Hash(form.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		renderMessage(c, http.StatusInternalServerError, msgRegisterFailed)
		return
	}

	// 重複判定はストアの一意制約に任せる（事前チェックはしない）
	_, err = h.users.Create(c.Request.Context(), &users.User{
		Fullname:     strings.TrimSpace(form.Fullname),
		Email:        form.Email,
		PasswordHash: hash,
	})
	switch {
	case err == nil:
		renderMessage(c, http.StatusOK, msgRegistered)
	case errors.Is(err, users.ErrDuplicateEmail):
		renderMessage(c, http.StatusConflict, msgUserExists)
	default:
		h.logger.Error("failed to register user", "error", err)
		renderMessage(c, http.StatusInternalServerError, msgRegisterFailed)
	}
}

type loginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// Login は POST /login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		renderMessage(c, http.StatusBadRequest, msgMissingLogin)
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), form.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			renderMessage(c, http.StatusNotFound, msgUserNotFound)
			return
		}
		h.logger.Error("failed to look up user", "error", err)
		renderMessage(c, http.StatusInternalServerError, msgLoginFailed)
		return
	}

	if err := auth.ValidateLogin(form.Password, user.PasswordHash); err != nil {
		renderMessage(c, http.StatusUnauthorized, msgWrongPassword)
		return
	}

	if err := h.sessions.Login(c, auth.IdentityOf(user)); err != nil {
		h.logger.Error("failed to establish session", "error", err)
		renderMessage(c, http.StatusInternalServerError, msgLoginFailed)
		return
	}

	c.Redirect(http.StatusFound, homePath)
}

// Home は GET /home のハンドラーです。RequireLogin の後ろに登録します。
func (h *Handler) Home(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		c.Redirect(http.StatusFound, loginPath)
		return
	}
	c.HTML(http.StatusOK, "home.html", gin.H{
		"Fullname": identity.Fullname,
	})
}

// Logout は GET /logout のハンドラーです。
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c); err != nil {
		h.logger.Error("failed to destroy session", "error", err)
		renderMessage(c, http.StatusInternalServerError, msgLogoutFailed)
		return
	}
	c.Redirect(http.StatusFound, loginPath)
}
