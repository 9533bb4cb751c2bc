package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = Identity{UserID: "u-1", Fullname: "Ann", Email: "a@x.com"}

// flakyStore は指定した操作だけ失敗させる Store です。
type flakyStore struct {
	*MemoryStore
	getErr    error
	saveErr   error
	deleteErr error
}

func (s *flakyStore) Get(ctx context.Context, token string) (*Record, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemoryStore.Get(ctx, token)
}

func (s *flakyStore) Save(ctx context.Context, record *Record, ttl time.Duration) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, record, ttl)
}

func (s *flakyStore) Delete(ctx context.Context, token string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryStore.Delete(ctx, token)
}

type cookieJar map[string]*http.Cookie

func (j cookieJar) do(router http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range j {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(j, c.Name)
			continue
		}
		j[c.Name] = c
	}
	return rec
}

func newSessionRouter(m *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(m.Middleware(cookie.NewStore([]byte("test-secret-0123456789abcdef0123"))))

	router.POST("/login", func(c *gin.Context) {
		if err := m.Login(c, testIdentity); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/me", func(c *gin.Context) {
		identity, err := m.CurrentUser(c)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		if identity == nil {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.String(http.StatusOK, identity.Fullname)
	})
	router.GET("/logout", func(c *gin.Context) {
		if err := m.Logout(c); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/home", m.RequireLogin("/login"), func(c *gin.Context) {
		identity, _ := IdentityFrom(c)
		c.String(http.StatusOK, identity.Fullname)
	})
	return router
}

func tokens(s *MemoryStore) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for token := range s.entries {
		out = append(out, token)
	}
	return out
}

func TestAnonymousByDefault(t *testing.T) {
	m := NewManager(NewMemoryStore(), Options{}, nil)
	router := newSessionRouter(m)
	jar := cookieJar{}

	assert.Equal(t, http.StatusUnauthorized, jar.do(router, http.MethodGet, "/me").Code)

	rec := jar.do(router, http.MethodGet, "/home")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLoginThenRepeatedAccess(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, Options{}, nil)
	router := newSessionRouter(m)
	jar := cookieJar{}

	require.Equal(t, http.StatusNoContent, jar.do(router, http.MethodPost, "/login").Code)
	require.Contains(t, jar, SessionCookieName)

	sc := jar[SessionCookieName]
	assert.True(t, sc.HttpOnly)
	assert.Equal(t, "/", sc.Path)

	for i := 0; i < 3; i++ {
		rec := jar.do(router, http.MethodGet, "/home")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Ann", rec.Body.String())
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	}
	assert.Equal(t, 1, store.Len())
}

func TestLoginIssuesFreshToken(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, Options{}, nil)
	router := newSessionRouter(m)
	jar := cookieJar{}

	jar.do(router, http.MethodPost, "/login")
	first := tokens(store)
	require.Len(t, first, 1)

	jar.do(router, http.MethodPost, "/login")
	second := tokens(store)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0], second[0])
	assert.Len(t, second[0], 64)
}

func TestLogoutReturnsToAnonymous(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, Options{}, nil)
	router := newSessionRouter(m)
	jar := cookieJar{}

	jar.do(router, http.MethodPost, "/login")
	require.Equal(t, http.StatusOK, jar.do(router, http.MethodGet, "/me").Code)

	require.Equal(t, http.StatusNoContent, jar.do(router, http.MethodGet, "/logout").Code)
	assert.Equal(t, 0, store.Len())
	assert.NotContains(t, jar, SessionCookieName)

	assert.Equal(t, http.StatusUnauthorized, jar.do(router, http.MethodGet, "/me").Code)
	assert.Equal(t, http.StatusFound, jar.do(router, http.MethodGet, "/home").Code)
}

func TestLogoutIsTerminalForToken(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, Options{}, nil)
	router := newSessionRouter(m)
	jar := cookieJar{}

	jar.do(router, http.MethodPost, "/login")
	stolen := *jar[SessionCookieName]

	jar.do(router, http.MethodGet, "/logout")

	replay := cookieJar{SessionCookieName: &stolen}
	assert.Equal(t, http.StatusUnauthorized, replay.do(router, http.MethodGet, "/me").Code)
}

func TestLogoutFailureKeepsSession(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	m := NewManager(store, Options{}, nil)
	router := newSessionRouter(m)
	jar := cookieJar{}

	jar.do(router, http.MethodPost, "/login")
	store.deleteErr = errors.New("redis: connection refused")

	rec := jar.do(router, http.MethodGet, "/logout")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "session: destroy")

	store.deleteErr = nil
	assert.Equal(t, http.StatusOK, jar.do(router, http.MethodGet, "/me").Code)
}

func TestLogoutErrorType(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	m := NewManager(store, Options{}, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(m.Middleware(cookie.NewStore([]byte("test-secret-0123456789abcdef0123"))))

	var logoutErr error
	router.GET("/seed", func(c *gin.Context) {
		_ = m.Login(c, testIdentity)
	})
	router.GET("/logout", func(c *gin.Context) {
		logoutErr = m.Logout(c)
	})

	jar := cookieJar{}
	jar.do(router, http.MethodGet, "/seed")
	store.deleteErr = errors.New("down")
	jar.do(router, http.MethodGet, "/logout")

	var serr *SessionError
	require.ErrorAs(t, logoutErr, &serr)
	assert.Equal(t, "destroy", serr.Op)
}

func TestIdleTimeout(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, Options{TTL: 12 * time.Hour, IdleTimeout: 30 * time.Minute}, nil)
	clock := time.Now()
	m.now = func() time.Time { return clock }
	router := newSessionRouter(m)
	jar := cookieJar{}

	jar.do(router, http.MethodPost, "/login")

	clock = clock.Add(29 * time.Minute)
	require.Equal(t, http.StatusOK, jar.do(router, http.MethodGet, "/me").Code)

	clock = clock.Add(29 * time.Minute)
	require.Equal(t, http.StatusOK, jar.do(router, http.MethodGet, "/me").Code, "activity extends the idle window")

	clock = clock.Add(31 * time.Minute)
	assert.Equal(t, http.StatusUnauthorized, jar.do(router, http.MethodGet, "/me").Code)
	assert.Equal(t, 0, store.Len())
}

func TestAbsoluteLifetime(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, Options{TTL: time.Hour, IdleTimeout: 30 * time.Minute}, nil)
	clock := time.Now()
	m.now = func() time.Time { return clock }
	router := newSessionRouter(m)
	jar := cookieJar{}

	jar.do(router, http.MethodPost, "/login")
	for i := 0; i < 3; i++ {
		clock = clock.Add(20 * time.Minute)
		require.Equal(t, http.StatusOK, jar.do(router, http.MethodGet, "/me").Code)
	}

	clock = clock.Add(20 * time.Minute)
	assert.Equal(t, http.StatusUnauthorized, jar.do(router, http.MethodGet, "/me").Code)
}

func TestStoreFailureOnLookup(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	m := NewManager(store, Options{}, nil)
	router := newSessionRouter(m)
	jar := cookieJar{}

	jar.do(router, http.MethodPost, "/login")
	store.getErr = errors.New("timeout")

	rec := jar.do(router, http.MethodGet, "/me")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "session: load")

	rec = jar.do(router, http.MethodGet, "/home")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestLoginSaveFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), saveErr: errors.New("oom")}
	m := NewManager(store, Options{}, nil)
	router := newSessionRouter(m)
	jar := cookieJar{}

	rec := jar.do(router, http.MethodPost, "/login")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "session: save")
	assert.Equal(t, http.StatusUnauthorized, jar.do(router, http.MethodGet, "/me").Code)
}

func TestCookieOptions(t *testing.T) {
	m := NewManager(NewMemoryStore(), Options{TTL: 2 * time.Hour, Secure: true}, nil)
	opts := m.CookieOptions()

	assert.Equal(t, 7200, opts.MaxAge)
	assert.True(t, opts.HttpOnly)
	assert.True(t, opts.Secure)
	assert.Equal(t, http.SameSiteLaxMode, opts.SameSite)
}
