package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mverma16/playtube/internal/hash"
	"github.com/mverma16/playtube/internal/models"
	"github.com/mverma16/playtube/internal/repo"
	"github.com/mverma16/playtube/internal/service"
	"github.com/mverma16/playtube/internal/tokens"
)

type testEnv struct {
	E   *echo.Echo
	Svc *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}))

	svc := &service.AuthService{
		Repo: &repo.GormRepo{DB: db},
		Codec: &tokens.Codec{
			AccessSecret:  []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		},
		Hasher: hash.New(bcrypt.MinCost),
	}

	e := echo.New()
	Register(e, &Deps{AuthHandler: &AuthHTTP{Svc: svc}})

	return &testEnv{E: e, Svc: svc}
}

func (env *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) register(t *testing.T) {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/register", map[string]string{
		"username":  "alice",
		"email":     "alice@example.com",
		"full_name": "Alice Doe",
		"password":  "Secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func (env *testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice",
		"password": "Secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Result().Cookies()
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t)

	// Duplicate registration conflicts.
	rec := env.do(t, http.MethodPost, "/register", map[string]string{
		"username":  "alice",
		"email":     "other@example.com",
		"full_name": "Alice Doe",
		"password":  "Secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Missing fields are rejected.
	rec = env.do(t, http.MethodPost, "/register", map[string]string{
		"username": "bob",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterEndpoint_NeverLeaksSecrets(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/register", map[string]string{
		"username":  "alice",
		"email":     "alice@example.com",
		"full_name": "Alice Doe",
		"password":  "Secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "password_hash")
	assert.NotContains(t, rec.Body.String(), "Secret123")
}

func TestLoginEndpoint_SetsTokenCookies(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t)
	cookies := env.login(t)

	access := cookieByName(cookies, "accessToken")
	refresh := cookieByName(cookies, "refreshToken")
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.NotEmpty(t, access.Value)
	assert.NotEmpty(t, refresh.Value)
	assert.True(t, access.HttpOnly)
	assert.True(t, refresh.HttpOnly)
}

func TestLoginEndpoint_WrongPassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t)

	rec := env.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpoint_RotatesCookies(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t)
	cookies := env.login(t)
	oldRefresh := cookieByName(cookies, "refreshToken")
	require.NotNil(t, oldRefresh)

	rec := env.do(t, http.MethodPost, "/refresh", nil, oldRefresh)
	require.Equal(t, http.StatusOK, rec.Code)

	newRefresh := cookieByName(rec.Result().Cookies(), "refreshToken")
	require.NotNil(t, newRefresh)
	assert.NotEqual(t, oldRefresh.Value, newRefresh.Value)

	// The redeemed cookie is single-use.
	rec = env.do(t, http.MethodPost, "/refresh", nil, oldRefresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/refresh", nil, newRefresh)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshEndpoint_BodyFallbackAndMissing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t)
	cookies := env.login(t)
	refresh := cookieByName(cookies, "refreshToken")
	require.NotNil(t, refresh)

	rec := env.do(t, http.MethodPost, "/refresh", map[string]string{
		"refresh_token": refresh.Value,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t)
	cookies := env.login(t)
	access := cookieByName(cookies, "accessToken")
	refresh := cookieByName(cookies, "refreshToken")

	rec := env.do(t, http.MethodPost, "/logout", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)

	// Logout is idempotent; the short-lived access token stays usable.
	rec = env.do(t, http.MethodPost, "/logout", nil, access)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The refresh token was revoked.
	rec = env.do(t, http.MethodPost, "/refresh", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndpoint_RequiresAuth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t)
	cookies := env.login(t)
	access := cookieByName(cookies, "accessToken")

	rec := env.do(t, http.MethodGet, "/me", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)

	rec = env.do(t, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t)
	cookies := env.login(t)
	access := cookieByName(cookies, "accessToken")

	rec := env.do(t, http.MethodPost, "/change-password", map[string]string{
		"old_password":     "Secret123",
		"new_password":     "x",
		"confirm_password": "y",
	}, access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/change-password", map[string]string{
		"old_password":     "wrong",
		"new_password":     "NewSecret1",
		"confirm_password": "NewSecret1",
	}, access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/change-password", map[string]string{
		"old_password":     "Secret123",
		"new_password":     "NewSecret1",
		"confirm_password": "NewSecret1",
	}, access)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice",
		"password": "NewSecret1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
