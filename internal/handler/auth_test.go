package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoArmGo/ModuleHub/internal/auth"
	"github.com/GoArmGo/ModuleHub/internal/domain"
	"github.com/GoArmGo/ModuleHub/internal/logger"
	"github.com/GoArmGo/ModuleHub/internal/usecase"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestLogin_SuccessSetsCookie(t *testing.T) {
	sessions := auth.NewSessionManager(testSecret, time.Hour, true, newMemSessions())
	h := NewAuthHandler(&stubAuth{loginID: 42}, sessions, logger.Nop())

	rec := httptest.NewRecorder()
	h.Login(rec, formRequest("/login", url.Values{"email": {"a@b.c"}, "password": {"secret1"}}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	id, err := sessions.Parse(c.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestLogin_FailureSetsNoCookie(t *testing.T) {
	sessions := auth.NewSessionManager(testSecret, time.Hour, false, newMemSessions())
	h := NewAuthHandler(&stubAuth{loginErr: usecase.Err(usecase.KindUnauthorized, "Неверный email или пароль")}, sessions, logger.Nop())

	rec := httptest.NewRecorder()
	h.Login(rec, formRequest("/login", url.Values{"email": {"a@b.c"}, "password": {"wrong"}}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))
	assert.Contains(t, rec.Body.String(), "Неверный email или пароль")
}

func TestRegister_Statuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "created", want: http.StatusOK},
		{name: "duplicate", err: usecase.Err(usecase.KindConflict, "taken"), want: http.StatusConflict},
		{name: "invalid", err: usecase.Err(usecase.KindInvalidInput, "short"), want: http.StatusBadRequest},
		{name: "internal", err: domain.ErrNotFound, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := auth.NewSessionManager(testSecret, time.Hour, false, newMemSessions())
			h := NewAuthHandler(&stubAuth{registerErr: tt.err}, sessions, logger.Nop())

			rec := httptest.NewRecorder()
			h.Register(rec, formRequest("/register", url.Values{"email": {"a@b.c"}, "password": {"secret1"}}))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Nil(t, sessionCookie(rec))
		})
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	sessions := auth.NewSessionManager(testSecret, time.Hour, false, newMemSessions())
	h := NewAuthHandler(&stubAuth{}, sessions, logger.Nop())

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodGet, "/logout", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestLogout_RevokesSession(t *testing.T) {
	store := newMemSessions()
	sessions := auth.NewSessionManager(testSecret, time.Hour, false, store)
	h := NewAuthHandler(&stubAuth{loginID: 42}, sessions, logger.Nop())

	rec := httptest.NewRecorder()
	h.Login(rec, formRequest("/login", url.Values{"email": {"a@b.c"}, "password": {"secret1"}}))
	c := sessionCookie(rec)
	require.NotNil(t, c)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, store.revoked, 1)

	// старая cookie больше не принимается
	replay := httptest.NewRequest(http.MethodGet, "/list", nil)
	replay.AddCookie(c)
	_, err := sessions.FromRequest(replay)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestLogout_StoreFailure(t *testing.T) {
	store := newMemSessions()
	sessions := auth.NewSessionManager(testSecret, time.Hour, false, store)
	h := NewAuthHandler(&stubAuth{}, sessions, logger.Nop())

	token, _, err := sessions.Issue(42)
	require.NoError(t, err)
	store.err = assert.AnError

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
}
