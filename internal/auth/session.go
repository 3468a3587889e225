package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/GoArmGo/ModuleHub/internal/core/ports"
)

// CookieName имя cookie с токеном сессии
const CookieName = "modulehub_session"

var ErrInvalidSession = errors.New("invalid session")

// SessionManager выпускает и проверяет подписанные токены сессии.
// Сессия это HS256 JWT с ID пользователя в subject и случайным jti.
// При выходе jti попадает в revoked и токен больше не принимается.
type SessionManager struct {
	secret  []byte
	ttl     time.Duration
	secure  bool
	revoked ports.SessionStorage
	now     func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, secureCookie bool, revoked ports.SessionStorage) *SessionManager {
	return &SessionManager{
		secret:  []byte(secret),
		ttl:     ttl,
		secure:  secureCookie,
		revoked: revoked,
		now:     time.Now,
	}
}

// Issue подписывает токен для пользователя.
func (m *SessionManager) Issue(userID int64) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	s, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return s, exp, nil
}

// Parse проверяет подпись и срок действия и возвращает ID пользователя.
// Отзыв токена здесь не проверяется, для этого FromRequest.
func (m *SessionManager) Parse(tokenString string) (int64, error) {
	claims, err := m.parseClaims(tokenString)
	if err != nil {
		return 0, err
	}
	return userIDFrom(claims)
}

func (m *SessionManager) parseClaims(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid {
		return nil, ErrInvalidSession
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing token id", ErrInvalidSession)
	}
	return claims, nil
}

func userIDFrom(claims *jwt.RegisteredClaims) (int64, error) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	return id, nil
}

// SetCookie выпускает токен и записывает его в ответ.
func (m *SessionManager) SetCookie(w http.ResponseWriter, userID int64) error {
	token, exp, err := m.Issue(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie удаляет cookie сессии на клиенте.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest достаёт сессию из cookie запроса и проверяет, что она не отозвана.
// Ошибка хранилища возвращается как есть, запрос при этом не пропускается.
func (m *SessionManager) FromRequest(r *http.Request) (int64, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return 0, ErrInvalidSession
	}
	claims, err := m.parseClaims(c.Value)
	if err != nil {
		return 0, err
	}

	revoked, err := m.revoked.IsSessionRevoked(r.Context(), claims.ID)
	if err != nil {
		return 0, fmt.Errorf("check session revocation: %w", err)
	}
	if revoked {
		return 0, fmt.Errorf("%w: revoked", ErrInvalidSession)
	}
	return userIDFrom(claims)
}

// Revoke отзывает сессию из cookie запроса.
// Запрос без действующей сессии отзывать нечего, это не ошибка.
func (m *SessionManager) Revoke(ctx context.Context, r *http.Request) error {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	claims, err := m.parseClaims(c.Value)
	if err != nil {
		return nil
	}
	if err := m.revoked.RevokeSession(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// PurgeRevoked удаляет отзывы, чьи токены уже истекли
func (m *SessionManager) PurgeRevoked(ctx context.Context) (int64, error) {
	return m.revoked.PurgeRevokedSessions(ctx, m.now())
}
