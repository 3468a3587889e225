package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GoArmGo/ModuleHub/internal/auth"
	"github.com/GoArmGo/ModuleHub/internal/logger"
)

func newAuthFixture() (AuthUseCase, *memUsers) {
	users := newMemUsers()
	return NewAuthUseCase(users, auth.NewPasswordHasher(bcrypt.MinCost), logger.Nop()), users
}

func TestRegisterAndLogin(t *testing.T) {
	uc, _ := newAuthFixture()
	ctx := context.Background()

	u, err := uc.Register(ctx, "  alice@example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	id, err := uc.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestRegister_DuplicateKeepsExistingHash(t *testing.T) {
	uc, users := newAuthFixture()
	ctx := context.Background()

	_, err := uc.Register(ctx, "bob@example.com", "first-pass")
	require.NoError(t, err)
	before, err := users.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)

	_, err = uc.Register(ctx, "bob@example.com", "second-pass")
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))

	after, err := users.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)

	_, err = uc.Login(ctx, "bob@example.com", "first-pass")
	require.NoError(t, err)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "secret1"},
		{name: "empty password", email: "a@b.c", password: ""},
		{name: "no at sign", email: "alice", password: "secret1"},
		{name: "short password", email: "a@b.c", password: "12345"},
		{name: "password over 72 bytes", email: "a@b.c", password: strings.Repeat("p", 73)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, users := newAuthFixture()
			_, err := uc.Register(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, KindInvalidInput, KindOf(err))
			assert.Empty(t, users.byMail)
		})
	}
}

func TestLogin_FailuresLookTheSame(t *testing.T) {
	uc, _ := newAuthFixture()
	ctx := context.Background()
	_, err := uc.Register(ctx, "carol@example.com", "correct-horse")
	require.NoError(t, err)

	_, wrongPass := uc.Login(ctx, "carol@example.com", "battery-staple")
	_, unknown := uc.Login(ctx, "nobody@example.com", "battery-staple")

	require.Error(t, wrongPass)
	require.Error(t, unknown)
	assert.Equal(t, KindUnauthorized, KindOf(wrongPass))
	assert.Equal(t, KindUnauthorized, KindOf(unknown))
	assert.Equal(t, MessageOf(wrongPass), MessageOf(unknown))
}

func TestLogin_EmptyInput(t *testing.T) {
	uc, _ := newAuthFixture()
	_, err := uc.Login(context.Background(), "", "")
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestErrorHelpers(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.Equal(t, msgInternal, MessageOf(assert.AnError))

	err := wrapErr(KindTooLarge, "too big", assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "too big", MessageOf(err))
	assert.Equal(t, "too_large", KindTooLarge.String())
}
