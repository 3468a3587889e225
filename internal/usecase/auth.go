package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/GoArmGo/ModuleHub/internal/auth"
	"github.com/GoArmGo/ModuleHub/internal/core/ports"
	"github.com/GoArmGo/ModuleHub/internal/domain"
)

const (
	minPasswordLen = 6
	// bcrypt игнорирует всё после 72 байт
	maxPasswordBytes = 72
	maxEmailLen      = 254
)

const msgBadCredentials = "Неверный email или пароль"

// AuthUseCase регистрация и вход
type AuthUseCase interface {
	// Register создаёт пользователя. Занятый email даёт KindConflict,
	// существующая запись при этом не меняется.
	Register(ctx context.Context, email, password string) (*domain.User, error)

	// Login возвращает ID пользователя. Неизвестный email и неверный пароль
	// неразличимы для клиента: оба дают KindUnauthorized с одним сообщением.
	Login(ctx context.Context, email, password string) (int64, error)
}

type authUseCase struct {
	users  ports.UserStorage
	hasher *auth.PasswordHasher
	logger *slog.Logger
}

func NewAuthUseCase(users ports.UserStorage, hasher *auth.PasswordHasher, logger *slog.Logger) AuthUseCase {
	return &authUseCase{users: users, hasher: hasher, logger: logger}
}

func (uc *authUseCase) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := uc.hasher.Hash(password)
	if err != nil {
		return nil, wrapErr(KindInternal, msgInternal, err)
	}

	user := &domain.User{Email: email, PasswordHash: hash}
	if err := uc.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			uc.logger.Info("registration rejected: email taken")
			return nil, wrapErr(KindConflict, "Этот email уже зарегистрирован", err)
		}
		return nil, wrapErr(KindInternal, msgInternal, err)
	}

	uc.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (uc *authUseCase) Login(ctx context.Context, email, password string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return 0, Err(KindInvalidInput, "Укажите email и пароль")
	}

	user, err := uc.users.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		uc.hasher.CompareDummy(password)
		uc.logger.Info("login failed", "reason", "unknown_email")
		return 0, Err(KindUnauthorized, msgBadCredentials)
	}
	if err != nil {
		return 0, wrapErr(KindInternal, msgInternal, err)
	}

	if err := uc.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			uc.logger.Info("login failed", "reason", "wrong_password", "user_id", user.ID)
			return 0, Err(KindUnauthorized, msgBadCredentials)
		}
		// повреждённый хеш в бд
		return 0, wrapErr(KindInternal, msgInternal, err)
	}

	uc.logger.Info("user logged in", "user_id", user.ID)
	return user.ID, nil
}

func validateCredentials(email, password string) error {
	switch {
	case email == "" || password == "":
		return Err(KindInvalidInput, "Укажите email и пароль")
	case len(email) > maxEmailLen || !strings.Contains(email, "@"):
		return Err(KindInvalidInput, "Некорректный email")
	case utf8.RuneCountInString(password) < minPasswordLen:
		return Err(KindInvalidInput, "Пароль должен быть не короче 6 символов")
	case len(password) > maxPasswordBytes:
		return Err(KindInvalidInput, "Пароль слишком длинный")
	}
	return nil
}
