package handler

import (
	"log/slog"
	"net/http"

	"github.com/GoArmGo/ModuleHub/internal/auth"
	"github.com/GoArmGo/ModuleHub/internal/usecase"
)

// AuthHandler регистрация, вход и выход.
type AuthHandler struct {
	auth     usecase.AuthUseCase
	sessions *auth.SessionManager
	logger   *slog.Logger
}

func NewAuthHandler(uc usecase.AuthUseCase, sessions *auth.SessionManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: uc, sessions: sessions, logger: logger}
}

// Register POST /register, поля формы email и password.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "Некорректная форма", h.logger)
		return
	}

	_, err := h.auth.Register(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		code := statusFor(err)
		logFailure(h.logger, "registration failed", code, err)
		respondWithMessage(w, code, usecase.MessageOf(err), h.logger)
		return
	}

	respondWithHTML(w, http.StatusOK, "message", message{
		Text:     "✅ Аккаунт создан.",
		Link:     "/login",
		LinkText: "Войти",
	}, h.logger)
}

// Login POST /login. При успехе ставит cookie сессии и уводит на /dashboard.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "Некорректная форма", h.logger)
		return
	}

	userID, err := h.auth.Login(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		code := statusFor(err)
		logFailure(h.logger, "login failed", code, err)
		respondWithMessage(w, code, usecase.MessageOf(err), h.logger)
		return
	}

	if err := h.sessions.SetCookie(w, userID); err != nil {
		h.logger.Error("failed to issue session", "user_id", userID, "error", err)
		respondWithMessage(w, http.StatusInternalServerError, "Внутренняя ошибка сервера", h.logger)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout GET /logout. Токен отзывается на сервере, cookie удаляется.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	if err := h.sessions.Revoke(r.Context(), r); err != nil {
		h.logger.Error("failed to revoke session", "error", err)
		respondWithMessage(w, http.StatusInternalServerError, "Не удалось завершить сессию, попробуйте ещё раз", h.logger)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
