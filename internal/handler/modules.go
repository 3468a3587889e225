package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/ModuleHub/internal/auth"
	"github.com/GoArmGo/ModuleHub/internal/domain"
	"github.com/GoArmGo/ModuleHub/internal/usecase"
)

const (
	// UploadField имя поля формы с архивом
	UploadField = "scormfile"
	// запас на заголовки multipart сверх размера архива
	multipartOverhead = 1 << 20
)

// ModuleHandler обработчик загрузки, списка и удаления модулей.
type ModuleHandler struct {
	modules        usecase.ModuleUseCase
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewModuleHandler создаёт новый экземпляр ModuleHandler.
func NewModuleHandler(uc usecase.ModuleUseCase, maxUploadBytes int64, logger *slog.Logger) *ModuleHandler {
	return &ModuleHandler{modules: uc, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Upload POST /upload, multipart с полем scormfile.
// Архив читается потоком, без буферизации формы в памяти.
func (h *ModuleHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		h.logger.Warn("upload without multipart body", "user_id", userID, "error", err)
		respondWithMessage(w, http.StatusBadRequest, "Файл не получен", h.logger)
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			code := statusFor(err)
			if code == http.StatusInternalServerError {
				code = http.StatusBadRequest
			}
			logFailure(h.logger, "failed to read multipart body", code, err, "user_id", userID)
			respondWithMessage(w, code, "Некорректный запрос", h.logger)
			return
		}
		if part.FormName() != UploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		h.handleUpload(w, r, userID, part.FileName(), part)
		_ = part.Close()
		return
	}

	h.logger.Warn("upload without file", "user_id", userID)
	respondWithMessage(w, http.StatusBadRequest, "Файл не получен", h.logger)
}

func (h *ModuleHandler) handleUpload(w http.ResponseWriter, r *http.Request, userID int64, name string, body io.Reader) {
	res, err := h.modules.Upload(r.Context(), userID, name, body)
	if err != nil {
		code := statusFor(err)
		logFailure(h.logger, "upload failed", code, err, "user_id", userID)
		msg := usecase.MessageOf(err)
		if code == http.StatusRequestEntityTooLarge {
			msg = "Архив слишком большой"
		}
		respondWithMessage(w, code, msg, h.logger)
		return
	}

	if res.Status == domain.ModuleReady {
		respondWithHTML(w, http.StatusOK, "uploaded", struct{ Name, URL string }{res.Module.Name, res.URL}, h.logger)
		return
	}
	respondWithHTML(w, http.StatusOK, "unresolved", struct{ Name string }{res.Module.Name}, h.logger)
}

// List GET /list, JSON-массив модулей пользователя.
func (h *ModuleHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	views, err := h.modules.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list modules", "user_id", userID, "error", err)
		respondWithError(w, http.StatusInternalServerError, usecase.MessageOf(err), h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, views, h.logger)
}

// Delete POST /delete, поле формы module содержит идентификатор каталога.
func (h *ModuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "Некорректная форма", h.logger)
		return
	}

	if err := h.modules.Delete(r.Context(), userID, r.PostForm.Get("module")); err != nil {
		h.logger.Error("failed to delete module", "user_id", userID, "error", err)
		respondWithMessage(w, statusFor(err), usecase.MessageOf(err), h.logger)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
