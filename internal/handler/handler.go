package handler

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/ModuleHub/internal/usecase"
)

// respondWithJSON отправляет JSON-ответ клиенту.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

// respondWithError отправляет JSON-ответ с ошибкой.
func respondWithError(w http.ResponseWriter, code int, message string, logger *slog.Logger) {
	respondWithJSON(w, code, map[string]string{"error": message}, logger)
}

// fragments HTML-ответы форм. Браузер показывает их вместо страницы,
// поэтому всё пользовательское экранируется шаблоном.
var fragments = template.Must(template.New("fragments").Parse(`
{{define "message"}}<p>{{.Text}}</p>{{if .Link}}<p><a href="{{.Link}}">{{.LinkText}}</a></p>{{end}}{{end}}
{{define "uploaded"}}<p>✅ Модуль «{{.Name}}» готов!</p><p><a href="{{.URL}}" target="_blank">➡️ Запустить модуль</a></p><p><a href="/dashboard">⬅️ Вернуться к списку</a></p>{{end}}
{{define "unresolved"}}<p>✅ Модуль «{{.Name}}» распакован, но запускаемый HTML-файл не найден.</p><p><a href="/dashboard">⬅️ Вернуться к списку</a></p>{{end}}
`))

type message struct {
	Text     string
	Link     string
	LinkText string
}

// respondWithHTML отправляет HTML-фрагмент по шаблону name.
func respondWithHTML(w http.ResponseWriter, code int, name string, data interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := fragments.ExecuteTemplate(w, name, data); err != nil {
		logger.Error("failed to render HTML fragment", "template", name, "error", err)
	}
}

func respondWithMessage(w http.ResponseWriter, code int, text string, logger *slog.Logger) {
	respondWithHTML(w, code, "message", message{Text: "❌ " + text}, logger)
}

// statusFor единственное место, где класс ошибки превращается в HTTP-статус
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	switch usecase.KindOf(err) {
	case usecase.KindInvalidInput:
		return http.StatusBadRequest
	case usecase.KindConflict:
		return http.StatusConflict
	case usecase.KindUnauthorized:
		return http.StatusUnauthorized
	case usecase.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case usecase.KindExtraction:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// logFailure 5xx пишутся как ошибки, остальное как предупреждения
func logFailure(logger *slog.Logger, msg string, code int, err error, args ...any) {
	args = append(args, "status", code, "error", err)
	if code >= http.StatusInternalServerError {
		logger.Error(msg, args...)
		return
	}
	logger.Warn(msg, args...)
}
