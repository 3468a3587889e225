package usecase

import "errors"

// ErrorKind класс ошибки бизнес-логики. В HTTP-статус его переводит только handler.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidInput
	KindConflict
	KindUnauthorized
	KindTooLarge
	KindExtraction
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindTooLarge:
		return "too_large"
	case KindExtraction:
		return "extraction"
	default:
		return "internal"
	}
}

// Error структурированная ошибка сценария.
// Message можно показывать пользователю, Err только в логи.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Err создаёт ошибку без причины
func Err(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapErr(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf возвращает класс ошибки. Всё, что не *Error, считается внутренней ошибкой.
func KindOf(err error) ErrorKind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindInternal
}

// MessageOf текст для пользователя
func MessageOf(err error) string {
	var ue *Error
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return msgInternal
}

const msgInternal = "Внутренняя ошибка сервера"
