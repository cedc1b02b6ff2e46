package service

import "errors"

var (
	// ErrBadRequest некорректные или отсутствующие входные данные
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidCredentials неверная пара логин/пароль, причина намеренно не уточняется
	ErrInvalidCredentials = errors.New("invalid login or password")
	// ErrNotFound запрошенная сущность отсутствует
	ErrNotFound = errors.New("not found")
)

// ValidationError ошибка проверки конкретного поля запроса
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is позволяет проверять ошибку через errors.Is(err, ErrBadRequest)
func (e *ValidationError) Is(target error) bool {
	return target == ErrBadRequest
}

func invalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
