package domain

import "errors"

// ErrNotFound возвращается, когда тема или комментарий отсутствуют.
var ErrNotFound = errors.New("not found")

// ValidationError - ошибка входных данных, в том числе несуществующий пользователь.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// NewValidationError создает ValidationError с указанной причиной.
func NewValidationError(reason string) error {
	return &ValidationError{Reason: reason}
}

// IsValidation сообщает, является ли err (или что-то в его цепочке) ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
