package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	ErrPoolExhausted     = errors.New("identifier pool exhausted")
)

type AppError struct {
	Err     error  // sentinel identifying the error class
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrDuplicateEmail,
		Message: "Email already registered",
		Field:   "email",
	}
}

func InvalidToken() *AppError {
	return &AppError{
		Err:     ErrInvalidToken,
		Message: "Invalid token",
	}
}

// InvalidCredentials covers both unknown usernames and wrong passwords.
// The two cases are deliberately indistinguishable to the caller.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid username or password",
	}
}

func EmailNotConfirmed() *AppError {
	return &AppError{
		Err:     ErrEmailNotConfirmed,
		Message: "Email not confirmed",
	}
}

// PoolExhausted reports that no free identifier was available, even after a
// replenish attempt. Handlers map this to 503 Service Unavailable.
func PoolExhausted() *AppError {
	return &AppError{
		Err:     ErrPoolExhausted,
		Message: "No free identifiers available, try again shortly",
	}
}
