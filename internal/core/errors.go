package core

import (
	"errors"
	"fmt"
)

// Error kinds. The HTTP layer maps each to a status code with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrInsufficientAnalyses = fmt.Errorf("%w: At least 2 analyses required", ErrInvalidInput)
	ErrNoSuitableProducts   = fmt.Errorf("%w: no suitable products match the requested profile", ErrNotFound)
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrAnalysisNotOwned     = fmt.Errorf("%w: analysis does not belong to the requesting user", ErrForbidden)
	ErrQuizIncomplete       = fmt.Errorf("%w: user has not completed the quiz", ErrInvalidInput)
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
