package utils

import "fmt"

const (
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeInfeasible  = "INFEASIBLE"
	ErrCodeSolverLimit = "SOLVER_LIMIT"
	ErrCodeUpstream    = "UPSTREAM_ERROR"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// AppError is the error body returned by the API.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewAppError(code, message string, details ...string) *AppError {
	appErr := &AppError{Code: code, Message: message}
	if len(details) > 0 {
		appErr.Details = details[0]
	}
	return appErr
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
