package domain

import "fmt"

// ErrorCode is a stable, machine-readable identifier for a domain rule violation.
type ErrorCode string

const (
	CodeAlreadyActive     ErrorCode = "ALREADY_ACTIVE"
	CodeNoActiveShift     ErrorCode = "NO_ACTIVE_SHIFT"
	CodeShiftNotFound     ErrorCode = "SHIFT_NOT_FOUND"
	CodeBreakNotOpen      ErrorCode = "BREAK_NOT_OPEN"
	CodeBreakNotFound     ErrorCode = "BREAK_NOT_FOUND"
	CodeBreakInProgress   ErrorCode = "BREAK_IN_PROGRESS"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeNotCashOrder      ErrorCode = "NOT_CASH_ORDER"
	CodeOrderNotFound     ErrorCode = "ORDER_NOT_FOUND"
	CodeValidation        ErrorCode = "VALIDATION"
)

// Error is a domain invariant violation returned to callers as a structured
// 4xx-style error. Two Errors match under errors.Is when their codes match.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is checks.
var (
	ErrAlreadyActive     = &Error{Code: CodeAlreadyActive, Message: "driver already has an open shift"}
	ErrNoActiveShift     = &Error{Code: CodeNoActiveShift, Message: "shift is not active"}
	ErrShiftNotFound     = &Error{Code: CodeShiftNotFound, Message: "shift not found"}
	ErrBreakNotOpen      = &Error{Code: CodeBreakNotOpen, Message: "break is not open"}
	ErrBreakNotFound     = &Error{Code: CodeBreakNotFound, Message: "break not found"}
	ErrBreakInProgress   = &Error{Code: CodeBreakInProgress, Message: "end the current break first"}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition, Message: "transition not permitted"}
	ErrNotCashOrder      = &Error{Code: CodeNotCashOrder, Message: "order is not paid in cash"}
	ErrOrderNotFound     = &Error{Code: CodeOrderNotFound, Message: "order not found"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "invalid input"}
)

// Validationf builds a VALIDATION error with a specific message.
func Validationf(format string, args ...any) *Error {
	return newError(CodeValidation, format, args...)
}
