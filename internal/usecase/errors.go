package usecase

import "fmt"

type ErrorCode string

const (
	ErrorUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorTransport    ErrorCode = "TRANSPORT"
	ErrorUnknown      ErrorCode = "UNKNOWN"
	ErrorValidation   ErrorCode = "VALIDATION"
)

// unauthorizedMessage is shown verbatim for any 401 from the completion API.
const unauthorizedMessage = "Ошибка авторизации: API отклонил ключ. Проверьте OPENROUTER_API_KEY."

type Error struct {
	Code   ErrorCode
	Reason string
	// Status and Body are set for ErrorTransport.
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UserMessage renders the error as the text a chat user sees in place of a
// result.
func (e *Error) UserMessage() string {
	if e == nil {
		return ""
	}
	switch e.Code {
	case ErrorUnauthorized:
		return unauthorizedMessage
	case ErrorTransport:
		return fmt.Sprintf("Ошибка API (HTTP %d): %s", e.Status, e.Body)
	case ErrorValidation:
		return e.Reason
	default:
		if e.Err != nil {
			return "Ошибка при обращении к API: " + e.Err.Error()
		}
		return "Ошибка при обращении к API: " + e.Reason
	}
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// NewValidationError reports a user input problem; reason is shown to the user.
func NewValidationError(reason string) *Error {
	return newError(ErrorValidation, reason, nil)
}
