package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a failure class across HTTP and WebSocket
// surfaces.
type ErrorCode string

const (
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeExpiredToken ErrorCode = "EXPIRED_TOKEN"

	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeAccessDenied ErrorCode = "ACCESS_DENIED"

	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeUserNotFound         ErrorCode = "USER_NOT_FOUND"
	ErrCodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeCallNotFound         ErrorCode = "CALL_NOT_FOUND"
	ErrCodeAttachmentNotFound   ErrorCode = "ATTACHMENT_NOT_FOUND"

	ErrCodeInvalidTransition ErrorCode = "INVALID_STATUS_TRANSITION"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeStorage  ErrorCode = "STORAGE_ERROR"
)

// AppError is the structured error the service and handler layers pass
// around: a stable code, a client-safe message, the HTTP status it maps
// to, and optionally the underlying cause.
type AppError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: status}
}

func ValidationError(message string) *AppError {
	return newError(ErrCodeValidation, message, http.StatusBadRequest)
}

func UnauthorizedError(message string) *AppError {
	return newError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func InvalidTokenError(message string) *AppError {
	return newError(ErrCodeInvalidToken, message, http.StatusUnauthorized)
}

func ExpiredTokenError() *AppError {
	return newError(ErrCodeExpiredToken, "Token has expired", http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	return newError(ErrCodeForbidden, message, http.StatusForbidden)
}

func AccessDeniedError(message string) *AppError {
	return newError(ErrCodeAccessDenied, message, http.StatusForbidden)
}

func NotFoundError(resource string) *AppError {
	return newError(ErrCodeNotFound, resource+" not found", http.StatusNotFound)
}

func UserNotFoundError() *AppError {
	return newError(ErrCodeUserNotFound, "User not found", http.StatusNotFound)
}

func ConversationNotFoundError() *AppError {
	return newError(ErrCodeConversationNotFound, "Conversation not found", http.StatusNotFound)
}

func CallNotFoundError() *AppError {
	return newError(ErrCodeCallNotFound, "Call not found", http.StatusNotFound)
}

func AttachmentNotFoundError() *AppError {
	return newError(ErrCodeAttachmentNotFound, "Attachment not found", http.StatusNotFound)
}

// InvalidTransitionError reports a call status change the state machine
// does not allow.
func InvalidTransitionError(from, to string) *AppError {
	return newError(ErrCodeInvalidTransition,
		fmt.Sprintf("Call status cannot change from %s to %s", from, to), http.StatusConflict)
}

func InternalError(message string) *AppError {
	return newError(ErrCodeInternal, message, http.StatusInternalServerError)
}

// DatabaseError wraps a repository failure. The cause stays out of the
// client-facing message.
func DatabaseError(err error) *AppError {
	e := newError(ErrCodeDatabase, "Database error", http.StatusInternalServerError)
	e.Err = err
	return e
}

// StorageError wraps an object storage failure.
func StorageError(err error) *AppError {
	e := newError(ErrCodeStorage, "Storage error", http.StatusInternalServerError)
	e.Err = err
	return e
}

// GetAppError extracts the AppError from err's chain. Anything else
// becomes an internal error so unclassified failures still map to a
// sane status.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return InternalError(err.Error())
}
