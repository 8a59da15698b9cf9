package errors

import (
	"fmt"
	"net/http"

	"github.com/vincentrandon/freelance-project-saas/logger"
)

type ErrorType string

const (
	ValidationError              ErrorType = "VALIDATION_ERROR"
	NotFoundError                ErrorType = "NOT_FOUND"
	DatabaseError                ErrorType = "DATABASE_ERROR"
	ServerError                  ErrorType = "SERVER_ERROR"
	ForbiddenError               ErrorType = "FORBIDDEN"
	InvalidStatusTransitionError ErrorType = "INVALID_STATUS_TRANSITION"

	// Reconciliation-specific errors.
	ExtractionUnavailableError     ErrorType = "EXTRACTION_UNAVAILABLE"
	ValidationConflictError        ErrorType = "VALIDATION_CONFLICT"
	StalePreviewError              ErrorType = "STALE_PREVIEW"
	ApprovalTransactionFailedError ErrorType = "APPROVAL_TRANSACTION_FAILED"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying error for errors.Is/As chains.
func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the HTTP status code associated with the error.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// New creates a new AppError
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// Helper functions for common errors
func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewDatabaseError(err error) *AppError {
	// Log original error but return sanitized message
	logger.GetLogger().Errorw("Database error", "error", err)
	return &AppError{
		Type:       DatabaseError,
		Message:    "Database operation failed",
		Detail:     "Please try again later",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func Forbidden(message string, details string) *AppError {
	return &AppError{
		Type:       ForbiddenError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusForbidden,
	}
}

func InvalidStatusTransition(current, next string) *AppError {
	return &AppError{
		Type:       InvalidStatusTransitionError,
		Message:    "Invalid status transition",
		Detail:     fmt.Sprintf("Cannot transition from %s to %s", current, next),
		HTTPStatus: http.StatusBadRequest,
	}
}

// ExtractionUnavailable signals that the external parser failed or is still
// running. The caller should surface the document as "still processing" or
// "failed"; extraction is not retried here.
func ExtractionUnavailable(documentID string, err error) *AppError {
	detail := fmt.Sprintf("Document ID: %s", documentID)
	if err != nil {
		detail = fmt.Sprintf("%s: %v", detail, err)
	}
	return &AppError{
		Type:       ExtractionUnavailableError,
		Message:    "Document extraction is not available",
		Detail:     detail,
		HTTPStatus: http.StatusServiceUnavailable,
		Raw:        err,
	}
}

// ValidationConflict is a blocking inconsistency that must be resolved by an
// edit before approval. There is no override path for conflicts.
func ValidationConflict(message string, detail string) *AppError {
	return &AppError{
		Type:       ValidationConflictError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusConflict,
	}
}

// StalePreview signals an optimistic-concurrency version mismatch. The caller
// must refetch the preview and retry with the current version.
func StalePreview(previewID string) *AppError {
	return &AppError{
		Type:       StalePreviewError,
		Message:    "Preview was modified concurrently",
		Detail:     fmt.Sprintf("Preview ID: %s; refetch and retry with the current version", previewID),
		HTTPStatus: http.StatusConflict,
	}
}

// ApprovalTransactionFailed wraps any failure during multi-entity creation.
// The whole transaction is rolled back and the error detail is surfaced
// verbatim for user-facing display.
func ApprovalTransactionFailed(err error) *AppError {
	return &AppError{
		Type:       ApprovalTransactionFailedError,
		Message:    "Approval could not be completed",
		Detail:     err.Error(),
		HTTPStatus: http.StatusUnprocessableEntity,
		Raw:        err,
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case DatabaseError:
		return http.StatusInternalServerError
	case ForbiddenError:
		return http.StatusForbidden
	case InvalidStatusTransitionError:
		return http.StatusBadRequest
	case ExtractionUnavailableError:
		return http.StatusServiceUnavailable
	case ValidationConflictError, StalePreviewError:
		return http.StatusConflict
	case ApprovalTransactionFailedError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
