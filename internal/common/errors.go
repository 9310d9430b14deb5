package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")

	// ErrDocumentOpen is fatal for one document: the container could not be opened.
	ErrDocumentOpen = errors.New("document could not be opened")
	// ErrPageExtraction is recovered per page (the page text becomes empty).
	ErrPageExtraction = errors.New("page extraction failed")
	// ErrInvalidQuery rejects a query before any work is scheduled.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNoMatchFound is a normal terminal outcome, not a defect.
	ErrNoMatchFound = errors.New("no match found")
	// ErrDeliveryFailure means downstream posting exhausted its retries.
	ErrDeliveryFailure = errors.New("result delivery failed")
	// ErrNoFiles is reported when a batch run finds nothing to extract.
	ErrNoFiles = errors.New("no files to extract")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// InvalidQueryf builds an ErrInvalidQuery with a reason.
func InvalidQueryf(format string, args ...interface{}) error {
	return NewAppError("INVALID_QUERY", fmt.Sprintf(format, args...), ErrInvalidQuery)
}

// DocumentOpenError reports a document whose container could not be read at all.
type DocumentOpenError struct {
	DocumentID string
	Cause      error
}

func (e *DocumentOpenError) Error() string {
	return fmt.Sprintf("open document %q: %v", e.DocumentID, e.Cause)
}

func (e *DocumentOpenError) Unwrap() error { return e.Cause }

func (e *DocumentOpenError) Is(target error) bool { return target == ErrDocumentOpen }

// PageError reports a single page that could not be extracted.
type PageError struct {
	DocumentID string
	Page       int // 1-based
	Cause      error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("document %q page %d: %v", e.DocumentID, e.Page, e.Cause)
}

func (e *PageError) Unwrap() error { return e.Cause }

func (e *PageError) Is(target error) bool { return target == ErrPageExtraction }

// NoMatchError carries the original query for diagnostics.
type NoMatchError struct {
	Query fmt.Stringer
}

func (e *NoMatchError) Error() string {
	if e.Query == nil {
		return ErrNoMatchFound.Error()
	}
	return fmt.Sprintf("no value matching with the keyword: '%s'", e.Query.String())
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatchFound }

// GRPCCode classifies err for gRPC boundaries.
func GRPCCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, ErrNoMatchFound), errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrDocumentOpen), errors.Is(err, ErrNoFiles):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// HTTPStatus classifies err for HTTP boundaries.
func HTTPStatus(err error) int {
	switch GRPCCode(err) {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
