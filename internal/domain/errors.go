package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeInvalidConfiguration = "INVALID_CONFIGURATION"
	ErrCodeInvalidArgument      = "INVALID_ARGUMENT"
	ErrCodeExtractionFailure    = "EXTRACTION_FAILURE"
	ErrCodeEmbeddingFailure     = "EMBEDDING_FAILURE"
	ErrCodeIndexUnavailable     = "INDEX_UNAVAILABLE"
	ErrCodeInvalidCompletion    = "INVALID_COMPLETION"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidDocumentType  = NewDomainError(ErrCodeValidation, "invalid document type")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrSessionNotFound  = NewDomainError(ErrCodeNotFound, "session not found")
	ErrHTMLNotFound     = NewDomainError(ErrCodeNotFound, "no html page stored for session")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)
