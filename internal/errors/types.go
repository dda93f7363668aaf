package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeDiscovery  ErrorType = "discovery"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeBundle     ErrorType = "bundle"
	ErrorTypeInclude    ErrorType = "include"
	ErrorTypeBudget     ErrorType = "budget"
	ErrorTypeInternal   ErrorType = "internal"
)

// LandingError is a structured error type with context.
type LandingError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Page        string
	FilePath    string
	Line        int
	Recoverable bool
}

// Error implements the error interface.
func (e *LandingError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Page != "" {
		parts = append(parts, "page:"+e.Page)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *LandingError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code, so sentinel values declared with the
// same pair compare equal to their contextualized copies.
func (e *LandingError) Is(target error) bool {
	var t *LandingError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *LandingError) WithContext(key string, value interface{}) *LandingError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *LandingError) WithLocation(filePath string, line int) *LandingError {
	e.FilePath = filePath
	e.Line = line

	return e
}

// WithPage records the page the error belongs to.
func (e *LandingError) WithPage(page string) *LandingError {
	e.Page = page

	return e
}

// WithCause attaches an underlying error.
func (e *LandingError) WithCause(cause error) *LandingError {
	e.Cause = cause

	return e
}

// Error creation functions

// NewDiscoveryError creates an error for a malformed source tree. These are
// never recoverable: a page directory that breaks the convention aborts the build.
func NewDiscoveryError(code, message string) *LandingError {
	return &LandingError{
		Type:        ErrorTypeDiscovery,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string, cause error) *LandingError {
	return &LandingError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *LandingError {
	return &LandingError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewIOError wraps a filesystem failure.
func NewIOError(code, path string, cause error) *LandingError {
	return &LandingError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     "filesystem operation failed",
		Cause:       cause,
		FilePath:    path,
		Recoverable: false,
	}
}

// NewBundleError creates an error reported by the bundler.
func NewBundleError(code, message string) *LandingError {
	return &LandingError{
		Type:        ErrorTypeBundle,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewIncludeError creates a partial inclusion error. Include failures are
// isolated to a single page, so they are marked recoverable.
func NewIncludeError(code, message string) *LandingError {
	return &LandingError{
		Type:        ErrorTypeInclude,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewBudgetError creates a size budget violation.
func NewBudgetError(code, message string) *LandingError {
	return &LandingError{
		Type:        ErrorTypeBudget,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// Utility functions

func asLandingError(err error) (*LandingError, bool) {
	var le *LandingError
	ok := errors.As(err, &le)
	return le, ok
}

// IsRecoverable reports whether err is a LandingError marked recoverable.
func IsRecoverable(err error) bool {
	var le *LandingError
	if errors.As(err, &le) {
		return le.Recoverable
	}

	return false
}

// GetErrorType returns the type of err, or ErrorTypeInternal for foreign errors.
func GetErrorType(err error) ErrorType {
	var le *LandingError
	if errors.As(err, &le) {
		return le.Type
	}

	return ErrorTypeInternal
}
