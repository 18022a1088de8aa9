// Package errors provides the structured error types used across txtof.
//
// Fatal problems (unreadable or malformed template configuration, template
// execution failures, I/O) are reported as *TxtofError values. Malformed
// markup never aborts a run; the scanner records it as a Diagnostic in a
// Collector instead.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeTemplate ErrorType = "template"
	ErrorTypeInput    ErrorType = "input"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeInternal ErrorType = "internal"
)

// TxtofError is a structured error type with context.
type TxtofError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Slot        string
	FilePath    string
	Line        int
	Column      int
	Recoverable bool
}

// Error implements the error interface.
func (e *TxtofError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Slot != "" {
		parts = append(parts, "slot:"+e.Slot)
	}

	if e.FilePath != "" || e.Line > 0 {
		location := e.FilePath
		if location == "" {
			location = "line"
		}
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
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
func (e *TxtofError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *TxtofError) Is(target error) bool {
	var t *TxtofError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *TxtofError) WithContext(key string, value interface{}) *TxtofError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *TxtofError) WithLocation(filePath string, line, column int) *TxtofError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithSlot names the template slot the error belongs to.
func (e *TxtofError) WithSlot(slot string) *TxtofError {
	e.Slot = slot

	return e
}

// Error creation functions

// NewConfigError creates a configuration error. Configuration errors abort
// the run before any output is produced.
func NewConfigError(code, message string, cause error) *TxtofError {
	return &TxtofError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewTemplateError creates a template execution error.
func NewTemplateError(code, message string, cause error) *TxtofError {
	return &TxtofError{
		Type:        ErrorTypeTemplate,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewInputError creates a malformed-markup error.
func NewInputError(code, message string) *TxtofError {
	return &TxtofError{
		Type:        ErrorTypeInput,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *TxtofError {
	return &TxtofError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *TxtofError {
	return &TxtofError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var te *TxtofError
	if errors.As(err, &te) {
		return te.Recoverable
	}

	return false
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	return isType(err, ErrorTypeConfig)
}

// IsTemplateError checks if an error happened while executing a template.
func IsTemplateError(err error) bool {
	return isType(err, ErrorTypeTemplate)
}

// IsInputError checks if an error describes malformed markup.
func IsInputError(err error) bool {
	return isType(err, ErrorTypeInput)
}

func isType(err error, t ErrorType) bool {
	var te *TxtofError
	if errors.As(err, &te) {
		return te.Type == t
	}

	return false
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level matching its type.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var te *TxtofError
	if !errors.As(err, &te) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch te.Type {
	case ErrorTypeInput:
		h.logger.Warn(ctx, err, "Malformed markup",
			"code", te.Code,
			"line", te.Line,
			"column", te.Column)
	case ErrorTypeConfig:
		h.logger.Error(ctx, err, "Invalid template configuration",
			"code", te.Code,
			"slot", te.Slot,
			"file", te.FilePath)
	default:
		h.logger.Error(ctx, err, "Error occurred",
			"type", te.Type,
			"code", te.Code)
	}
}

// Common error codes.
const (
	ErrCodeTemplateSource = "ERR_TEMPLATE_SOURCE"
	ErrCodeTemplateSlots  = "ERR_TEMPLATE_SLOTS"
	ErrCodeTemplateParse  = "ERR_TEMPLATE_PARSE"
	ErrCodeTemplateExec   = "ERR_TEMPLATE_EXEC"
	ErrCodeUnknownSlot    = "ERR_UNKNOWN_SLOT"
	ErrCodeUnterminated   = "ERR_UNTERMINATED_ANNOTATION"
	ErrCodeReadInput      = "ERR_READ_INPUT"
	ErrCodeWriteOutput    = "ERR_WRITE_OUTPUT"
	ErrCodeConfigInvalid  = "ERR_CONFIG_INVALID"
	ErrCodeInternalError  = "ERR_INTERNAL"
)

// Helper functions for common errors

// ErrUnknownSlot reports a keyed template source naming a slot that does not exist.
func ErrUnknownSlot(slot string) *TxtofError {
	return NewConfigError(ErrCodeUnknownSlot, "unknown template slot", nil).WithSlot(slot)
}

// ErrTooManySlots reports a positional template source with more fields than slots.
func ErrTooManySlots(got, max int) *TxtofError {
	return NewConfigError(
		ErrCodeTemplateSlots,
		fmt.Sprintf("template source has %d fields, at most %d are allowed", got, max),
		nil,
	)
}

// ErrUnterminated reports an annotation that was still open at end of line.
func ErrUnterminated(opener rune, line, column int) *TxtofError {
	return NewInputError(
		ErrCodeUnterminated,
		fmt.Sprintf("annotation opened with %q is not closed before end of line", opener),
	).WithLocation("", line, column)
}
