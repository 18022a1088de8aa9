package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a TxtofError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *TxtofError {
	if err == nil {
		return nil
	}

	// Keep the location of an existing TxtofError so the outer message still points at it
	var te *TxtofError
	if errors.As(err, &te) {
		return &TxtofError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       te,
			Context:     te.Context,
			Slot:        te.Slot,
			FilePath:    te.FilePath,
			Line:        te.Line,
			Column:      te.Column,
			Recoverable: te.Recoverable && errType == ErrorTypeInput,
		}
	}

	return &TxtofError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeInput,
	}
}

// WrapConfig wraps an error as a configuration error for a template source file
func WrapConfig(err error, code, message, filePath string) *TxtofError {
	templErr := Wrap(err, ErrorTypeConfig, code, message)
	if templErr != nil && templErr.FilePath == "" {
		templErr.FilePath = filePath
	}
	return templErr
}

// WrapTemplate wraps a template engine error with the slot it came from
func WrapTemplate(err error, code, message, slot string) *TxtofError {
	templErr := Wrap(err, ErrorTypeTemplate, code, message)
	if templErr != nil {
		templErr.Slot = slot
	}
	return templErr
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *TxtofError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// GetErrorCode extracts the error code from a TxtofError, or returns empty string
func GetErrorCode(err error) string {
	var te *TxtofError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
