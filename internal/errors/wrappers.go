package errors

import (
	stderrors "errors"
	"fmt"
)

// Common error wrapping patterns used throughout the codebase

// WrapWithOperation wraps an error with an operation context
func WrapWithOperation(operation, item string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s %s", operation, item)
	return Wrap(UnknownErrorCode, message, cause)
}

// WrapParseError wraps an error with a "failed to parse" message
func WrapParseError(item string, cause error) *SyntaxError {
	message := fmt.Sprintf("failed to parse %s", item)
	return &SyntaxError{
		BaseError: Wrap(SyntaxErrorCode, message, cause),
		Input:     item,
	}
}

// WrapFileSystemError wraps file system related errors
func WrapFileSystemError(operation, path string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s file '%s'", operation, path)
	return Wrap(FileSystemErrorCode, message, cause).
		WithContext("operation", operation).
		WithContext("path", path)
}

// WrapConfigurationError wraps configuration-related errors
func WrapConfigurationError(configType, operation string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s configuration '%s'", operation, configType)
	return Wrap(ConfigurationErrorCode, message, cause).
		WithContext("config_type", configType).
		WithContext("operation", operation)
}

// WrapModelError wraps errors raised while building or loading a program model
func WrapModelError(source string, cause error) *BaseError {
	message := fmt.Sprintf("failed to build program model from '%s'", source)
	return Wrap(ModelErrorCode, message, cause).
		WithContext("source", source)
}

// As is errors.As re-exported so callers need a single errors import
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Is is errors.Is re-exported so callers need a single errors import
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Unwrap is errors.Unwrap re-exported
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// CodeOf returns the ErrorCode carried by err, or UnknownErrorCode
func CodeOf(err error) ErrorCode {
	var pe PlanError
	if As(err, &pe) {
		return pe.ErrorCode()
	}
	return UnknownErrorCode
}
