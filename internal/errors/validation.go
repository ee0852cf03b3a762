package errors

import "fmt"

// ValidationError represents a validation error with detailed context
type ValidationError struct {
	*BaseError
	Field      string      // field that failed validation
	Value      interface{} // the value that failed validation
	Expected   string      // what was expected
	Actual     string      // what was provided
	Constraint string      // the validation constraint that failed
}

// NewValidationError creates a new validation error
func NewValidationError(field, expected, actual string) *ValidationError {
	message := fmt.Sprintf("validation failed for field '%s': expected %s, got %s", field, expected, actual)

	return &ValidationError{
		BaseError: New(ValidationErrorCode, message),
		Field:     field,
		Expected:  expected,
		Actual:    actual,
	}
}

// NewValidationErrorWithValue creates a validation error with the actual value
func NewValidationErrorWithValue(field string, value interface{}, constraint string) *ValidationError {
	message := fmt.Sprintf("validation failed for field '%s': %s", field, constraint)

	return &ValidationError{
		BaseError:  New(ValidationErrorCode, message),
		Field:      field,
		Value:      value,
		Constraint: constraint,
	}
}

// WithLocation adds location information to the error
func (e *ValidationError) WithLocation(loc SourceLocation) *ValidationError {
	e.BaseError.WithLocation(loc)
	return e
}

// WithSuggestion adds a helpful suggestion
func (e *ValidationError) WithSuggestion(suggestion string) *ValidationError {
	e.BaseError.WithSuggestion(suggestion)
	return e
}

// SyntaxError represents a syntax parsing error in an annotation or type reference
type SyntaxError struct {
	*BaseError
	Input    string // the text being parsed
	Position int    // offset in the input where the error occurred
}

// NewSyntaxError creates a new syntax error
func NewSyntaxError(message string) *SyntaxError {
	return &SyntaxError{
		BaseError: New(SyntaxErrorCode, message),
	}
}

// NewSyntaxErrorWithInput creates a syntax error carrying the offending input
func NewSyntaxErrorWithInput(message, input string, position int) *SyntaxError {
	if input != "" {
		message = fmt.Sprintf("%s (in '%s')", message, input)
	}

	return &SyntaxError{
		BaseError: New(SyntaxErrorCode, message),
		Input:     input,
		Position:  position,
	}
}

// WithLocation adds location information to the error
func (e *SyntaxError) WithLocation(loc SourceLocation) *SyntaxError {
	e.BaseError.WithLocation(loc)
	return e
}

// WithCause adds an underlying error cause
func (e *SyntaxError) WithCause(cause error) *SyntaxError {
	e.BaseError.WithCause(cause)
	return e
}

// ModelError reports a program snapshot that references something it does not define
type ModelError struct {
	*BaseError
	TypeName  string // type being resolved
	Reference string // the reference that could not be satisfied
}

// NewModelError creates a new model error
func NewModelError(typeName, reference, reason string) *ModelError {
	message := fmt.Sprintf("type '%s' references '%s': %s", typeName, reference, reason)

	return &ModelError{
		BaseError: New(ModelErrorCode, message),
		TypeName:  typeName,
		Reference: reference,
	}
}

// WithLocation adds location information to the error
func (e *ModelError) WithLocation(loc SourceLocation) *ModelError {
	e.BaseError.WithLocation(loc)
	return e
}

// WithSuggestion adds a helpful suggestion
func (e *ModelError) WithSuggestion(suggestion string) *ModelError {
	e.BaseError.WithSuggestion(suggestion)
	return e
}

// CancelledError is returned when a resolution run is cancelled before it completes.
// No partial plan accompanies it.
type CancelledError struct {
	*BaseError
	Stage string // pipeline stage that observed the cancellation
}

// NewCancelledError creates a cancellation error for the given stage
func NewCancelledError(stage string, cause error) *CancelledError {
	return &CancelledError{
		BaseError: Wrap(CancelledErrorCode, fmt.Sprintf("resolution cancelled during %s", stage), cause),
		Stage:     stage,
	}
}

// IsCancelled reports whether err is, or wraps, a CancelledError
func IsCancelled(err error) bool {
	var ce *CancelledError
	return As(err, &ce)
}
