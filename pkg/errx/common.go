package errx

// Internal creates an internal error
func Internal(message string) *Error {
	return New(message, TypeInternal)
}

// Validation creates a validation error
func Validation(message string) *Error {
	return New(message, TypeValidation)
}

// NotFound creates a not found error
func NotFound(message string) *Error {
	return New(message, TypeNotFound)
}

// External creates an external service error
func External(message string) *Error {
	return New(message, TypeExternal)
}

// Unavailable creates an error for a dependency that cannot be used
func Unavailable(message string) *Error {
	return New(message, TypeUnavailable)
}
