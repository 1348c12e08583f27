package errx

// Type represents the category of error
type Type string

const (
	// TypeInternal represents failures inside this process
	TypeInternal Type = "INTERNAL"

	// TypeValidation represents invalid input or configuration
	TypeValidation Type = "VALIDATION"

	// TypeNotFound represents a missing resource
	TypeNotFound Type = "NOT_FOUND"

	// TypeConflict represents a state conflict
	TypeConflict Type = "CONFLICT"

	// TypeExternal represents errors from a backing service (Redis, Postgres, S3)
	TypeExternal Type = "EXTERNAL"

	// TypeUnavailable represents a dependency that is not configured or reachable
	TypeUnavailable Type = "UNAVAILABLE"
)

// String returns the string representation of the error type
func (t Type) String() string {
	return string(t)
}

// HTTPStatus returns the status code suggested for the type
func (t Type) HTTPStatus() int {
	switch t {
	case TypeValidation:
		return 400
	case TypeNotFound:
		return 404
	case TypeConflict:
		return 409
	case TypeExternal:
		return 502
	case TypeUnavailable:
		return 503
	default:
		return 500
	}
}
