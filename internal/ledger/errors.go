package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Violation is one field-level validation failure.
type Violation struct {
	// Field is the dotted path of the offending field, e.g. "items[1].cost".
	Field string `json:"field"`

	// Message describes what is wrong with the field.
	Message string `json:"message"`
}

// ValidationError reports input that was rejected before touching the ledger.
// Unparsable cutoff dates are reported as validation errors too.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		if v.Field == "" {
			parts[i] = v.Message
			continue
		}
		parts[i] = v.Field + ": " + v.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError creates a ValidationError with a single violation.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Violations: []Violation{{Field: field, Message: fmt.Sprintf(format, args...)}},
	}
}

// ErrOverflow is returned when a tax total does not fit in int64 minor units.
var ErrOverflow = errors.New("tax total overflows int64")

// StorageError wraps a failure of the underlying store. The ledger never
// retries; the caller decides what to do.
type StorageError struct {
	// Op names the store operation that failed ("append", "snapshot", ...).
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying store error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorageError returns true if err is or wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// storageError wraps err unless it already carries a StorageError.
func storageError(op string, err error) error {
	if IsStorageError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// violations accumulates validation failures for one call.
type violations []Violation

func (v *violations) add(field, format string, args ...any) {
	*v = append(*v, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

// err returns nil when nothing was recorded.
func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Violations: v}
}
