package fn

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-errors"
)

// Text codes attached to the errors produced by this package.
const (
	TextCodeInvalidRetryConfig = "INVALID_RETRY_CONFIG"
	TextCodeInvalidFunction    = "INVALID_FUNCTION"
	TextCodeInvalidArgument    = "INVALID_ARGUMENT"
	TextCodeRetryNoCause       = "RETRY_NO_CAUSE"
)

// ErrRetryNoCause reports that a retry loop ran out of attempts without ever
// recording a failure. Reaching it means the loop itself is broken.
var ErrRetryNoCause = errors.New("retry failed with no captured cause", errors.CategoryInternal).
	WithTextCode(TextCodeRetryNoCause).
	WithSeverity(errors.SeverityCritical)

// IsConfigError reports whether err was caused by invalid adapter configuration.
func IsConfigError(err error) bool {
	return errors.IsCategory(err, errors.CategoryValidation)
}

// HasTextCode reports whether err carries the given text code.
func HasTextCode(err error, code string) bool {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}

func newInvalidFunctionError(message string) *errors.Error {
	return errors.NewValidation(message, errors.FieldError{
		Field:   "fn",
		Message: "must be a non-nil function",
	}).WithTextCode(TextCodeInvalidFunction)
}

func newInvalidArgumentError(position int, arg any, param reflect.Type) *errors.Error {
	return errors.New(
		fmt.Sprintf("argument %d of type %T cannot be used as %s", position, arg, param),
		errors.CategoryBadInput,
	).WithTextCode(TextCodeInvalidArgument).
		WithMetadata(map[string]any{
			"position":  position,
			"parameter": param.String(),
		})
}
