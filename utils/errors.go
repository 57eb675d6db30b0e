package utils

import (
	"github.com/pkg/errors"
)

// NewConfigValidationError returns an error specifying that there was an error validating the
// configuration at path.
func NewConfigValidationError(path string, err error) error {
	return errors.Wrapf(err, "error validating %q", path)
}

// NewConfigValidationFieldRequiredError returns an error specifying that a field is required.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}

// NewConfigValidationFieldRangeError returns an error specifying that a field is out of range.
func NewConfigValidationFieldRangeError(path, field string, value interface{}, want string) error {
	return NewConfigValidationError(path, errors.Errorf("%q must be %s, got %v", field, want, value))
}
