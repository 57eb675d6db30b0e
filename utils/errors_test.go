package utils

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestConfigValidationErrors(t *testing.T) {
	err := NewConfigValidationFieldRequiredError("config.json", "window_name")
	test.That(t, err.Error(), test.ShouldEqual, `error validating "config.json": "window_name" is required`)

	err = NewConfigValidationFieldRangeError("config.json", "tag_size_m", -1.0, "positive")
	test.That(t, err.Error(), test.ShouldEqual, `error validating "config.json": "tag_size_m" must be positive, got -1`)

	cause := errors.New("boom")
	err = NewConfigValidationError("flags", cause)
	test.That(t, errors.Is(err, cause), test.ShouldBeTrue)
}
