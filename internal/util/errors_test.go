package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            *ConfigError
		expectedString string
	}{
		{
			name:           "with field",
			err:            NewConfigError("route.method", `unsupported method "BREW"`),
			expectedString: `config route.method: unsupported method "BREW"`,
		},
		{
			name:           "without field",
			err:            NewConfigError("", "handler is nil"),
			expectedString: "config: handler is nil",
		},
		{
			name:           "with cause",
			err:            NewConfigErrorWithCause("route", "GET exact:/stats", ErrDuplicateRoute),
			expectedString: "config route: GET exact:/stats",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expectedString, tt.err.Error())
			assert.ErrorIs(t, tt.err, ErrConfigInvalid)
		})
	}
}

func TestConfigError_Is(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("services.api: %w", NewConfigErrorWithCause("route", "dup", ErrDuplicateRoute))

	assert.True(t, errors.Is(err, ErrConfigInvalid))
	assert.True(t, errors.Is(err, ErrDuplicateRoute))
	assert.False(t, errors.Is(err, ErrInvalidBody))

	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "route", cfgErr.Field)

	assert.False(t, errors.Is(NewConfigError("f", "m"), ErrDuplicateRoute))
}

func TestBodyError(t *testing.T) {
	t.Parallel()

	empty := NewBodyError(ErrEmptyBody)
	assert.Equal(t, "invalid request body: empty request body", empty.Error())
	assert.ErrorIs(t, empty, ErrInvalidBody)
	assert.ErrorIs(t, empty, ErrEmptyBody)
	assert.False(t, errors.Is(empty, ErrConfigInvalid))

	syntax := NewBodyError(errors.New("unexpected end of JSON input"))
	assert.ErrorIs(t, syntax, ErrInvalidBody)
	assert.False(t, errors.Is(syntax, ErrEmptyBody))

	assert.Equal(t, "invalid request body", (&BodyError{}).Error())
}
