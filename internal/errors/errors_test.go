package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationFault_Creation(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected *Error
	}{
		{
			name: "missing property",
			err:  MissingProperty("uri"),
			expected: &Error{
				Type:    ErrorTypeConfiguration,
				Code:    CodeMissingProperty,
				Field:   "uri",
				Message: "required property is missing",
			},
		},
		{
			name: "builder with details",
			err: NewConfigurationFault(CodeInvalidConfig, "server.port", "validation failed").
				WithDetails("must be at most 65535").
				Build(),
			expected: &Error{
				Type:    ErrorTypeConfiguration,
				Code:    CodeInvalidConfig,
				Field:   "server.port",
				Message: "validation failed",
				Details: "must be at most 65535",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err)
		})
	}
}

func TestError_Message(t *testing.T) {
	err := InvalidProperty("open-in-view", "maybe", errors.New("invalid syntax"))

	assert.Equal(t,
		`[CONFIGURATION:INVALID_PROPERTY] property value cannot be interpreted (field "open-in-view"): got "maybe": invalid syntax`,
		err.Error())
}

func TestIsConfigurationFault(t *testing.T) {
	t.Run("Should detect a wrapped fault", func(t *testing.T) {
		wrapped := fmt.Errorf("resolve driver configuration: %w", MissingProperty("uri"))

		require.True(t, IsConfigurationFault(wrapped))
		assert.Equal(t, "uri", FieldOf(wrapped))
		assert.Equal(t, CodeMissingProperty, CodeOf(wrapped))
	})

	t.Run("Should reject plain errors", func(t *testing.T) {
		err := errors.New("boom")

		assert.False(t, IsConfigurationFault(err))
		assert.Empty(t, FieldOf(err))
		assert.Empty(t, CodeOf(err))
	})

	t.Run("Should expose the cause", func(t *testing.T) {
		cause := errors.New("bad duration")
		err := InvalidProperty("max-transaction-retry-time", "soon", cause)

		assert.ErrorIs(t, err, cause)
	})
}
