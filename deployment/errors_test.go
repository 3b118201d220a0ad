package deployment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatErrorForUser(t *testing.T) {
	tests := []struct {
		name        string
		inputError  error
		expectedMsg string
	}{
		{
			name:        "nil error",
			inputError:  nil,
			expectedMsg: "",
		},
		{
			name:        "unique constraint on name",
			inputError:  errors.New("UNIQUE constraint failed: deployments.name"),
			expectedMsg: "an entry with this name already exists",
		},
		{
			name:        "unique constraint elsewhere",
			inputError:  errors.New("UNIQUE constraint failed: deployments.namespace"),
			expectedMsg: "this entry already exists",
		},
		{
			name:        "record not found",
			inputError:  errors.New("record not found"),
			expectedMsg: "not found",
		},
		{
			name:        "permission denied",
			inputError:  errors.New("permission denied"),
			expectedMsg: "permission denied",
		},
		{
			name:        "timeout",
			inputError:  errors.New("context deadline exceeded: timeout"),
			expectedMsg: "operation timed out",
		},
		{
			name:        "unknown error",
			inputError:  errors.New("some random error"),
			expectedMsg: "an unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, FormatErrorForUser(tt.inputError))
		})
	}
}
