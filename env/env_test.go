package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxlander/dxlander/domain"
)

func TestValidateVarNames(t *testing.T) {
	envVars := map[string]string{
		"":         "a",
		"2X":       "b",
		"A*B":      "c",
		"A B":      "d",
		"_valid_1": "e",
	}

	messages := ValidateVarNames(envVars)
	require.Len(t, messages, 4)

	joined := ""
	for _, msg := range messages {
		joined += msg + "\n"
	}
	assert.Contains(t, joined, "cannot be empty")
	assert.Contains(t, joined, "starts with a digit")
	assert.Contains(t, joined, "wildcard")
	assert.Contains(t, joined, "space")
	assert.NotContains(t, joined, "_valid_1")
}

func TestValidateVarNames_ReasonPriority(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{name: "wildcard beats space", key: "A* B", expected: "wildcard"},
		{name: "space beats leading digit", key: "2 X", expected: "space"},
		{name: "leading digit beats other invalid", key: "2-X", expected: "starts with a digit"},
		{name: "other invalid character", key: "A-B", expected: "invalid character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := ValidateVarNames(map[string]string{tt.key: "v"})
			require.Len(t, messages, 1)
			assert.Contains(t, messages[0], tt.expected)
		})
	}
}

func TestValidateVarNames_AllValid(t *testing.T) {
	envVars := map[string]string{
		"DATABASE_URL": "postgres://localhost",
		"_PRIVATE":     "x",
		"Port8080":     "y",
	}
	assert.Empty(t, ValidateVarNames(envVars))
}

func TestExtractPortMappings(t *testing.T) {
	envVars := map[string]string{
		"PORT":     "3000",
		"DB_PORT":  "5432",
		"NAME":     "notaport",
		"BAD_PORT": "99999",
	}

	mappings := ExtractPortMappings(envVars)
	assert.Equal(t, []domain.PortMapping{
		{Host: 5432, Container: 5432, Protocol: "tcp"},
		{Host: 3000, Container: 3000, Protocol: "tcp"},
	}, mappings)
}

func TestExtractPortMappings_Boundaries(t *testing.T) {
	envVars := map[string]string{
		"A_PORT": "1",
		"B_PORT": "65535",
		"C_PORT": "0",
		"D_PORT": "65536",
		"E_PORT": "-1",
		"F_PORT": "",
	}

	mappings := ExtractPortMappings(envVars)
	require.Len(t, mappings, 2)
	assert.Equal(t, 1, mappings[0].Host)
	assert.Equal(t, 65535, mappings[1].Host)
}

func TestExtractPortMappings_CaseInsensitiveKeyMatch(t *testing.T) {
	envVars := map[string]string{
		"redis_port": "6379",
		"VERBOSE":    "1",
	}

	mappings := ExtractPortMappings(envVars)
	require.Len(t, mappings, 1)
	assert.Equal(t, 6379, mappings[0].Container)
	assert.Equal(t, "tcp", mappings[0].Protocol)
}

func TestExtractPortMappings_Empty(t *testing.T) {
	assert.Empty(t, ExtractPortMappings(nil))
	assert.Empty(t, ExtractPortMappings(map[string]string{"NAME": "x"}))
}
