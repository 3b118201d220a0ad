package domain

import "fmt"

// SourceMode controls whether a logical backing service's compose entry is
// built locally or expected to be supplied externally.
type SourceMode string

const (
	// SourceModeProvision keeps the compose-generated service and builds its container.
	SourceModeProvision SourceMode = "provision"
	// SourceModeExternal removes the compose service; the user supplies
	// connection details via environment variables instead.
	SourceModeExternal SourceMode = "external"
	// SourceModeNone removes the compose service with no replacement.
	SourceModeNone SourceMode = "none"
)

// String implements the Stringer interface
func (m SourceMode) String() string {
	return string(m)
}

// IsValid checks if the SourceMode is valid
func (m SourceMode) IsValid() bool {
	switch m {
	case SourceModeProvision, SourceModeExternal, SourceModeNone:
		return true
	default:
		return false
	}
}

// ParseSourceMode parses a string into a SourceMode
func ParseSourceMode(s string) (SourceMode, error) {
	mode := SourceMode(s)
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid source mode: %q", s)
	}
	return mode, nil
}

// ServiceDeclaration describes one logical backing service (e.g. "database")
// inside a config set and how it maps onto the compose document.
type ServiceDeclaration struct {
	Name               string
	ComposeServiceName string
	SourceMode         SourceMode
	RequiredEnvVars    []string
}
