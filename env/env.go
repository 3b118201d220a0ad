// Package env resolves and validates deployment environment variables.
package env

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dxlander/dxlander/domain"
)

// ValidateVarNames checks every key of an environment map against the
// POSIX-style name syntax [A-Za-z_][A-Za-z0-9_]*. Violations are collected,
// not short-circuited. Each invalid key yields exactly one message for the
// first matching reason, checked in a fixed order so messages are
// deterministic: empty name, wildcard, embedded space, leading digit, other
// invalid character.
func ValidateVarNames(envVars map[string]string) []string {
	keys := make([]string, 0, len(envVars))
	for key := range envVars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var messages []string
	for _, key := range keys {
		if msg := validateVarName(key); msg != "" {
			messages = append(messages, msg)
		}
	}
	return messages
}

func validateVarName(name string) string {
	if name == "" {
		return "environment variable name cannot be empty"
	}
	if strings.Contains(name, "*") {
		return fmt.Sprintf("environment variable name %q contains a wildcard character", name)
	}
	if strings.Contains(name, " ") {
		return fmt.Sprintf("environment variable name %q contains a space", name)
	}
	if name[0] >= '0' && name[0] <= '9' {
		return fmt.Sprintf("environment variable name %q starts with a digit", name)
	}
	for _, r := range name {
		if !isNameRune(r) {
			return fmt.Sprintf("environment variable name %q contains invalid character %q", name, r)
		}
	}
	return ""
}

func isNameRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// ExtractPortMappings pulls port mappings out of a resolved environment map.
// Every key whose uppercase form contains "PORT" and whose value parses as an
// integer in [1, 65535] contributes one tcp mapping with identical host and
// container ports. Unparseable or out-of-range values are skipped silently.
// Results are ordered by key so output is stable across runs.
func ExtractPortMappings(envVars map[string]string) []domain.PortMapping {
	keys := make([]string, 0, len(envVars))
	for key := range envVars {
		if strings.Contains(strings.ToUpper(key), "PORT") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var mappings []domain.PortMapping
	for _, key := range keys {
		port, err := strconv.Atoi(strings.TrimSpace(envVars[key]))
		if err != nil || port < 1 || port > 65535 {
			continue
		}
		mappings = append(mappings, domain.PortMapping{
			Host:      port,
			Container: port,
			Protocol:  "tcp",
		})
	}
	return mappings
}
