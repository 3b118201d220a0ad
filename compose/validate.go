package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// Validate runs structural compose validation over raw YAML without touching
// the filesystem. Used both on config-set uploads and on rewritten documents
// after service pruning.
func Validate(content []byte) error {
	if strings.TrimSpace(string(content)) == "" {
		return fmt.Errorf("compose document is empty")
	}

	// Parse YAML into a map first so syntax errors surface before compose
	// semantics are checked
	var dict map[string]interface{}
	if err := yaml.Unmarshal(content, &dict); err != nil {
		return fmt.Errorf("invalid YAML syntax: %w", err)
	}
	if dict == nil {
		return fmt.Errorf("compose document is empty")
	}

	_, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: content,
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("dxlander-validate", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = true // env interpolation happens at deploy time, not here
		// Don't resolve paths since we're in-memory
		opts.SkipNormalization = true
		opts.SkipExtends = true // Don't try to load external files
	})
	if err != nil {
		return fmt.Errorf("compose validation failed: %w", err)
	}

	if len(dict) == 0 {
		return fmt.Errorf("compose document has no content")
	}
	services, ok := dict["services"].(map[string]interface{})
	if !ok || len(services) == 0 {
		return fmt.Errorf("compose document defines no services")
	}

	return nil
}
