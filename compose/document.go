// Package compose parses, rewrites, and validates compose documents.
package compose

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dxlander/dxlander/domain"
)

// Document is a parsed compose file. The underlying yaml tree is kept intact
// so key order and scalar formatting survive a parse/mutate/marshal cycle.
type Document struct {
	root *yaml.Node
}

// ParseDocument parses compose YAML. The top level must be a mapping.
func ParseDocument(content []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("failed to parse compose document: %w", err)
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("compose document is empty")
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("compose document root must be a mapping")
	}

	return &Document{root: &root}, nil
}

// Marshal serializes the document with two-space indentation and no line
// wrapping, so long values (connection strings, command lines) are never
// broken across lines.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.root.Content[0]); err != nil {
		return nil, fmt.Errorf("failed to serialize compose document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to serialize compose document: %w", err)
	}
	return buf.Bytes(), nil
}

// ServiceNames returns service names in document order.
func (d *Document) ServiceNames() []string {
	services := mappingValue(d.root.Content[0], "services")
	if services == nil || services.Kind != yaml.MappingNode {
		return nil
	}

	names := make([]string, 0, len(services.Content)/2)
	for i := 0; i < len(services.Content); i += 2 {
		names = append(names, services.Content[i].Value)
	}
	return names
}

// PrimaryService identifies the service that must survive pruning: the one
// literally named "app" if present, otherwise the first service with a build
// directive, otherwise the first service in document order. Returns "" for a
// document with no services.
func (d *Document) PrimaryService() string {
	services := mappingValue(d.root.Content[0], "services")
	if services == nil || services.Kind != yaml.MappingNode || len(services.Content) == 0 {
		return ""
	}

	var firstWithBuild string
	for i := 0; i < len(services.Content); i += 2 {
		name := services.Content[i].Value
		if name == "app" {
			return "app"
		}
		definition := services.Content[i+1]
		if firstWithBuild == "" && definition.Kind == yaml.MappingNode && mappingValue(definition, "build") != nil {
			firstWithBuild = name
		}
	}
	if firstWithBuild != "" {
		return firstWithBuild
	}
	return services.Content[0].Value
}

// PruneExternalServices removes compose services whose declaration carries
// source mode external or none, cleans the primary service's depends_on, and
// drops top-level volumes no remaining service references. The primary
// service is never removed regardless of its declared mode. Returns the names
// of removed services in removal order.
func (d *Document) PruneExternalServices(declarations []domain.ServiceDeclaration) []string {
	rootMap := d.root.Content[0]
	services := mappingValue(rootMap, "services")
	if services == nil || services.Kind != yaml.MappingNode {
		return nil
	}

	primary := d.PrimaryService()

	var removed []string
	for _, declaration := range declarations {
		if declaration.SourceMode != domain.SourceModeExternal && declaration.SourceMode != domain.SourceModeNone {
			continue
		}
		name := declaration.ComposeServiceName
		if name == "" || name == primary {
			continue
		}
		if mappingValue(services, name) == nil {
			continue
		}

		mappingDelete(services, name)
		removeDependency(mappingValue(services, primary), name)
		removed = append(removed, name)
	}

	// An emptied depends_on key is dropped entirely
	if primaryDef := mappingValue(services, primary); primaryDef != nil && primaryDef.Kind == yaml.MappingNode {
		if deps := mappingValue(primaryDef, "depends_on"); deps != nil && len(deps.Content) == 0 {
			mappingDelete(primaryDef, "depends_on")
		}
	}

	d.pruneVolumes()

	return removed
}

// pruneVolumes deletes every top-level named volume that no remaining
// service's mounts reference.
func (d *Document) pruneVolumes() {
	rootMap := d.root.Content[0]
	volumes := mappingValue(rootMap, "volumes")
	if volumes == nil || volumes.Kind != yaml.MappingNode {
		return
	}

	referenced := d.referencedVolumeSources()

	for i := 0; i < len(volumes.Content); i += 2 {
		name := volumes.Content[i].Value
		if !referenced[name] {
			mappingDelete(volumes, name)
			i -= 2
		}
	}

	if len(volumes.Content) == 0 {
		mappingDelete(rootMap, "volumes")
	}
}

// referencedVolumeSources collects the mount-source segment of every volume
// mount across all services. For short syntax that is the part before the
// first ":", for long syntax the "source" field.
func (d *Document) referencedVolumeSources() map[string]bool {
	referenced := make(map[string]bool)

	services := mappingValue(d.root.Content[0], "services")
	if services == nil || services.Kind != yaml.MappingNode {
		return referenced
	}

	for i := 1; i < len(services.Content); i += 2 {
		definition := services.Content[i]
		if definition.Kind != yaml.MappingNode {
			continue
		}
		mounts := mappingValue(definition, "volumes")
		if mounts == nil || mounts.Kind != yaml.SequenceNode {
			continue
		}
		for _, mount := range mounts.Content {
			switch mount.Kind {
			case yaml.ScalarNode:
				source, _, _ := strings.Cut(mount.Value, ":")
				if source != "" {
					referenced[source] = true
				}
			case yaml.MappingNode:
				if source := mappingValue(mount, "source"); source != nil {
					referenced[source.Value] = true
				}
			}
		}
	}
	return referenced
}

// removeDependency drops a service name from a depends_on declaration,
// handling both the list form and the map form.
func removeDependency(serviceDef *yaml.Node, name string) {
	if serviceDef == nil || serviceDef.Kind != yaml.MappingNode {
		return
	}
	deps := mappingValue(serviceDef, "depends_on")
	if deps == nil {
		return
	}

	switch deps.Kind {
	case yaml.SequenceNode:
		for i, item := range deps.Content {
			if item.Value == name {
				deps.Content = append(deps.Content[:i], deps.Content[i+1:]...)
				break
			}
		}
	case yaml.MappingNode:
		mappingDelete(deps, name)
	}
}

// ServiceImage returns the image reference a service pins, or "" when the
// service has no image key (build-only services).
func (d *Document) ServiceImage(name string) string {
	services := mappingValue(d.root.Content[0], "services")
	definition := mappingValue(services, name)
	if definition == nil || definition.Kind != yaml.MappingNode {
		return ""
	}
	if image := mappingValue(definition, "image"); image != nil && image.Kind == yaml.ScalarNode {
		return image.Value
	}
	return ""
}

// ServiceHasBuild reports whether a service carries a build directive.
func (d *Document) ServiceHasBuild(name string) bool {
	services := mappingValue(d.root.Content[0], "services")
	definition := mappingValue(services, name)
	if definition == nil || definition.Kind != yaml.MappingNode {
		return false
	}
	return mappingValue(definition, "build") != nil
}

// yaml.Node mapping helpers. Mapping content alternates key, value.

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func mappingDelete(mapping *yaml.Node, key string) {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content = append(mapping.Content[:i], mapping.Content[i+2:]...)
			return
		}
	}
}
