package pkgmgr

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestName is the project manifest file, kept at the project root.
const ManifestName = "clarity.yaml"

// ModulesDir is where installed dependencies are placed, one directory
// per package, so `import "clarity_modules/name/..."` resolves.
const ModulesDir = "clarity_modules"

// Manifest models clarity.yaml.
type Manifest struct {
	Name         string                    `yaml:"name"`
	Version      string                    `yaml:"version"`
	Dependencies map[string]DependencySpec `yaml:"dependencies,omitempty"`

	path string
}

// DependencySpec names one dependency source: a git URL (optionally
// pinned to a tag) or a local path. Exactly one of Git or Path is set.
type DependencySpec struct {
	Git  string `yaml:"git,omitempty"`
	Tag  string `yaml:"tag,omitempty"`
	Path string `yaml:"path,omitempty"`
}

func (s DependencySpec) validate(name string) error {
	hasGit := strings.TrimSpace(s.Git) != ""
	hasPath := strings.TrimSpace(s.Path) != ""
	if hasGit == hasPath {
		return fmt.Errorf("dependency %q: exactly one of git or path is required", name)
	}
	if !hasGit && strings.TrimSpace(s.Tag) != "" {
		return fmt.Errorf("dependency %q: tag only applies to git sources", name)
	}
	return nil
}

// NewManifest seeds a manifest for `pkg init`.
func NewManifest(name string) *Manifest {
	return &Manifest{
		Name:         sanitizeName(name),
		Version:      "0.1.0",
		Dependencies: map[string]DependencySpec{},
	}
}

// LoadManifest reads clarity.yaml from a project directory.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	if strings.TrimSpace(m.Name) == "" {
		return nil, fmt.Errorf("manifest: %s is missing a name", path)
	}
	if m.Dependencies == nil {
		m.Dependencies = map[string]DependencySpec{}
	}
	for name, spec := range m.Dependencies {
		if err := spec.validate(name); err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
	}
	m.path = path
	return &m, nil
}

// Save writes the manifest back to its project directory.
func (m *Manifest) Save(dir string) error {
	path := filepath.Join(dir, ManifestName)
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	m.path = path
	return nil
}

// DependencyNames returns the dependency names in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "package"
	}
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
