package install

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestFile is the conventional manifest filename.
const ManifestFile = "package.json"

// Manifest models the subset of package.json this tool reads and writes.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description,omitempty"`
	Main            string            `json:"main,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the manifest to path as indented JSON with a trailing newline.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// AddDependency records name at the caret range of version, creating the
// dependency map if needed.
func (m *Manifest) AddDependency(name, version string) {
	if m.Dependencies == nil {
		m.Dependencies = make(map[string]string)
	}
	m.Dependencies[name] = "^" + version
}

// InitManifest creates a fresh manifest in dir, named after the directory.
// It refuses to overwrite an existing manifest.
func InitManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%s already exists", path)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Name:    filepath.Base(abs),
		Version: "1.0.0",
		Main:    "index.js",
	}
	if err := m.Save(path); err != nil {
		return nil, err
	}
	return m, nil
}
