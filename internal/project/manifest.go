// Package project reads the hotdelta.toml manifest: the compilations of a
// repository, their source roots, and the symbol facts the declaration model
// cannot infer on its own.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"hotdelta/internal/decl"
	"hotdelta/internal/rude"
)

// ManifestFile is the default manifest filename
const ManifestFile = "hotdelta.toml"

// Compilation is one independently reloaded assembly.
type Compilation struct {
	// Name labels the compilation in reports
	Name string `toml:"name"`

	// Sources are root-relative directories or files holding its documents
	Sources []string `toml:"sources"`

	// Exclude are gitignore-style patterns applied on top of .gitignore
	Exclude []string `toml:"exclude,omitempty"`

	// Reloadable names types replaced as a whole on every edit, by display
	// name, in addition to types carrying the reloadable attribute
	Reloadable []string `toml:"reloadable,omitempty"`

	// ValueTypes names user structs, so "T?" erases to Nullable<T>
	ValueTypes []string `toml:"value_types,omitempty"`
}

// Manifest represents the root structure of hotdelta.toml
type Manifest struct {
	// Version is the schema version
	Version int `toml:"version"`

	// Profile is the capability profile used when none is given on the
	// command line
	Profile string `toml:"profile,omitempty"`

	// Compilations are analyzed independently
	Compilations []Compilation `toml:"compilation"`
}

// ParseManifest parses a manifest file from the given path
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ManifestFile, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFile, err)
	}
	if m.Version < 1 {
		m.Version = 1
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifest loads root/hotdelta.toml. It returns nil without error when
// the file does not exist.
func LoadManifest(root string) (*Manifest, error) {
	path := filepath.Join(root, ManifestFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return ParseManifest(path)
}

// Validate checks required fields and name uniqueness.
func (m *Manifest) Validate() error {
	seen := map[string]bool{}
	for i, c := range m.Compilations {
		if c.Name == "" {
			return fmt.Errorf("compilation %d is missing required 'name' field", i+1)
		}
		if seen[c.Name] {
			return fmt.Errorf("compilation %q declared twice", c.Name)
		}
		seen[c.Name] = true
		if len(c.Sources) == 0 {
			return fmt.Errorf("compilation %q has no sources", c.Name)
		}
	}
	return nil
}

// Compilation returns the named compilation.
func (m *Manifest) Compilation(name string) (Compilation, bool) {
	for _, c := range m.Compilations {
		if c.Name == name {
			return c, true
		}
	}
	return Compilation{}, false
}

// Model returns the symbol model of the compilation.
func (c Compilation) Model() rude.DefaultModel {
	m := rude.DefaultModel{}
	if len(c.ValueTypes) > 0 {
		vt := make(map[string]bool, len(c.ValueTypes))
		for _, t := range c.ValueTypes {
			vt[t] = true
		}
		m.Eraser = decl.DefaultEraser{ValueTypes: vt}
	}
	if len(c.Reloadable) > 0 {
		m.Reloadable = make(map[string]bool, len(c.Reloadable))
		for _, t := range c.Reloadable {
			m.Reloadable[t] = true
		}
	}
	return m
}

// SourcePaths returns the absolute source roots of the compilation.
func (c Compilation) SourcePaths(root string) []string {
	out := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		if filepath.IsAbs(s) {
			out = append(out, s)
			continue
		}
		out = append(out, filepath.Join(root, s))
	}
	return out
}

// WriteManifest writes a manifest to the given path
func WriteManifest(path string, m *Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", ManifestFile, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ManifestFile, err)
	}
	return nil
}

// ExampleManifest returns the manifest written by "hotdelta init".
func ExampleManifest() *Manifest {
	return &Manifest{
		Version: 1,
		Profile: "net8",
		Compilations: []Compilation{
			{
				Name:    "app",
				Sources: []string{"src"},
				Exclude: []string{"**/obj/", "**/bin/"},
			},
		},
	}
}
