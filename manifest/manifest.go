// Package manifest handles avmcore.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/avmcore/vm"
)

// FileName is the name of the project manifest.
const FileName = "avmcore.toml"

// Manifest represents an avmcore.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Runtime RuntimeConfig `toml:"runtime"`
	Classes Classes       `toml:"classes"`
	Image   ImageConfig   `toml:"image"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the avmcore.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
	// Namespace is the package URI for classes that do not name one.
	Namespace string `toml:"namespace"`
	Version   string `toml:"version"`
}

// RuntimeConfig configures the object model.
type RuntimeConfig struct {
	StrictSealed bool `toml:"strict-sealed"`
}

// Classes configures class declaration locations.
type Classes struct {
	Dirs []string `toml:"dirs"`
}

// ImageConfig configures snapshot storage.
type ImageConfig struct {
	Database string `toml:"database"`
	Lock     string `toml:"lock"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Load parses an avmcore.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest text and applies defaults. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := decodeStrict(data, &m); err != nil {
		return nil, err
	}
	if IsReservedName(m.Project.Namespace) {
		return nil, fmt.Errorf("project namespace %q is a builtin type name", m.Project.Namespace)
	}

	// Defaults
	if len(m.Classes.Dirs) == 0 {
		m.Classes.Dirs = []string{"classes"}
	}
	if m.Image.Database == "" {
		m.Image.Database = filepath.Join(".avmcore", "objects.db")
	}
	if m.Image.Lock == "" {
		m.Image.Lock = filepath.Join(".avmcore", "layout.lock")
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find an avmcore.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ClassDirPaths returns absolute paths for the configured class directories.
func (m *Manifest) ClassDirPaths() []string {
	var paths []string
	for _, d := range m.Classes.Dirs {
		paths = append(paths, m.path(d))
	}
	return paths
}

// DatabasePath returns the absolute path of the snapshot database.
func (m *Manifest) DatabasePath() string {
	return m.path(m.Image.Database)
}

// LockFilePath returns the absolute path of the layout lock file.
func (m *Manifest) LockFilePath() string {
	return m.path(m.Image.Lock)
}

// VMConfig maps the manifest onto a runtime configuration.
func (m *Manifest) VMConfig() *vm.Config {
	cfg := vm.DefaultConfig()
	cfg.StrictSealed = m.Runtime.StrictSealed
	return cfg
}

// PackageNamespace returns the namespace classes are declared in by default.
func (m *Manifest) PackageNamespace() vm.Namespace {
	return vm.PackageNamespace(m.Project.Namespace)
}

func (m *Manifest) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
