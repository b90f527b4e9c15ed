package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// LockFile records the slot layout fingerprint of every class at the time
// snapshots were last written. A class whose current fingerprint differs
// has changed layout, and its stored snapshots can no longer be restored.
type LockFile struct {
	Classes []LockedClass `toml:"class"`
}

// LockedClass is one class entry in the lock file.
type LockedClass struct {
	Name        string `toml:"name"`
	Fingerprint string `toml:"fingerprint"`
}

// ReadLock reads a lock file. A missing file yields nil, nil.
func ReadLock(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lf LockFile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return &lf, nil
}

// WriteLock writes a lock file, sorted by class name, creating its
// directory if needed.
func WriteLock(path string, lf *LockFile) error {
	sort.Slice(lf.Classes, func(i, j int) bool {
		return lf.Classes[i].Name < lf.Classes[j].Name
	})
	var buf bytes.Buffer
	buf.WriteString("# Generated by avmcore. Do not edit.\n\n")
	if err := toml.NewEncoder(&buf).Encode(lf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// FindLockedClass returns the entry for a class, or nil.
func (lf *LockFile) FindLockedClass(name string) *LockedClass {
	if lf == nil {
		return nil
	}
	for i := range lf.Classes {
		if lf.Classes[i].Name == name {
			return &lf.Classes[i]
		}
	}
	return nil
}

// Set records a fingerprint, replacing any existing entry for the class.
func (lf *LockFile) Set(name, fingerprint string) {
	if lc := lf.FindLockedClass(name); lc != nil {
		lc.Fingerprint = fingerprint
		return
	}
	lf.Classes = append(lf.Classes, LockedClass{Name: name, Fingerprint: fingerprint})
}

// Drift compares current fingerprints against the lock. It returns the
// classes whose fingerprint changed and the locked classes that no longer
// exist, each sorted.
func (lf *LockFile) Drift(current map[string]string) (changed, missing []string) {
	if lf == nil {
		return nil, nil
	}
	for _, lc := range lf.Classes {
		fp, ok := current[lc.Name]
		switch {
		case !ok:
			missing = append(missing, lc.Name)
		case fp != lc.Fingerprint:
			changed = append(changed, lc.Name)
		}
	}
	sort.Strings(changed)
	sort.Strings(missing)
	return changed, missing
}
