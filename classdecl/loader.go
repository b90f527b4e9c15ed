package classdecl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/avmcore/vm"
)

// Loader declares and links classes from declaration files into a Runtime.
type Loader struct {
	rt      *vm.Runtime
	natives *Natives
	ns      string
	log     commonlog.Logger
}

// NewLoader creates a loader. natives may be nil when no declaration
// refers to a native.
func NewLoader(rt *vm.Runtime, natives *Natives) *Loader {
	if natives == nil {
		natives = NewNatives()
	}
	return &Loader{
		rt:      rt,
		natives: natives,
		log:     commonlog.GetLogger("avmcore.classdecl"),
	}
}

// WithNamespace sets the package URI for classes that do not name one.
func (l *Loader) WithNamespace(uri string) *Loader {
	l.ns = uri
	return l
}

// LoadFile loads the classes of one file.
func (l *Loader) LoadFile(path string) ([]*vm.Class, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return l.Load(f)
}

// LoadDir loads every declaration file directly inside dir.
func (l *Loader) LoadDir(dir string) ([]*vm.Class, error) {
	return l.LoadDirs([]string{dir})
}

// LoadDirs loads every declaration file in the given directories as one
// batch, so a class may extend a class declared in another directory.
// Directories that do not exist are skipped.
func (l *Loader) LoadDirs(dirs []string) ([]*vm.Class, error) {
	var files []*File
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			l.log.Debugf("class directory %s does not exist", dir)
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, ok := FormatFor(e.Name()); !ok {
				continue
			}
			f, err := ParseFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return l.Load(files...)
}

type pending struct {
	decl *ClassDecl
	file string
	full string
}

// deps lists the class names the declaration needs declared first.
func (p *pending) deps() []string {
	var names []string
	if p.decl.Extends != "" {
		names = append(names, p.decl.Extends)
	}
	for _, side := range [][]TraitDecl{p.decl.Traits, p.decl.Statics} {
		for _, t := range side {
			if t.Kind == "class" {
				names = append(names, t.Class)
			}
		}
	}
	return names
}

// Load declares the classes of the given files, superclasses and class
// trait targets first, then links them. Classes are returned in the order
// they were declared. A link failure is returned after every class has been
// declared; the unlinked classes stay registered and can be linked later.
func (l *Loader) Load(files ...*File) ([]*vm.Class, error) {
	var all []*pending
	byName := make(map[string]*pending)
	for _, f := range files {
		for i := range f.Classes {
			p := &pending{decl: &f.Classes[i], file: f.Path}
			p.full = p.decl.FullName(l.ns)
			if prev, ok := byName[p.full]; ok {
				return nil, fmt.Errorf("class %s declared in both %s and %s", p.full, prev.file, p.file)
			}
			byName[p.full] = p
			all = append(all, p)
		}
	}

	sorted, err := dependencyOrder(all, byName)
	if err != nil {
		return nil, err
	}

	classes := make([]*vm.Class, 0, len(sorted))
	for _, p := range sorted {
		c, err := l.declare(p)
		if err != nil {
			if p.file != "" {
				return nil, fmt.Errorf("%s: %w", p.file, err)
			}
			return nil, err
		}
		classes = append(classes, c)
	}

	for _, c := range classes {
		if err := l.rt.Link(c); err != nil {
			return classes, err
		}
	}
	l.log.Infof("loaded %d classes from %d files", len(classes), len(files))
	return classes, nil
}

func (l *Loader) declare(p *pending) (*vm.Class, error) {
	b, err := p.decl.Builder(l.rt, l.natives, l.ns)
	if err != nil {
		return nil, err
	}
	return l.rt.Declare(b)
}

// dependencyOrder sorts declarations so that every dependency declared in
// the same batch comes before its dependents.
func dependencyOrder(all []*pending, byName map[string]*pending) ([]*pending, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*pending]int, len(all))
	out := make([]*pending, 0, len(all))

	var visit func(p *pending) error
	visit = func(p *pending) error {
		switch state[p] {
		case visiting:
			return fmt.Errorf("class %s: circular class dependency", p.full)
		case done:
			return nil
		}
		state[p] = visiting
		for _, name := range p.deps() {
			if dep, ok := byName[name]; ok {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		state[p] = done
		out = append(out, p)
		return nil
	}

	for _, p := range all {
		if err := visit(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}
