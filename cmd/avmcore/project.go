package main

import (
	"fmt"
	"strconv"

	"github.com/chazu/avmcore/classdecl"
	"github.com/chazu/avmcore/image"
	"github.com/chazu/avmcore/manifest"
	"github.com/chazu/avmcore/vm"
)

// project is a runtime loaded with a project's classes.
type project struct {
	m       *manifest.Manifest
	rt      *vm.Runtime
	classes []*vm.Class
	store   *image.Store
}

// openProject creates a runtime from the manifest and loads every class
// declaration directory into it.
func openProject(m *manifest.Manifest, strict bool) (*project, error) {
	cfg := m.VMConfig()
	if strict {
		cfg.StrictSealed = true
	}
	rt := vm.NewRuntime(cfg)

	loader := classdecl.NewLoader(rt, builtinNatives()).WithNamespace(m.Project.Namespace)
	classes, err := loader.LoadDirs(m.ClassDirPaths())
	if err != nil {
		rt.Close()
		return nil, err
	}
	return &project{m: m, rt: rt, classes: classes}, nil
}

// Store opens the snapshot database on first use.
func (p *project) Store() (*image.Store, error) {
	if p.store == nil {
		s, err := image.OpenStore(p.m.DatabasePath())
		if err != nil {
			return nil, err
		}
		p.store = s
	}
	return p.store, nil
}

// Close releases the store and the runtime. It is safe to call twice.
func (p *project) Close() error {
	if p.store != nil {
		p.store.Close()
		p.store = nil
	}
	return p.rt.Close()
}

// lookupClass finds a class by full name, or by simple name in the
// project namespace.
func (p *project) lookupClass(name string) (*vm.Class, error) {
	if c := p.rt.Classes().Lookup(name); c != nil {
		return c, nil
	}
	if ns := p.m.Project.Namespace; ns != "" {
		if c := p.rt.Classes().Lookup(ns + "::" + name); c != nil {
			return c, nil
		}
	}
	return nil, fmt.Errorf("class %s not defined", name)
}

// parseArgs converts command line arguments to values: null, undefined,
// true, false and numbers are recognized, anything else is a string.
func parseArgs(args []string) []vm.Value {
	vals := make([]vm.Value, len(args))
	for i, a := range args {
		vals[i] = parseArg(a)
	}
	return vals
}

func parseArg(s string) vm.Value {
	switch s {
	case "null":
		return vm.Null
	case "undefined":
		return vm.Undefined
	case "true":
		return vm.True
	case "false":
		return vm.False
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return vm.FromNumber(f)
	}
	return vm.FromString(s)
}

// builtinNatives are the natives declaration files can use from the CLI.
func builtinNatives() *classdecl.Natives {
	return classdecl.NewNatives().
		Register("std.noop", func(rt *vm.Runtime, this vm.Value, args []vm.Value) (vm.Value, error) {
			return vm.Undefined, nil
		}).
		Register("std.toString", func(rt *vm.Runtime, this vm.Value, args []vm.Value) (vm.Value, error) {
			return vm.FromString(vm.ToString(this)), nil
		}).
		Register("std.assign", func(rt *vm.Runtime, this vm.Value, args []vm.Value) (vm.Value, error) {
			// Assigns the arguments to the receiver's unfrozen slots in
			// layout order.
			obj := this.Object()
			traits := obj.Traits()
			next := 0
			for i := 0; i < traits.SlotCount() && next < len(args); i++ {
				if obj.IsFrozen(i) {
					continue
				}
				tr := traits.SlotTrait(i)
				if err := rt.SetProperty(obj, vm.NameIn(tr.Key.NS, tr.Key.Name), args[next], vm.SetInit); err != nil {
					return vm.Undefined, err
				}
				next++
			}
			return vm.Undefined, nil
		})
}
