package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/chazu/avmcore/image"
	"github.com/chazu/avmcore/manifest"
	"github.com/chazu/avmcore/vm"
)

type command struct {
	usage string
	help  string
	run   func(p *project, w io.Writer, args []string) error
}

var commands = map[string]command{
	"classes":  {"", "List loaded classes with their layout fingerprints", runClasses},
	"describe": {"<Class>", "Show the traits of a class", runDescribe},
	"new":      {"<Class> [args...]", "Construct an instance and print it", runNew},
	"save":     {"<Class> [args...]", "Construct an instance, store it and print its id", runSave},
	"load":     {"<id>", "Restore a stored object and print it as JSON", runLoad},
	"list":     {"[Class]", "List stored snapshots", runList},
	"delete":   {"<id>", "Delete a stored snapshot", runDelete},
	"lock":     {"", "Record current class layouts in the lock file", runLock},
	"check":    {"", "Report classes whose layout differs from the lock file", runCheck},
}

func wantArgs(args []string, min int, usage string) error {
	if len(args) < min {
		return fmt.Errorf("usage: avmcore %s", usage)
	}
	return nil
}

func runClasses(p *project, w io.Writer, args []string) error {
	classes := p.rt.Classes().All()
	for _, c := range classes {
		super := ""
		if c.Super() != nil {
			super = " extends " + c.Super().FullName()
		}
		fmt.Fprintf(w, "%-30s %s%s\n", c.FullName(), image.FormatFingerprint(image.Fingerprint(c)), super)
	}
	return nil
}

func runDescribe(p *project, w io.Writer, args []string) error {
	if err := wantArgs(args, 1, "describe <Class>"); err != nil {
		return err
	}
	c, err := p.lookupClass(args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(w, vm.NewInspector(p.rt).DescribeClass(c).String())
	return nil
}

func construct(p *project, args []string) (*vm.Object, error) {
	c, err := p.lookupClass(args[0])
	if err != nil {
		return nil, err
	}
	return p.rt.Construct(c, parseArgs(args[1:]))
}

func runNew(p *project, w io.Writer, args []string) error {
	if err := wantArgs(args, 1, "new <Class> [args...]"); err != nil {
		return err
	}
	obj, err := construct(p, args)
	if err != nil {
		return err
	}
	fmt.Fprint(w, vm.NewInspector(p.rt).Inspect(vm.FromObject(obj)).String())
	writeEnumerable(w, p.rt, obj)
	return nil
}

// writeEnumerable prints the enumerable dynamic properties of obj, in the
// order a for-in loop visits them.
func writeEnumerable(w io.Writer, rt *vm.Runtime, obj *vm.Object) {
	i := rt.NextNameIndex(obj, 0)
	if i == 0 {
		return
	}
	fmt.Fprintln(w, "enumerable:")
	for i != 0 {
		name := rt.NextName(obj, i)
		value := rt.NextValue(obj, i)
		fmt.Fprintf(w, "  %s = %s\n", vm.ToString(name), vm.ToString(value))
		i = rt.NextNameIndex(obj, i)
	}
}

func runSave(p *project, w io.Writer, args []string) error {
	if err := wantArgs(args, 1, "save <Class> [args...]"); err != nil {
		return err
	}
	obj, err := construct(p, args)
	if err != nil {
		return err
	}
	store, err := p.Store()
	if err != nil {
		return err
	}
	if _, err := store.SaveObject(obj); err != nil {
		return err
	}
	fmt.Fprintln(w, obj.ID())
	return nil
}

func runLoad(p *project, w io.Writer, args []string) error {
	if err := wantArgs(args, 1, "load <id>"); err != nil {
		return err
	}
	store, err := p.Store()
	if err != nil {
		return err
	}
	obj, err := store.LoadObject(p.rt, args[0])
	if err != nil {
		return err
	}
	data, err := image.ExportJSON(obj)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func runList(p *project, w io.Writer, args []string) error {
	class := ""
	if len(args) > 0 {
		c, err := p.lookupClass(args[0])
		if err != nil {
			return err
		}
		class = c.FullName()
	}
	store, err := p.Store()
	if err != nil {
		return err
	}
	entries, err := store.List(class)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.ID, e.Class)
	}
	return nil
}

func runDelete(p *project, w io.Writer, args []string) error {
	if err := wantArgs(args, 1, "delete <id>"); err != nil {
		return err
	}
	store, err := p.Store()
	if err != nil {
		return err
	}
	return store.Delete(args[0])
}

func runLock(p *project, w io.Writer, args []string) error {
	lf := &manifest.LockFile{}
	for name, fp := range image.LayoutFingerprints(p.rt.Classes().All()) {
		lf.Set(name, fp)
	}
	path := p.m.LockFilePath()
	if err := manifest.WriteLock(path, lf); err != nil {
		return err
	}
	fmt.Fprintf(w, "Locked %d classes in %s\n", len(lf.Classes), path)
	return nil
}

func runCheck(p *project, w io.Writer, args []string) error {
	lf, err := manifest.ReadLock(p.m.LockFilePath())
	if err != nil {
		return err
	}
	if lf == nil {
		return fmt.Errorf("no lock file at %s; run avmcore lock", p.m.LockFilePath())
	}
	current := image.LayoutFingerprints(p.rt.Classes().All())
	changed, missing := lf.Drift(current)

	var added []string
	for name := range current {
		if lf.FindLockedClass(name) == nil {
			added = append(added, name)
		}
	}
	sort.Strings(added)

	for _, name := range changed {
		fmt.Fprintf(w, "changed  %s\n", name)
	}
	for _, name := range missing {
		fmt.Fprintf(w, "missing  %s\n", name)
	}
	for _, name := range added {
		fmt.Fprintf(w, "new      %s\n", name)
	}
	if len(changed) > 0 || len(missing) > 0 {
		return errDrift
	}
	fmt.Fprintln(w, "Layouts match the lock file")
	return nil
}
