package classdecl

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/avmcore/vm"
)

const pointYAML = `
classes:
  - name: Point
    namespace: geom
    dynamic: true
    constructor: { native: point.init, min: 0, max: 2 }
    traits:
      - { kind: slot, name: x, type: Number, default: 0 }
      - { kind: slot, name: y, type: Number, default: 0 }
      - { kind: const, name: dims, type: int, default: 2 }
      - { kind: method, name: length, native: point.length }
      - { kind: getter, name: label, native: point.label, type: String }
      - { kind: slot, name: secret, ns: private, type: String, default: "s" }
    statics:
      - { kind: const, name: VERSION, type: String, default: "1" }
`

func testNatives() *Natives {
	return NewNatives().
		Register("point.init", func(rt *vm.Runtime, this vm.Value, args []vm.Value) (vm.Value, error) {
			obj := this.Object()
			if len(args) > 0 {
				if err := rt.SetProperty(obj, vm.PublicName("x"), args[0], vm.SetNormal); err != nil {
					return vm.Undefined, err
				}
			}
			if len(args) > 1 {
				if err := rt.SetProperty(obj, vm.PublicName("y"), args[1], vm.SetNormal); err != nil {
					return vm.Undefined, err
				}
			}
			return vm.Undefined, nil
		}).
		Register("point.length", func(rt *vm.Runtime, this vm.Value, args []vm.Value) (vm.Value, error) {
			x, _ := rt.GetProperty(this.Object(), vm.PublicName("x"))
			y, _ := rt.GetProperty(this.Object(), vm.PublicName("y"))
			return vm.FromNumber(vm.ToNumber(x) + vm.ToNumber(y)), nil
		}).
		Register("point.label", func(rt *vm.Runtime, this vm.Value, args []vm.Value) (vm.Value, error) {
			return vm.FromString("point"), nil
		})
}

func newRuntime(t *testing.T) *vm.Runtime {
	t.Helper()
	rt := vm.NewRuntime(nil)
	t.Cleanup(func() { rt.Close() })
	return rt
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	f, err := Parse([]byte(pointYAML), YAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Classes) != 1 {
		t.Fatalf("classes = %d, want 1", len(f.Classes))
	}
	c := f.Classes[0]
	if c.FullName("") != "geom::Point" {
		t.Errorf("FullName = %q", c.FullName(""))
	}
	if !c.Dynamic || len(c.Traits) != 6 || len(c.Statics) != 1 {
		t.Errorf("decl = %+v", c)
	}
	if c.Constructor == nil || c.Constructor.Native != "point.init" || *c.Constructor.Max != 2 {
		t.Errorf("constructor = %+v", c.Constructor)
	}
}

func TestLoadYAMLClass(t *testing.T) {
	rt := newRuntime(t)
	path := writeFile(t, t.TempDir(), "point.yaml", pointYAML)

	classes, err := NewLoader(rt, testNatives()).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(classes) != 1 || !classes[0].Linked() {
		t.Fatalf("classes = %v", classes)
	}
	point := rt.Classes().Lookup("geom::Point")
	if point != classes[0] {
		t.Fatal("class not registered under geom::Point")
	}

	obj, err := rt.Construct(point, []vm.Value{vm.FromInt(3), vm.FromInt(4)})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	v, err := rt.CallProperty(obj, vm.PublicName("length"), nil, false)
	if err != nil || vm.ToNumber(v) != 7 {
		t.Errorf("length() = %v, %v; want 7", v, err)
	}
	label, err := rt.GetProperty(obj, vm.PublicName("label"))
	if err != nil || label.Str() != "point" {
		t.Errorf("label = %v, %v", label, err)
	}
	var cw *vm.ConstWriteError
	if err := rt.SetProperty(obj, vm.PublicName("dims"), vm.FromInt(3), vm.SetNormal); !errors.As(err, &cw) {
		t.Errorf("write to const dims: err = %v, want *ConstWriteError", err)
	}

	// Private members are not visible through the public namespace.
	if rt.HasProperty(obj, vm.PublicName("secret")) {
		t.Error("private slot reachable by public name")
	}
	var secret *vm.Trait
	for _, tr := range point.InstanceTraits().Traits() {
		if tr.Key.Name == "secret" {
			secret = tr
		}
	}
	if secret == nil || secret.Key.NS.Kind != vm.NamespacePrivate {
		t.Fatalf("secret trait = %v", secret)
	}
	if v := obj.Slot(secret.Slot); v.Str() != "s" {
		t.Errorf("secret = %v, want s", v)
	}

	version, err := rt.GetProperty(point.ClassObject(), vm.PublicName("VERSION"))
	if err != nil || version.Str() != "1" {
		t.Errorf("VERSION = %v, %v", version, err)
	}

	if _, err := rt.Construct(point, []vm.Value{vm.FromInt(1), vm.FromInt(2), vm.FromInt(3)}); err == nil {
		t.Error("constructor accepts at most 2 arguments")
	}
}

func TestLoadTOMLClass(t *testing.T) {
	rt := newRuntime(t)
	src := `
[[classes]]
name = "Counter"

[[classes.traits]]
kind = "slot"
name = "count"
type = "int"
default = 5

[[classes.traits]]
kind = "method"
name = "bump"
native = "counter.bump"
min = 0
max = 1
`
	natives := NewNatives().Register("counter.bump", func(rt *vm.Runtime, this vm.Value, args []vm.Value) (vm.Value, error) {
		n, _ := rt.GetProperty(this.Object(), vm.PublicName("count"))
		next := vm.FromInt(int(vm.ToNumber(n)) + 1)
		return next, rt.SetProperty(this.Object(), vm.PublicName("count"), next, vm.SetNormal)
	})
	path := writeFile(t, t.TempDir(), "counter.toml", src)

	if _, err := NewLoader(rt, natives).WithNamespace("app").LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	counter := rt.Classes().Lookup("app::Counter")
	if counter == nil {
		t.Fatal("default namespace not applied")
	}
	obj, err := rt.Construct(counter, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rt.CallProperty(obj, vm.PublicName("bump"), nil, false); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if v, _ := rt.GetProperty(obj, vm.PublicName("count")); vm.ToNumber(v) != 6 {
		t.Errorf("count = %v, want 6", v)
	}
	if obj.IsDynamic() {
		t.Error("classes are sealed unless declared dynamic")
	}
}

func TestSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown kind", "classes:\n  - name: A\n    traits:\n      - { kind: field, name: x }\n"},
		{"method without native", "classes:\n  - name: A\n    traits:\n      - { kind: method, name: m }\n"},
		{"class trait without target", "classes:\n  - name: A\n    traits:\n      - { kind: class, name: Inner }\n"},
		{"unknown field", "classes:\n  - name: A\n    sealed: true\n"},
		{"bad identifier", "classes:\n  - name: 9lives\n"},
		{"bad namespace", "classes:\n  - name: A\n    traits:\n      - { kind: slot, name: x, ns: friend }\n"},
		{"structured default", "classes:\n  - name: A\n    traits:\n      - { kind: slot, name: x, default: [1, 2] }\n"},
		{"negative min", "classes:\n  - name: A\n    traits:\n      - { kind: method, name: m, native: f, min: -1 }\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), YAML)
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *SchemaError", err)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(nil, YAML); err == nil {
		t.Error("empty file should fail")
	}
	if _, err := Parse([]byte("classes: [\n"), YAML); err == nil {
		t.Error("malformed YAML should fail")
	}
	if _, err := Parse([]byte("[[classes]\n"), TOML); err == nil {
		t.Error("malformed TOML should fail")
	}
	if _, err := ParseFile("classes.json"); err == nil {
		t.Error("unsupported extension should fail")
	}
}

func TestLoadDirOrdersSuperclassesFirst(t *testing.T) {
	rt := newRuntime(t)
	dir := t.TempDir()
	// a.yaml sorts first but depends on classes in b.yaml.
	writeFile(t, dir, "a.yaml", `
classes:
  - name: Derived
    extends: Base
    traits:
      - { kind: slot, name: extra, type: String }
      - { kind: class, name: Helper, class: Helper }
`)
	writeFile(t, dir, "b.yaml", `
classes:
  - name: Base
    traits:
      - { kind: slot, name: id, type: int, default: 1 }
  - name: Helper
`)
	writeFile(t, dir, "notes.txt", "ignored")

	classes, err := NewLoader(rt, nil).LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(classes) != 3 {
		t.Fatalf("loaded %d classes, want 3", len(classes))
	}
	derived := rt.Classes().Lookup("Derived")
	if derived == nil || derived.Super() != rt.Classes().Lookup("Base") {
		t.Fatalf("Derived super = %v", derived.Super())
	}
	obj, err := rt.Construct(derived, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := rt.GetProperty(obj, vm.PublicName("id")); vm.ToNumber(v) != 1 {
		t.Errorf("inherited id = %v, want 1", v)
	}
	helper, err := rt.ConstructProperty(obj, vm.PublicName("Helper"), nil)
	if err != nil || helper.Object().Class().Name() != "Helper" {
		t.Errorf("construct Helper = %v, %v", helper, err)
	}
}

func TestLoadDirsSkipsMissing(t *testing.T) {
	rt := newRuntime(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.yml", "classes:\n  - name: A\n")
	classes, err := NewLoader(rt, nil).LoadDirs([]string{filepath.Join(dir, "missing"), dir})
	if err != nil || len(classes) != 1 {
		t.Fatalf("LoadDirs = %v, %v", classes, err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"missing native", "classes:\n  - name: A\n    traits:\n      - { kind: method, name: m, native: nope }\n", "not registered"},
		{"reserved name", "classes:\n  - name: Number\n", "builtin type"},
		{"reserved namespace", "classes:\n  - name: A\n    namespace: String\n", "builtin type"},
		{"circular", "classes:\n  - name: A\n    extends: B\n  - name: B\n    extends: A\n", "circular"},
		{"duplicate", "classes:\n  - name: A\n  - name: A\n", "declared in both"},
		{"unknown class trait target", "classes:\n  - name: A\n    traits:\n      - { kind: class, name: I, class: Missing }\n", "not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newRuntime(t)
			f, err := Parse([]byte(tt.src), YAML)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			_, err = NewLoader(rt, nil).Load(f)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLinkFailureIsRetryable(t *testing.T) {
	rt := newRuntime(t)
	f, err := Parse([]byte("classes:\n  - name: Child\n    extends: Parent\n"), YAML)
	if err != nil {
		t.Fatal(err)
	}
	classes, err := NewLoader(rt, nil).Load(f)
	if err == nil {
		t.Fatal("link should fail while Parent is undeclared")
	}
	child := classes[0]
	if child.Linked() {
		t.Fatal("failed class should stay unlinked")
	}

	parent, err := Parse([]byte("classes:\n  - name: Parent\n"), YAML)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader(rt, nil).Load(parent); err != nil {
		t.Fatal(err)
	}
	if err := rt.Link(child); err != nil {
		t.Fatalf("relink: %v", err)
	}
}

func TestNatives(t *testing.T) {
	n := NewNatives()
	n.Register("b", nil).Register("a", nil)
	if got := n.Names(); len(got) != 2 || got[0] != "a" {
		t.Errorf("Names = %v", got)
	}
	if _, ok := n.Lookup("c"); ok {
		t.Error("Lookup(c) should miss")
	}
	var none *Natives
	if _, ok := none.Lookup("a"); ok {
		t.Error("nil registry has no natives")
	}

	three := 3
	if min, max := arity(1, nil); min != 1 || max != 1 {
		t.Errorf("arity(1, nil) = %d, %d", min, max)
	}
	if min, max := arity(1, &three); min != 1 || max != 3 {
		t.Errorf("arity(1, 3) = %d, %d", min, max)
	}
}

func TestToValue(t *testing.T) {
	tests := []struct {
		in   any
		want vm.Value
	}{
		{nil, vm.Null},
		{true, vm.True},
		{"s", vm.FromString("s")},
		{7, vm.FromInt(7)},
		{int64(7), vm.FromInt(7)},
		{1.5, vm.FromNumber(1.5)},
	}
	for _, tt := range tests {
		got, err := toValue(tt.in)
		if err != nil || !vm.StrictEquals(got, tt.want) {
			t.Errorf("toValue(%v) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := toValue([]any{1}); err == nil {
		t.Error("toValue(slice) should fail")
	}
}
