package image

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/chazu/avmcore/vm"
)

func newRuntime(t *testing.T) *vm.Runtime {
	t.Helper()
	rt := vm.NewRuntime(nil)
	t.Cleanup(func() { rt.Close() })
	return rt
}

// defineNode declares a dynamic Node { const id:int; slot label:String;
// slot next; slot weight:Number; method size }.
func defineNode(t *testing.T, rt *vm.Runtime) *vm.Class {
	t.Helper()
	b := vm.NewClassBuilder("Node").InNamespace(vm.PackageNamespace("graph")).Dynamic()
	b.Instance.
		Const(vm.Pub("id"), vm.IntType).
		SlotDefault(vm.Pub("label"), vm.StringType, vm.FromString("n")).
		Slot(vm.Pub("next"), vm.ObjectType).
		Slot(vm.Pub("weight"), vm.NumberType).
		Method(vm.Pub("size"), vm.NewFunction0("size", func(rt *vm.Runtime, this vm.Value) (vm.Value, error) {
			return vm.FromInt(1), nil
		}))
	c, err := rt.DefineClass(b)
	if err != nil {
		t.Fatalf("DefineClass: %v", err)
	}
	return c
}

func newNode(t *testing.T, rt *vm.Runtime, c *vm.Class, id int, label string) *vm.Object {
	t.Helper()
	obj, err := rt.Construct(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	set(t, rt, obj, "id", vm.FromInt(id), vm.SetInit)
	set(t, rt, obj, "label", vm.FromString(label), vm.SetNormal)
	return obj
}

func set(t *testing.T, rt *vm.Runtime, obj *vm.Object, name string, v vm.Value, op vm.SetOp) {
	t.Helper()
	if err := rt.SetProperty(obj, vm.PublicName(name), v, op); err != nil {
		t.Fatalf("SetProperty(%s): %v", name, err)
	}
}

func get(t *testing.T, rt *vm.Runtime, obj *vm.Object, name string) vm.Value {
	t.Helper()
	v, err := rt.GetProperty(obj, vm.PublicName(name))
	if err != nil {
		t.Fatalf("GetProperty(%s): %v", name, err)
	}
	return v
}

func TestCaptureRestore(t *testing.T) {
	rt := newRuntime(t)
	node := defineNode(t, rt)
	obj := newNode(t, rt, node, 7, "seven")
	set(t, rt, obj, "color", vm.FromString("red"), vm.SetNormal)
	if err := rt.SetProperty(obj, vm.IndexName(3), vm.True, vm.SetNormal); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetPropertyIsEnumerable(obj, vm.PublicName("color"), false); err != nil {
		t.Fatal(err)
	}
	// Functions are not stored.
	set(t, rt, obj, "fn", vm.FromFunction(vm.NewFunction0("f", nil)), vm.SetNormal)

	snap, err := Capture(obj)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if snap.ID != obj.ID() || snap.Class != "graph::Node" {
		t.Errorf("snapshot header = %q %q", snap.ID, snap.Class)
	}
	if len(snap.Slots) != 4 || len(snap.Dynamic) != 2 {
		t.Fatalf("slots = %d, dynamic = %d; want 4, 2", len(snap.Slots), len(snap.Dynamic))
	}

	data, err := Encode(snap)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	// Restore into a fresh runtime with the same declarations.
	rt2 := newRuntime(t)
	defineNode(t, rt2)
	restored, err := Restore(rt2, decoded, nil)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.ID() != obj.ID() {
		t.Errorf("id = %q, want %q", restored.ID(), obj.ID())
	}
	if v := get(t, rt2, restored, "id"); vm.ToNumber(v) != 7 {
		t.Errorf("id = %v, want 7", v)
	}
	var cw *vm.ConstWriteError
	if err := rt2.SetProperty(restored, vm.PublicName("id"), vm.FromInt(8), vm.SetNormal); !errors.As(err, &cw) {
		t.Errorf("restored const should stay frozen, err = %v", err)
	}
	if v := get(t, rt2, restored, "label"); v.Str() != "seven" {
		t.Errorf("label = %v", v)
	}
	if v := get(t, rt2, restored, "weight"); !math.IsNaN(vm.ToNumber(v)) {
		t.Errorf("weight = %v, want NaN", v)
	}
	if v := get(t, rt2, restored, "color"); v.Str() != "red" {
		t.Errorf("color = %v", v)
	}
	if rt2.PropertyIsEnumerable(restored, vm.PublicName("color")) {
		t.Error("color should stay non-enumerable")
	}
	if v, _ := rt2.GetProperty(restored, vm.IndexName(3)); !v.Bool() {
		t.Errorf("[3] = %v, want true", v)
	}
	if rt2.HasProperty(restored, vm.PublicName("fn")) {
		t.Error("function property should not be restored")
	}
}

func TestEncodeIsCanonical(t *testing.T) {
	rt := newRuntime(t)
	obj := newNode(t, rt, defineNode(t, rt), 1, "a")
	s1, _ := Capture(obj)
	s2, _ := Capture(obj)
	a, err := Encode(s1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(s2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("equal snapshots should encode to equal bytes")
	}
}

func TestDecodeRejectsVersion(t *testing.T) {
	data, err := Encode(&Snapshot{Version: FormatVersion + 1, ID: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(data); err == nil {
		t.Error("Decode should reject an unknown format version")
	}
	if _, err := Decode([]byte{0xff, 0x00}); err == nil {
		t.Error("Decode should reject garbage")
	}
}

func TestFingerprint(t *testing.T) {
	rt := newRuntime(t)
	node := defineNode(t, rt)

	rt2 := newRuntime(t)
	node2 := defineNode(t, rt2)
	if Fingerprint(node) != Fingerprint(node2) {
		t.Error("same layout in two runtimes should fingerprint equally")
	}

	b := vm.NewClassBuilder("Node").InNamespace(vm.PackageNamespace("graph"))
	b.Instance.Const(vm.Pub("id"), vm.IntType).Slot(vm.Pub("label"), vm.NumberType)
	rt3 := newRuntime(t)
	other, err := rt3.DefineClass(b)
	if err != nil {
		t.Fatal(err)
	}
	if Fingerprint(other) == Fingerprint(node) {
		t.Error("different layouts should fingerprint differently")
	}

	unlinked, err := rt3.Declare(vm.NewClassBuilder("Later"))
	if err != nil {
		t.Fatal(err)
	}
	if Fingerprint(unlinked) != 0 {
		t.Error("unlinked class has fingerprint 0")
	}
	fps := LayoutFingerprints([]*vm.Class{other, unlinked})
	if len(fps) != 1 || fps["graph::Node"] != FormatFingerprint(Fingerprint(other)) {
		t.Errorf("LayoutFingerprints = %v", fps)
	}
	if got := FormatFingerprint(0xab); got != "00000000000000ab" {
		t.Errorf("FormatFingerprint = %q", got)
	}
}

func TestRestoreLayoutMismatch(t *testing.T) {
	rt := newRuntime(t)
	snap, err := Capture(newNode(t, rt, defineNode(t, rt), 1, "a"))
	if err != nil {
		t.Fatal(err)
	}

	rt2 := newRuntime(t)
	b := vm.NewClassBuilder("Node").InNamespace(vm.PackageNamespace("graph"))
	b.Instance.Const(vm.Pub("id"), vm.IntType)
	if _, err := rt2.DefineClass(b); err != nil {
		t.Fatal(err)
	}
	_, err = Restore(rt2, snap, nil)
	var lm *LayoutMismatchError
	if !errors.As(err, &lm) {
		t.Fatalf("err = %v, want *LayoutMismatchError", err)
	}
	if lm.Class != "graph::Node" || lm.Stored == lm.Current {
		t.Errorf("mismatch = %+v", lm)
	}

	if _, err := Restore(newRuntime(t), snap, nil); err == nil {
		t.Error("Restore without the class declared should fail")
	}
}

func TestCaptureKeepsFrozenOpaqueSlot(t *testing.T) {
	define := func(rt *vm.Runtime) *vm.Class {
		node := defineNode(t, rt)
		b := vm.NewClassBuilder("Factory").InNamespace(vm.PackageNamespace("graph"))
		b.Instance.Class(vm.Pub("product"), node)
		c, err := rt.DefineClass(b)
		if err != nil {
			t.Fatalf("DefineClass: %v", err)
		}
		return c
	}
	rt := newRuntime(t)
	factory := define(rt)
	obj, err := rt.Construct(factory, nil)
	if err != nil {
		t.Fatal(err)
	}
	set(t, rt, obj, "product", vm.FromClass(rt.Classes().Lookup("graph::Node")), vm.SetInit)

	snap, err := Capture(obj)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(snap.Slots) != 1 || !snap.Slots[0].Frozen || !snap.Slots[0].Opaque {
		t.Fatalf("slots = %+v, want one frozen opaque entry", snap.Slots)
	}
	data, err := Encode(snap)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	rt2 := newRuntime(t)
	define(rt2)
	restored, err := Restore(rt2, decoded, nil)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !restored.IsFrozen(0) {
		t.Fatal("restored class slot is not frozen")
	}
	defer func() {
		if r := recover(); !vm.IsConsistencyError(r) {
			t.Errorf("second init: recovered %v, want a consistency error", r)
		}
	}()
	rt2.SetProperty(restored, vm.PublicName("product"), vm.FromClass(rt2.Classes().Lookup("graph::Node")), vm.SetInit)
	t.Error("second init of a restored frozen slot did not panic")
}

func TestCaptureClassObject(t *testing.T) {
	rt := newRuntime(t)
	node := defineNode(t, rt)
	if _, err := Capture(node.ClassObject()); err == nil {
		t.Error("capturing a class object should fail")
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "data", "objects.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSaveLoadDeleteList(t *testing.T) {
	rt := newRuntime(t)
	node := defineNode(t, rt)
	s := openStore(t)

	a, _ := Capture(newNode(t, rt, node, 1, "a"))
	b, _ := Capture(newNode(t, rt, node, 2, "b"))
	for _, snap := range []*Snapshot{a, b} {
		if err := s.Save(snap); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := s.Load(a.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != a.ID || got.Fingerprint != a.Fingerprint || len(got.Slots) != len(a.Slots) {
		t.Errorf("loaded = %+v", got)
	}

	list, err := s.List("graph::Node")
	if err != nil || len(list) != 2 {
		t.Fatalf("List = %v, %v", list, err)
	}
	if list[0].ID > list[1].ID {
		t.Error("List should be ordered by id")
	}
	if none, _ := s.List("Other"); len(none) != 0 {
		t.Errorf("List(Other) = %v", none)
	}

	if err := s.Delete(a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
	all, _ := s.List("")
	if len(all) != 1 {
		t.Errorf("List() = %v", all)
	}
}

func TestStoreObjectGraph(t *testing.T) {
	rt := newRuntime(t)
	node := defineNode(t, rt)
	s := openStore(t)

	a := newNode(t, rt, node, 1, "a")
	b := newNode(t, rt, node, 2, "b")
	set(t, rt, a, "next", vm.FromObject(b), vm.SetNormal)
	set(t, rt, b, "next", vm.FromObject(a), vm.SetNormal)
	set(t, rt, a, "self", vm.FromObject(a), vm.SetNormal)

	n, err := s.SaveObject(a)
	if err != nil {
		t.Fatalf("SaveObject: %v", err)
	}
	if n != 2 {
		t.Errorf("saved %d snapshots, want 2", n)
	}

	rt2 := newRuntime(t)
	defineNode(t, rt2)
	ra, err := s.LoadObject(rt2, a.ID())
	if err != nil {
		t.Fatalf("LoadObject: %v", err)
	}
	rb := get(t, rt2, ra, "next").Object()
	if rb == nil || rb.ID() != b.ID() {
		t.Fatalf("next = %v", rb)
	}
	if back := get(t, rt2, rb, "next").Object(); back != ra {
		t.Error("cycle should restore to the same object")
	}
	if self := get(t, rt2, ra, "self").Object(); self != ra {
		t.Error("self reference should restore to the same object")
	}

	if _, err := s.LoadObject(rt2, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadObject(missing): err = %v, want ErrNotFound", err)
	}
}

func TestRestoreUnresolvedReference(t *testing.T) {
	rt := newRuntime(t)
	node := defineNode(t, rt)
	a := newNode(t, rt, node, 1, "a")
	set(t, rt, a, "next", vm.FromObject(newNode(t, rt, node, 2, "b")), vm.SetNormal)
	snap, _ := Capture(a)
	if refs := snap.References(); len(refs) != 1 {
		t.Fatalf("References = %v", refs)
	}
	if _, err := Restore(rt, snap, nil); err == nil {
		t.Error("a reference without a resolver should fail")
	}
}

func TestExportJSON(t *testing.T) {
	rt := newRuntime(t)
	node := defineNode(t, rt)
	a := newNode(t, rt, node, 1, "a")
	b := newNode(t, rt, node, 2, "b")
	set(t, rt, a, "next", vm.FromObject(b), vm.SetNormal)
	set(t, rt, a, "tags", vm.FromString("x"), vm.SetNormal)

	data, err := ExportJSON(a)
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	var doc struct {
		ID         string         `json:"id"`
		Class      string         `json:"class"`
		Slots      map[string]any `json:"slots"`
		Properties map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, data)
	}
	if doc.ID != a.ID() || doc.Class != "graph::Node" {
		t.Errorf("header = %q %q", doc.ID, doc.Class)
	}
	if doc.Slots["id"] != 1.0 || doc.Slots["label"] != "a" || doc.Slots["weight"] != "NaN" {
		t.Errorf("slots = %v", doc.Slots)
	}
	ref, ok := doc.Slots["next"].(map[string]any)
	if !ok || ref["$ref"] != b.ID() {
		t.Errorf("next = %v", doc.Slots["next"])
	}
	if doc.Properties["tags"] != "x" {
		t.Errorf("properties = %v", doc.Properties)
	}
}
