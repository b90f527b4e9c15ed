package vm

import (
	"strings"
	"testing"
)

func TestInspector_Primitives(t *testing.T) {
	rt := newTestRuntime(t)
	insp := NewInspector(rt)

	tests := []struct {
		v        Value
		typ, val string
	}{
		{Undefined, "undefined", "undefined"},
		{Null, "null", "null"},
		{True, "Boolean", "true"},
		{FromNumber(1.5), "Number", "1.5"},
		{FromString("hi"), "string", `"hi"`},
	}
	for _, tt := range tests {
		r := insp.Inspect(tt.v)
		if r.Type != tt.typ || r.Value != tt.val {
			t.Errorf("Inspect(%v) = %s %s, want %s %s", tt.v, r.Type, r.Value, tt.typ, tt.val)
		}
	}
}

func TestInspector_Object(t *testing.T) {
	rt := newTestRuntime(t)
	_, derived := defineBaseDerived(t, rt)
	d := mustConstruct(t, rt, derived)
	mustSet(t, rt, d, PublicName("extra"), FromString("x"), SetNormal)
	mustSet(t, rt, d, PublicName("hidden"), True, SetNormal)
	rt.SetPropertyIsEnumerable(d, PublicName("hidden"), false)

	r := NewInspector(rt).Inspect(FromObject(d))
	if r.Type != "object" || r.ClassName != "Derived" || r.ID != d.ID() {
		t.Errorf("header = %s %s %s", r.Type, r.ClassName, r.ID)
	}
	if len(r.Slots) != 1 || r.Slots[0].Name != "id" || !r.Slots[0].Frozen || r.Slots[0].Value.Value != "1" {
		t.Errorf("slots = %+v", r.Slots)
	}
	if len(r.Properties) != 2 || r.Properties[0].Name != "extra" || r.Properties[1].Enumerable {
		t.Errorf("properties = %+v", r.Properties)
	}

	out := r.String()
	for _, want := range []string{"object: [object Derived]", "id: 1 (frozen)", `extra: "x"`, "hidden: true (hidden)"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
}

func TestInspector_DepthLimit(t *testing.T) {
	rt := newTestRuntime(t)
	b := NewClassBuilder("Node").Dynamic()
	node := mustDefine(t, rt, b)
	a := mustConstruct(t, rt, node)
	c := mustConstruct(t, rt, node)
	mustSet(t, rt, a, PublicName("next"), FromObject(c), SetNormal)
	mustSet(t, rt, c, PublicName("leaf"), True, SetNormal)

	r := NewInspector(rt).InspectDepth(FromObject(a), 1)
	if len(r.Properties) != 1 {
		t.Fatalf("properties = %+v", r.Properties)
	}
	if nested := r.Properties[0].Value; len(nested.Properties) != 0 {
		t.Errorf("depth 1 should not expand nested objects: %+v", nested.Properties)
	}
	r = NewInspector(rt).InspectDepth(FromObject(a), 2)
	if nested := r.Properties[0].Value; len(nested.Properties) != 1 {
		t.Errorf("depth 2 should expand one level: %+v", nested.Properties)
	}
}

func TestInspector_DescribeClass(t *testing.T) {
	rt := newTestRuntime(t)
	base, _ := defineBaseDerived(t, rt)
	gb := NewClassBuilder("Grand").Extends(base).Dynamic()
	gb.Instance.Slot(Pub("label"), StringType)
	gb.Static.ConstDefault(Pub("MAX"), IntType, FromInt(3))
	grand, err := rt.Declare(gb)
	if err != nil {
		t.Fatal(err)
	}

	r := NewInspector(rt).Inspect(FromClass(grand))
	if !grand.Linked() {
		t.Error("DescribeClass should link the class")
	}
	if r.Value != "Grand extends Base (dynamic)" {
		t.Errorf("Value = %q", r.Value)
	}
	if len(r.Traits) != 3 || r.Traits[0].Key != "id" || r.Traits[2].Key != "label" {
		t.Errorf("traits = %+v", r.Traits)
	}
	if r.Traits[0].Owner != "Base" || r.Traits[2].Slot != 1 {
		t.Errorf("trait details = %+v", r.Traits)
	}
	if len(r.Statics) != 1 || r.Statics[0].Key != "MAX" {
		t.Errorf("statics = %+v", r.Statics)
	}
	out := r.String()
	if !strings.Contains(out, "method") || !strings.Contains(out, "MAX : int [slot 0] (Grand)") {
		t.Errorf("String() =\n%s", out)
	}
}

func TestInspector_DescribeUnlinkable(t *testing.T) {
	rt := newTestRuntime(t)
	broken, err := rt.Declare(NewClassBuilder("Broken").ExtendsNamed("Nowhere"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewInspector(rt).DescribeClass(broken)
	if !strings.Contains(r.Value, "unlinked") {
		t.Errorf("Value = %q, want unlinked marker", r.Value)
	}
}

func TestInspector_Closure(t *testing.T) {
	rt := newTestRuntime(t)
	_, derived := defineBaseDerived(t, rt)
	d := mustConstruct(t, rt, derived)

	r := NewInspector(rt).Inspect(mustGet(t, rt, d, PublicName("greet")))
	if r.Type != "closure" || !strings.Contains(r.Value, "Derived.greet bound to") {
		t.Errorf("closure = %s %s", r.Type, r.Value)
	}
}
