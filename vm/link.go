package vm

import (
	"errors"
	"fmt"
)

// Declare registers an unlinked class built from b. Member types and the
// superclass may name classes that are not declared yet; they are resolved
// by Link.
func (rt *Runtime) Declare(b *ClassBuilder) (*Class, error) {
	if b.name == "" {
		return nil, errors.New("declare: class has no name")
	}
	c := &Class{
		name:      b.name,
		ns:        b.ns,
		super:     b.super,
		superName: b.superName,
		dynamic:   b.dynamic,
		ctor:      b.ctor,
		decl:      b,
	}
	if rt.classes.Has(c.FullName()) {
		return nil, fmt.Errorf("declare %s: class already defined", c)
	}
	rt.classes.Register(c)
	return c, nil
}

// DefineClass declares and links a class in one step.
func (rt *Runtime) DefineClass(b *ClassBuilder) (*Class, error) {
	c, err := rt.Declare(b)
	if err != nil {
		return nil, err
	}
	if err := rt.Link(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Link builds c's trait tables, linking its superclass first. It assigns
// slot indexes and trait ids and resolves every declared type. Linking an
// already linked class is a no-op; a failed link leaves the class unlinked
// so it can be retried once the missing classes are declared.
func (rt *Runtime) Link(c *Class) error {
	rt.linkMu.Lock()
	defer rt.linkMu.Unlock()
	return rt.link(c)
}

func (rt *Runtime) link(c *Class) error {
	if c.linked {
		return nil
	}
	if c.linking {
		return fmt.Errorf("link %s: circular inheritance", c)
	}
	c.linking = true
	defer func() { c.linking = false }()

	b := c.decl
	super := c.super
	if super == nil && c.superName != "" {
		super = rt.classes.Lookup(c.superName)
		if super == nil {
			return fmt.Errorf("link %s: superclass %s not defined", c, c.superName)
		}
	}

	var parent *TraitTable
	if super != nil {
		if err := rt.link(super); err != nil {
			return fmt.Errorf("link %s: %w", c, err)
		}
		parent = super.instance
	}

	instance, err := rt.buildTable(c, parent, b.Instance.decls)
	if err != nil {
		return err
	}
	static, err := rt.buildTable(c, nil, b.Static.decls)
	if err != nil {
		return err
	}

	c.super = super
	c.instance = instance
	c.static = static
	c.object = newObject(c, static, false)
	c.linked = true
	c.decl = nil

	rt.log.Debugf("linked %s: %d traits, %d slots, %d statics", c, instance.Len(), instance.SlotCount(), static.Len())
	return nil
}

// buildTable turns declarations into traits.
func (rt *Runtime) buildTable(c *Class, parent *TraitTable, decls []memberDecl) (*TraitTable, error) {
	tt := newTraitTable(c, parent)
	for _, d := range decls {
		typ, err := rt.resolveType(d.typ)
		if err != nil {
			return nil, fmt.Errorf("link %s: %s: %w", c, d.key, err)
		}

		if existing, ok := tt.byKey[d.key]; ok {
			if !mergeAccessor(existing, d, typ) {
				return nil, fmt.Errorf("link %s: duplicate trait %s", c, d.key)
			}
			continue
		}

		tr := &Trait{ID: rt.nextTraitID(), Key: d.key, Kind: d.kind, Type: typ}
		switch d.kind {
		case TraitSlot, TraitConst:
			if d.hasDef {
				v, err := typ.Coerce(d.def)
				if err != nil {
					return nil, fmt.Errorf("link %s: default for %s: %w", c, d.key, err)
				}
				tr.Default = v
				tr.HasDefault = true
			}
		case TraitMethod:
			tr.Method = d.fn
		case TraitGetter:
			tr.Getter = d.fn
		case TraitSetter:
			tr.Setter = d.fn
		case TraitClass:
			if d.class == nil {
				return nil, fmt.Errorf("link %s: class trait %s has no class", c, d.key)
			}
			tr.Class = d.class
			tr.Type = ClassObjType
		}
		if d.kind == TraitMethod || d.kind == TraitGetter || d.kind == TraitSetter {
			if d.fn == nil {
				return nil, fmt.Errorf("link %s: %s %s has no function", c, d.kind, d.key)
			}
		}
		tt.add(tr)
	}
	if parent != nil {
		for _, tr := range tt.traits {
			inheritAccessor(tr, parent.LookupKey(tr.Key))
		}
	}
	return tt, nil
}

// inheritAccessor completes a getter-only or setter-only override with the
// other half of an inherited accessor pair.
func inheritAccessor(tr, inherited *Trait) {
	if inherited == nil {
		return
	}
	switch {
	case tr.Kind == TraitGetter && inherited.Setter != nil:
		tr.Setter = inherited.Setter
	case tr.Kind == TraitSetter && inherited.Getter != nil:
		tr.Getter = inherited.Getter
	default:
		return
	}
	tr.Kind = TraitGetterSetter
}

// mergeAccessor folds a getter and a setter declared under the same key
// into one getter/setter trait. Any other collision is a duplicate.
func mergeAccessor(existing *Trait, d memberDecl, typ *TypeRef) bool {
	if d.fn == nil {
		return false
	}
	switch {
	case existing.Kind == TraitGetter && d.kind == TraitSetter:
		existing.Setter = d.fn
	case existing.Kind == TraitSetter && d.kind == TraitGetter:
		existing.Getter = d.fn
	default:
		return false
	}
	existing.Kind = TraitGetterSetter
	if existing.Type == AnyType {
		existing.Type = typ
	}
	return true
}

// resolveType binds a declared type to a class in this runtime.
func (rt *Runtime) resolveType(t *TypeRef) (*TypeRef, error) {
	if t == nil {
		return AnyType, nil
	}
	if t.Resolved() {
		return t, nil
	}
	c := rt.classes.Lookup(t.name)
	if c == nil {
		return nil, fmt.Errorf("type %s not defined", t.name)
	}
	return ClassType(c), nil
}
