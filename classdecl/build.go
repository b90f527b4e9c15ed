package classdecl

import (
	"fmt"

	"github.com/chazu/avmcore/manifest"
	"github.com/chazu/avmcore/vm"
)

// Builder turns the declaration into a vm.ClassBuilder. The class is placed
// in its own namespace, or defaultNS when it names none. Natives are bound
// here; superclass and type names are left for the linker, but a class
// trait's target must already be declared in rt.
func (d *ClassDecl) Builder(rt *vm.Runtime, natives *Natives, defaultNS string) (*vm.ClassBuilder, error) {
	full := d.FullName(defaultNS)
	if manifest.IsReservedName(d.Name) {
		return nil, fmt.Errorf("class %s: name is a builtin type", full)
	}
	ns := d.Namespace
	if ns == "" {
		ns = defaultNS
	}
	if manifest.IsReservedName(ns) {
		return nil, fmt.Errorf("class %s: namespace %q is a builtin type", full, ns)
	}

	b := vm.NewClassBuilder(d.Name)
	if ns != "" {
		b.InNamespace(vm.PackageNamespace(ns))
	}
	if d.Dynamic {
		b.Dynamic()
	}
	if d.Extends != "" {
		b.ExtendsNamed(d.Extends)
	}
	if d.Constructor != nil {
		min, max := arity(d.Constructor.Min, d.Constructor.Max)
		fn, err := natives.function(d.Constructor.Native, full+".constructor", min, max)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", full, err)
		}
		b.Constructor(fn)
	}

	mb := &memberBuilder{rt: rt, natives: natives, class: full, pkg: ns}
	for i := range d.Traits {
		if err := mb.add(&b.Instance, &d.Traits[i]); err != nil {
			return nil, err
		}
	}
	for i := range d.Statics {
		if err := mb.add(&b.Static, &d.Statics[i]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

type memberBuilder struct {
	rt      *vm.Runtime
	natives *Natives
	class   string
	pkg     string

	private *vm.Namespace
}

func (mb *memberBuilder) namespace(name string) (vm.Namespace, error) {
	switch name {
	case "", "public":
		return vm.PublicNamespace, nil
	case "internal":
		return vm.InternalNamespace(mb.pkg), nil
	case "protected":
		return vm.ProtectedNamespace(mb.class), nil
	case "private":
		// One private namespace per class, shared by all its members.
		if mb.private == nil {
			ns := mb.rt.NewPrivateNamespace(mb.class)
			mb.private = &ns
		}
		return *mb.private, nil
	}
	return vm.Namespace{}, fmt.Errorf("unknown namespace %q", name)
}

func (mb *memberBuilder) add(m *vm.Members, t *TraitDecl) error {
	label := mb.class + "." + t.Name
	ns, err := mb.namespace(t.NS)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	key := vm.QNameIn(ns, t.Name)
	typ := vm.TypeNamed(t.Type)

	switch t.Kind {
	case "slot", "const":
		if t.Default == nil {
			if t.Kind == "slot" {
				m.Slot(key, typ)
			} else {
				m.Const(key, typ)
			}
			return nil
		}
		def, err := toValue(t.Default)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		if t.Kind == "slot" {
			m.SlotDefault(key, typ, def)
		} else {
			m.ConstDefault(key, typ, def)
		}
	case "method":
		min, max := arity(t.Min, t.Max)
		fn, err := mb.natives.function(t.Native, label, min, max)
		if err != nil {
			return err
		}
		m.Method(key, fn)
	case "getter":
		fn, err := mb.natives.function(t.Native, label, 0, 0)
		if err != nil {
			return err
		}
		m.Getter(key, typ, fn)
	case "setter":
		fn, err := mb.natives.function(t.Native, label, 1, 1)
		if err != nil {
			return err
		}
		m.Setter(key, typ, fn)
	case "class":
		c := mb.rt.Classes().Lookup(t.Class)
		if c == nil {
			return fmt.Errorf("%s: class %s not defined", label, t.Class)
		}
		m.Class(key, c)
	default:
		return fmt.Errorf("%s: unknown trait kind %q", label, t.Kind)
	}
	return nil
}

// toValue converts a decoded scalar to a runtime value. YAML yields int,
// TOML yields int64; both become numbers.
func toValue(v any) (vm.Value, error) {
	switch x := v.(type) {
	case nil:
		return vm.Null, nil
	case bool:
		return vm.FromBool(x), nil
	case string:
		return vm.FromString(x), nil
	case int:
		return vm.FromInt(x), nil
	case int64:
		return vm.FromNumber(float64(x)), nil
	case uint64:
		return vm.FromNumber(float64(x)), nil
	case float64:
		return vm.FromNumber(x), nil
	}
	return vm.Undefined, fmt.Errorf("unsupported default value of type %T", v)
}
