package vm

// SetOp distinguishes ordinary assignment from the one-time initialization
// of consts and class traits.
type SetOp uint8

const (
	SetNormal SetOp = iota
	SetInit
)

func (op SetOp) String() string {
	if op == SetInit {
		return "init"
	}
	return "normal"
}

// ---------------------------------------------------------------------------
// Name resolution
// ---------------------------------------------------------------------------

// Resolve classifies name against obj. Numeric names bypass trait lookup;
// otherwise obj's trait chain is searched and, if nothing matches, the name
// becomes a dynamic key. Resolve never fails.
func (rt *Runtime) Resolve(obj *Object, name QualifiedName) Key {
	return resolveIn(obj.traits, name)
}

func resolveIn(tt *TraitTable, name QualifiedName) Key {
	if s, ok := numericKey(name.Local); ok {
		return Key{Kind: KeyNumeric, Name: s}
	}
	local := name.localName()
	nss := name.namespaces()
	if tr := tt.Lookup(nss, local); tr != nil {
		return Key{Kind: KeyTrait, Name: tr.Key.String(), Trait: tr}
	}
	ns, key := dynamicKey(nss, local)
	return Key{Kind: KeyDynamic, NS: ns, Name: key}
}

// ---------------------------------------------------------------------------
// Property operations
// ---------------------------------------------------------------------------

// GetProperty reads a property. Methods come back as closures bound to obj,
// getters run with obj as receiver, slots are read raw, and a missing
// dynamic property reads as Undefined.
func (rt *Runtime) GetProperty(obj *Object, name QualifiedName) (Value, error) {
	return rt.getKey(obj, rt.Resolve(obj, name))
}

// SetProperty writes a property. op is SetInit only for the initialization
// of a const or class trait; a second initialization panics with
// *ConsistencyError.
func (rt *Runtime) SetProperty(obj *Object, name QualifiedName, v Value, op SetOp) error {
	return rt.setKey(obj, rt.Resolve(obj, name), v, op)
}

// CallProperty calls a property with obj as receiver, or with an undefined
// receiver when isLex is set.
func (rt *Runtime) CallProperty(obj *Object, name QualifiedName, args []Value, isLex bool) (Value, error) {
	return rt.callKey(obj, rt.Resolve(obj, name), args, isLex)
}

// ConstructProperty instantiates the class held by a class trait.
func (rt *Runtime) ConstructProperty(obj *Object, name QualifiedName, args []Value) (Value, error) {
	k := rt.Resolve(obj, name)
	if k.Kind != KeyTrait || k.Trait.Kind != TraitClass {
		return Undefined, &NotConstructibleError{Class: obj.ClassName(), Property: k.Name}
	}
	inst, err := rt.Construct(k.Trait.Class, args)
	if err != nil {
		return Undefined, err
	}
	return FromObject(inst), nil
}

// DeleteProperty removes a dynamic property. Trait-backed names are never
// deletable. Returns true only if a property was removed.
func (rt *Runtime) DeleteProperty(obj *Object, name QualifiedName) bool {
	k := rt.Resolve(obj, name)
	if k.Kind == KeyTrait {
		return false
	}
	return obj.props.remove(k.prop())
}

// HasProperty returns true if name resolves to a trait anywhere in obj's
// chain or to a present dynamic property.
func (rt *Runtime) HasProperty(obj *Object, name QualifiedName) bool {
	k := rt.Resolve(obj, name)
	if k.Kind == KeyTrait {
		return true
	}
	return obj.props.has(k.prop())
}

// HasOwnProperty is HasProperty without inherited traits.
func (rt *Runtime) HasOwnProperty(obj *Object, name QualifiedName) bool {
	k := rt.Resolve(obj, name)
	if k.Kind == KeyTrait {
		return k.Trait.owner == obj.traits
	}
	return obj.props.has(k.prop())
}

// PropertyIsEnumerable returns true for a present dynamic property that is
// enumerable. Traits are never enumerable.
func (rt *Runtime) PropertyIsEnumerable(obj *Object, name QualifiedName) bool {
	k := rt.Resolve(obj, name)
	if k.Kind == KeyTrait {
		return false
	}
	return obj.props.isEnumerable(k.prop())
}

// SetPropertyIsEnumerable changes the enumerability of a dynamic property.
// It does nothing for traits or absent properties, except that under
// Config.StrictSealed an absent property on a sealed object is a
// *SealedWriteError.
func (rt *Runtime) SetPropertyIsEnumerable(obj *Object, name QualifiedName, enumerable bool) error {
	k := rt.Resolve(obj, name)
	if k.Kind == KeyTrait {
		return nil
	}
	if !obj.props.setEnumerable(k.prop(), enumerable) && rt.config.StrictSealed && !obj.dynamic {
		return &SealedWriteError{Class: obj.ClassName(), Property: k.Name}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Dispatch on a resolved key
// ---------------------------------------------------------------------------

func (rt *Runtime) getKey(obj *Object, k Key) (Value, error) {
	if k.Kind != KeyTrait {
		v, _ := obj.props.get(k.prop())
		return v, nil
	}
	tr := k.Trait
	switch tr.Kind {
	case TraitMethod:
		return FromClosure(obj.closures.Get(obj, tr)), nil
	case TraitGetter, TraitGetterSetter:
		return tr.Getter.invoke(rt, FromObject(obj), nil)
	case TraitSetter:
		return Undefined, nil
	case TraitSlot, TraitConst, TraitClass:
		return obj.Slot(tr.Slot), nil
	}
	consistencyFailure("get", "unknown trait kind %s", tr.Kind)
	return Undefined, nil
}

func (rt *Runtime) setKey(obj *Object, k Key, v Value, op SetOp) error {
	if k.Kind != KeyTrait {
		if rt.config.StrictSealed && !obj.dynamic && !obj.props.has(k.prop()) {
			return &SealedWriteError{Class: obj.ClassName(), Property: k.Name}
		}
		obj.props.set(k.prop(), k.Kind == KeyNumeric, v)
		return nil
	}
	tr := k.Trait
	switch tr.Kind {
	case TraitMethod:
		return &WriteMethodError{Class: obj.ClassName(), Property: k.Name}
	case TraitGetter:
		return &ConstWriteError{Class: obj.ClassName(), Property: k.Name}
	case TraitConst, TraitClass:
		if op != SetInit {
			return &ConstWriteError{Class: obj.ClassName(), Property: k.Name}
		}
		if obj.IsFrozen(tr.Slot) {
			consistencyFailure("set", "%s on %s initialized twice", k.Name, obj.ClassName())
		}
		cv, err := tr.Type.Coerce(v)
		if err != nil {
			return err
		}
		obj.slots[tr.Slot] = cv
		obj.frozen[tr.Slot] = true
		return nil
	case TraitSetter, TraitGetterSetter:
		cv, err := tr.Type.Coerce(v)
		if err != nil {
			return err
		}
		_, err = tr.Setter.invoke(rt, FromObject(obj), []Value{cv})
		return err
	case TraitSlot:
		cv, err := tr.Type.Coerce(v)
		if err != nil {
			return err
		}
		obj.slots[tr.Slot] = cv
		return nil
	}
	consistencyFailure("set", "unknown trait kind %s", tr.Kind)
	return nil
}

func (rt *Runtime) callKey(obj *Object, k Key, args []Value, isLex bool) (Value, error) {
	this := FromObject(obj)
	if isLex {
		this = Undefined
	}
	if k.Kind == KeyTrait && k.Trait.Kind == TraitMethod {
		return k.Trait.Method.invoke(rt, this, args)
	}
	fn, err := rt.getKey(obj, k)
	if err != nil {
		return Undefined, err
	}
	switch fn.kind {
	case KindFunction, KindClosure, KindClass:
		return rt.Invoke(fn, this, args)
	}
	return Undefined, &NotCallableError{Class: obj.ClassName(), Property: k.Name}
}

// ---------------------------------------------------------------------------
// Instantiation
// ---------------------------------------------------------------------------

// Construct links c if needed, allocates an instance and runs the nearest
// constructor in c's chain with args.
func (rt *Runtime) Construct(c *Class, args []Value) (*Object, error) {
	obj, err := rt.Allocate(c)
	if err != nil {
		return nil, err
	}
	if err := rt.runConstructor(c, obj, args); err != nil {
		return nil, err
	}
	return obj, nil
}

// ConstructSuper runs the constructor chain starting at ancestor against an
// already allocated obj. Constructors call it to initialize inherited
// state.
func (rt *Runtime) ConstructSuper(obj *Object, ancestor *Class, args []Value) error {
	if ancestor == nil || !obj.class.IsSubclassOf(ancestor) {
		consistencyFailure("construct", "%s is not an ancestor of %s", ancestor, obj.ClassName())
	}
	return rt.runConstructor(ancestor, obj, args)
}

// Allocate links c if needed and returns a default-initialized instance
// without running any constructor.
func (rt *Runtime) Allocate(c *Class) (*Object, error) {
	if !c.linked {
		if err := rt.Link(c); err != nil {
			return nil, err
		}
	}
	return newObject(c, c.instance, c.dynamic), nil
}

// Revive allocates an instance with a known id, for restoring snapshots.
func (rt *Runtime) Revive(c *Class, id string) (*Object, error) {
	obj, err := rt.Allocate(c)
	if err != nil {
		return nil, err
	}
	if id != "" {
		obj.id = id
	}
	return obj, nil
}

func (rt *Runtime) runConstructor(c *Class, obj *Object, args []Value) error {
	for current := c; current != nil; current = current.super {
		if current.ctor != nil {
			_, err := current.ctor.invoke(rt, FromObject(obj), args)
			return err
		}
	}
	if len(args) > 0 {
		return &ArgumentCountError{Function: c.FullName(), Min: 0, Max: 0, Got: len(args)}
	}
	return nil
}
