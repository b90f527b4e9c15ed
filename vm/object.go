package vm

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Object is an instance of a class (or, for a class object, the holder of
// its static state).
//
// An object exclusively owns all of its state:
//   - a slot array sized by its trait table, one cell per slot trait,
//     inherited slots first
//   - a frozen flag per slot, set once a const has been initialized
//   - the dynamic property store for names no trait claims
//   - the snapshot of the enumeration pass in progress, if any
//   - the cache of bound method closures
//
// Objects are created by Runtime.Construct (or Runtime.Allocate) and are
// not safe for concurrent use.
type Object struct {
	id       string
	class    *Class
	traits   *TraitTable
	dynamic  bool
	slots    []Value
	frozen   []bool
	props    propertyStore
	enum     *enumSnapshot
	closures ClosureCache
}

// newObject allocates an object over a trait table with every slot at its
// default. Consts declared with a default value are frozen immediately.
func newObject(c *Class, tt *TraitTable, dynamic bool) *Object {
	n := tt.SlotCount()
	obj := &Object{
		id:      newObjectID(c),
		class:   c,
		traits:  tt,
		dynamic: dynamic,
		slots:   make([]Value, n),
		frozen:  make([]bool, n),
	}
	for i, tr := range tt.slots {
		if tr.HasDefault {
			obj.slots[i] = tr.Default
			obj.frozen[i] = tr.Kind == TraitConst
			continue
		}
		obj.slots[i] = tr.Type.defaultValue()
	}
	return obj
}

// newObjectID creates a unique instance ID for the given class.
func newObjectID(c *Class) string {
	prefix := strings.ToLower(strings.ReplaceAll(c.FullName(), "::", "_"))
	return prefix + "_" + uuid.New().String()
}

// ---------------------------------------------------------------------------
// Identity
// ---------------------------------------------------------------------------

// ID returns the object's unique id.
func (obj *Object) ID() string { return obj.id }

// Class returns the object's class.
func (obj *Object) Class() *Class { return obj.class }

// Traits returns the trait table names resolve against: the class's
// instance table, or its static table for a class object.
func (obj *Object) Traits() *TraitTable { return obj.traits }

// IsDynamic returns true if the object accepts new properties under
// Config.StrictSealed.
func (obj *Object) IsDynamic() bool { return obj.dynamic }

// IsClassObject returns true for the object holding a class's statics.
func (obj *Object) IsClassObject() bool {
	return obj.class != nil && obj.class.object == obj
}

// ClassName returns the name of the object's class, or "?" if unknown.
func (obj *Object) ClassName() string {
	if obj == nil || obj.class == nil {
		return "?"
	}
	return obj.class.FullName()
}

func (obj *Object) String() string {
	return "[object " + obj.ClassName() + "]"
}

// ---------------------------------------------------------------------------
// Slot access
// ---------------------------------------------------------------------------

// Slot returns the value at the given slot index.
// Panics if index is out of range.
func (obj *Object) Slot(index int) Value {
	if index < 0 || index >= len(obj.slots) {
		consistencyFailure("slot", "index %d out of range for %s (%d slots)", index, obj.ClassName(), len(obj.slots))
	}
	return obj.slots[index]
}

// IsFrozen returns true once the const or class slot at index has been
// initialized.
func (obj *Object) IsFrozen(index int) bool {
	obj.Slot(index)
	return obj.frozen[index]
}

// NumSlots returns the number of slots in this object.
func (obj *Object) NumSlots() int {
	return len(obj.slots)
}

// ForEachSlot calls fn for each slot with its trait.
func (obj *Object) ForEachSlot(fn func(tr *Trait, value Value, frozen bool)) {
	for i, tr := range obj.traits.slots {
		fn(tr, obj.slots[i], obj.frozen[i])
	}
}

// ---------------------------------------------------------------------------
// Dynamic properties
// ---------------------------------------------------------------------------

// PropertyCount returns the number of dynamic properties.
func (obj *Object) PropertyCount() int {
	return obj.props.len()
}

// ForEachProperty visits dynamic properties in insertion order. Numeric
// keys are passed as numbers.
func (obj *Object) ForEachProperty(fn func(key Value, value Value, enumerable bool)) {
	obj.props.forEach(func(e *propEntry) {
		fn(storeKey{key: e.key, numeric: e.numeric}.value(), e.value, e.enumerable)
	})
}

// Closures returns the object's method closure cache.
func (obj *Object) Closures() *ClosureCache {
	return &obj.closures
}

// ---------------------------------------------------------------------------
// Restore hooks
// ---------------------------------------------------------------------------

// RestoreSlot writes a slot directly, bypassing coercion and const
// checks. It exists for snapshot restore; script writes go through
// Runtime.SetProperty.
func (obj *Object) RestoreSlot(index int, v Value, frozen bool) {
	obj.Slot(index)
	obj.slots[index] = v
	obj.frozen[index] = frozen
}

// RestoreProperty appends a dynamic property directly. It exists for
// snapshot restore.
func (obj *Object) RestoreProperty(key Value, v Value, enumerable bool) {
	name, numeric := numericKey(key)
	if !numeric {
		name = ToString(key)
	}
	pk := propKey{ns: PublicNamespace, name: name}
	obj.props.set(pk, numeric, v)
	obj.props.setEnumerable(pk, enumerable)
}

func (k storeKey) value() Value {
	if k.numeric {
		f, err := strconv.ParseFloat(k.key.name, 64)
		if err == nil {
			return FromNumber(f)
		}
	}
	return FromString(k.key.name)
}
