package vm

import "strconv"

// ---------------------------------------------------------------------------
// Trait: a compiled class member
// ---------------------------------------------------------------------------

// TraitKind tags the Trait variant.
type TraitKind uint8

const (
	TraitSlot TraitKind = iota
	TraitConst
	TraitMethod
	TraitGetter
	TraitSetter
	TraitGetterSetter
	TraitClass
)

var traitKindNames = [...]string{
	TraitSlot:         "slot",
	TraitConst:        "const",
	TraitMethod:       "method",
	TraitGetter:       "getter",
	TraitSetter:       "setter",
	TraitGetterSetter: "getter/setter",
	TraitClass:        "class",
}

func (k TraitKind) String() string {
	if int(k) < len(traitKindNames) {
		return traitKindNames[k]
	}
	return "trait(" + strconv.Itoa(int(k)) + ")"
}

// HasSlot returns true for the variants backed by an instance slot.
func (k TraitKind) HasSlot() bool {
	return k == TraitSlot || k == TraitConst || k == TraitClass
}

// Trait is a compiled member descriptor. Which fields are meaningful
// depends on Kind:
//
//	TraitSlot, TraitConst   Slot, Type, Default
//	TraitClass              Slot, Class
//	TraitMethod             Method
//	TraitGetter             Getter, Type
//	TraitSetter             Setter, Type
//	TraitGetterSetter       Getter, Setter, Type
//
// Traits are created by the linker and never modified afterwards. Frozen
// state of consts is per instance and lives on the Object.
type Trait struct {
	ID         int // unique within a Runtime, assigned at link
	Key        QName
	Kind       TraitKind
	Slot       int // -1 when not slot-backed
	Type       *TypeRef
	Default    Value
	HasDefault bool
	Method     *Function
	Getter     *Function
	Setter     *Function
	Class      *Class

	owner *TraitTable
}

// Owner returns the table that declares this trait.
func (t *Trait) Owner() *TraitTable {
	return t.owner
}

func (t *Trait) String() string {
	return t.Kind.String() + " " + t.Key.String()
}

// ---------------------------------------------------------------------------
// TraitTable: per-class member table
// ---------------------------------------------------------------------------

// TraitTable holds the traits one class declares, plus a pointer to the
// parent class's table. Lookup walks the parent chain when a name is not
// found locally, so derived declarations shadow inherited ones.
//
// The slot array is flattened: it starts with every inherited slot trait, in
// the parent's order, followed by this class's slot traits. Slot indexes are
// therefore dense and stable down the hierarchy.
//
// A TraitTable is built once by the linker and is read-only afterwards, so it
// can be shared by every instance without synchronization.
type TraitTable struct {
	class  *Class
	parent *TraitTable
	traits []*Trait
	byKey  map[QName]*Trait
	slots  []*Trait
}

func newTraitTable(class *Class, parent *TraitTable) *TraitTable {
	tt := &TraitTable{
		class:  class,
		parent: parent,
		byKey:  make(map[QName]*Trait),
	}
	if parent != nil {
		tt.slots = append(make([]*Trait, 0, len(parent.slots)+4), parent.slots...)
	}
	return tt
}

// Lookup finds a trait by local name in any of the namespaces, walking the
// inheritance chain. Within one table the namespaces are tried in order.
// Returns nil if no trait matches.
func (tt *TraitTable) Lookup(namespaces []Namespace, name string) *Trait {
	for t := tt; t != nil; t = t.parent {
		if tr := t.LookupLocal(namespaces, name); tr != nil {
			return tr
		}
	}
	return nil
}

// LookupLocal finds a trait in this table only.
func (tt *TraitTable) LookupLocal(namespaces []Namespace, name string) *Trait {
	for _, ns := range namespaces {
		if tr, ok := tt.byKey[QName{NS: ns, Name: name}]; ok {
			return tr
		}
	}
	return nil
}

// LookupKey finds a trait by exact qualified key, walking the chain.
func (tt *TraitTable) LookupKey(key QName) *Trait {
	for t := tt; t != nil; t = t.parent {
		if tr, ok := t.byKey[key]; ok {
			return tr
		}
	}
	return nil
}

// SlotTrait returns the trait stored at a slot index in O(1).
// Panics if index is out of range.
func (tt *TraitTable) SlotTrait(index int) *Trait {
	if index < 0 || index >= len(tt.slots) {
		consistencyFailure("slot", "index %d out of range for %s (%d slots)", index, tt.class.Name(), len(tt.slots))
	}
	return tt.slots[index]
}

// SlotCount returns the number of slots an instance needs, inherited
// slots included.
func (tt *TraitTable) SlotCount() int {
	return len(tt.slots)
}

// Traits returns this table's own traits in declaration order.
func (tt *TraitTable) Traits() []*Trait {
	result := make([]*Trait, len(tt.traits))
	copy(result, tt.traits)
	return result
}

// Len returns the number of traits declared by this table.
func (tt *TraitTable) Len() int {
	return len(tt.traits)
}

// Parent returns the parent class's table, or nil at the root.
func (tt *TraitTable) Parent() *TraitTable {
	return tt.parent
}

// Class returns the class this table belongs to.
func (tt *TraitTable) Class() *Class {
	return tt.class
}

// Contains reports whether other is this table or one of its ancestors.
func (tt *TraitTable) Contains(other *TraitTable) bool {
	for t := tt; t != nil; t = t.parent {
		if t == other {
			return true
		}
	}
	return false
}

// add appends a trait, assigning it a slot if its kind is slot-backed.
func (tt *TraitTable) add(tr *Trait) {
	tr.owner = tt
	tr.Slot = -1
	if tr.Kind.HasSlot() {
		tr.Slot = len(tt.slots)
		tt.slots = append(tt.slots, tr)
	}
	tt.traits = append(tt.traits, tr)
	tt.byKey[tr.Key] = tr
}
