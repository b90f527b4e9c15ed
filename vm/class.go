package vm

import (
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// Class
// ---------------------------------------------------------------------------

// Class is a class descriptor. It is created unlinked by Runtime.Declare,
// holding the member declarations of its ClassBuilder; Runtime.Link turns
// those into the instance and static TraitTables. A class must be linked
// before its first instance exists; Construct links on demand.
type Class struct {
	name      string
	ns        Namespace
	super     *Class
	superName string
	dynamic   bool
	ctor      *Function

	decl     *ClassBuilder
	instance *TraitTable
	static   *TraitTable
	object   *Object // the class object; carries static traits
	linked   bool
	linking  bool
}

// Name returns the unqualified class name.
func (c *Class) Name() string { return c.name }

// Namespace returns the package namespace the class is declared in.
func (c *Class) Namespace() Namespace { return c.ns }

// FullName returns the fully qualified class name (uri::name or just name).
func (c *Class) FullName() string {
	if c.ns.URI == "" {
		return c.name
	}
	return c.ns.URI + "::" + c.name
}

// String implements the Stringer interface.
func (c *Class) String() string {
	return c.FullName()
}

// Super returns the superclass, or nil for a root class. For a class that
// extends by name, this is nil until the class is linked.
func (c *Class) Super() *Class { return c.super }

// IsDynamic returns true if instances accept new properties. Writes to
// missing properties of sealed instances only fail under
// Config.StrictSealed.
func (c *Class) IsDynamic() bool { return c.dynamic }

// Linked returns true once the trait tables exist.
func (c *Class) Linked() bool { return c.linked }

// InstanceTraits returns the instance trait table, or nil before linking.
func (c *Class) InstanceTraits() *TraitTable { return c.instance }

// StaticTraits returns the class-side trait table, or nil before linking.
func (c *Class) StaticTraits() *TraitTable { return c.static }

// ClassObject returns the object holding the class's static state, or nil
// before linking.
func (c *Class) ClassObject() *Object { return c.object }

// Constructor returns the class's own constructor, or nil.
func (c *Class) Constructor() *Function { return c.ctor }

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.super {
		if current == other {
			return true
		}
	}
	return false
}

// Superclasses returns all superclasses from immediate parent to root.
func (c *Class) Superclasses() []*Class {
	var result []*Class
	for current := c.super; current != nil; current = current.super {
		result = append(result, current)
	}
	return result
}

// Depth returns the inheritance depth (0 for root class).
func (c *Class) Depth() int {
	depth := 0
	for current := c.super; current != nil; current = current.super {
		depth++
	}
	return depth
}

// ---------------------------------------------------------------------------
// ClassBuilder: member declarations, consumed by the linker
// ---------------------------------------------------------------------------

// ClassBuilder collects a class's declarations before linking.
//
//	b := vm.NewClassBuilder("Point").Dynamic()
//	b.Instance.Slot(vm.Pub("x"), vm.NumberType).Slot(vm.Pub("y"), vm.NumberType)
//	b.Static.ConstDefault(vm.Pub("ORIGIN_X"), vm.NumberType, vm.FromInt(0))
//	point, err := rt.DefineClass(b)
type ClassBuilder struct {
	Instance Members
	Static   Members

	name      string
	ns        Namespace
	super     *Class
	superName string
	dynamic   bool
	ctor      *Function
}

// NewClassBuilder starts a sealed root class in the unnamed package.
func NewClassBuilder(name string) *ClassBuilder {
	return &ClassBuilder{name: name}
}

// InNamespace places the class in a package namespace.
func (b *ClassBuilder) InNamespace(ns Namespace) *ClassBuilder {
	b.ns = ns
	return b
}

// Extends sets the superclass.
func (b *ClassBuilder) Extends(super *Class) *ClassBuilder {
	b.super = super
	b.superName = ""
	return b
}

// ExtendsNamed sets the superclass by name; it is looked up at link time.
func (b *ClassBuilder) ExtendsNamed(name string) *ClassBuilder {
	b.super = nil
	b.superName = name
	return b
}

// Dynamic marks instances as accepting dynamic properties.
func (b *ClassBuilder) Dynamic() *ClassBuilder {
	b.dynamic = true
	return b
}

// Constructor sets the instance initializer. It runs with the new instance
// as receiver. Classes without one run their nearest ancestor's.
func (b *ClassBuilder) Constructor(fn *Function) *ClassBuilder {
	b.ctor = fn
	return b
}

// Name returns the class name being built.
func (b *ClassBuilder) Name() string { return b.name }

// SuperName returns the superclass name, whether given by pointer or by name.
func (b *ClassBuilder) SuperName() string {
	if b.super != nil {
		return b.super.FullName()
	}
	return b.superName
}

// Members is an ordered list of member declarations for one side (instance
// or static) of a class.
type Members struct {
	decls []memberDecl
}

type memberDecl struct {
	kind   TraitKind
	key    QName
	typ    *TypeRef
	def    Value
	hasDef bool
	fn     *Function
	class  *Class
}

func (m *Members) add(d memberDecl) *Members {
	m.decls = append(m.decls, d)
	return m
}

// Slot declares a variable. Unwritten slots hold the type's default value.
func (m *Members) Slot(key QName, typ *TypeRef) *Members {
	return m.add(memberDecl{kind: TraitSlot, key: key, typ: typ})
}

// SlotDefault declares a variable with an initial value.
func (m *Members) SlotDefault(key QName, typ *TypeRef, def Value) *Members {
	return m.add(memberDecl{kind: TraitSlot, key: key, typ: typ, def: def, hasDef: true})
}

// Const declares a write-once slot, initialized with SetInit.
func (m *Members) Const(key QName, typ *TypeRef) *Members {
	return m.add(memberDecl{kind: TraitConst, key: key, typ: typ})
}

// ConstDefault declares a const whose value is fixed at allocation; it is
// frozen before any constructor runs.
func (m *Members) ConstDefault(key QName, typ *TypeRef, def Value) *Members {
	return m.add(memberDecl{kind: TraitConst, key: key, typ: typ, def: def, hasDef: true})
}

// Method declares a method.
func (m *Members) Method(key QName, fn *Function) *Members {
	return m.add(memberDecl{kind: TraitMethod, key: key, fn: fn})
}

// Getter declares a read accessor. Declaring a Setter with the same key
// merges the two into one getter/setter trait.
func (m *Members) Getter(key QName, typ *TypeRef, fn *Function) *Members {
	return m.add(memberDecl{kind: TraitGetter, key: key, typ: typ, fn: fn})
}

// Setter declares a write accessor. Values are coerced to typ before the
// setter runs.
func (m *Members) Setter(key QName, typ *TypeRef, fn *Function) *Members {
	return m.add(memberDecl{kind: TraitSetter, key: key, typ: typ, fn: fn})
}

// Class declares a nested class trait. Its slot is written once with
// SetInit; construct through the trait builds instances of c.
func (m *Members) Class(key QName, c *Class) *Members {
	return m.add(memberDecl{kind: TraitClass, key: key, class: c})
}

// Len returns the number of declarations.
func (m *Members) Len() int {
	return len(m.decls)
}

// ---------------------------------------------------------------------------
// ClassTable: per-runtime class registry
// ---------------------------------------------------------------------------

// ClassTable manages registered classes by qualified name.
// It's thread-safe for concurrent access.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*Class),
	}
}

// Register adds a class to the table.
// Returns the previous class with this name, or nil.
func (ct *ClassTable) Register(c *Class) *Class {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	key := c.FullName()
	old := ct.classes[key]
	ct.classes[key] = c
	return old
}

// Lookup finds a class by qualified name ("uri::Name", or "Name" for the
// unnamed package).
func (ct *ClassTable) Lookup(name string) *Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[name]
}

// LookupInNamespace finds a class by package namespace and name.
func (ct *ClassTable) LookupInNamespace(ns Namespace, name string) *Class {
	key := name
	if ns.URI != "" {
		key = ns.URI + "::" + name
	}
	return ct.Lookup(key)
}

// Has returns true if a class with this name is registered.
func (ct *ClassTable) Has(name string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	_, ok := ct.classes[name]
	return ok
}

// All returns all registered classes sorted by qualified name.
func (ct *ClassTable) All() []*Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make([]*Class, 0, len(ct.classes))
	for _, c := range ct.classes {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FullName() < result[j].FullName()
	})
	return result
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}

func (ct *ClassTable) clear() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.classes = make(map[string]*Class)
}
