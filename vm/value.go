package vm

import (
	"math"
)

// Value represents a runtime value of the hosted language.
//
// Values are small tagged structs. Primitive payloads live inline; reference
// kinds (objects, functions, closures, classes) hold a pointer in ref, so
// two reference Values are == exactly when they point at the same thing.
// The zero Value is Undefined.
type Value struct {
	kind Kind
	num  float64
	str  string
	ref  any
}

// Kind identifies the type tag of a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindObject
	KindFunction
	KindClosure
	KindClass
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBoolean:   "Boolean",
	KindNumber:    "Number",
	KindString:    "String",
	KindObject:    "Object",
	KindFunction:  "Function",
	KindClosure:   "Function",
	KindClass:     "Class",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

// Pre-defined special values
var (
	Undefined = Value{}
	Null      = Value{kind: KindNull}
	True      = Value{kind: KindBoolean, num: 1}
	False     = Value{kind: KindBoolean}
)

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// FromNumber creates a Number value.
func FromNumber(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// FromInt creates a Number value from an integer.
func FromInt(n int) Value {
	return Value{kind: KindNumber, num: float64(n)}
}

// FromString creates a String value.
func FromString(s string) Value {
	return Value{kind: KindString, str: s}
}

// FromBool converts a Go bool to True or False.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromObject wraps an object. A nil object yields Null.
func FromObject(obj *Object) Value {
	if obj == nil {
		return Null
	}
	return Value{kind: KindObject, ref: obj}
}

// FromFunction wraps a raw function. A nil function yields Null.
func FromFunction(fn *Function) Value {
	if fn == nil {
		return Null
	}
	return Value{kind: KindFunction, ref: fn}
}

// FromClosure wraps a bound method closure. A nil closure yields Null.
func FromClosure(c *Closure) Value {
	if c == nil {
		return Null
	}
	return Value{kind: KindClosure, ref: c}
}

// FromClass wraps a class. A nil class yields Null.
func FromClass(c *Class) Value {
	if c == nil {
		return Null
	}
	return Value{kind: KindClass, ref: c}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Kind returns the value's type tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsNumber() bool    { return v.kind == KindNumber }
func (v Value) IsString() bool    { return v.kind == KindString }
func (v Value) IsBoolean() bool   { return v.kind == KindBoolean }
func (v Value) IsObject() bool    { return v.kind == KindObject }
func (v Value) IsClass() bool     { return v.kind == KindClass }

// IsNullish returns true for null and undefined.
func (v Value) IsNullish() bool {
	return v.kind == KindUndefined || v.kind == KindNull
}

// IsCallable returns true if the value can be the target of a call.
func (v Value) IsCallable() bool {
	return v.kind == KindFunction || v.kind == KindClosure || v.kind == KindClass
}

// ---------------------------------------------------------------------------
// Payload access
// ---------------------------------------------------------------------------

// Float64 returns the numeric payload. Non-number values return NaN.
func (v Value) Float64() float64 {
	if v.kind != KindNumber {
		return math.NaN()
	}
	return v.num
}

// Str returns the string payload, or "" for non-string values.
func (v Value) Str() string {
	return v.str
}

// Bool returns the boolean payload. Non-boolean values return false.
func (v Value) Bool() bool {
	return v.kind == KindBoolean && v.num != 0
}

// Object returns the wrapped object, or nil.
func (v Value) Object() *Object {
	obj, _ := v.ref.(*Object)
	return obj
}

// Function returns the wrapped raw function, or nil.
func (v Value) Function() *Function {
	fn, _ := v.ref.(*Function)
	return fn
}

// Closure returns the wrapped closure, or nil.
func (v Value) Closure() *Closure {
	c, _ := v.ref.(*Closure)
	return c
}

// Class returns the wrapped class, or nil.
func (v Value) Class() *Class {
	c, _ := v.ref.(*Class)
	return c
}

// String implements the Stringer interface using script ToString rules.
func (v Value) String() string {
	return ToString(v)
}

// StrictEquals compares two values the way === does: NaN is unequal to
// itself, reference kinds compare by identity.
func StrictEquals(a, b Value) bool {
	if a.kind == KindNumber && b.kind == KindNumber {
		return a.num == b.num
	}
	return a == b
}
