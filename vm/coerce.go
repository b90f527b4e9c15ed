package vm

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Declared types
// ---------------------------------------------------------------------------

// TypeKind classifies a declared type.
type TypeKind uint8

const (
	TypeAny TypeKind = iota
	TypeObject
	TypeNumber
	TypeInt
	TypeUint
	TypeBoolean
	TypeString
	TypeClassObject // the builtin Class type: any class value
	TypeClass       // instances of a specific class
)

// TypeRef is the declared type of a slot, const or accessor. A TypeRef
// created with TypeNamed is unresolved until its class is linked.
type TypeRef struct {
	kind  TypeKind
	name  string
	class *Class
}

// Builtin types. These are shared and never modified.
var (
	AnyType      = &TypeRef{kind: TypeAny, name: "*"}
	ObjectType   = &TypeRef{kind: TypeObject, name: "Object"}
	NumberType   = &TypeRef{kind: TypeNumber, name: "Number"}
	IntType      = &TypeRef{kind: TypeInt, name: "int"}
	UintType     = &TypeRef{kind: TypeUint, name: "uint"}
	BooleanType  = &TypeRef{kind: TypeBoolean, name: "Boolean"}
	StringType   = &TypeRef{kind: TypeString, name: "String"}
	ClassObjType = &TypeRef{kind: TypeClassObject, name: "Class"}
)

var builtinTypes = map[string]*TypeRef{
	"*":       AnyType,
	"":        AnyType,
	"Object":  ObjectType,
	"Number":  NumberType,
	"int":     IntType,
	"uint":    UintType,
	"Boolean": BooleanType,
	"String":  StringType,
	"Class":   ClassObjType,
}

// ClassType returns the type of instances of c.
func ClassType(c *Class) *TypeRef {
	return &TypeRef{kind: TypeClass, name: c.FullName(), class: c}
}

// TypeNamed returns a deferred reference resolved when the owning class is
// linked: builtin names map to builtin types, anything else is looked up in
// the runtime's class table.
func TypeNamed(name string) *TypeRef {
	if t, ok := builtinTypes[name]; ok {
		return t
	}
	return &TypeRef{kind: TypeClass, name: name}
}

// Kind returns the type's kind.
func (t *TypeRef) Kind() TypeKind { return t.kind }

// Class returns the target class for class types, or nil.
func (t *TypeRef) Class() *Class { return t.class }

// Resolved returns false for a class reference that has not been bound yet.
func (t *TypeRef) Resolved() bool {
	return t.kind != TypeClass || t.class != nil
}

func (t *TypeRef) String() string {
	if t == nil {
		return "*"
	}
	return t.name
}

// defaultValue returns the value a slot of this type holds before it is
// written.
func (t *TypeRef) defaultValue() Value {
	switch t.kind {
	case TypeAny:
		return Undefined
	case TypeNumber:
		return FromNumber(math.NaN())
	case TypeInt, TypeUint:
		return FromInt(0)
	case TypeBoolean:
		return False
	}
	return Null
}

// Coerce converts v to this type. Numeric types convert, Boolean and String
// convert, Object and * pass anything through, class types accept null and
// instances of the class or a subclass.
func (t *TypeRef) Coerce(v Value) (Value, error) {
	switch t.kind {
	case TypeAny:
		return v, nil
	case TypeObject:
		if v.IsUndefined() {
			return Null, nil
		}
		return v, nil
	case TypeNumber:
		return FromNumber(ToNumber(v)), nil
	case TypeInt:
		return FromNumber(float64(ToInt32(v))), nil
	case TypeUint:
		return FromNumber(float64(ToUint32(v))), nil
	case TypeBoolean:
		return FromBool(ToBoolean(v)), nil
	case TypeString:
		if v.IsNullish() {
			return Null, nil
		}
		return FromString(ToString(v)), nil
	case TypeClassObject:
		if v.IsNullish() {
			return Null, nil
		}
		if v.kind == KindClass {
			return v, nil
		}
	case TypeClass:
		if v.IsNullish() {
			return Null, nil
		}
		if t.class == nil {
			consistencyFailure("coerce", "unresolved type %s", t.name)
		}
		if obj := v.Object(); obj != nil && obj.class.IsSubclassOf(t.class) {
			return v, nil
		}
	}
	return Undefined, &TypeCoercionError{Value: describeValue(v), Type: t.String()}
}

// IsInstance reports whether v is a non-null value of type t.
func (t *TypeRef) IsInstance(v Value) bool {
	switch t.kind {
	case TypeAny, TypeObject:
		return !v.IsNullish()
	case TypeNumber:
		return v.kind == KindNumber
	case TypeInt:
		return v.kind == KindNumber && float64(int32(v.num)) == v.num
	case TypeUint:
		return v.kind == KindNumber && float64(uint32(v.num)) == v.num && v.num >= 0
	case TypeBoolean:
		return v.kind == KindBoolean
	case TypeString:
		return v.kind == KindString
	case TypeClassObject:
		return v.kind == KindClass
	case TypeClass:
		obj := v.Object()
		return obj != nil && t.class != nil && obj.class.IsSubclassOf(t.class)
	}
	return false
}

func describeValue(v Value) string {
	switch v.kind {
	case KindObject:
		return v.Object().ClassName() + "@" + v.Object().ID()
	case KindString:
		return strconv.Quote(v.str)
	}
	return ToString(v)
}

// ---------------------------------------------------------------------------
// Primitive conversions
// ---------------------------------------------------------------------------

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ToNumber converts a value to a number.
func ToNumber(v Value) float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBoolean:
		return v.num
	case KindNull:
		return 0
	case KindString:
		return stringToNumber(v.str)
	}
	return math.NaN()
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != 'e' && r != 'E' && r != '+' && r != '-' {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

// ToInt32 converts a value to a signed 32-bit integer with wraparound.
func ToInt32(v Value) int32 {
	return int32(ToUint32(v))
}

// ToUint32 converts a value to an unsigned 32-bit integer with wraparound.
func ToUint32(v Value) uint32 {
	f := ToNumber(v)
	if !isFinite(f) {
		return 0
	}
	f = math.Mod(math.Trunc(f), 4294967296)
	return uint32(int64(f))
}

// ToBoolean converts a value to its truthiness.
func ToBoolean(v Value) bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBoolean:
		return v.num != 0
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		return v.str != ""
	}
	return true
}

// ToString converts a value to a string.
func ToString(v Value) string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case KindNumber:
		return NumberToString(v.num)
	case KindString:
		return v.str
	case KindObject:
		return "[object " + v.Object().ClassName() + "]"
	case KindFunction:
		return "function " + v.Function().Name() + "() {}"
	case KindClosure:
		return "function " + v.Closure().Function().Name() + "() {}"
	case KindClass:
		return "[class " + v.Class().Name() + "]"
	}
	return ""
}

// NumberToString formats a number the way the script language prints it:
// integers without a fraction, -0 as "0", exponent form outside
// [1e-6, 1e21).
func NumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go writes e+07; the script form is e+7.
		if i := strings.IndexByte(s, 'e'); i >= 0 {
			mant, exp := s[:i], s[i+1:]
			sign := exp[0]
			exp = strings.TrimLeft(exp[1:], "0")
			s = mant + "e" + string(sign) + exp
		}
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
