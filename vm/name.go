package vm

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Namespaces
// ---------------------------------------------------------------------------

// NamespaceKind classifies a namespace.
type NamespaceKind uint8

const (
	NamespacePublic NamespaceKind = iota
	NamespacePackageInternal
	NamespaceProtected
	NamespaceStaticProtected
	NamespaceExplicit
	NamespacePrivate
)

var namespaceKindNames = [...]string{
	NamespacePublic:          "public",
	NamespacePackageInternal: "internal",
	NamespaceProtected:       "protected",
	NamespaceStaticProtected: "static protected",
	NamespaceExplicit:        "namespace",
	NamespacePrivate:         "private",
}

func (k NamespaceKind) String() string {
	if int(k) < len(namespaceKindNames) {
		return namespaceKindNames[k]
	}
	return "?"
}

// Namespace scopes a property name. Two namespaces are the same namespace
// when they compare equal with ==. Private namespaces carry a runtime-unique
// id so that equal URIs in different classes stay distinct.
type Namespace struct {
	Kind NamespaceKind
	URI  string
	id   uint32
}

// PublicNamespace is the unnamed public namespace. Dynamic properties live here.
var PublicNamespace = Namespace{Kind: NamespacePublic}

// PackageNamespace returns the public namespace of a package.
func PackageNamespace(uri string) Namespace {
	return Namespace{Kind: NamespacePublic, URI: uri}
}

// InternalNamespace returns the package-internal namespace of a package.
func InternalNamespace(uri string) Namespace {
	return Namespace{Kind: NamespacePackageInternal, URI: uri}
}

// ProtectedNamespace returns the protected namespace for a class.
func ProtectedNamespace(uri string) Namespace {
	return Namespace{Kind: NamespaceProtected, URI: uri}
}

// ExplicitNamespace returns a user-declared namespace.
func ExplicitNamespace(uri string) Namespace {
	return Namespace{Kind: NamespaceExplicit, URI: uri}
}

// IsPublic returns true for the unnamed public namespace.
func (ns Namespace) IsPublic() bool {
	return ns == PublicNamespace
}

// String renders the namespace for diagnostics.
func (ns Namespace) String() string {
	if ns.IsPublic() {
		return "public"
	}
	s := ns.Kind.String() + ":" + ns.URI
	if ns.Kind == NamespacePrivate {
		s += "#" + strconv.FormatUint(uint64(ns.id), 10)
	}
	return s
}

// ---------------------------------------------------------------------------
// QName: the key a trait is stored under
// ---------------------------------------------------------------------------

// QName is a single (namespace, local name) pair.
type QName struct {
	NS   Namespace
	Name string
}

// Pub returns a QName in the public namespace.
func Pub(name string) QName {
	return QName{NS: PublicNamespace, Name: name}
}

// QNameIn returns a QName in the given namespace.
func QNameIn(ns Namespace, name string) QName {
	return QName{NS: ns, Name: name}
}

// String renders the QName as uri::name, or just name when public.
func (q QName) String() string {
	if q.NS.IsPublic() {
		return q.Name
	}
	return q.NS.URI + "::" + q.Name
}

// ---------------------------------------------------------------------------
// QualifiedName: the descriptor the interpreter hands to every operation
// ---------------------------------------------------------------------------

// QualifiedName is a multiname: a local name plus the set of namespaces it
// may be found in. RuntimeName is set when the local name was computed at
// run time, in which case any value is accepted and converted with ToString.
type QualifiedName struct {
	Local       Value
	Namespaces  []Namespace
	RuntimeName bool
}

var publicOnly = []Namespace{PublicNamespace}

// PublicName is the common case: a compile-time name in the public namespace.
func PublicName(name string) QualifiedName {
	return QualifiedName{Local: FromString(name), Namespaces: publicOnly}
}

// NameIn returns a compile-time name in exactly one namespace.
func NameIn(ns Namespace, name string) QualifiedName {
	return QualifiedName{Local: FromString(name), Namespaces: []Namespace{ns}}
}

// Multiname returns a compile-time name searched across several namespaces,
// in order.
func Multiname(name string, namespaces ...Namespace) QualifiedName {
	return QualifiedName{Local: FromString(name), Namespaces: namespaces}
}

// RuntimeName returns a name whose local part was computed at run time.
// With no namespaces it searches the public namespace.
func RuntimeName(local Value, namespaces ...Namespace) QualifiedName {
	return QualifiedName{Local: local, Namespaces: namespaces, RuntimeName: true}
}

// IndexName is a runtime name for an integer index.
func IndexName(i int) QualifiedName {
	return RuntimeName(FromInt(i))
}

// namespaces returns the namespace set to search; empty means public.
func (qn QualifiedName) namespaces() []Namespace {
	if len(qn.Namespaces) == 0 {
		return publicOnly
	}
	return qn.Namespaces
}

// localName returns the string form of the local name.
func (qn QualifiedName) localName() string {
	switch qn.Local.kind {
	case KindString:
		return qn.Local.str
	case KindNumber:
		return NumberToString(qn.Local.num)
	}
	if !qn.RuntimeName {
		consistencyFailure("resolve", "compile-time name with %s local part", qn.Local.kind)
	}
	return ToString(qn.Local)
}

// String renders the name for diagnostics.
func (qn QualifiedName) String() string {
	local := qn.localName()
	nss := qn.namespaces()
	if len(nss) == 1 {
		return QName{NS: nss[0], Name: local}.String()
	}
	parts := make([]string, len(nss))
	for i, ns := range nss {
		parts[i] = ns.String()
	}
	return "{" + strings.Join(parts, ",") + "}::" + local
}

// ---------------------------------------------------------------------------
// Keys
// ---------------------------------------------------------------------------

// KeyKind says what storage a resolved Key addresses.
type KeyKind uint8

const (
	KeyDynamic KeyKind = iota // the dynamic property store, by string
	KeyNumeric                // the dynamic property store, by index
	KeyTrait                  // a compiled trait
)

// Key is the result of name resolution. For KeyTrait, Trait is set and
// Name is the trait's qualified key; otherwise NS and Name together are
// the store key and NS is PublicNamespace unless the name was qualified
// by a namespace set without it.
type Key struct {
	Kind  KeyKind
	NS    Namespace
	Name  string
	Trait *Trait
}

func (k Key) prop() propKey {
	return propKey{ns: k.NS, name: k.Name}
}

// numericKey reports whether v names an index and returns its canonical
// string. Strings qualify only when they round-trip through a number
// unchanged, so "5" is numeric but "05", "5.0" and "-0" are not.
func numericKey(v Value) (string, bool) {
	switch v.kind {
	case KindNumber:
		if isFinite(v.num) {
			return NumberToString(v.num), true
		}
	case KindString:
		s := v.str
		if s == "" || len(s) > 24 {
			return "", false
		}
		c := s[0]
		if c != '-' && (c < '0' || c > '9') {
			return "", false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !isFinite(f) {
			return "", false
		}
		if NumberToString(f) == s {
			return s, true
		}
	}
	return "", false
}

// dynamicKey canonicalizes a non-trait name into a store key. Names that
// may live in the public namespace use the bare local name; anything else
// is kept under the first namespace, with a name mangled by its URI.
func dynamicKey(namespaces []Namespace, local string) (Namespace, string) {
	for _, ns := range namespaces {
		if ns.IsPublic() {
			return PublicNamespace, local
		}
	}
	ns := namespaces[0]
	return ns, ns.URI + "::" + local
}
