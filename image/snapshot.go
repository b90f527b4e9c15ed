// Package image persists object state. An object is captured as a
// Snapshot of primitive values, encoded with canonical CBOR and stored in
// a SQLite database keyed by object id.
package image

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/avmcore/vm"
)

// FormatVersion is the snapshot encoding version written by Encode.
const FormatVersion = 1

// ErrNotFound is returned when no snapshot exists for an id.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the persistent state of one object: its slot values in
// layout order and its dynamic properties in insertion order. Values that
// cannot be stored (functions, closures, classes) are left out, and the
// slots holding them keep their defaults on restore.
type Snapshot struct {
	Version     byte    `cbor:"1,keyasint"`
	ID          string  `cbor:"2,keyasint"`
	Class       string  `cbor:"3,keyasint"`
	Fingerprint uint64  `cbor:"4,keyasint"`
	Slots       []Entry `cbor:"5,keyasint,omitempty"`
	Dynamic     []Entry `cbor:"6,keyasint,omitempty"`
}

// Entry is one stored member. Slot entries carry the slot index and the
// trait key for diagnostics; dynamic entries carry the property key.
type Entry struct {
	Key     string `cbor:"1,keyasint"`
	Index   int    `cbor:"2,keyasint,omitempty"`
	Numeric bool   `cbor:"3,keyasint,omitempty"`
	Value   Scalar `cbor:"4,keyasint"`
	Frozen  bool   `cbor:"5,keyasint,omitempty"`
	Hidden  bool   `cbor:"6,keyasint,omitempty"` // not enumerable
	Opaque  bool   `cbor:"7,keyasint,omitempty"` // value not stored, only Frozen
}

// ScalarKind tags a stored value.
type ScalarKind uint8

const (
	ScalarUndefined ScalarKind = iota
	ScalarNull
	ScalarBool
	ScalarNumber
	ScalarString
	ScalarRef // reference to another object by id
)

// Scalar is a stored value.
type Scalar struct {
	Kind ScalarKind `cbor:"1,keyasint"`
	Bool bool       `cbor:"2,keyasint,omitempty"`
	Num  float64    `cbor:"3,keyasint,omitempty"`
	Str  string     `cbor:"4,keyasint,omitempty"` // string value or object id
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Encode serializes a snapshot to canonical CBOR. Equal snapshots encode
// to equal bytes.
func Encode(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Decode deserializes a snapshot from CBOR bytes.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("image: unmarshal snapshot: %w", err)
	}
	if s.Version != FormatVersion {
		return nil, fmt.Errorf("image: snapshot %s has format version %d, want %d", s.ID, s.Version, FormatVersion)
	}
	return &s, nil
}

// References returns the ids of the objects the snapshot refers to, in
// order of first appearance.
func (s *Snapshot) References() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, list := range [][]Entry{s.Slots, s.Dynamic} {
		for _, e := range list {
			if e.Value.Kind == ScalarRef && !seen[e.Value.Str] {
				seen[e.Value.Str] = true
				ids = append(ids, e.Value.Str)
			}
		}
	}
	return ids
}

// toScalar converts a runtime value. ok is false for values that cannot be
// stored.
func toScalar(v vm.Value) (s Scalar, ok bool) {
	switch v.Kind() {
	case vm.KindUndefined:
		return Scalar{Kind: ScalarUndefined}, true
	case vm.KindNull:
		return Scalar{Kind: ScalarNull}, true
	case vm.KindBoolean:
		return Scalar{Kind: ScalarBool, Bool: v.Bool()}, true
	case vm.KindNumber:
		return Scalar{Kind: ScalarNumber, Num: v.Float64()}, true
	case vm.KindString:
		return Scalar{Kind: ScalarString, Str: v.Str()}, true
	case vm.KindObject:
		if obj := v.Object(); !obj.IsClassObject() {
			return Scalar{Kind: ScalarRef, Str: obj.ID()}, true
		}
	}
	return Scalar{}, false
}

// Resolver returns the restored object for an id.
type Resolver func(id string) (*vm.Object, error)

func (s Scalar) toValue(resolve Resolver) (vm.Value, error) {
	switch s.Kind {
	case ScalarUndefined:
		return vm.Undefined, nil
	case ScalarNull:
		return vm.Null, nil
	case ScalarBool:
		return vm.FromBool(s.Bool), nil
	case ScalarNumber:
		return vm.FromNumber(s.Num), nil
	case ScalarString:
		return vm.FromString(s.Str), nil
	case ScalarRef:
		if resolve == nil {
			return vm.Undefined, fmt.Errorf("image: unresolved reference to %s", s.Str)
		}
		obj, err := resolve(s.Str)
		if err != nil {
			return vm.Undefined, err
		}
		return vm.FromObject(obj), nil
	}
	return vm.Undefined, fmt.Errorf("image: unknown value kind %d", s.Kind)
}

// Capture records an object's state. Class objects cannot be captured.
func Capture(obj *vm.Object) (*Snapshot, error) {
	s, _, err := capture(obj)
	return s, err
}

// capture also returns the objects referenced from obj's state.
func capture(obj *vm.Object) (*Snapshot, []*vm.Object, error) {
	if obj.IsClassObject() {
		return nil, nil, fmt.Errorf("image: cannot capture class object %s", obj.ClassName())
	}
	s := &Snapshot{
		Version:     FormatVersion,
		ID:          obj.ID(),
		Class:       obj.Class().FullName(),
		Fingerprint: Fingerprint(obj.Class()),
	}
	var refs []*vm.Object
	note := func(v vm.Value, sc Scalar) {
		if sc.Kind == ScalarRef {
			refs = append(refs, v.Object())
		}
	}

	obj.ForEachSlot(func(tr *vm.Trait, v vm.Value, frozen bool) {
		sc, ok := toScalar(v)
		if !ok {
			if frozen {
				s.Slots = append(s.Slots, Entry{Key: tr.Key.String(), Index: tr.Slot, Frozen: true, Opaque: true})
			}
			return
		}
		note(v, sc)
		s.Slots = append(s.Slots, Entry{Key: tr.Key.String(), Index: tr.Slot, Value: sc, Frozen: frozen})
	})
	obj.ForEachProperty(func(key, v vm.Value, enumerable bool) {
		sc, ok := toScalar(v)
		if !ok {
			return
		}
		note(v, sc)
		s.Dynamic = append(s.Dynamic, Entry{
			Key:     vm.ToString(key),
			Numeric: key.IsNumber(),
			Value:   sc,
			Hidden:  !enumerable,
		})
	})
	return s, refs, nil
}

// LayoutMismatchError reports a snapshot taken against a different slot
// layout than the class has now.
type LayoutMismatchError struct {
	Class   string
	Stored  uint64
	Current uint64
}

func (e *LayoutMismatchError) Error() string {
	return fmt.Sprintf("image: layout of %s changed (stored %s, current %s)",
		e.Class, FormatFingerprint(e.Stored), FormatFingerprint(e.Current))
}

// Restore rebuilds an object from a snapshot in rt, keeping the stored id.
// No constructor runs. Object references are looked up through resolve,
// which may be nil when the snapshot has none.
func Restore(rt *vm.Runtime, s *Snapshot, resolve Resolver) (*vm.Object, error) {
	obj, err := revive(rt, s)
	if err != nil {
		return nil, err
	}
	if err := fill(obj, s, resolve); err != nil {
		return nil, err
	}
	return obj, nil
}

// revive allocates the object a snapshot describes, after checking that
// its class still has the stored layout.
func revive(rt *vm.Runtime, s *Snapshot) (*vm.Object, error) {
	c := rt.Classes().Lookup(s.Class)
	if c == nil {
		return nil, fmt.Errorf("image: restore %s: class %s not defined", s.ID, s.Class)
	}
	if err := rt.Link(c); err != nil {
		return nil, fmt.Errorf("image: restore %s: %w", s.ID, err)
	}
	if fp := Fingerprint(c); fp != s.Fingerprint {
		return nil, &LayoutMismatchError{Class: s.Class, Stored: s.Fingerprint, Current: fp}
	}
	return rt.Revive(c, s.ID)
}

func fill(obj *vm.Object, s *Snapshot, resolve Resolver) error {
	for _, e := range s.Slots {
		if e.Opaque {
			obj.RestoreSlot(e.Index, obj.Slot(e.Index), e.Frozen)
			continue
		}
		v, err := e.Value.toValue(resolve)
		if err != nil {
			return err
		}
		obj.RestoreSlot(e.Index, v, e.Frozen)
	}
	for _, e := range s.Dynamic {
		v, err := e.Value.toValue(resolve)
		if err != nil {
			return err
		}
		key := vm.FromString(e.Key)
		if e.Numeric {
			f, err := strconv.ParseFloat(e.Key, 64)
			if err != nil {
				return fmt.Errorf("image: restore %s: bad numeric key %q", s.ID, e.Key)
			}
			key = vm.FromNumber(f)
		}
		obj.RestoreProperty(key, v, !e.Hidden)
	}
	return nil
}
