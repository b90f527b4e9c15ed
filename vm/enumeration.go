package vm

// enumSnapshot is the key list of one enumeration pass over an object. It
// is taken at index 0 and dropped when the pass is exhausted or restarted.
type enumSnapshot struct {
	keys       []storeKey
	generation uint64
}

// NextNameIndex advances an enumeration pass over obj's enumerable dynamic
// properties. Index 0 starts a new pass; the result is the 1-based position
// of the next live key, or 0 when the pass is over. Keys removed after the
// pass started are skipped, keys added are not visited.
func (rt *Runtime) NextNameIndex(obj *Object, index int) int {
	if index == 0 {
		obj.enum = &enumSnapshot{keys: obj.props.keys(true), generation: obj.props.generation}
	}
	snap := obj.enumAt("nextNameIndex", index, true)
	unchanged := snap.generation == obj.props.generation
	for i := index; i < len(snap.keys); i++ {
		if unchanged || obj.props.isEnumerable(snap.keys[i].key) {
			return i + 1
		}
	}
	obj.enum = nil
	return 0
}

// NextName returns the key at a position handed out by NextNameIndex.
// Numeric keys come back as numbers.
func (rt *Runtime) NextName(obj *Object, index int) Value {
	snap := obj.enumAt("nextName", index, false)
	return snap.keys[index-1].value()
}

// NextValue returns the current value of the key at a position handed out
// by NextNameIndex.
func (rt *Runtime) NextValue(obj *Object, index int) Value {
	snap := obj.enumAt("nextValue", index, false)
	v, _ := obj.props.get(snap.keys[index-1].key)
	return v
}

// enumAt checks that index is valid for the pass in progress. Cursor
// positions may be 0..len; read positions must be 1..len.
func (obj *Object) enumAt(op string, index int, cursor bool) *enumSnapshot {
	snap := obj.enum
	if snap == nil {
		consistencyFailure(op, "no enumeration in progress on %s", obj.ClassName())
	}
	low := 1
	if cursor {
		low = 0
	}
	if index < low || index > len(snap.keys) {
		consistencyFailure(op, "index %d out of range for %s (%d keys)", index, obj.ClassName(), len(snap.keys))
	}
	return snap
}
