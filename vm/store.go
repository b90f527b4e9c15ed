package vm

// propertyStore holds an object's dynamic properties in insertion order.
//
// Removal leaves a dead entry behind so positions stay put; dead entries
// are compacted away once they outnumber the live ones. generation changes
// whenever the set of enumerable keys changes (never on an overwrite), so
// an enumeration pass can tell cheaply whether its snapshot still holds.
type propertyStore struct {
	index      map[propKey]int
	entries    []propEntry
	dead       int
	generation uint64
}

// propKey identifies a dynamic property. Numeric and public string names
// use PublicNamespace, so a namespaced name never collides with a public
// string that happens to read the same.
type propKey struct {
	ns   Namespace
	name string
}

type propEntry struct {
	key        propKey
	numeric    bool
	value      Value
	enumerable bool
	live       bool
}

// storeKey is one key captured by an enumeration snapshot.
type storeKey struct {
	key     propKey
	numeric bool
}

const compactThreshold = 8

func (s *propertyStore) get(key propKey) (Value, bool) {
	if i, ok := s.index[key]; ok {
		return s.entries[i].value, true
	}
	return Undefined, false
}

func (s *propertyStore) has(key propKey) bool {
	_, ok := s.index[key]
	return ok
}

// set overwrites an existing property in place or appends a new one.
func (s *propertyStore) set(key propKey, numeric bool, v Value) {
	if i, ok := s.index[key]; ok {
		s.entries[i].value = v
		return
	}
	if s.index == nil {
		s.index = make(map[propKey]int)
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, propEntry{key: key, numeric: numeric, value: v, enumerable: true, live: true})
	s.generation++
}

func (s *propertyStore) remove(key propKey) bool {
	i, ok := s.index[key]
	if !ok {
		return false
	}
	delete(s.index, key)
	s.entries[i] = propEntry{}
	s.dead++
	s.generation++
	if s.dead > compactThreshold && s.dead > len(s.index) {
		s.compact()
	}
	return true
}

func (s *propertyStore) compact() {
	live := make([]propEntry, 0, len(s.index))
	for _, e := range s.entries {
		if e.live {
			s.index[e.key] = len(live)
			live = append(live, e)
		}
	}
	s.entries = live
	s.dead = 0
}

func (s *propertyStore) isEnumerable(key propKey) bool {
	i, ok := s.index[key]
	return ok && s.entries[i].enumerable
}

func (s *propertyStore) setEnumerable(key propKey, enumerable bool) bool {
	i, ok := s.index[key]
	if !ok {
		return false
	}
	if s.entries[i].enumerable != enumerable {
		s.entries[i].enumerable = enumerable
		s.generation++
	}
	return true
}

func (s *propertyStore) len() int {
	return len(s.index)
}

// keys returns live keys in insertion order.
func (s *propertyStore) keys(enumerableOnly bool) []storeKey {
	result := make([]storeKey, 0, len(s.index))
	for _, e := range s.entries {
		if e.live && (e.enumerable || !enumerableOnly) {
			result = append(result, storeKey{key: e.key, numeric: e.numeric})
		}
	}
	return result
}

// forEach visits live entries in insertion order.
func (s *propertyStore) forEach(fn func(e *propEntry)) {
	for i := range s.entries {
		if s.entries[i].live {
			fn(&s.entries[i])
		}
	}
}
