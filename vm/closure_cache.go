package vm

// Method Closure Caching
//
// Reading a method off an object yields a closure bound to that object.
// Script code compares closures by identity (removing an event listener
// passes the same method value that was added), so every read of the same
// method on the same object must hand back the same *Closure.
//
// Entries are keyed by the trait's link-time id rather than by name, so a
// hit costs one small-integer map probe. Most objects never have a method
// read as a value; the map is allocated on first use.

// ClosureCache holds the bound closures of one object. It lives and dies
// with the object; entries are never evicted.
type ClosureCache struct {
	entries map[int]*Closure

	// Statistics for profiling
	Hits   uint64
	Misses uint64
}

// Get returns the closure binding tr's method to obj, creating and caching
// it on first use.
func (cc *ClosureCache) Get(obj *Object, tr *Trait) *Closure {
	if c, ok := cc.entries[tr.ID]; ok {
		cc.Hits++
		return c
	}
	cc.Misses++
	if cc.entries == nil {
		cc.entries = make(map[int]*Closure)
	}
	c := &Closure{receiver: obj, fn: tr.Method, trait: tr}
	cc.entries[tr.ID] = c
	return c
}

// Lookup returns the cached closure for a trait id without creating one.
func (cc *ClosureCache) Lookup(traitID int) *Closure {
	return cc.entries[traitID]
}

// Len returns the number of cached closures.
func (cc *ClosureCache) Len() int {
	return len(cc.entries)
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (cc *ClosureCache) HitRate() float64 {
	total := cc.Hits + cc.Misses
	if total == 0 {
		return 0
	}
	return float64(cc.Hits) * 100 / float64(total)
}
