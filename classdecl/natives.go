package classdecl

import (
	"fmt"
	"sort"

	"github.com/chazu/avmcore/vm"
)

// Natives maps the native names used in declaration files to Go functions.
//
//	natives := classdecl.NewNatives().
//		Register("point.length", pointLength).
//		Register("point.init", pointInit)
type Natives struct {
	fns map[string]vm.NativeFunc
}

// NewNatives creates an empty registry.
func NewNatives() *Natives {
	return &Natives{fns: make(map[string]vm.NativeFunc)}
}

// Register binds a name, replacing any earlier binding.
func (n *Natives) Register(name string, fn vm.NativeFunc) *Natives {
	n.fns[name] = fn
	return n
}

// Lookup returns the function bound to name.
func (n *Natives) Lookup(name string) (vm.NativeFunc, bool) {
	if n == nil {
		return nil, false
	}
	fn, ok := n.fns[name]
	return fn, ok
}

// Names returns the registered names, sorted.
func (n *Natives) Names() []string {
	names := make([]string, 0, len(n.fns))
	for name := range n.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// function builds a vm.Function for a declared native with the given
// accepted argument range.
func (n *Natives) function(native, label string, min, max int) (*vm.Function, error) {
	fn, ok := n.Lookup(native)
	if !ok {
		return nil, fmt.Errorf("%s: native %q not registered", label, native)
	}
	return vm.NewFunction(label, min, max, fn), nil
}

// arity resolves a declared range: an unset max equals min.
func arity(min int, max *int) (int, int) {
	if max == nil {
		return min, min
	}
	return min, *max
}
