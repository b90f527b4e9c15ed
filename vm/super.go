package vm

// Super dispatch resolves a name in an ancestor's trait table instead of the
// receiver's own, so overrides further down the chain are bypassed. The
// ancestor comes from the lexical context of the calling method; it must be
// obj's table or one of its parents. Names with no trait in the ancestor
// chain fall back to obj's dynamic properties, as ordinary dispatch does.

// GetSuper is GetProperty resolved from ancestor.
func (rt *Runtime) GetSuper(obj *Object, name QualifiedName, ancestor *TraitTable) (Value, error) {
	return rt.getKey(obj, superKey(obj, name, ancestor))
}

// SetSuper is SetProperty resolved from ancestor.
func (rt *Runtime) SetSuper(obj *Object, name QualifiedName, v Value, op SetOp, ancestor *TraitTable) error {
	return rt.setKey(obj, superKey(obj, name, ancestor), v, op)
}

// CallSuper is CallProperty resolved from ancestor. The receiver is always
// obj.
func (rt *Runtime) CallSuper(obj *Object, name QualifiedName, args []Value, ancestor *TraitTable) (Value, error) {
	return rt.callKey(obj, superKey(obj, name, ancestor), args, false)
}

func superKey(obj *Object, name QualifiedName, ancestor *TraitTable) Key {
	if ancestor == nil || !obj.traits.Contains(ancestor) {
		consistencyFailure("super", "trait table is not in the chain of %s", obj.ClassName())
	}
	return resolveIn(ancestor, name)
}
