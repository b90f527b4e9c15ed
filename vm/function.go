package vm

// NativeFunc is a Go function that implements a method, accessor or
// constructor. rt is the runtime performing the call, so the function may
// issue further property operations; this is the receiver, Undefined for
// lexical calls.
type NativeFunc func(rt *Runtime, this Value, args []Value) (Value, error)

// Func0 is a native taking no arguments.
type Func0 func(rt *Runtime, this Value) (Value, error)

// Func1 is a native taking one argument.
type Func1 func(rt *Runtime, this Value, arg Value) (Value, error)

// Func2 is a native taking two arguments.
type Func2 func(rt *Runtime, this Value, arg1, arg2 Value) (Value, error)

// Function is a raw callable: a native plus its accepted argument range.
// A negative maxArgs means the function takes rest arguments.
type Function struct {
	name    string
	minArgs int
	maxArgs int
	fn      NativeFunc
}

// NewFunction creates a function accepting between min and max arguments.
func NewFunction(name string, min, max int, fn NativeFunc) *Function {
	return &Function{name: name, minArgs: min, maxArgs: max, fn: fn}
}

// NewVariadic creates a function accepting min or more arguments.
func NewVariadic(name string, min int, fn NativeFunc) *Function {
	return &Function{name: name, minArgs: min, maxArgs: -1, fn: fn}
}

// NewFunction0 creates a zero-argument function.
func NewFunction0(name string, fn Func0) *Function {
	return NewFunction(name, 0, 0, func(rt *Runtime, this Value, args []Value) (Value, error) {
		return fn(rt, this)
	})
}

// NewFunction1 creates a one-argument function.
func NewFunction1(name string, fn Func1) *Function {
	return NewFunction(name, 1, 1, func(rt *Runtime, this Value, args []Value) (Value, error) {
		return fn(rt, this, args[0])
	})
}

// NewFunction2 creates a two-argument function.
func NewFunction2(name string, fn Func2) *Function {
	return NewFunction(name, 2, 2, func(rt *Runtime, this Value, args []Value) (Value, error) {
		return fn(rt, this, args[0], args[1])
	})
}

func (f *Function) Name() string { return f.name }
func (f *Function) MinArgs() int { return f.minArgs }
func (f *Function) MaxArgs() int { return f.maxArgs }

// checkArity validates an argument count against the accepted range.
func (f *Function) checkArity(n int) error {
	if n < f.minArgs || (f.maxArgs >= 0 && n > f.maxArgs) {
		return &ArgumentCountError{Function: f.name, Min: f.minArgs, Max: f.maxArgs, Got: n}
	}
	return nil
}

func (f *Function) invoke(rt *Runtime, this Value, args []Value) (Value, error) {
	if err := f.checkArity(len(args)); err != nil {
		return Undefined, err
	}
	return f.fn(rt, this, args)
}

// ---------------------------------------------------------------------------
// Closure: a method bound to its receiver
// ---------------------------------------------------------------------------

// Closure pairs a receiver with a method. Closures are handed out by an
// object's ClosureCache, so resolving the same method on the same object
// twice yields the same *Closure.
type Closure struct {
	receiver *Object
	fn       *Function
	trait    *Trait
}

func (c *Closure) Receiver() *Object   { return c.receiver }
func (c *Closure) Function() *Function { return c.fn }
func (c *Closure) Trait() *Trait       { return c.trait }
