package vm

import (
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

// Config holds runtime configuration.
type Config struct {
	// StrictSealed rejects writes that would create a dynamic property on
	// an instance of a sealed class. Off by default: every object accepts
	// dynamic properties.
	StrictSealed bool

	// Logger receives link-time diagnostics. Defaults to the
	// "avmcore.vm" commonlog logger.
	Logger commonlog.Logger
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Logger: commonlog.GetLogger("avmcore.vm"),
	}
}

// Runtime is the execution context for the object model. It owns the class
// registry and the counters the linker draws ids from; every operation on
// objects goes through it. There is no global runtime: create one with
// NewRuntime and pass it along.
//
// Property operations are synchronous and re-entrant: natives invoked by an
// operation receive the Runtime and may issue further operations before
// returning. A Runtime is meant to be driven by one interpreter thread;
// only the class table and linking are safe for concurrent use.
type Runtime struct {
	classes *ClassTable
	config  Config
	log     commonlog.Logger

	linkMu    sync.Mutex
	traitIDs  atomic.Int64
	privateNS atomic.Uint32
	closed    bool
}

// NewRuntime creates a runtime with the given configuration.
func NewRuntime(cfg *Config) *Runtime {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	rt := &Runtime{
		classes: NewClassTable(),
		config:  *cfg,
		log:     cfg.Logger,
	}
	if rt.log == nil {
		rt.log = commonlog.GetLogger("avmcore.vm")
		rt.config.Logger = rt.log
	}
	return rt
}

// Close releases the class registry. Objects created by the runtime remain
// valid Go values but no further classes can be looked up.
func (rt *Runtime) Close() error {
	if rt.closed {
		return nil
	}
	rt.log.Debugf("closing runtime: %d classes", rt.classes.Len())
	rt.classes.clear()
	rt.closed = true
	return nil
}

// Classes returns the runtime's class registry.
func (rt *Runtime) Classes() *ClassTable {
	return rt.classes
}

// Config returns a copy of the runtime configuration.
func (rt *Runtime) Config() Config {
	return rt.config
}

// SetStrictSealed toggles sealed-class write rejection.
func (rt *Runtime) SetStrictSealed(strict bool) {
	rt.config.StrictSealed = strict
}

// NewPrivateNamespace creates a private namespace distinct from every other
// namespace, including other private namespaces with the same URI.
func (rt *Runtime) NewPrivateNamespace(uri string) Namespace {
	return Namespace{Kind: NamespacePrivate, URI: uri, id: rt.privateNS.Add(1)}
}

func (rt *Runtime) nextTraitID() int {
	return int(rt.traitIDs.Add(1))
}

// Invoke calls a callable value. Raw functions receive this; closures
// always receive their bound receiver; calling a class with one argument
// coerces the argument to the class type.
func (rt *Runtime) Invoke(callee Value, this Value, args []Value) (Value, error) {
	switch callee.kind {
	case KindFunction:
		return callee.Function().invoke(rt, this, args)
	case KindClosure:
		c := callee.Closure()
		return c.fn.invoke(rt, FromObject(c.receiver), args)
	case KindClass:
		c := callee.Class()
		if len(args) != 1 {
			return Undefined, &ArgumentCountError{Function: c.FullName(), Min: 1, Max: 1, Got: len(args)}
		}
		return ClassType(c).Coerce(args[0])
	}
	return Undefined, &NotCallableError{Property: ToString(callee)}
}
