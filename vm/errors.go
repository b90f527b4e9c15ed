package vm

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Script errors
// ---------------------------------------------------------------------------

// ErrorFamily is the script-visible error class an error belongs to.
type ErrorFamily uint8

const (
	ReferenceErrorFamily ErrorFamily = iota + 1
	TypeErrorFamily
	ArgumentErrorFamily
)

func (f ErrorFamily) String() string {
	switch f {
	case ReferenceErrorFamily:
		return "ReferenceError"
	case TypeErrorFamily:
		return "TypeError"
	case ArgumentErrorFamily:
		return "ArgumentError"
	}
	return "Error"
}

// ScriptError is implemented by every error the object model raises to
// script code. They are reported at the point of detection and never
// retried.
type ScriptError interface {
	error
	Family() ErrorFamily
}

// WriteMethodError is raised when script assigns to a method trait.
type WriteMethodError struct {
	Class    string
	Property string
}

func (e *WriteMethodError) Error() string {
	return fmt.Sprintf("ReferenceError: cannot assign to method %s on %s", e.Property, e.Class)
}

func (e *WriteMethodError) Family() ErrorFamily { return ReferenceErrorFamily }

// ConstWriteError is raised on a normal write to a const, a class trait or
// a getter without a setter.
type ConstWriteError struct {
	Class    string
	Property string
}

func (e *ConstWriteError) Error() string {
	return fmt.Sprintf("ReferenceError: illegal write to read-only property %s on %s", e.Property, e.Class)
}

func (e *ConstWriteError) Family() ErrorFamily { return ReferenceErrorFamily }

// SealedWriteError is raised, under Config.StrictSealed, when a write would
// create a dynamic property on an instance of a sealed class.
type SealedWriteError struct {
	Class    string
	Property string
}

func (e *SealedWriteError) Error() string {
	return fmt.Sprintf("ReferenceError: cannot create property %s on %s", e.Property, e.Class)
}

func (e *SealedWriteError) Family() ErrorFamily { return ReferenceErrorFamily }

// NotCallableError is raised when the target of a call is not a function.
type NotCallableError struct {
	Class    string
	Property string
}

func (e *NotCallableError) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("TypeError: %s is not a function", e.Property)
	}
	return fmt.Sprintf("TypeError: %s is not a function on %s", e.Property, e.Class)
}

func (e *NotCallableError) Family() ErrorFamily { return TypeErrorFamily }

// NotConstructibleError is raised when construct resolves to anything but a
// class trait.
type NotConstructibleError struct {
	Class    string
	Property string
}

func (e *NotConstructibleError) Error() string {
	return fmt.Sprintf("TypeError: %s is not a constructor on %s", e.Property, e.Class)
}

func (e *NotConstructibleError) Family() ErrorFamily { return TypeErrorFamily }

// TypeCoercionError is raised when a value cannot be converted to a
// declared type.
type TypeCoercionError struct {
	Value string
	Type  string
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("TypeError: type coercion failed: cannot convert %s to %s", e.Value, e.Type)
}

func (e *TypeCoercionError) Family() ErrorFamily { return TypeErrorFamily }

// ArgumentCountError is raised when a function receives too few or too many
// arguments.
type ArgumentCountError struct {
	Function string
	Min      int
	Max      int // negative: no upper bound
	Got      int
}

func (e *ArgumentCountError) Error() string {
	expected := strconv.Itoa(e.Min)
	switch {
	case e.Max < 0:
		expected += " or more"
	case e.Max != e.Min:
		expected += "-" + strconv.Itoa(e.Max)
	}
	return fmt.Sprintf("ArgumentError: argument count mismatch on %s: expected %s, got %d", e.Function, expected, e.Got)
}

func (e *ArgumentCountError) Family() ErrorFamily { return ArgumentErrorFamily }

// ---------------------------------------------------------------------------
// Internal consistency violations
// ---------------------------------------------------------------------------

// ConsistencyError is the panic value for defects in the caller, such as a
// second initialization of a frozen const or an enumeration index that was
// never handed out. These are not script conditions and are not returned as
// errors.
type ConsistencyError struct {
	Op     string
	Detail string
}

func (e *ConsistencyError) Error() string {
	return "internal consistency violation in " + e.Op + ": " + e.Detail
}

func consistencyFailure(op, format string, args ...any) {
	panic(&ConsistencyError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

// IsConsistencyError reports whether a recovered panic value came from a
// consistency check.
func IsConsistencyError(recovered any) bool {
	_, ok := recovered.(*ConsistencyError)
	return ok
}
