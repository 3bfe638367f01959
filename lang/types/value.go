// Package types provides the runtime representation of nymphea values: the
// primitive variants, the heap-allocated object model, the bytecode chunk
// they reference, and the garbage-collected heap that owns every object.
package types

import "strconv"

// Value is the interface implemented by any value manipulated by the
// machine.
type Value interface {
	// String returns the string representation of the value.
	String() string

	// Type returns a short string describing the value's type.
	Type() string
}

// NilType is the type of the nil value.
type NilType struct{}

// Nil is the distinguished nil value.
var Nil = NilType{}

func (NilType) String() string { return "nil" }
func (NilType) Type() string   { return "nil" }

// SentinelType is the type of the reserved iterator-done marker. It is a
// distinct variant: it compares equal only to itself and is never produced
// by arithmetic.
type SentinelType struct{}

// Sentinel is the value returned by iterator __next__ methods once the
// iterator is exhausted.
var Sentinel = SentinelType{}

func (SentinelType) String() string { return "sentinel" }
func (SentinelType) Type() string   { return "sentinel" }

// Bool is the type of boolean values.
type Bool bool

const (
	False Bool = false
	True  Bool = true
)

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (b Bool) Type() string { return "bool" }

// Number is the type of numeric values, an IEEE-754 double.
type Number float64

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

func (n Number) Type() string { return "number" }

// IsInt reports whether n holds an integral value that fits an int.
func (n Number) IsInt() bool {
	return n == Number(int(n))
}

// Truth returns the truth value of v: nil and false are falsey, everything
// else is truthy.
func Truth(v Value) bool {
	switch v := v.(type) {
	case NilType:
		return false
	case Bool:
		return bool(v)
	}
	return true
}

// Equal reports whether two values are equal: by value for primitives, by
// identity for heap objects. Strings are interned, so identity equality
// coincides with byte equality. NaN compares unequal to itself per IEEE-754.
func Equal(x, y Value) bool {
	if nx, ok := x.(Number); ok {
		ny, ok := y.(Number)
		return ok && nx == ny
	}
	return x == y
}

func markValue(v Value, mark func(Obj)) {
	if o, ok := v.(Obj); ok {
		mark(o)
	}
}
