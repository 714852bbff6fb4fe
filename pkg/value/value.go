// Package value defines the tagged union of run-time values that flow
// through the data stack, return stack, heap, and compiled code vectors.
package value

import (
	"fmt"
	"math"
)

// Value is the interface every run-time value implements. Concrete types are
// Integer, Float, Boolean, Symbol, and WordRef.
type Value interface {
	String() string
	Type() string
	Equal(other Value) bool
}

// Integer is an arbitrary (well, 64-bit signed) whole number.
type Integer int64

func (n Integer) String() string { return fmt.Sprintf("%d", int64(n)) }
func (n Integer) Type() string   { return "integer" }

func (n Integer) Equal(other Value) bool {
	switch o := other.(type) {
	case Integer:
		return n == o
	case Float:
		return Float(n) == o
	default:
		return false
	}
}

// Float is an IEEE-754 double.
type Float float64

func (f Float) String() string {
	if f == Float(int64(f)) && !math.IsInf(float64(f), 0) {
		return fmt.Sprintf("%d.0", int64(f))
	}
	return fmt.Sprintf("%g", float64(f))
}
func (f Float) Type() string { return "float" }

func (f Float) Equal(other Value) bool {
	switch o := other.(type) {
	case Float:
		return f == o
	case Integer:
		return f == Float(o)
	default:
		return false
	}
}

// Boolean is a truth value.
type Boolean bool

func (b Boolean) String() string {
	if b {
		return "True"
	}
	return "False"
}
func (b Boolean) Type() string { return "boolean" }

func (b Boolean) Equal(other Value) bool {
	o, ok := other.(Boolean)
	return ok && b == o
}

// Symbol is a bare word grabbed from the stream by `word`, or a string
// literal value. Sloth does not distinguish strings from symbols at the
// value level; both are bare text.
type Symbol string

func (s Symbol) String() string { return string(s) }
func (s Symbol) Type() string   { return "symbol" }

func (s Symbol) Equal(other Value) bool {
	o, ok := other.(Symbol)
	return ok && s == o
}

// WordRef is a reference to a dictionary entry, as pushed by `'`, `[']`,
// `lastword`, and stored by `,`. The Word type lives in package dictionary;
// to avoid an import cycle (dictionary.Word's code vector holds Values, and
// a compiled Value can itself be a WordRef) WordRef holds an opaque handle
// satisfying the Word interface defined here.
type WordRef struct {
	Word Word
}

// Word is the minimal surface pkg/value needs from a dictionary entry: its
// name and whether it is marked immediate. pkg/dictionary's Word interface
// embeds this one.
type Word interface {
	Name() string
	Immediate() bool
}

func (w WordRef) String() string { return "w:" + w.Word.Name() }
func (w WordRef) Type() string   { return "word" }

func (w WordRef) Equal(other Value) bool {
	o, ok := other.(WordRef)
	return ok && w.Word == o.Word
}

// Truthy reports whether v should be treated as true by ?dup, 0branch, and
// friends. Integer/Float zero, Boolean false, and the empty symbol are falsy;
// everything else is truthy, matching Python's truthiness rules
// that the original implementation relied upon for `and`/`or`/`0branch`.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Boolean:
		return bool(t)
	case Integer:
		return t != 0
	case Float:
		return t != 0
	case Symbol:
		return t != ""
	default:
		return v != nil
	}
}

// IsNumeric reports whether v is an Integer or Float.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case Integer, Float:
		return true
	default:
		return false
	}
}

func asFloat(v Value) (float64, bool) {
	switch t := v.(type) {
	case Integer:
		return float64(t), true
	case Float:
		return float64(t), true
	default:
		return 0, false
	}
}

// NumericOp is the shape of a binary numeric op along its int and float
// forms, used by Arith to implement the source's implicit int/float
// promotion (int op float -> float).
type NumericOp struct {
	Int   func(a, b int64) (int64, error)
	Float func(a, b float64) float64
}

// Arith applies op to a and b, promoting to Float if either operand is a
// Float, matching spec.md section 3's promotion rule.
func Arith(a, b Value, op NumericOp) (Value, error) {
	ai, aIsInt := a.(Integer)
	bi, bIsInt := b.(Integer)
	if aIsInt && bIsInt && op.Int != nil {
		r, err := op.Int(int64(ai), int64(bi))
		if err != nil {
			return nil, err
		}
		return Integer(r), nil
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, fmt.Errorf("non-numeric operand")
	}
	return Float(op.Float(af, bf)), nil
}

// Compare returns -1, 0, or 1 per natural ordering of a and b, promoting to
// float if needed. Used by <, >, <=, >=.
func Compare(a, b Value) (int, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return 0, fmt.Errorf("non-numeric operand")
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}
