// Package builtins registers the primitive word catalog described in
// spec.md section 4.5: arithmetic, comparison, stack shufflers, return-stack
// ops, I/O, comments/documentation, variables, parsing words, VM state, and
// interpreter control.
//
// Each word is a small function of a dictionary.Executor, mirroring the
// registration style of oisee-psil's RegisterBuiltins/RegisterCombinators
// (one function per word, grouped under a section banner), but the word
// bodies themselves follow the source-language primitive set rather than
// PSIL's quotation/combinator model.
package builtins

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/autocorr/sloth/pkg/dictionary"
	"github.com/autocorr/sloth/pkg/value"
	"github.com/autocorr/sloth/pkg/vmerrors"
)

// indent prefixes every line of s with prefix, mirroring Python's
// textwrap.indent as used by the original doc-comment primitive.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// Primitives builds the shared template of primitive words, copied fresh
// into every new VirtualMachine by dictionary.New.
func Primitives() map[string]dictionary.Word {
	p := map[string]dictionary.Word{}
	reg := func(name string, fn dictionary.Fn, immediate bool, stackEffect, doc string) {
		p[name] = dictionary.NewBuiltin(name, fn, immediate, stackEffect, doc)
	}

	registerArithmetic(reg)
	registerComparisonLogic(reg)
	registerStackShufflers(reg)
	registerReturnStack(reg)
	registerIO(reg)
	registerCommentsAndDocs(reg)
	registerVariables(reg)
	registerParsingWords(reg)
	registerVMState(reg)
	registerInterpreter(reg)

	return p
}

type register func(name string, fn dictionary.Fn, immediate bool, stackEffect, doc string)

func binaryArith(vm dictionary.Executor, op value.NumericOp) error {
	return binaryOp(vm, func(a, b value.Value) (value.Value, error) {
		return value.Arith(a, b, op)
	})
}

func binaryOp(vm dictionary.Executor, f func(a, b value.Value) (value.Value, error)) error {
	b, err := vm.PopData()
	if err != nil {
		return err
	}
	a, err := vm.PopData()
	if err != nil {
		return err
	}
	r, err := f(a, b)
	if err != nil {
		return err
	}
	vm.PushData(r)
	return nil
}

func unaryOp(vm dictionary.Executor, f func(value.Value) (value.Value, error)) error {
	top, err := vm.TopData()
	if err != nil {
		return err
	}
	r, err := f(top)
	if err != nil {
		return err
	}
	return vm.SetTopData(r)
}

func asInt(v value.Value) (int64, bool) {
	n, ok := v.(value.Integer)
	return int64(n), ok
}

// === Arithmetic ===========================================================

func registerArithmetic(reg register) {
	reg("neg", func(vm dictionary.Executor) error {
		return unaryOp(vm, func(v value.Value) (value.Value, error) {
			switch n := v.(type) {
			case value.Integer:
				return -n, nil
			case value.Float:
				return -n, nil
			default:
				return nil, vmerrors.TypeError{Detail: "neg: non-numeric operand"}
			}
		})
	}, false, "( n -- -n )", "Negate a number.")

	reg("+", func(vm dictionary.Executor) error {
		return binaryArith(vm, value.NumericOp{
			Int:   func(a, b int64) (int64, error) { return a + b, nil },
			Float: func(a, b float64) float64 { return a + b },
		})
	}, false, "( a b -- a+b )", "")

	reg("-", func(vm dictionary.Executor) error {
		return binaryArith(vm, value.NumericOp{
			Int:   func(a, b int64) (int64, error) { return a - b, nil },
			Float: func(a, b float64) float64 { return a - b },
		})
	}, false, "( a b -- a-b )", "")

	reg("*", func(vm dictionary.Executor) error {
		return binaryArith(vm, value.NumericOp{
			Int:   func(a, b int64) (int64, error) { return a * b, nil },
			Float: func(a, b float64) float64 { return a * b },
		})
	}, false, "( a b -- a*b )", "")

	reg("/", func(vm dictionary.Executor) error {
		return binaryOp(vm, func(a, b value.Value) (value.Value, error) {
			af, aok := toFloat(a)
			bf, bok := toFloat(b)
			if !aok || !bok {
				return nil, vmerrors.TypeError{Detail: "/: non-numeric operand"}
			}
			if bf == 0 {
				return nil, vmerrors.ContextError{Detail: "/: division by zero"}
			}
			return value.Float(af / bf), nil
		})
	}, false, "( a b -- a/b )", "True division; always yields a float.")

	reg("//", func(vm dictionary.Executor) error {
		return binaryArith(vm, value.NumericOp{
			Int: func(a, b int64) (int64, error) {
				if b == 0 {
					return 0, vmerrors.ContextError{Detail: "//: division by zero"}
				}
				q := a / b
				if (a%b != 0) && ((a < 0) != (b < 0)) {
					q--
				}
				return q, nil
			},
			Float: func(a, b float64) float64 {
				return floorFloat(a / b)
			},
		})
	}, false, "( a b -- a//b )", "Floor division.")

	reg("mod", func(vm dictionary.Executor) error {
		return binaryArith(vm, value.NumericOp{
			Int: func(a, b int64) (int64, error) {
				if b == 0 {
					return 0, vmerrors.ContextError{Detail: "mod: division by zero"}
				}
				m := a % b
				if m != 0 && (m < 0) != (b < 0) {
					m += b
				}
				return m, nil
			},
			Float: func(a, b float64) float64 {
				m := floatMod(a, b)
				return m
			},
		})
	}, false, "( a b -- a%b )", "")

	reg("**", func(vm dictionary.Executor) error {
		return binaryOp(vm, func(a, b value.Value) (value.Value, error) {
			// A negative exponent promotes to float even when both
			// operands are Integer, matching Python's operator.pow
			// (2 ** -1 == 0.5): value.Arith's int/int dispatch has no
			// way to signal "promote" from inside op.Int, so that case
			// is routed to powFloat directly, before Arith ever sees it.
			if ai, aok := a.(value.Integer); aok {
				if bi, bok := b.(value.Integer); bok && bi < 0 {
					return value.Float(powFloat(float64(ai), float64(bi))), nil
				}
			}
			return value.Arith(a, b, value.NumericOp{
				Int: func(a, b int64) (int64, error) {
					r := int64(1)
					for i := int64(0); i < b; i++ {
						r *= a
					}
					return r, nil
				},
				Float: powFloat,
			})
		})
	}, false, "( a b -- a**b )", "")

	reg("1+", func(vm dictionary.Executor) error {
		return unaryOp(vm, func(v value.Value) (value.Value, error) {
			return value.Arith(v, value.Integer(1), value.NumericOp{
				Int:   func(a, b int64) (int64, error) { return a + b, nil },
				Float: func(a, b float64) float64 { return a + b },
			})
		})
	}, false, "( n -- n+1 )", "")

	reg("1-", func(vm dictionary.Executor) error {
		return unaryOp(vm, func(v value.Value) (value.Value, error) {
			return value.Arith(v, value.Integer(1), value.NumericOp{
				Int:   func(a, b int64) (int64, error) { return a - b, nil },
				Float: func(a, b float64) float64 { return a - b },
			})
		})
	}, false, "( n -- n-1 )", "")

	reg("max", func(vm dictionary.Executor) error {
		return binaryOp(vm, func(a, b value.Value) (value.Value, error) {
			c, err := value.Compare(a, b)
			if err != nil {
				return nil, err
			}
			if c >= 0 {
				return a, nil
			}
			return b, nil
		})
	}, false, "( a b -- max )", "")

	reg("min", func(vm dictionary.Executor) error {
		return binaryOp(vm, func(a, b value.Value) (value.Value, error) {
			c, err := value.Compare(a, b)
			if err != nil {
				return nil, err
			}
			if c <= 0 {
				return a, nil
			}
			return b, nil
		})
	}, false, "( a b -- min )", "")

	reg("abs", func(vm dictionary.Executor) error {
		return unaryOp(vm, func(v value.Value) (value.Value, error) {
			switch n := v.(type) {
			case value.Integer:
				if n < 0 {
					return -n, nil
				}
				return n, nil
			case value.Float:
				if n < 0 {
					return -n, nil
				}
				return n, nil
			default:
				return nil, vmerrors.TypeError{Detail: "abs: non-numeric operand"}
			}
		})
	}, false, "( n -- |n| )", "")
}

func toFloat(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case value.Integer:
		return float64(n), true
	case value.Float:
		return float64(n), true
	default:
		return 0, false
	}
}

func floorFloat(f float64) float64 {
	i := float64(int64(f))
	if f < i {
		i--
	}
	return i
}

func floatMod(a, b float64) float64 {
	m := a - floorFloat(a/b)*b
	return m
}

func powFloat(a, b float64) float64 {
	r := 1.0
	neg := b < 0
	n := b
	if neg {
		n = -n
	}
	for i := 0.0; i < n; i++ {
		r *= a
	}
	if neg {
		return 1 / r
	}
	return r
}

// === Comparison and Logical ===============================================

func registerComparisonLogic(reg register) {
	// `true`/`false` push Boolean constants. The original spells these
	// `True`/`False`; keep the spelling, it is part of the word catalog.
	reg("True", func(vm dictionary.Executor) error {
		vm.PushData(value.Boolean(true))
		return nil
	}, false, "( -- true )", "")
	reg("False", func(vm dictionary.Executor) error {
		vm.PushData(value.Boolean(false))
		return nil
	}, false, "( -- false )", "")

	cmp := func(name string, test func(c int) bool, doc string) {
		reg(name, func(vm dictionary.Executor) error {
			return binaryOp(vm, func(a, b value.Value) (value.Value, error) {
				c, err := value.Compare(a, b)
				if err != nil {
					return nil, err
				}
				return value.Boolean(test(c)), nil
			})
		}, false, "( a b -- bool )", doc)
	}
	cmp("=", func(c int) bool { return c == 0 }, "")
	cmp("<>", func(c int) bool { return c != 0 }, "")
	cmp(">", func(c int) bool { return c > 0 }, "")
	cmp("<", func(c int) bool { return c < 0 }, "")
	cmp(">=", func(c int) bool { return c >= 0 }, "")
	cmp("<=", func(c int) bool { return c <= 0 }, "")

	zeroCmp := func(name string, test func(float64) bool) {
		reg(name, func(vm dictionary.Executor) error {
			return unaryOp(vm, func(v value.Value) (value.Value, error) {
				f, ok := toFloat(v)
				if !ok {
					return nil, vmerrors.TypeError{Detail: name + ": non-numeric operand"}
				}
				return value.Boolean(test(f)), nil
			})
		}, false, "( n -- bool )", "")
	}
	zeroCmp("0=", func(f float64) bool { return f == 0 })
	zeroCmp("0<>", func(f float64) bool { return f != 0 })
	zeroCmp("0<", func(f float64) bool { return f < 0 })
	zeroCmp("0>", func(f float64) bool { return f > 0 })
	zeroCmp("1=", func(f float64) bool { return f == 1 })

	reg("not", func(vm dictionary.Executor) error {
		return unaryOp(vm, func(v value.Value) (value.Value, error) {
			return value.Boolean(!value.Truthy(v)), nil
		})
	}, false, "( x -- bool )", "")

	// `and`/`or` preserve operand identity (Python truthiness), not forced
	// to Boolean: `0 1 and` leaves `0`, not `false`.
	reg("and", func(vm dictionary.Executor) error {
		b, err := vm.PopData()
		if err != nil {
			return err
		}
		a, err := vm.PopData()
		if err != nil {
			return err
		}
		if !value.Truthy(a) {
			vm.PushData(a)
			return nil
		}
		vm.PushData(b)
		return nil
	}, false, "( a b -- a-or-b )", "")

	reg("or", func(vm dictionary.Executor) error {
		b, err := vm.PopData()
		if err != nil {
			return err
		}
		a, err := vm.PopData()
		if err != nil {
			return err
		}
		if value.Truthy(a) {
			vm.PushData(a)
			return nil
		}
		vm.PushData(b)
		return nil
	}, false, "( a b -- a-or-b )", "")
}

// === Stack Shufflers =======================================================

func registerStackShufflers(reg register) {
	reg("drop", func(vm dictionary.Executor) error {
		_, err := vm.PopData()
		return err
	}, false, "( a -- )", "")

	reg("swap", func(vm dictionary.Executor) error {
		a, err := vm.DataAt(1)
		if err != nil {
			return err
		}
		b, err := vm.DataAt(0)
		if err != nil {
			return err
		}
		if err := vm.SetDataAt(1, b); err != nil {
			return err
		}
		return vm.SetDataAt(0, a)
	}, false, "( a b -- b a )", "")

	reg("dup", func(vm dictionary.Executor) error {
		top, err := vm.TopData()
		if err != nil {
			return err
		}
		vm.PushData(top)
		return nil
	}, false, "( a -- a a )", "")

	reg("over", func(vm dictionary.Executor) error {
		v, err := vm.DataAt(1)
		if err != nil {
			return err
		}
		vm.PushData(v)
		return nil
	}, false, "( a b -- a b a )", "")

	reg("2over", func(vm dictionary.Executor) error {
		v, err := vm.DataAt(3)
		if err != nil {
			return err
		}
		vm.PushData(v)
		v, err = vm.DataAt(3)
		if err != nil {
			return err
		}
		vm.PushData(v)
		return nil
	}, false, "( a b c d -- a b c d a b )", "")

	reg("rot", func(vm dictionary.Executor) error {
		a, err := vm.DataAt(2)
		if err != nil {
			return err
		}
		b, err := vm.DataAt(1)
		if err != nil {
			return err
		}
		c, err := vm.DataAt(0)
		if err != nil {
			return err
		}
		if err := vm.SetDataAt(2, b); err != nil {
			return err
		}
		if err := vm.SetDataAt(1, c); err != nil {
			return err
		}
		return vm.SetDataAt(0, a)
	}, false, "( a b c -- b c a )", "")

	reg("-rot", func(vm dictionary.Executor) error {
		a, err := vm.DataAt(2)
		if err != nil {
			return err
		}
		b, err := vm.DataAt(1)
		if err != nil {
			return err
		}
		c, err := vm.DataAt(0)
		if err != nil {
			return err
		}
		if err := vm.SetDataAt(2, c); err != nil {
			return err
		}
		if err := vm.SetDataAt(1, a); err != nil {
			return err
		}
		return vm.SetDataAt(0, b)
	}, false, "( a b c -- c a b )", "")

	reg("2swap", func(vm dictionary.Executor) error {
		a, err := vm.DataAt(3)
		if err != nil {
			return err
		}
		b, err := vm.DataAt(2)
		if err != nil {
			return err
		}
		c, err := vm.DataAt(1)
		if err != nil {
			return err
		}
		d, err := vm.DataAt(0)
		if err != nil {
			return err
		}
		vm.SetDataAt(3, c)
		vm.SetDataAt(2, d)
		vm.SetDataAt(1, a)
		vm.SetDataAt(0, b)
		return nil
	}, false, "( a b c d -- c d a b )", "")

	reg("?dup", func(vm dictionary.Executor) error {
		top, err := vm.TopData()
		if err != nil {
			return err
		}
		if value.Truthy(top) {
			vm.PushData(top)
		}
		return nil
	}, false, "( a -- a a | a )", "Duplicate only if the top is truthy.")

	reg("depth", func(vm dictionary.Executor) error {
		vm.PushData(value.Integer(vm.DataLen()))
		return nil
	}, false, "( -- n )", "")

	reg("pick", func(vm dictionary.Executor) error {
		n, err := vm.PopData()
		if err != nil {
			return err
		}
		idx, ok := asInt(n)
		if !ok {
			return vmerrors.TypeError{Detail: "pick: non-integer index"}
		}
		v, err := vm.DataAt(int(idx))
		if err != nil {
			return vmerrors.StackUnderflow{Op: "pick"}
		}
		vm.PushData(v)
		return nil
	}, false, "( ... n -- ... x )", "")

	reg("clearstack", func(vm dictionary.Executor) error {
		vm.ClearData()
		return nil
	}, false, "( ... -- )", "")

	reg("clearstacks", func(vm dictionary.Executor) error {
		vm.ClearData()
		vm.ClearReturn()
		return nil
	}, false, "( ... -- )", "")
}

// === Return Stack ==========================================================

func registerReturnStack(reg register) {
	reg(">r", func(vm dictionary.Executor) error {
		v, err := vm.PopData()
		if err != nil {
			return err
		}
		vm.PushReturn(v)
		return nil
	}, false, "( x -- ) ( R: -- x )", "")

	reg("r>", func(vm dictionary.Executor) error {
		v, err := vm.PopReturn()
		if err != nil {
			return err
		}
		vm.PushData(v)
		return nil
	}, false, "( -- x ) ( R: x -- )", "")

	reg("rdrop", func(vm dictionary.Executor) error {
		_, err := vm.PopReturn()
		return err
	}, false, "( R: x -- )", "")

	reg("rp@", func(vm dictionary.Executor) error {
		vm.PushData(value.Integer(vm.ReturnLen()))
		return nil
	}, false, "( -- n )", "")

	reg("r+", func(vm dictionary.Executor) error {
		return adjustReturnTop(vm, 1)
	}, false, "( R: n -- n+1 )", "")

	reg("r-", func(vm dictionary.Executor) error {
		return adjustReturnTop(vm, -1)
	}, false, "( R: n -- n-1 )", "")

	reg("i", func(vm dictionary.Executor) error {
		v, err := vm.TopReturn()
		if err != nil {
			return err
		}
		vm.PushData(v)
		return nil
	}, false, "( -- x ) ( R: x -- x )", "Copy the return stack's top to the data stack.")

	reg("here", func(vm dictionary.Executor) error {
		cur, ok := vm.CurrentWord()
		if !ok {
			return vmerrors.ContextError{Detail: `"here": no previously compiled word`}
		}
		vm.PushData(value.Integer(len(cur.Code())))
		return nil
	}, false, "( -- addr )", "")

	reg("exit", func(vm dictionary.Executor) error {
		if vm.ReturnLen() == 0 {
			return vmerrors.ContextError{Detail: `"exit": cannot exit outside of a definition`}
		}
		return vmerrors.WordExit{}
	}, false, "( -- )", "")

	reg(".r", func(vm dictionary.Executor) error {
		fmt.Println(formatReturnStack(vm))
		return nil
	}, false, "( -- )", "Print the return stack.")
}

func adjustReturnTop(vm dictionary.Executor, delta int64) error {
	v, err := vm.TopReturn()
	if err != nil {
		return err
	}
	n, ok := asInt(v)
	if !ok {
		return vmerrors.TypeError{Detail: "return stack top is not an integer"}
	}
	return setTopReturn(vm, value.Integer(n+delta))
}

// setTopReturn has no direct Executor method (the return stack's top is
// only ever replaced via pop+push by these two ops), so it is implemented
// in terms of Pop/Push rather than widening the interface for one caller.
func setTopReturn(vm dictionary.Executor, v value.Value) error {
	if _, err := vm.PopReturn(); err != nil {
		return err
	}
	vm.PushReturn(v)
	return nil
}

func formatReturnStack(vm dictionary.Executor) string {
	items := vm.ReturnItems()
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// === Input / Output ========================================================

func registerIO(reg register) {
	reg("emit", func(vm dictionary.Executor) error {
		v, err := vm.PopData()
		if err != nil {
			return err
		}
		n, ok := asInt(v)
		if !ok {
			return vmerrors.TypeError{Detail: "emit: non-integer codepoint"}
		}
		fmt.Println(string(rune(n)))
		return nil
	}, false, "( code -- )", "")

	reg("key", func(vm dictionary.Executor) error {
		r, err := vm.NextChar()
		if err != nil {
			return err
		}
		vm.PushData(value.Integer(r))
		return nil
	}, false, "( -- code )", "")

	reg("word", func(vm dictionary.Executor) error {
		s, err := vm.NextWord()
		if err != nil {
			return err
		}
		vm.PushData(value.Symbol(s))
		return nil
	}, false, "( -- sym )", "")

	reg(".", func(vm dictionary.Executor) error {
		v, err := vm.PopData()
		if err != nil {
			return err
		}
		fmt.Println(v.String())
		return nil
	}, false, "( x -- )", "")

	reg(".s", func(vm dictionary.Executor) error {
		items := vm.DataItems()
		parts := make([]string, len(items))
		for i, v := range items {
			parts[i] = v.String()
		}
		fmt.Printf("<%d> %s\n", len(items), strings.Join(parts, " "))
		return nil
	}, false, "( -- )", "Print the data stack without consuming it.")
}

// === Comments and Documentation ============================================

// accumUntil reads characters one at a time until it has just read the
// sentinel string, returning everything accumulated before it, or
// vmerrors.LexicalError if the stream ends first. Grounded on
// `original_source/sloth/primitives.py`'s accum_until, reimplemented with an
// explicit rune ring buffer instead of the original's deque-equality trick.
func accumUntil(vm dictionary.Executor, sentinel string) (string, error) {
	n := len([]rune(sentinel))
	ring := make([]rune, n)
	filled := 0
	var accum []rune
	for {
		r, err := vm.NextChar()
		if err != nil {
			return "", vmerrors.LexicalError{Detail: fmt.Sprintf("end of stream before closing %q", sentinel)}
		}
		copy(ring, ring[1:])
		ring[n-1] = r
		if filled < n {
			filled++
		}
		if filled == n && string(ring) == sentinel {
			break
		}
		accum = append(accum, r)
	}
	if len(accum) >= n-1 {
		return string(accum[:len(accum)-(n-1)]), nil
	}
	return "", nil
}

func registerCommentsAndDocs(reg register) {
	reg("\\", func(vm dictionary.Executor) error {
		_, err := accumUntil(vm, "\n")
		return err
	}, true, "", "Line comment: discard through end of line.")

	reg("(", func(vm dictionary.Executor) error {
		text, err := accumUntil(vm, ")")
		if err != nil {
			return err
		}
		if cur, ok := vm.CurrentWord(); ok && len(cur.Code()) == 0 && cur.StackEffect() == "" {
			cur.SetStackEffect("( " + strings.TrimSpace(text) + " )")
		}
		return nil
	}, true, "", "Stack-effect comment, attached to the word just created.")

	reg(`("`, func(vm dictionary.Executor) error {
		text, err := accumUntil(vm, `")`)
		if err != nil {
			return err
		}
		cur, ok := vm.CurrentWord()
		if !ok || vm.ReturnLen() == 0 {
			return vmerrors.ContextError{Detail: "invalid doc-comment: outside of definition"}
		}
		cur.SetDoc(indent(strings.TrimSpace(text), "  "))
		return nil
	}, true, "", "Docstring comment, attached to the word just created.")

	reg("help", func(vm dictionary.Executor) error {
		name, err := vm.NextWord()
		if err != nil {
			return err
		}
		w, ok := vm.Dict().Lookup(name)
		if !ok {
			return vmerrors.UndefinedSymbol{Symbol: name}
		}
		fmt.Println(w.StackEffect())
		fmt.Println(w.Doc())
		return nil
	}, true, "( -- )", "Print a word's stack effect and documentation.")

	reg("words", func(vm dictionary.Executor) error {
		fmt.Println(strings.Join(vm.Dict().Names(), " "))
		return nil
	}, false, "( -- )", "List every defined word.")
}

// === Variables =============================================================

func registerVariables(reg register) {
	reg("!", func(vm dictionary.Executor) error {
		addr, err := vm.PopData()
		if err != nil {
			return err
		}
		v, err := vm.PopData()
		if err != nil {
			return err
		}
		vm.HeapSet(addr, v)
		return nil
	}, false, "( v addr -- )", "")

	reg("w!", func(vm dictionary.Executor) error {
		addr, err := vm.PopData()
		if err != nil {
			return err
		}
		v, err := vm.PopData()
		if err != nil {
			return err
		}
		idx, ok := asInt(addr)
		if !ok {
			return vmerrors.TypeError{Detail: "w!: non-integer address"}
		}
		cur, ok := vm.CurrentWord()
		if !ok {
			return vmerrors.CodeOutOfBounds{Detail: fmt.Sprintf("address %d out of bounds", idx)}
		}
		if err := cur.SetAt(int(idx), v); err != nil {
			return vmerrors.CodeOutOfBounds{Detail: fmt.Sprintf("address %d out of bounds", idx)}
		}
		return nil
	}, false, "( v addr -- )", "")

	reg("+!", func(vm dictionary.Executor) error {
		return heapAdjust(vm, func(a, b int64) (int64, error) { return a + b, nil },
			func(a, b float64) float64 { return a + b })
	}, false, "( v addr -- )", "")

	reg("-!", func(vm dictionary.Executor) error {
		return heapAdjust(vm, func(a, b int64) (int64, error) { return a - b, nil },
			func(a, b float64) float64 { return a - b })
	}, false, "( v addr -- )", "")

	reg("@", func(vm dictionary.Executor) error {
		addr, err := vm.PopData()
		if err != nil {
			return err
		}
		v, ok := vm.HeapGet(addr)
		if !ok {
			return vmerrors.HeapMiss{Addr: addr.String()}
		}
		vm.PushData(v)
		return nil
	}, false, "( addr -- v )", "")

	reg("w@", func(vm dictionary.Executor) error {
		addr, err := vm.PopData()
		if err != nil {
			return err
		}
		idx, ok := asInt(addr)
		if !ok {
			return vmerrors.TypeError{Detail: "w@: non-integer address"}
		}
		cur, ok := vm.CurrentWord()
		if !ok {
			return vmerrors.CodeOutOfBounds{Detail: fmt.Sprintf("address %d out of bounds", idx)}
		}
		v, err := cur.At(int(idx))
		if err != nil {
			return vmerrors.CodeOutOfBounds{Detail: fmt.Sprintf("address %d out of bounds", idx)}
		}
		vm.PushData(v)
		return nil
	}, false, "( addr -- v )", "")

	reg(".m", func(vm dictionary.Executor) error {
		vm.HeapEach(func(k, v value.Value) {
			fmt.Printf("%s -> %s\n", k.String(), v.String())
		})
		return nil
	}, false, "( -- )", "Print every heap slot.")
}

func heapAdjust(vm dictionary.Executor, intOp func(a, b int64) (int64, error), floatOp func(a, b float64) float64) error {
	addr, err := vm.PopData()
	if err != nil {
		return err
	}
	v, err := vm.PopData()
	if err != nil {
		return err
	}
	cur, ok := vm.HeapGet(addr)
	if !ok {
		vm.HeapSet(addr, v)
		return nil
	}
	r, err := value.Arith(cur, v, value.NumericOp{Int: intOp, Float: floatOp})
	if err != nil {
		return err
	}
	vm.HeapSet(addr, r)
	return nil
}

// === Parsing Words =========================================================

func registerParsingWords(reg register) {
	reg("immediate", func(vm dictionary.Executor) error {
		cur, ok := vm.CurrentWord()
		if !ok {
			return vmerrors.ContextError{Detail: `"immediate": no previously compiled word`}
		}
		cur.SetImmediate(true)
		return nil
	}, true, "( -- )", "Mark the word just created as immediate.")

	reg("immediate?", func(vm dictionary.Executor) error {
		v, err := vm.PopData()
		if err != nil {
			return err
		}
		ref, ok := v.(value.WordRef)
		if !ok {
			return vmerrors.TypeError{Detail: fmt.Sprintf("immediate flag not defined for %q", v.String())}
		}
		vm.PushData(value.Boolean(ref.Word.Immediate()))
		return nil
	}, false, "( w -- bool )", "")

	reg("branch", func(vm dictionary.Executor) error {
		return doBranch(vm)
	}, false, "( -- )", "Unconditional relative jump by the following inline offset.")

	reg("0branch", func(vm dictionary.Executor) error {
		v, err := vm.PopData()
		if err != nil {
			return err
		}
		if !value.Truthy(v) {
			return doBranch(vm)
		}
		vm.SetIP(vm.GetIP() + 1)
		return nil
	}, false, "( bool -- )", "Relative jump taken only when the popped value is falsy.")

	reg("[", func(vm dictionary.Executor) error {
		vm.SetCompiling(false)
		return nil
	}, true, "( -- )", "Temporarily switch to interpret mode inside a definition.")

	reg("]", func(vm dictionary.Executor) error {
		vm.SetCompiling(true)
		return nil
	}, false, "( -- )", "Resume compiling.")

	reg("interpret?", func(vm dictionary.Executor) error {
		vm.PushData(value.Boolean(!vm.Compiling()))
		return nil
	}, false, "( -- bool )", "")

	reg("[']", func(vm dictionary.Executor) error {
		w, err := vm.NextCompiledInstr()
		if err != nil {
			return err
		}
		vm.PushData(w)
		vm.SetIP(vm.GetIP() + 1)
		return nil
	}, false, "( -- w )", "Push the word reference compiled immediately after this one.")

	reg("'", func(vm dictionary.Executor) error {
		sym, err := vm.NextWord()
		if err != nil {
			return err
		}
		w, ok := vm.Dict().Lookup(sym)
		if !ok {
			return vmerrors.UndefinedSymbol{Symbol: sym}
		}
		vm.PushData(value.WordRef{Word: w})
		return nil
	}, false, "( -- w )", "Look up the next symbol and push its word reference.")

	reg("does>", func(vm dictionary.Executor) error {
		fw, ok := vm.FrameWord()
		if !ok {
			return vmerrors.ContextError{Detail: `"does>": not inside a definition`}
		}
		cur, ok := vm.CurrentWord()
		if !ok {
			return vmerrors.ContextError{Detail: `"does>": no previously compiled word`}
		}
		for _, op := range fw.Code()[vm.GetIP()+1:] {
			cur.Append(op)
		}
		return vmerrors.WordExit{}
	}, false, "( -- )", "Splice the remainder of the defining word's code onto the word it creates.")

	reg(",", func(vm dictionary.Executor) error {
		v, err := vm.PopData()
		if err != nil {
			return err
		}
		cur, ok := vm.CurrentWord()
		if !ok {
			return vmerrors.ContextError{Detail: `",": no previously compiled word`}
		}
		cur.Append(v)
		return nil
	}, false, "( x -- )", "Append x to the most recently created word's code.")

	reg("lastword", func(vm dictionary.Executor) error {
		cur, ok := vm.CurrentWord()
		if !ok {
			vm.PushData(value.Symbol(""))
			return nil
		}
		vm.PushData(value.WordRef{Word: cur})
		return nil
	}, false, "( -- w )", "")

	reg("create", func(vm dictionary.Executor) error {
		sym, err := vm.NextWord()
		if err != nil {
			return err
		}
		if _, exists := vm.Dict().Lookup(sym); exists && vm.Dict().Warn {
			fmt.Println(color.RedString("Warning:"), fmt.Sprintf("redefining %q in dictionary", sym))
		}
		vm.Dict().Insert(dictionary.NewDefined(sym))
		return nil
	}, false, "( -- )", "Create an empty word and make it last_word.")

	reg(":", func(vm dictionary.Executor) error {
		sym, err := vm.NextWord()
		if err != nil {
			return err
		}
		if _, exists := vm.Dict().Lookup(sym); exists && vm.Dict().Warn {
			fmt.Println(color.RedString("Warning:"), fmt.Sprintf("redefining %q in dictionary", sym))
		}
		w := dictionary.NewDefined(sym)
		vm.Dict().Insert(w)
		vm.Enter()
		vm.SetCompiling(true)
		return nil
	}, false, "( -- )", "Begin a new word definition.")

	reg(";", func(vm dictionary.Executor) error {
		if err := vm.Exit(); err != nil {
			return err
		}
		vm.SetCompiling(false)
		return nil
	}, true, "( -- )", "End the current word definition.")

	reg("hidden", func(vm dictionary.Executor) error {
		cur, ok := vm.CurrentWord()
		if !ok {
			return vmerrors.ContextError{Detail: `"hidden": no previously compiled word`}
		}
		cur.SetHidden(true)
		return nil
	}, true, "( -- )", "Mark the word just created as hidden from import.")

	reg("import", func(vm dictionary.Executor) error {
		sym, err := vm.NextWord()
		if err != nil {
			return err
		}
		return vm.Import(sym)
	}, true, "( -- )", "Load a module by name and merge its public words.")
}

func doBranch(vm dictionary.Executor) error {
	op, err := vm.NextCompiledInstr()
	if err != nil {
		return err
	}
	offset, ok := asInt(op)
	if !ok {
		return vmerrors.TypeError{Detail: "branch: offset is not an integer"}
	}
	vm.SetIP(vm.GetIP() + int(offset) + 1)
	return nil
}

// === Virtual Machine State =================================================

func registerVMState(reg register) {
	reg("toggle-warnings", func(vm dictionary.Executor) error {
		vm.Dict().Warn = !vm.Dict().Warn
		state := "off"
		if vm.Dict().Warn {
			state = "on"
		}
		fmt.Printf("Warnings turned %s\n", state)
		return nil
	}, false, "( -- )", "")
}

// === Interpreter ===========================================================

func registerInterpreter(reg register) {
	reg("bye", func(vm dictionary.Executor) error {
		return vmerrors.ErrBye{}
	}, false, "( -- )", "Exit the interpreter.")

	reg("decompile", func(vm dictionary.Executor) error {
		v, err := vm.PopData()
		if err != nil {
			return err
		}
		ref, ok := v.(value.WordRef)
		if !ok {
			return vmerrors.TypeError{Detail: "decompile: not a word"}
		}
		dw, ok := ref.Word.(*dictionary.DefinedWord)
		if !ok {
			fmt.Println(ref.Word.String())
			return nil
		}
		parts := make([]string, len(dw.Code()))
		for i, op := range dw.Code() {
			parts[i] = op.String()
		}
		fmt.Println(strings.Join(parts, " "))
		return nil
	}, false, "( w -- )", "Print a defined word's compiled code.")
}
