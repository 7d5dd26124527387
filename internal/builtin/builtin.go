// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

// Package builtin implements calcnote's built-in function library: the
// math, sequence, string, object, type-inspection, environment and
// aggregate functions a notebook line can call by name.
//
// Builtins live apart from the evaluator so that higher-order functions
// (map/filter/reduce/sort/groupBy) can invoke a user function or lambda
// value without builtin importing evaluator: the evaluator passes itself
// in as an Apply callback at call time.
package builtin

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"calcnote/internal/calcerr"
	"calcnote/internal/dimension"
	"calcnote/internal/evalctx"
	"calcnote/internal/value"
)

// Apply invokes a callable Value (Function or Partial) with args, following
// the same call semantics as a direct AST Call node. The evaluator supplies
// the concrete implementation.
type Apply func(callee value.Value, args []value.Value) (value.Value, error)

// Func is one registered built-in: an arity range and the implementation.
// MaxArity of -1 means unbounded.
type Func struct {
	MinArity int
	MaxArity int
	Call     func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error)
}

var registry = map[string]Func{}

func register(name string, min, max int, fn func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error)) {
	registry[name] = Func{MinArity: min, MaxArity: max, Call: fn}
}

// Lookup returns the named builtin, if any.
func Lookup(name string) (Func, bool) {
	f, ok := registry[strings.ToLower(name)]
	return f, ok
}

// Names lists every registered builtin, for `env()`-style introspection and
// reserved-name checks.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func dc() *apd.Context { return value.DecimalContext }

func numArg(name string, pos int, v value.Value) (*apd.Decimal, error) {
	if v.Kind != value.KindNumber && v.Kind != value.KindPercentage && v.Kind != value.KindQuantity {
		return nil, calcerr.ArgTypeMismatch(name, pos, "number")
	}
	return v.Num, nil
}

func strArg(name string, pos int, v value.Value) (string, error) {
	if v.Kind != value.KindString {
		return "", calcerr.ArgTypeMismatch(name, pos, "string")
	}
	return v.Str, nil
}

func arrArg(name string, pos int, v value.Value) (*value.ArrayValue, error) {
	if v.Kind != value.KindArray {
		return nil, calcerr.ArgTypeMismatch(name, pos, "array")
	}
	return v.Arr, nil
}

func toFloat(d *apd.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func fromFloat(f float64) *apd.Decimal {
	d, _, _ := apd.NewFromString(strconv.FormatFloat(f, 'g', -1, 64))
	return d
}

// unaryMath registers a plain number->number function for dimensionless
// decimal math: a dimensioned Quantity argument is rejected with a
// TypeMismatch error, and the result is always a plain Number.
func unaryMath(name string, fn func(out, x *apd.Decimal, c *apd.Context) error) {
	register(name, 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		x, err := numArg(name, 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		if args[0].Kind == value.KindQuantity {
			return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "%s does not accept a dimensioned quantity", name)
		}
		out := new(apd.Decimal)
		if err := fn(out, x, dc()); err != nil {
			return value.Value{}, err
		}
		return value.Number(out), nil
	})
}

func floatMath(name string, fn func(float64) float64) {
	register(name, 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		x, err := numArg(name, 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		return value.Number(fromFloat(fn(toFloat(x)))), nil
	})
}

func init() {
	registerMath()
	registerSequence()
	registerString()
	registerObject()
	registerTypeInspection()
	registerEnvironment()
	registerAggregate()
}

func registerMath() {
	unaryMath("sqrt", func(out, x *apd.Decimal, c *apd.Context) error {
		if x.Negative {
			return calcerr.New(calcerr.KindTypeMismatch, "sqrt of a negative number")
		}
		_, err := c.Sqrt(out, x)
		return err
	})
	unaryMath("ln", func(out, x *apd.Decimal, c *apd.Context) error {
		_, err := c.Ln(out, x)
		return err
	})
	unaryMath("log", func(out, x *apd.Decimal, c *apd.Context) error {
		_, err := c.Log10(out, x)
		return err
	})
	unaryMath("abs", func(out, x *apd.Decimal, c *apd.Context) error {
		_, err := c.Abs(out, x)
		return err
	})
	unaryMath("ceil", func(out, x *apd.Decimal, c *apd.Context) error {
		_, err := c.Ceil(out, x)
		return err
	})
	unaryMath("floor", func(out, x *apd.Decimal, c *apd.Context) error {
		_, err := c.Floor(out, x)
		return err
	})

	register("cbrt", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		return rootN(args[0], 3)
	})
	register("root", 2, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		n, err := numArg("root", 2, args[1])
		if err != nil {
			return value.Value{}, err
		}
		ni, err := n.Int64()
		if err != nil {
			return value.Value{}, calcerr.New(calcerr.KindNonIntegerConversion, "root index must be an integer")
		}
		return rootN(args[0], int(ni))
	})
	register("round", 1, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		x, err := numArg("round", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		digits := int32(0)
		if len(args) == 2 {
			d, err := numArg("round", 2, args[1])
			if err != nil {
				return value.Value{}, err
			}
			n, _ := d.Int64()
			digits = int32(n)
		}
		out := new(apd.Decimal)
		rc := apd.BaseContext.WithPrecision(value.DecimalContext.Precision)
		rc.Rounding = apd.RoundHalfUp
		scale := new(apd.Decimal)
		scale.SetFinite(1, digits)
		tmp := new(apd.Decimal)
		rc.Mul(tmp, x, scale)
		rc.Round(tmp, tmp)
		invScale := new(apd.Decimal)
		rc.Quo(invScale, apd.New(1, 0), scale)
		rc.Mul(out, tmp, invScale)
		return value.Quantity(out, args[0].Dims), nil
	})
	register("fact", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		x, err := numArg("fact", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		n, err := x.Int64()
		if err != nil || n < 0 {
			return value.Value{}, calcerr.New(calcerr.KindNonIntegerConversion, "fact expects a non-negative integer")
		}
		out := apd.New(1, 0)
		for i := int64(2); i <= n; i++ {
			dc().Mul(out, out, apd.New(i, 0))
		}
		return value.Number(out), nil
	})
	register("bitor", 2, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		a, err := intArg("bitor", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		b, err := intArg("bitor", 2, args[1])
		if err != nil {
			return value.Value{}, err
		}
		return value.NumberFromInt(a | b), nil
	})

	floatMath("sin", math.Sin)
	floatMath("cos", math.Cos)
	floatMath("tan", math.Tan)
	floatMath("asin", math.Asin)
	floatMath("acos", math.Acos)
	floatMath("atan", math.Atan)
	floatMath("sinh", math.Sinh)
	floatMath("cosh", math.Cosh)
	floatMath("tanh", math.Tanh)
}

func intArg(name string, pos int, v value.Value) (int64, error) {
	d, err := numArg(name, pos, v)
	if err != nil {
		return 0, err
	}
	n, err := d.Int64()
	if err != nil {
		return 0, calcerr.New(calcerr.KindNonIntegerConversion, "%s argument %d must be an integer", name, pos)
	}
	return n, nil
}

func rootN(v value.Value, n int) (value.Value, error) {
	x, err := numArg("root", 1, v)
	if err != nil {
		return value.Value{}, err
	}
	if n == 0 {
		return value.Value{}, calcerr.New(calcerr.KindDivisionByZero, "root index cannot be zero")
	}
	dims := v.Dims
	if !dims.Empty() {
		// dimensioned n-th root only makes sense when every exponent divides
		// evenly by n.
		for b, e := range dims {
			if e.Exponent%n != 0 {
				return value.Value{}, calcerr.New(calcerr.KindIncompatibleDimensions, "cannot take a %d-th root of %s (non-integer resulting exponent)", n, b)
			}
		}
	}
	f := toFloat(x)
	var result float64
	if n%2 == 1 && f < 0 {
		result = -math.Pow(-f, 1/float64(n))
	} else {
		if f < 0 {
			return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "even root of a negative number")
		}
		result = math.Pow(f, 1/float64(n))
	}
	var outDims dimension.Map
	if !dims.Empty() {
		halved := dimension.Map{}
		for b, e := range dims {
			halved[b] = dimension.Entry{Exponent: e.Exponent / n, Unit: e.Unit}
		}
		outDims = halved
	}
	return value.Quantity(fromFloat(result), outDims), nil
}
