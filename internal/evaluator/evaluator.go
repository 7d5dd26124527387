// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

// Package evaluator walks an AST node against an evalctx.Context and
// produces a value.Value.
package evaluator

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"calcnote/internal/ast"
	"calcnote/internal/builtin"
	"calcnote/internal/calcerr"
	"calcnote/internal/dimension"
	"calcnote/internal/evalctx"
	"calcnote/internal/value"
)

// Eval evaluates node against ctx and returns its value.
func Eval(node ast.Node, ctx *evalctx.Context) (value.Value, error) {
	switch n := node.(type) {
	case ast.Empty:
		return value.Null(), nil
	case *ast.NumberLit:
		return evalNumberLit(n)
	case *ast.QuantityLit:
		return evalQuantityLit(n)
	case *ast.StringLit:
		return value.String(n.Value), nil
	case *ast.TemplateLit:
		return evalTemplateLit(n, ctx)
	case *ast.BoolLit:
		return value.Boolean(n.Value), nil
	case ast.NullLit:
		return value.Null(), nil
	case *ast.DateLit:
		return evalDateLit(n, ctx)
	case *ast.RelativeDateLit:
		return evalRelativeDateLit(n, ctx)
	case *ast.TimeLit:
		return evalTimeLit(n, ctx)
	case *ast.Ident:
		return evalIdent(n, ctx)
	case *ast.ArrayLit:
		return evalArrayLit(n, ctx)
	case *ast.ObjectLit:
		return evalObjectLit(n, ctx)
	case *ast.Lambda:
		return value.FunctionValue(&value.Function{Params: n.Params, Body: n.Body, Env: ctx.Vars.Clone()}), nil
	case *ast.Unary:
		return evalUnary(n, ctx)
	case *ast.Binary:
		return evalBinary(n, ctx)
	case *ast.IsCheck:
		return evalIsCheck(n, ctx)
	case *ast.Convert:
		return evalConvert(n, ctx)
	case *ast.PercentOf:
		return evalPercentOf(n, ctx)
	case *ast.Call:
		return evalCall(n, ctx)
	case *ast.Index:
		return evalIndex(n, ctx)
	case *ast.Member:
		return evalMember(n, ctx)
	case *ast.Ternary:
		cond, err := Eval(n.Cond, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if cond.Truthy() {
			return Eval(n.Then, ctx)
		}
		return Eval(n.Else, ctx)
	case *ast.Pipe:
		return evalPipe(n, ctx)
	case *ast.Assignment:
		return evalAssignment(n, ctx)
	case *ast.FuncDef:
		return evalFuncDef(n, ctx)
	case *ast.Comment:
		return value.Null(), nil
	default:
		return value.Value{}, calcerr.New(calcerr.KindUnexpectedToken, "cannot evaluate node of type %T", node)
	}
}

func evalNumberLit(n *ast.NumberLit) (value.Value, error) {
	text := strings.ReplaceAll(strings.ReplaceAll(n.Text, "_", ""), ",", "")
	switch n.Format {
	case "binary":
		iv, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimPrefix(text, "0b"), "0B"), 2, 64)
		if err != nil {
			return value.Value{}, calcerr.New(calcerr.KindInvalidBinaryLiteral, "invalid binary literal %q", n.Text)
		}
		return value.NumberFromInt(iv), nil
	case "hex":
		iv, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X"), 16, 64)
		if err != nil {
			return value.Value{}, calcerr.New(calcerr.KindInvalidHexLiteral, "invalid hex literal %q", n.Text)
		}
		return value.NumberFromInt(iv), nil
	default:
		d, _, err := apd.NewFromString(text)
		if err != nil {
			return value.Value{}, calcerr.New(calcerr.KindUnexpectedToken, "invalid number literal %q", n.Text)
		}
		return value.Number(d), nil
	}
}

// evalQuantityLit folds a compound-unit literal's fragments ("1h30min")
// into one Quantity: every fragment is converted to the first fragment's
// unit and summed, with that first unit kept as the canonical display unit.
func evalQuantityLit(n *ast.QuantityLit) (value.Value, error) {
	if len(n.Fragments) == 0 {
		return value.Value{}, calcerr.New(calcerr.KindUnexpectedToken, "empty quantity literal")
	}
	first := n.Fragments[0]
	firstDims, ok := dimension.Lookup(first.Unit)
	if !ok {
		return value.Value{}, calcerr.New(calcerr.KindInvalidUnit, "unknown unit %q", first.Unit)
	}
	total, _, err := apd.NewFromString(strings.ReplaceAll(strings.ReplaceAll(first.Text, "_", ""), ",", ""))
	if err != nil {
		return value.Value{}, calcerr.New(calcerr.KindUnexpectedToken, "invalid number %q", first.Text)
	}
	for _, frag := range n.Fragments[1:] {
		amount, _, err := apd.NewFromString(strings.ReplaceAll(strings.ReplaceAll(frag.Text, "_", ""), ",", ""))
		if err != nil {
			return value.Value{}, calcerr.New(calcerr.KindUnexpectedToken, "invalid number %q", frag.Text)
		}
		if firstDims.IsTemperature() {
			return value.Value{}, calcerr.New(calcerr.KindIncompatibleDimensions, "temperature units cannot be concatenated")
		}
		factor, err := dimension.ConvertFactor(frag.Unit, unitOf(firstDims))
		if err != nil {
			return value.Value{}, err
		}
		converted := new(apd.Decimal)
		value.DecimalContext.Mul(converted, amount, factor)
		value.DecimalContext.Add(total, total, converted)
	}
	return value.Quantity(total, firstDims), nil
}

func unitOf(m dimension.Map) string {
	for _, e := range m {
		return e.Unit
	}
	return ""
}

func evalTemplateLit(n *ast.TemplateLit, ctx *evalctx.Context) (value.Value, error) {
	var sb strings.Builder
	for _, part := range n.Parts {
		if part.Expr == nil {
			sb.WriteString(part.Literal)
			continue
		}
		v, err := Eval(part.Expr, ctx)
		if err != nil {
			return value.Value{}, err
		}
		sb.WriteString(v.String())
	}
	return value.String(sb.String()), nil
}

func evalArrayLit(n *ast.ArrayLit, ctx *evalctx.Context) (value.Value, error) {
	items := make([]value.Value, len(n.Items))
	for i, item := range n.Items {
		v, err := Eval(item, ctx)
		if err != nil {
			return value.Value{}, err
		}
		items[i] = v
	}
	return value.Array(items), nil
}

func evalObjectLit(n *ast.ObjectLit, ctx *evalctx.Context) (value.Value, error) {
	obj := value.NewObject()
	for i, key := range n.Keys {
		v, err := Eval(n.Values[i], ctx)
		if err != nil {
			return value.Value{}, err
		}
		obj.Set(key, v)
	}
	return value.Object(obj), nil
}

// reservedConstants are case-insensitive and resolved only when no variable
// or parameter of the same name is in scope; assigning to any of these names
// is rejected with a ReservedName error. c and G are pre-seeded as dimensioned Quantity
// values (speed of light in m/s, gravitational constant in m^3/(kg*s^2))
// rather than bare numbers, alongside the dimensionless pi and e.
var reservedConstants = map[string]func() value.Value{
	"pi": func() value.Value { d, _, _ := apd.NewFromString("3.14159265358979323846264338327950288420"); return value.Number(d) },
	"e":  func() value.Value { d, _, _ := apd.NewFromString("2.71828182845904523536028747135266249776"); return value.Number(d) },
	"c": func() value.Value {
		d, _, _ := apd.NewFromString("299792458")
		return value.Quantity(d, dimension.Divide(dimension.Map{dimension.Length: {Exponent: 1, Unit: "m"}}, dimension.Map{dimension.Time: {Exponent: 1, Unit: "s"}}))
	},
	"g": func() value.Value {
		d, _, _ := apd.NewFromString("6.67430e-11")
		num := dimension.Map{dimension.Length: {Exponent: 3, Unit: "m"}}
		den := dimension.Map{dimension.Mass: {Exponent: 1, Unit: "kg"}, dimension.Time: {Exponent: 2, Unit: "s"}}
		return value.Quantity(d, dimension.Divide(num, den))
	},
}

func evalIdent(n *ast.Ident, ctx *evalctx.Context) (value.Value, error) {
	if v, ok := ctx.Vars[n.Name]; ok {
		return v, nil
	}
	if n.Name == "prev" {
		if len(ctx.PreviousResults) == 0 {
			return value.Null(), nil
		}
		return ctx.PreviousResults[len(ctx.PreviousResults)-1], nil
	}
	if ctor, ok := reservedConstants[strings.ToLower(n.Name)]; ok {
		return ctor(), nil
	}
	if fn, ok := builtin.Lookup(n.Name); ok {
		if fn.MaxArity == 0 {
			// a strictly zero-arity builtin (agg, arg) referenced bareword
			// has nothing left to apply and no sensible use as a callback:
			// invoke it immediately rather than handing back an inert
			// callable.
			applyFn := func(c value.Value, a []value.Value) (value.Value, error) { return Apply(c, a, ctx) }
			return fn.Call(ctx, applyFn, nil)
		}
		return value.PartialValue(&value.Partial{Builtin: strings.ToLower(n.Name), ParamCount: fn.MinArity}), nil
	}
	return value.Value{}, calcerr.New(calcerr.KindUnknownVariable, "unknown variable %q", n.Name)
}

func evalUnary(n *ast.Unary, ctx *evalctx.Context) (value.Value, error) {
	v, err := Eval(n.Operand, ctx)
	if err != nil {
		return value.Value{}, err
	}
	switch n.Op {
	case "-":
		if v.Num == nil {
			return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "unary - requires a number")
		}
		out := new(apd.Decimal)
		value.DecimalContext.Neg(out, v.Num)
		out2 := v
		out2.Num = out
		return out2, nil
	case "+":
		if v.Num == nil {
			return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "unary + requires a number")
		}
		return v, nil
	case "not":
		return value.Boolean(!v.Truthy()), nil
	default:
		return value.Value{}, calcerr.New(calcerr.KindUnexpectedToken, "unknown unary operator %q", n.Op)
	}
}

func evalIsCheck(n *ast.IsCheck, ctx *evalctx.Context) (value.Value, error) {
	v, err := Eval(n.Operand, ctx)
	if err != nil {
		return value.Value{}, err
	}
	tag := strings.ToLower(n.TypeName)
	if tag == "datetime" {
		return value.Boolean(v.Kind == value.KindDate && v.Date.HasTimeComponent), nil
	}
	if tag == "date" {
		return value.Boolean(v.Kind == value.KindDate), nil
	}
	if tag == value.TypeTag(v) {
		return value.Boolean(true), nil
	}
	if v.Kind == value.KindQuantity {
		if cat, ok := v.Dims.Category(); ok && cat == tag {
			return value.Boolean(true), nil
		}
	}
	return value.Boolean(false), nil
}

func evalPercentOf(n *ast.PercentOf, ctx *evalctx.Context) (value.Value, error) {
	v, err := Eval(n.Operand, ctx)
	if err != nil {
		return value.Value{}, err
	}
	if v.Kind != value.KindNumber {
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "%% requires a plain number")
	}
	return value.Percentage(v.Num), nil
}

func evalIndex(n *ast.Index, ctx *evalctx.Context) (value.Value, error) {
	coll, err := Eval(n.Collection, ctx)
	if err != nil {
		return value.Value{}, err
	}
	key, err := Eval(n.Key, ctx)
	if err != nil {
		return value.Value{}, err
	}
	switch coll.Kind {
	case value.KindArray:
		if key.Num == nil {
			return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "array index must be a number")
		}
		idx, err := key.Num.Int64()
		if err != nil {
			return value.Value{}, calcerr.New(calcerr.KindNonIntegerConversion, "array index must be an integer")
		}
		items := coll.Arr.Items
		if idx < 0 {
			idx += int64(len(items))
		}
		if idx < 0 || idx >= int64(len(items)) {
			return value.Null(), nil
		}
		return items[idx], nil
	case value.KindObject:
		if key.Kind != value.KindString {
			return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "object index must be a string")
		}
		v, ok := coll.Obj.Get(key.Str)
		if !ok {
			return value.Null(), nil
		}
		return v, nil
	case value.KindString:
		if key.Num == nil {
			return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "string index must be a number")
		}
		idx, _ := key.Num.Int64()
		runes := []rune(coll.Str)
		if idx < 0 {
			idx += int64(len(runes))
		}
		if idx < 0 || idx >= int64(len(runes)) {
			return value.Null(), nil
		}
		return value.String(string(runes[idx])), nil
	default:
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "cannot index a %s", value.TypeTag(coll))
	}
}

func evalMember(n *ast.Member, ctx *evalctx.Context) (value.Value, error) {
	obj, err := Eval(n.Object, ctx)
	if err != nil {
		return value.Value{}, err
	}
	if obj.Kind != value.KindObject {
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "cannot access field %q of a %s", n.Field, value.TypeTag(obj))
	}
	v, ok := obj.Obj.Get(n.Field)
	if !ok {
		return value.Null(), nil
	}
	return v, nil
}

func evalPipe(n *ast.Pipe, ctx *evalctx.Context) (value.Value, error) {
	left, err := Eval(n.Left, ctx)
	if err != nil {
		return value.Value{}, err
	}
	fn, err := Eval(n.Right, ctx)
	if err != nil {
		return value.Value{}, err
	}
	if fn.Kind != value.KindFunction && fn.Kind != value.KindPartial {
		return value.Value{}, calcerr.New(calcerr.KindPipeLambdaDirect, "pipe right-hand side must resolve to a callable")
	}
	return Apply(fn, []value.Value{left}, ctx)
}

func evalAssignment(n *ast.Assignment, ctx *evalctx.Context) (value.Value, error) {
	var rhs value.Value
	var err error
	switch n.Op {
	case "=":
		rhs, err = Eval(n.Expr, ctx)
	case "+=", "-=":
		cur, ok := ctx.Vars[n.Name]
		if !ok {
			return value.Value{}, calcerr.New(calcerr.KindUnknownVariable, "unknown variable %q", n.Name)
		}
		delta, evalErr := Eval(n.Expr, ctx)
		if evalErr != nil {
			return value.Value{}, evalErr
		}
		op := "+"
		if n.Op == "-=" {
			op = "-"
		}
		rhs, err = applyBinaryOp(op, cur, delta)
	}
	if err != nil {
		return value.Value{}, err
	}
	if _, reserved := reservedConstants[strings.ToLower(n.Name)]; reserved {
		return value.Value{}, calcerr.New(calcerr.KindReservedName, "cannot assign to reserved name %q", n.Name)
	}
	ctx.Vars[n.Name] = value.DeepClone(rhs)
	return rhs, nil
}

func evalFuncDef(n *ast.FuncDef, ctx *evalctx.Context) (value.Value, error) {
	fn := &value.Function{Name: n.Name, Params: n.Params, Body: n.Body, Env: ctx.Vars.Clone()}
	fv := value.FunctionValue(fn)
	ctx.Vars[n.Name] = value.DeepClone(fv)
	return fv, nil
}

func evalCall(n *ast.Call, ctx *evalctx.Context) (value.Value, error) {
	callee, err := Eval(n.Callee, ctx)
	if err != nil {
		return value.Value{}, err
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, ctx)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	return Apply(callee, args, ctx)
}

// Apply invokes a Function or Partial value with args, implementing
// partial-application accumulation: fewer args than the callee needs
// returns a new Partial with those args folded in rather than an error.
func Apply(callee value.Value, args []value.Value, ctx *evalctx.Context) (value.Value, error) {
	switch callee.Kind {
	case value.KindFunction:
		return applyFunction(callee.Fn, args, ctx)
	case value.KindPartial:
		return applyPartial(callee.Part, args, ctx)
	default:
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "%s is not callable", value.TypeTag(callee))
	}
}

func applyFunction(fn *value.Function, args []value.Value, ctx *evalctx.Context) (value.Value, error) {
	if len(args) > len(fn.Params) {
		return value.Value{}, calcerr.ArityMismatch(fn.Name, len(fn.Params), len(args))
	}
	if len(args) < len(fn.Params) {
		applied := make([]value.Value, len(args))
		copy(applied, args)
		return value.PartialValue(&value.Partial{Func: fn, Applied: applied, ParamCount: len(fn.Params)}), nil
	}
	callEnv := fn.Env.Clone()
	for i, p := range fn.Params {
		callEnv[p] = value.DeepClone(args[i])
	}
	child, err := ctx.Child(callEnv)
	if err != nil {
		return value.Value{}, calcerr.New(calcerr.KindMaxRecursion, "recursion depth exceeded calling %q", fn.Name)
	}
	// allow self-reference: resolve the function's own name in the caller's
	// environment at each call (falling back to fn itself), rather than
	// relying on closure capture, so the recursion cap is the only thing
	// that can make this runaway. A parameter of the same name keeps its
	// argument.
	if fn.Name != "" {
		isParam := false
		for _, p := range fn.Params {
			isParam = isParam || p == fn.Name
		}
		if !isParam {
			self := value.FunctionValue(fn)
			if cur, ok := ctx.Vars[fn.Name]; ok && (cur.Kind == value.KindFunction || cur.Kind == value.KindPartial) {
				self = cur
			}
			callEnv[fn.Name] = self
		}
	}
	return Eval(fn.Body, child)
}

func applyPartial(p *value.Partial, args []value.Value, ctx *evalctx.Context) (value.Value, error) {
	combined := make([]value.Value, 0, len(p.Applied)+len(args))
	combined = append(combined, p.Applied...)
	combined = append(combined, args...)

	if p.Func != nil {
		return applyFunction(p.Func, combined, ctx)
	}

	fn, ok := builtin.Lookup(p.Builtin)
	if !ok {
		return value.Value{}, calcerr.New(calcerr.KindUnknownFunction, "unknown function %q", p.Builtin)
	}
	if len(combined) < fn.MinArity {
		return value.PartialValue(&value.Partial{Builtin: p.Builtin, Applied: combined, ParamCount: fn.MinArity}), nil
	}
	if fn.MaxArity >= 0 && len(combined) > fn.MaxArity {
		return value.Value{}, calcerr.ArityMismatch(p.Builtin, fn.MaxArity, len(combined))
	}
	applyFn := func(c value.Value, a []value.Value) (value.Value, error) { return Apply(c, a, ctx) }
	return fn.Call(ctx, applyFn, combined)
}
