// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package evaluator

import (
	"strings"

	"github.com/cockroachdb/apd/v3"

	"calcnote/internal/ast"
	"calcnote/internal/calcerr"
	"calcnote/internal/dimension"
	"calcnote/internal/evalctx"
	"calcnote/internal/value"
)

func evalBinary(n *ast.Binary, ctx *evalctx.Context) (value.Value, error) {
	switch n.Op {
	case "&&":
		left, err := Eval(n.Left, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if !left.Truthy() {
			return left, nil
		}
		return Eval(n.Right, ctx)
	case "||":
		left, err := Eval(n.Left, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if left.Truthy() {
			return left, nil
		}
		return Eval(n.Right, ctx)
	case "??":
		left, err := Eval(n.Left, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if !left.IsNull() {
			return left, nil
		}
		return Eval(n.Right, ctx)
	}

	left, err := Eval(n.Left, ctx)
	if err != nil {
		return value.Value{}, err
	}
	right, err := Eval(n.Right, ctx)
	if err != nil {
		return value.Value{}, err
	}

	switch n.Op {
	case "==":
		return value.Boolean(value.Equal(left, right)), nil
	case "!=":
		return value.Boolean(!value.Equal(left, right)), nil
	case "<", "<=", ">", ">=":
		return compareOp(n.Op, left, right)
	}

	return applyBinaryOp(n.Op, left, right)
}

func compareOp(op string, left, right value.Value) (value.Value, error) {
	cmp, err := compareValues(left, right)
	if err != nil {
		return value.Value{}, err
	}
	switch op {
	case "<":
		return value.Boolean(cmp < 0), nil
	case "<=":
		return value.Boolean(cmp <= 0), nil
	case ">":
		return value.Boolean(cmp > 0), nil
	case ">=":
		return value.Boolean(cmp >= 0), nil
	}
	return value.Value{}, calcerr.New(calcerr.KindUnexpectedToken, "unknown comparison operator %q", op)
}

func compareValues(left, right value.Value) (int, error) {
	if left.Kind == value.KindString && right.Kind == value.KindString {
		switch {
		case left.Str < right.Str:
			return -1, nil
		case left.Str > right.Str:
			return 1, nil
		default:
			return 0, nil
		}
	}
	rightNum, err := alignForArith(left, right)
	if err != nil {
		return 0, err
	}
	return left.Num.Cmp(rightNum), nil
}

// alignForArith converts right's decimal into left's unit system when both
// are Quantity values of the same category, and returns right's decimal
// unchanged otherwise (Number/Percentage arithmetic doesn't need alignment).
func alignForArith(left, right value.Value) (*apd.Decimal, error) {
	if left.Kind != value.KindQuantity || right.Kind != value.KindQuantity {
		return right.Num, nil
	}
	if left.Dims.Equal(right.Dims) {
		return right.Num, nil
	}
	if left.Dims.IsTemperature() && right.Dims.IsTemperature() {
		return dimension.ConvertTemperature(right.Num, right.Dims[dimension.Temperature].Unit, left.Dims[dimension.Temperature].Unit)
	}
	lc, lok := left.Dims.Category()
	rc, rok := right.Dims.Category()
	if !lok || !rok || lc != rc {
		return nil, calcerr.New(calcerr.KindIncompatibleDimensions, "incompatible units %s and %s", left.Dims.String(), right.Dims.String())
	}
	factor, err := dimension.ConvertFactor(unitOf(right.Dims), unitOf(left.Dims))
	if err != nil {
		return nil, err
	}
	out := new(apd.Decimal)
	value.DecimalContext.Mul(out, right.Num, factor)
	return out, nil
}

// applyBinaryOp implements the dimensional algebra of +, -, *, /, %, ^ and
// the bitwise/shift operators. `|` is never an infix operator here:
// bitwise-or is only reachable through the bitor() builtin, and bare `|` is
// always pipe.
func applyBinaryOp(op string, left, right value.Value) (value.Value, error) {
	switch op {
	case "+":
		return addOp(left, right)
	case "-":
		return subOp(left, right)
	case "*":
		return mulOp(left, right)
	case "/":
		return divOp(left, right)
	case "%":
		return modOp(left, right)
	case "^":
		return powOp(left, right)
	case "&", "<<", ">>":
		return bitwiseOp(op, left, right)
	}
	return value.Value{}, calcerr.New(calcerr.KindUnexpectedToken, "unknown operator %q", op)
}

func addOp(left, right value.Value) (value.Value, error) {
	if left.Kind == value.KindString || right.Kind == value.KindString {
		return value.String(left.String() + right.String()), nil
	}
	if left.Kind == value.KindArray && right.Kind == value.KindArray {
		items := make([]value.Value, 0, len(left.Arr.Items)+len(right.Arr.Items))
		items = append(items, left.Arr.Items...)
		items = append(items, right.Arr.Items...)
		return value.Array(items), nil
	}
	if !isNumeric(left) || !isNumeric(right) {
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "+ requires numbers, quantities or strings")
	}
	rightNum, err := alignForArith(left, right)
	if err != nil {
		return value.Value{}, err
	}
	out := new(apd.Decimal)
	value.DecimalContext.Add(out, left.Num, rightNum)
	return resultKind(left, right, out), nil
}

func subOp(left, right value.Value) (value.Value, error) {
	if !isNumeric(left) || !isNumeric(right) {
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "- requires numbers or quantities")
	}
	rightNum, err := alignForArith(left, right)
	if err != nil {
		return value.Value{}, err
	}
	out := new(apd.Decimal)
	value.DecimalContext.Sub(out, left.Num, rightNum)
	return resultKind(left, right, out), nil
}

func mulOp(left, right value.Value) (value.Value, error) {
	if (left.Kind == value.KindString) != (right.Kind == value.KindString) {
		str, count := left, right
		if right.Kind == value.KindString {
			str, count = right, left
		}
		if count.Kind == value.KindNumber {
			if n, err := count.Num.Int64(); err == nil && n >= 0 {
				return value.String(strings.Repeat(str.Str, int(n))), nil
			}
		}
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "a string can only be repeated a non-negative integer number of times")
	}
	if !isNumeric(left) || !isNumeric(right) {
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "* requires numbers or quantities")
	}
	out := new(apd.Decimal)
	value.DecimalContext.Mul(out, left.Num, right.Num)
	dims := dimension.Multiply(dimsOf(left), dimsOf(right))
	if percentInvolved(left, right) && left.Kind != value.KindQuantity && right.Kind != value.KindQuantity {
		scaled := new(apd.Decimal)
		value.DecimalContext.Quo(scaled, out, apd.New(100, 0))
		if left.Kind == value.KindPercentage && right.Kind == value.KindPercentage {
			return value.Percentage(scaled), nil
		}
		return value.Number(scaled), nil
	}
	return value.Quantity(out, dims), nil
}

func divOp(left, right value.Value) (value.Value, error) {
	if !isNumeric(left) || !isNumeric(right) {
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "/ requires numbers or quantities")
	}
	if right.Num.Sign() == 0 {
		return value.Value{}, calcerr.New(calcerr.KindDivisionByZero, "division by zero")
	}
	out := new(apd.Decimal)
	value.DecimalContext.Quo(out, left.Num, right.Num)
	dims := dimension.Divide(dimsOf(left), dimsOf(right))
	if percentInvolved(left, right) && left.Kind != value.KindQuantity && right.Kind != value.KindQuantity {
		scaled := new(apd.Decimal)
		value.DecimalContext.Mul(scaled, out, apd.New(100, 0))
		return value.Number(scaled), nil
	}
	return value.Quantity(out, dims), nil
}

func modOp(left, right value.Value) (value.Value, error) {
	if left.Num == nil || right.Num == nil {
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "%% requires numbers")
	}
	if right.Num.Sign() == 0 {
		return value.Value{}, calcerr.New(calcerr.KindDivisionByZero, "modulo by zero")
	}
	out := new(apd.Decimal)
	value.DecimalContext.Rem(out, left.Num, right.Num)
	return value.Quantity(out, dimsOf(left)), nil
}

func powOp(left, right value.Value) (value.Value, error) {
	if left.Num == nil || right.Num == nil {
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "^ requires numbers")
	}
	exp, err := right.Num.Int64()
	if err != nil && left.Kind == value.KindQuantity {
		return value.Value{}, calcerr.New(calcerr.KindNonIntegerConversion, "a quantity can only be raised to an integer power")
	}
	if err == nil && left.Kind == value.KindQuantity {
		out := new(apd.Decimal)
		value.DecimalContext.Pow(out, left.Num, right.Num)
		return value.Quantity(out, dimension.Pow(left.Dims, int(exp))), nil
	}
	out := new(apd.Decimal)
	value.DecimalContext.Pow(out, left.Num, right.Num)
	return value.Number(out), nil
}

func bitwiseOp(op string, left, right value.Value) (value.Value, error) {
	li, err := toInt(left, op)
	if err != nil {
		return value.Value{}, err
	}
	ri, err := toInt(right, op)
	if err != nil {
		return value.Value{}, err
	}
	var out int64
	switch op {
	case "&":
		out = li & ri
	case "<<":
		out = li << uint(ri)
	case ">>":
		out = li >> uint(ri)
	}
	return value.NumberFromInt(out), nil
}

func toInt(v value.Value, op string) (int64, error) {
	if v.Num == nil {
		return 0, calcerr.New(calcerr.KindTypeMismatch, "%s requires integers", op)
	}
	i, err := v.Num.Int64()
	if err != nil {
		return 0, calcerr.New(calcerr.KindNonIntegerConversion, "%s requires an integer, got %s", op, v.Num.Text('f'))
	}
	return i, nil
}

func isNumeric(v value.Value) bool {
	return v.Kind == value.KindNumber || v.Kind == value.KindPercentage || v.Kind == value.KindQuantity
}

func percentInvolved(a, b value.Value) bool {
	return a.Kind == value.KindPercentage || b.Kind == value.KindPercentage
}

func dimsOf(v value.Value) dimension.Map {
	if v.Kind == value.KindQuantity {
		return v.Dims
	}
	return nil
}

// resultKind preserves Percentage-ness through + and - only when both sides
// agree; a Quantity always wins since it carries a unit the result must
// keep.
func resultKind(left, right value.Value, out *apd.Decimal) value.Value {
	if left.Kind == value.KindQuantity {
		return value.Quantity(out, left.Dims)
	}
	if right.Kind == value.KindQuantity {
		return value.Quantity(out, right.Dims)
	}
	if left.Kind == value.KindPercentage && right.Kind == value.KindPercentage {
		return value.Percentage(out)
	}
	return value.Number(out)
}
