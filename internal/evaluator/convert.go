// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package evaluator

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"calcnote/internal/builtin"
	"calcnote/internal/calcerr"
	"calcnote/internal/dimension"
	"calcnote/internal/evalctx"
	"calcnote/internal/value"
)

func aggregateWithTarget(ctx *evalctx.Context, name, targetUnit string) (value.Value, error) {
	lowered := strings.ToLower(targetUnit)
	if lowered == "binary" || lowered == "hex" || lowered == "octal" || isTypeName(lowered) {
		// `sum as number` etc: not a unit target, fall through to the
		// ordinary evaluation path by recomputing the aggregate untargeted
		// and coercing its result.
		v, err := builtin.AggregateWithTarget(ctx, name, "")
		if err != nil {
			return value.Value{}, err
		}
		return convertGeneric(v, targetUnit)
	}
	return builtin.AggregateWithTarget(ctx, name, targetUnit)
}

func isTypeName(s string) bool {
	switch s {
	case "number", "string", "boolean", "array", "object", "null", "function",
		"date", "datetime", "length", "weight", "volume", "temperature",
		"data", "time", "currency", "angle":
		return true
	}
	return false
}

// convertNumeric implements `to`/`in`/`as` for Number/Percentage/Quantity
// operands: dimensional conversion, binary/hex rendering, and explicit
// cross-kind coercion.
func convertNumeric(v value.Value, target string) (value.Value, error) {
	lowered := strings.ToLower(target)
	switch lowered {
	case "binary":
		return renderRadix(v, 2)
	case "hex":
		return renderRadix(v, 16)
	case "octal":
		return renderRadix(v, 8)
	case "number":
		return value.Number(v.Num), nil
	case "string":
		return value.String(v.String()), nil
	case "boolean":
		return value.Boolean(v.Truthy()), nil
	}
	if v.Kind != value.KindQuantity {
		// A bare number being converted to a unit: treat it as that unit,
		// e.g. "42 to kg" attaches the unit to a dimensionless number.
		dims, err := dimension.ParseCompoundUnit(target)
		if err != nil {
			return value.Value{}, err
		}
		return value.Quantity(v.Num, dims), nil
	}
	targetDims, err := dimension.ParseCompoundUnit(target)
	if err != nil {
		return value.Value{}, err
	}
	if v.Dims.IsTemperature() && targetDims.IsTemperature() {
		converted, err := dimension.ConvertTemperature(v.Num, v.Dims[dimension.Temperature].Unit, unitOf(targetDims))
		if err != nil {
			return value.Value{}, err
		}
		return value.Quantity(converted, targetDims), nil
	}
	factor, err := dimension.ConvertFactor(unitOf(v.Dims), unitOf(targetDims))
	if err != nil {
		return value.Value{}, err
	}
	out := new(apd.Decimal)
	value.DecimalContext.Mul(out, v.Num, factor)
	return value.Quantity(out, targetDims), nil
}

func renderRadix(v value.Value, base int) (value.Value, error) {
	if v.Num == nil {
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "conversion requires a number")
	}
	i, err := v.Num.Int64()
	if err != nil {
		return value.Value{}, calcerr.New(calcerr.KindNonIntegerConversion, "cannot convert non-integer %s to base %d", v.Num.Text('f'), base)
	}
	prefix := "0b"
	switch base {
	case 16:
		prefix = "0x"
	case 8:
		prefix = "0o"
	}
	return value.String(prefix + strconv.FormatInt(i, base)), nil
}

// convertGeneric handles `as`/`to`/`in` for non-numeric, non-date operands:
// explicit type coercion into string/boolean/number/array, and the identity
// no-op when the operand already is the target kind.
func convertGeneric(v value.Value, target string) (value.Value, error) {
	switch strings.ToLower(target) {
	case "string":
		return value.String(v.String()), nil
	case "boolean":
		return value.Boolean(v.Truthy()), nil
	case "number":
		switch v.Kind {
		case value.KindString:
			d, _, err := apd.NewFromString(strings.TrimSpace(v.Str))
			if err != nil {
				return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "cannot convert %q to a number", v.Str)
			}
			return value.Number(d), nil
		case value.KindBoolean:
			if v.Bool {
				return value.NumberFromInt(1), nil
			}
			return value.NumberFromInt(0), nil
		default:
			return v, nil
		}
	case "array":
		if v.Kind == value.KindArray {
			return v, nil
		}
		return value.Array([]value.Value{v}), nil
	default:
		if strings.ToLower(target) == value.TypeTag(v) {
			return v, nil
		}
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "cannot convert %s to %s", value.TypeTag(v), target)
	}
}
