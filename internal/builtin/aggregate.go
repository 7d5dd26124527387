// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package builtin

import (
	"github.com/cockroachdb/apd/v3"

	"calcnote/internal/calcerr"
	"calcnote/internal/dimension"
	"calcnote/internal/evalctx"
	"calcnote/internal/value"
)

// registerAggregate wires the aggregate functions that consult
// previousResults when called with no arguments, or operate on an explicit
// array argument otherwise (so `agg | sum` and `sum(arr)` both work). `agg`
// itself just materializes previousResults as an Array.
func registerAggregate() {
	register("agg", 0, 0, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		items := make([]value.Value, len(ctx.PreviousResults))
		copy(items, ctx.PreviousResults)
		return value.Array(items), nil
	})

	sumImpl := func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		items, err := aggregateInput(ctx, args)
		if err != nil {
			return value.Value{}, err
		}
		return sumValues(items, "")
	}
	register("sum", 0, 1, sumImpl)
	register("total", 0, 1, sumImpl)

	avgImpl := func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		items, err := aggregateInput(ctx, args)
		if err != nil {
			return value.Value{}, err
		}
		return averageValues(items, "")
	}
	register("average", 0, 1, avgImpl)
	register("avg", 0, 1, avgImpl)

	register("count", 0, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		items, err := aggregateInput(ctx, args)
		if err != nil {
			return value.Value{}, err
		}
		return value.NumberFromInt(int64(len(items))), nil
	})

	register("mini", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("mini", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		return minMax(arr.Items, true)
	})
	register("maxi", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("maxi", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		return minMax(arr.Items, false)
	})
	register("mean", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("mean", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		return averageValues(arr.Items, "")
	})
}

func aggregateInput(ctx *evalctx.Context, args []value.Value) ([]value.Value, error) {
	if len(args) == 1 {
		arr, err := arrArg("", 1, args[0])
		if err != nil {
			return nil, err
		}
		return arr.Items, nil
	}
	return ctx.PreviousResults, nil
}

// AggregateWithTarget implements the `total in <unit>`/`sum to <unit>` form:
// every compatible numeric/quantity value in previousResults is converted
// to targetUnit before summing; incompatible values are skipped silently
// (strings are summed by concatenation and never carry a unit target).
func AggregateWithTarget(ctx *evalctx.Context, name, targetUnit string) (value.Value, error) {
	switch name {
	case "sum", "total":
		return sumValues(ctx.PreviousResults, targetUnit)
	case "average", "avg":
		return averageValues(ctx.PreviousResults, targetUnit)
	default:
		return value.Value{}, calcerr.New(calcerr.KindTypeMismatch, "%s does not accept a unit target", name)
	}
}

func sumValues(items []value.Value, targetUnit string) (value.Value, error) {
	if allStrings(items) {
		var sb []byte
		for _, it := range items {
			if it.Kind == value.KindString {
				sb = append(sb, it.Str...)
			}
		}
		return value.String(string(sb)), nil
	}
	total, dims, haveAny, err := accumulate(items, targetUnit)
	if err != nil {
		return value.Value{}, err
	}
	if !haveAny {
		return value.Value{}, calcerr.New(calcerr.KindNoValuesToAggregate, "no values to aggregate")
	}
	return value.Quantity(total, dims), nil
}

func averageValues(items []value.Value, targetUnit string) (value.Value, error) {
	total, dims, count, err := accumulateCounted(items, targetUnit)
	if err != nil {
		return value.Value{}, err
	}
	if count == 0 {
		return value.Value{}, calcerr.New(calcerr.KindNoValuesToAggregate, "no values to aggregate")
	}
	out := new(apd.Decimal)
	value.DecimalContext.Quo(out, total, apd.New(count, 0))
	return value.Quantity(out, dims), nil
}

// accumulate sums items into a single running total, converting every
// compatible-but-differently-unitted value to the unit established by the
// first contributing Quantity (or to targetUnit when one is given explicitly).
// Values whose dimension is genuinely incompatible with what's already
// established are skipped rather than erroring.
func accumulate(items []value.Value, targetUnit string) (*apd.Decimal, dimension.Map, bool, error) {
	total, dims, count, err := accumulateCounted(items, targetUnit)
	return total, dims, count > 0, err
}

func accumulateCounted(items []value.Value, targetUnit string) (*apd.Decimal, dimension.Map, int64, error) {
	var targetDims dimension.Map
	haveTarget := false
	if targetUnit != "" {
		d, err := dimension.ParseCompoundUnit(targetUnit)
		if err != nil {
			return nil, nil, 0, err
		}
		targetDims = d
		haveTarget = true
	}
	total := new(apd.Decimal)
	count := int64(0)
	for _, it := range items {
		contributed, d, ok, err := contribute(it, targetDims, haveTarget)
		if err != nil {
			return nil, nil, 0, err
		}
		if !ok {
			continue
		}
		value.DecimalContext.Add(total, total, contributed)
		count++
		if !haveTarget && !d.Empty() {
			targetDims = d
			haveTarget = true
		}
	}
	return total, targetDims, count, nil
}

func allStrings(items []value.Value) bool {
	seen := false
	for _, it := range items {
		if it.Kind == value.KindString {
			seen = true
		}
	}
	return seen
}

// contribute resolves one aggregate input value to a decimal contribution in
// targetDims. When haveTarget is false, a Quantity v establishes targetDims
// itself (the first contributing Quantity sets the unit every later item
// converts into).
// ok=false for values that don't participate: non-numeric, or a dimension
// that doesn't match and isn't convertible to what's already established.
func contribute(v value.Value, targetDims dimension.Map, haveTarget bool) (*apd.Decimal, dimension.Map, bool, error) {
	switch v.Kind {
	case value.KindNumber, value.KindPercentage:
		if haveTarget && !targetDims.Empty() {
			return nil, nil, false, nil
		}
		return v.Num, v.Dims, true, nil
	case value.KindQuantity:
		if !haveTarget {
			return v.Num, v.Dims, true, nil
		}
		if targetDims.Empty() {
			return nil, nil, false, nil
		}
		if v.Dims.Equal(targetDims) {
			return v.Num, targetDims, true, nil
		}
		if v.Dims.IsTemperature() && targetDims.IsTemperature() {
			converted, err := dimension.ConvertTemperature(v.Num, v.Dims[dimension.Temperature].Unit, unitNameOf(targetDims))
			if err != nil {
				return nil, nil, false, nil
			}
			return converted, targetDims, true, nil
		}
		if !sameCategory(v.Dims, targetDims) {
			return nil, nil, false, nil
		}
		factor, err := dimension.ConvertFactor(unitNameOf(v.Dims), unitNameOf(targetDims))
		if err != nil {
			return nil, nil, false, nil
		}
		converted := new(apd.Decimal)
		value.DecimalContext.Mul(converted, v.Num, factor)
		return converted, targetDims, true, nil
	default:
		return nil, nil, false, nil
	}
}

func sameCategory(a, b dimension.Map) bool {
	ca, oka := a.Category()
	cb, okb := b.Category()
	return oka && okb && ca == cb
}

func unitNameOf(m dimension.Map) string {
	for _, e := range m {
		return e.Unit
	}
	return ""
}

func minMax(items []value.Value, wantMin bool) (value.Value, error) {
	if len(items) == 0 {
		return value.Null(), nil
	}
	best := items[0]
	for _, it := range items[1:] {
		if it.Num == nil || best.Num == nil {
			continue
		}
		cmp := it.Num.Cmp(best.Num)
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = it
		}
	}
	return best, nil
}
