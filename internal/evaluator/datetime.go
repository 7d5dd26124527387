// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package evaluator

import (
	"time"

	"calcnote/internal/ast"
	"calcnote/internal/calcerr"
	"calcnote/internal/datetime"
	"calcnote/internal/evalctx"
	"calcnote/internal/value"
)

func evalDateLit(n *ast.DateLit, ctx *evalctx.Context) (value.Value, error) {
	loc := ctx.SystemLoc
	label := ""
	if n.Timezone != "" {
		resolved, _, _ := datetime.ResolveTimezone(n.Timezone, ctx.SystemLoc)
		loc = resolved
		label = n.Timezone
	}
	instant := time.Date(n.Year, time.Month(n.Month), n.Day, n.Hour, n.Minute, 0, 0, loc)
	return value.Date(value.DateValue{
		Instant:          instant.UTC(),
		Timezone:         label,
		HasTimeComponent: n.HasTime,
	}), nil
}

func evalRelativeDateLit(n *ast.RelativeDateLit, ctx *evalctx.Context) (value.Value, error) {
	loc := ctx.SystemLoc
	label := ""
	if n.Timezone != "" {
		resolved, _, _ := datetime.ResolveTimezone(n.Timezone, ctx.SystemLoc)
		loc = resolved
		label = n.Timezone
	}
	instant, hasTime, ok := datetime.ParseRelative(n.Word, ctx.Clock, loc)
	if !ok {
		return value.Value{}, calcerr.New(calcerr.KindBadDateLiteral, "unknown relative date %q", n.Word)
	}
	return value.Date(value.DateValue{
		Instant:          instant.UTC(),
		Timezone:         label,
		HasTimeComponent: hasTime,
	}), nil
}

func evalTimeLit(n *ast.TimeLit, ctx *evalctx.Context) (value.Value, error) {
	loc := ctx.SystemLoc
	label := ""
	if n.Timezone != "" {
		resolved, _, _ := datetime.ResolveTimezone(n.Timezone, ctx.SystemLoc)
		loc = resolved
		label = n.Timezone
	}
	now := ctx.Clock.Now().In(loc)
	y, m, d := now.Date()
	instant := time.Date(y, m, d, n.Hour, n.Minute, 0, 0, loc)
	return value.Date(value.DateValue{
		Instant:          instant.UTC(),
		Timezone:         label,
		HasTimeComponent: true,
	}), nil
}

// evalConvert handles the postfix to/in/as operator: dimensional unit
// conversion, timezone conversion (distinct from the `@timezone` attach
// form lexed directly into a literal), explicit type coercion, and
// binary/hex integer formatting.
func evalConvert(n *ast.Convert, ctx *evalctx.Context) (value.Value, error) {
	if target, ok := aggregateConvertTarget(n); ok {
		name, targetUnit := target.name, target.unit
		return aggregateWithTarget(ctx, name, targetUnit)
	}

	v, err := Eval(n.Operand, ctx)
	if err != nil {
		return value.Value{}, err
	}

	switch v.Kind {
	case value.KindDate:
		return convertDate(v, n.Target, ctx)
	case value.KindQuantity, value.KindNumber, value.KindPercentage:
		return convertNumeric(v, n.Target)
	default:
		return convertGeneric(v, n.Target)
	}
}

type aggregateTarget struct {
	name string
	unit string
}

// aggregateConvertTarget recognizes `sum in <unit>` / `total to <unit>` etc:
// a Convert node whose operand is a bare call to (or reference to) one of
// the unit-aware aggregate builtins, with no explicit array argument (it
// draws from previousResults).
func aggregateConvertTarget(n *ast.Convert) (aggregateTarget, bool) {
	name := ""
	switch operand := n.Operand.(type) {
	case *ast.Ident:
		name = operand.Name
	case *ast.Call:
		ident, ok := operand.Callee.(*ast.Ident)
		if !ok || len(operand.Args) != 0 {
			return aggregateTarget{}, false
		}
		name = ident.Name
	default:
		return aggregateTarget{}, false
	}
	switch name {
	case "sum", "total", "average", "avg":
		return aggregateTarget{name: name, unit: n.Target}, true
	default:
		return aggregateTarget{}, false
	}
}

func convertDate(v value.Value, target string, ctx *evalctx.Context) (value.Value, error) {
	loc, _, _ := datetime.ResolveTimezone(target, ctx.SystemLoc)
	localInstant := v.Date.Instant.In(loc)
	return value.Date(value.DateValue{
		Instant:          localInstant.UTC(),
		Timezone:         target,
		HasTimeComponent: v.Date.HasTimeComponent,
	}), nil
}
