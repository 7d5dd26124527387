// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package evaluator

import (
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/require"

	"calcnote/internal/datetime"
	"calcnote/internal/evalctx"
	"calcnote/internal/parser"
	"calcnote/internal/value"
)

func newCtx() *evalctx.Context {
	return &evalctx.Context{
		Vars:      value.Environment{},
		SystemLoc: time.UTC,
		Clock:     datetime.FixedClock{At: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)},
	}
}

func evalString(t *testing.T, src string, ctx *evalctx.Context) value.Value {
	t.Helper()
	node, err := parser.ParseLine(src)
	require.NoError(t, err, src)
	v, err := Eval(node, ctx)
	require.NoError(t, err, src)
	return v
}

func TestArithmeticDecimalFidelity(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "0.1 + 0.2", ctx)
	require.Equal(t, "0.3", v.Num.Text('f'))
}

func TestDimensionalAdditionConvertsRightOperand(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "1km + 500m", ctx)
	require.Equal(t, value.KindQuantity, v.Kind)
	require.Equal(t, 0, v.Num.Cmp(mustDec("1.5")))
}

func TestIncompatibleDimensionAdditionFails(t *testing.T) {
	ctx := newCtx()
	node, err := parser.ParseLine("1kg + 1m")
	require.NoError(t, err)
	_, err = Eval(node, ctx)
	require.Error(t, err)
}

func TestPercentageArithmetic(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "200 * 10%", ctx)
	require.Equal(t, value.KindNumber, v.Kind)
	require.Equal(t, 0, v.Num.Cmp(mustDec("20")))
}

func TestTemperatureConversionAffine(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "100C to F", ctx)
	require.Equal(t, 0, v.Num.Cmp(mustDec("212")))
}

func TestPipeToFunction(t *testing.T) {
	ctx := newCtx()
	evalString(t, "double(x) = x * 2", ctx)
	v := evalString(t, "21 | double", ctx)
	require.Equal(t, 0, v.Num.Cmp(mustDec("42")))
}

func TestPipeDirectLambdaRejected(t *testing.T) {
	ctx := newCtx()
	_, err := parser.ParseLine("5 | x => x + 1")
	require.Error(t, err)
}

func TestPartialApplicationAssociativity(t *testing.T) {
	ctx := newCtx()
	evalString(t, "add3(x,y,z) = x + y + z", ctx)
	v1 := evalString(t, "add3(1)(2)(3)", ctx)
	v2 := evalString(t, "add3(1,2,3)", ctx)
	require.Equal(t, 0, v1.Num.Cmp(v2.Num))
}

func TestRecursionDepthCapped(t *testing.T) {
	old := evalctx.MaxRecursionFor
	evalctx.MaxRecursionFor = func(c *evalctx.Context) int { return 5 }
	defer func() { evalctx.MaxRecursionFor = old }()

	ctx := newCtx()
	evalString(t, "loop(n) = loop(n + 1)", ctx)
	node, err := parser.ParseLine("loop(0)")
	require.NoError(t, err)
	_, err = Eval(node, ctx)
	require.Error(t, err)
}

func TestIsCheckUnitCategory(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "5km is length", ctx)
	require.True(t, v.Bool)
}

func TestAggregateSumFromPreviousResults(t *testing.T) {
	ctx := newCtx()
	ctx.PreviousResults = []value.Value{value.NumberFromInt(10), value.NumberFromInt(20), value.NumberFromInt(30)}
	v := evalString(t, "agg | sum", ctx)
	require.Equal(t, 0, v.Num.Cmp(mustDec("60")))
}

func TestAggregateSumConvertsToFirstContributingUnit(t *testing.T) {
	ctx := newCtx()
	five := evalString(t, "5m", newCtx())
	threeHundred := evalString(t, "300cm", newCtx())
	ctx.PreviousResults = []value.Value{five, threeHundred}
	v := evalString(t, "agg | sum", ctx)
	require.Equal(t, value.KindQuantity, v.Kind)
	require.Equal(t, "m", v.Dims.String())
	require.Equal(t, 0, v.Num.Cmp(mustDec("8")))
}

func mustDec(s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
