// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package evaluator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"calcnote/internal/parser"
	"calcnote/internal/value"
)

func TestMapAppliesCallbackToEachElement(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "map([1, 2, 3], x => x * 2)", ctx)
	require.Equal(t, value.KindArray, v.Kind)
	require.Len(t, v.Arr.Items, 3)
	require.Equal(t, 0, v.Arr.Items[2].Num.Cmp(mustDec("6")))
}

func TestFilterKeepsOnlyTruthyResults(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "filter([1, 2, 3, 4], x => x > 2)", ctx)
	require.Len(t, v.Arr.Items, 2)
}

func TestReduceWithSeed(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "reduce([1, 2, 3], (acc, x) => acc + x, 0)", ctx)
	require.Equal(t, 0, v.Num.Cmp(mustDec("6")))
}

func TestReduceWithoutSeedUsesFirstElement(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "reduce([5, 1, 2], (acc, x) => acc + x)", ctx)
	require.Equal(t, 0, v.Num.Cmp(mustDec("8")))
}

func TestSortWithComparator(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "sort([3, 1, 2], (x, y) => y - x)", ctx)
	require.Equal(t, 0, v.Arr.Items[0].Num.Cmp(mustDec("3")))
	require.Equal(t, 0, v.Arr.Items[2].Num.Cmp(mustDec("1")))
}

func TestFindReturnsFirstMatch(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "find([1, 2, 3, 4], x => x > 2)", ctx)
	require.Equal(t, 0, v.Num.Cmp(mustDec("3")))
}

func TestFindIndexReturnsNegativeOneWhenAbsent(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, "findindex([1, 2, 3], x => x > 10)", ctx)
	require.Equal(t, 0, v.Num.Cmp(mustDec("-1")))
}

func TestGroupByBucketsByKey(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, `groupby([1, 2, 3, 4], x => x % 2)`, ctx)
	require.Equal(t, value.KindObject, v.Kind)
}

func TestMutatingPushWritesThroughToTheVariable(t *testing.T) {
	// push! mutates the callee's backing Items slice in place; since
	// reading a variable never clones (only assigning one does), the
	// next read of the same name observes the mutation without
	// reassignment.
	ctx := newCtx()
	evalString(t, "a = [1, 2]", ctx)
	evalString(t, "push!(a, 3)", ctx)
	v := evalString(t, "a", ctx)
	require.Len(t, v.Arr.Items, 3)
}

func TestNonMutatingPushLeavesOriginalUntouched(t *testing.T) {
	ctx := newCtx()
	evalString(t, "a = [1, 2]", ctx)
	evalString(t, "push(a, 3)", ctx)
	v := evalString(t, "a", ctx)
	require.Len(t, v.Arr.Items, 2)
}

func TestStringUpperAndLower(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, `upper("abc")`, ctx)
	require.Equal(t, "ABC", v.Str)
	v = evalString(t, `lower("ABC")`, ctx)
	require.Equal(t, "abc", v.Str)
}

func TestTypeReportsKind(t *testing.T) {
	ctx := newCtx()
	v := evalString(t, `type(5)`, ctx)
	require.Equal(t, "number", v.Str)
	v = evalString(t, `type("x")`, ctx)
	require.Equal(t, "string", v.Str)
}

func TestHigherOrderCallbackUnderArityPartiallyApplies(t *testing.T) {
	ctx := newCtx()
	evalString(t, "both(x, y) = x + y", ctx)
	node, err := parser.ParseLine("map([1, 2, 3], both)")
	require.NoError(t, err)
	v, err := Eval(node, ctx)
	require.NoError(t, err)
	require.Equal(t, value.KindPartial, v.Arr.Items[0].Kind)
}

func TestCallingFunctionWithTooManyArgsErrors(t *testing.T) {
	ctx := newCtx()
	evalString(t, "one(a) = a", ctx)
	node, err := parser.ParseLine("one(1, 2)")
	require.NoError(t, err)
	_, err = Eval(node, ctx)
	require.Error(t, err)
}
