// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package value

import (
	"testing"

	"github.com/stretchr/testify/require"

	"calcnote/internal/dimension"
)

func TestQuantityCollapsesToNumberWhenDimensionless(t *testing.T) {
	v := Quantity(NumberFromInt(5).Num, dimension.Map{})
	require.Equal(t, KindNumber, v.Kind)
}

func TestDeepCloneArrayIsolation(t *testing.T) {
	inner := Array([]Value{NumberFromInt(1), NumberFromInt(2)})
	clone := DeepClone(inner)
	clone.Arr.Items[0] = NumberFromInt(99)
	require.Equal(t, int64(1), mustInt(inner.Arr.Items[0]))
	require.Equal(t, int64(99), mustInt(clone.Arr.Items[0]))
}

func mustInt(v Value) int64 {
	i, err := v.Num.Int64()
	if err != nil {
		panic(err)
	}
	return i
}

func TestEqualNeverCrossesNumberAndQuantity(t *testing.T) {
	n := NumberFromInt(5)
	q := Quantity(NumberFromInt(5).Num, dimension.Map{dimension.Length: {Exponent: 1, Unit: "m"}})
	require.False(t, Equal(n, q))
}

func TestTruthyTable(t *testing.T) {
	require.False(t, Null().Truthy())
	require.False(t, NumberFromInt(0).Truthy())
	require.True(t, NumberFromInt(1).Truthy())
	require.False(t, String("").Truthy())
	require.True(t, String("x").Truthy())
	require.False(t, Array(nil).Truthy())
}

func TestEnvironmentCloneDeepClones(t *testing.T) {
	env := Environment{"a": Array([]Value{NumberFromInt(1)})}
	clone := env.Clone()
	clone["a"].Arr.Items[0] = NumberFromInt(2)
	require.Equal(t, int64(1), mustInt(env["a"].Arr.Items[0]))
}
