// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package dimension

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/require"
)

func dec(s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMultiplyDivideReciprocal(t *testing.T) {
	m, ok := Lookup("m")
	require.True(t, ok)
	s, ok := Lookup("s")
	require.True(t, ok)

	speed := Divide(m, s)
	require.Equal(t, 1, speed[Length].Exponent)
	require.Equal(t, -1, speed[Time].Exponent)

	back := Multiply(speed, s)
	require.True(t, back.Equal(m))

	recip := Reciprocal(s)
	require.Equal(t, -1, recip[Time].Exponent)
}

func TestConvertFactorLength(t *testing.T) {
	factor, err := ConvertFactor("km", "m")
	require.NoError(t, err)
	out := new(apd.Decimal)
	DecimalCtx().Mul(out, dec("2"), factor)
	require.Equal(t, 0, out.Cmp(dec("2000")))
}

func TestConvertTemperatureRoundTrip(t *testing.T) {
	c, err := ConvertTemperature(dec("100"), "C", "F")
	require.NoError(t, err)
	require.Equal(t, 0, c.Cmp(dec("212")))

	back, err := ConvertTemperature(c, "F", "C")
	require.NoError(t, err)
	require.Equal(t, 0, back.Cmp(dec("100")))
}

func TestParseCompoundUnit(t *testing.T) {
	m, err := ParseCompoundUnit("m/s^2")
	require.NoError(t, err)
	require.Equal(t, 1, m[Length].Exponent)
	require.Equal(t, -2, m[Time].Exponent)
}

func TestIsKnownUnitRejectsGarbage(t *testing.T) {
	require.False(t, IsKnownUnit("hello"))
	require.True(t, IsKnownUnit("kg"))
}

func TestCategory(t *testing.T) {
	km, _ := Lookup("km")
	cat, ok := km.Category()
	require.True(t, ok)
	require.Equal(t, "length", cat)
}

func DecimalCtx() *apd.Context {
	return apd.BaseContext.WithPrecision(20)
}
