// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package datetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveTimezoneKnownCity(t *testing.T) {
	loc, iana, ok := ResolveTimezone("Tokyo", time.UTC)
	require.True(t, ok)
	require.Equal(t, "Asia/Tokyo", iana)
	require.Equal(t, "Asia/Tokyo", loc.String())
}

func TestResolveTimezoneUTCOffset(t *testing.T) {
	loc, _, ok := ResolveTimezone("utc-5", time.UTC)
	require.True(t, ok)
	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
	require.Equal(t, -5*3600, offset)
}

func TestResolveTimezoneUnknownFallsBackWithoutError(t *testing.T) {
	loc, label, ok := ResolveTimezone("nowhereland", time.UTC)
	require.False(t, ok)
	require.Equal(t, time.UTC, loc)
	require.Equal(t, "nowhereland", label)
}

func TestParseRelativeWeekdayIsStrictlyAfterToday(t *testing.T) {
	// 2026-07-31 is a Friday.
	clock := FixedClock{At: time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)}
	instant, hasTime, ok := ParseRelative("friday", clock, time.UTC)
	require.True(t, ok)
	require.False(t, hasTime)
	require.Equal(t, 2026, instant.Year())
	require.Equal(t, time.August, instant.Month())
	require.Equal(t, 7, instant.Day())
}

func TestAddPeriodMonthUsesCalendarSemantics(t *testing.T) {
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	end, err := AddPeriod(start, Period{Unit: "month", Amount: 1})
	require.NoError(t, err)
	require.Equal(t, time.March, end.Month())
}

func TestCanonicalPeriodUnitNormalizesAbbreviation(t *testing.T) {
	u, ok := CanonicalPeriodUnit("hrs")
	require.False(t, ok)
	u, ok = CanonicalPeriodUnit("hr")
	require.True(t, ok)
	require.Equal(t, "hour", u)
}
