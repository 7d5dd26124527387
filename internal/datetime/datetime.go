// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

// Package datetime implements relative-date parsing, period arithmetic and
// the IANA timezone name table used by the lexer's `@timezone` suffix and
// the evaluator's `in`/`to` timezone conversion.
package datetime

import (
	"strings"
	"time"

	"calcnote/internal/calcerr"
)

// TimeSource is the injectable wall-clock dependency, so notebook evaluation
// can be driven by a fixed instant in tests and reproducible runs instead of
// a global singleton. The zero value is not usable; use RealClock().
type TimeSource interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock returns the default wall-clock TimeSource.
func RealClock() TimeSource { return realClock{} }

// FixedClock is a TimeSource that always reports the same instant, useful
// for tests and anywhere else evaluation needs to be reproducible.
type FixedClock struct{ At time.Time }

func (f FixedClock) Now() time.Time { return f.At }

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// ParseRelative resolves one of the relative-date keywords against clock and
// the system location. hasTime reports whether the result carries a
// wall-clock time component (true only for "now").
func ParseRelative(word string, clock TimeSource, systemLoc *time.Location) (instant time.Time, hasTime bool, ok bool) {
	now := clock.Now().In(systemLoc)
	lower := strings.ToLower(word)
	switch lower {
	case "now":
		return now, true, true
	case "today":
		return startOfDay(now), false, true
	case "yesterday":
		return startOfDay(now.AddDate(0, 0, -1)), false, true
	case "tomorrow":
		return startOfDay(now.AddDate(0, 0, 1)), false, true
	}
	if wd, ok := weekdays[lower]; ok {
		return nextWeekday(startOfDay(now), wd), false, true
	}
	return time.Time{}, false, false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// nextWeekday returns the next occurrence of wd strictly after today: a
// bare "friday" typed on a Friday means next Friday, not today.
func nextWeekday(today time.Time, wd time.Weekday) time.Time {
	delta := (int(wd) - int(today.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return today.AddDate(0, 0, delta)
}

// Period is a single unit of calendar or fixed-duration arithmetic.
type Period struct {
	Unit   string // canonical: second, minute, hour, day, week, month, year
	Amount int64
}

var periodUnits = map[string]string{
	"s": "second", "sec": "second", "second": "second", "seconds": "second",
	"min": "minute", "minute": "minute", "minutes": "minute",
	"h": "hour", "hr": "hour", "hour": "hour", "hours": "hour",
	"day": "day", "days": "day",
	"week": "week", "weeks": "week",
	"month": "month", "months": "month",
	"year": "year", "years": "year",
}

// CanonicalPeriodUnit normalizes a period unit spelling, reporting whether it
// is recognized.
func CanonicalPeriodUnit(unit string) (string, bool) {
	u, ok := periodUnits[strings.ToLower(unit)]
	return u, ok
}

// AddPeriod applies calendar semantics for month/year (so adding a month
// can change the day-of-month, e.g. Jan 31 + 1 month lands in March) and
// fixed-duration semantics for everything else.
func AddPeriod(t time.Time, p Period) (time.Time, error) {
	switch p.Unit {
	case "year":
		return t.AddDate(int(p.Amount), 0, 0), nil
	case "month":
		return t.AddDate(0, int(p.Amount), 0), nil
	case "week":
		return t.AddDate(0, 0, 7*int(p.Amount)), nil
	case "day":
		return t.AddDate(0, 0, int(p.Amount)), nil
	case "hour":
		return t.Add(time.Duration(p.Amount) * time.Hour), nil
	case "minute":
		return t.Add(time.Duration(p.Amount) * time.Minute), nil
	case "second":
		return t.Add(time.Duration(p.Amount) * time.Second), nil
	default:
		return time.Time{}, calcerr.New(calcerr.KindBadDateLiteral, "unknown period unit %q", p.Unit)
	}
}

// timezone name table: common city/region names and "utc+N"/"utc-N" offsets
// mapped to IANA zone identifiers. Unrecognized names fall back to the
// system zone while the caller retains the user-supplied label:
// ResolveTimezone never errors, it reports ok=false instead.
var timezoneNames = map[string]string{
	"utc":        "UTC",
	"gmt":        "UTC",
	"london":     "Europe/London",
	"paris":      "Europe/Paris",
	"berlin":     "Europe/Berlin",
	"madrid":     "Europe/Madrid",
	"rome":       "Europe/Rome",
	"moscow":     "Europe/Moscow",
	"tokyo":      "Asia/Tokyo",
	"beijing":    "Asia/Shanghai",
	"shanghai":   "Asia/Shanghai",
	"hong kong":  "Asia/Hong_Kong",
	"singapore":  "Asia/Singapore",
	"seoul":      "Asia/Seoul",
	"mumbai":     "Asia/Kolkata",
	"delhi":      "Asia/Kolkata",
	"dubai":      "Asia/Dubai",
	"sydney":     "Australia/Sydney",
	"melbourne":  "Australia/Melbourne",
	"auckland":   "Pacific/Auckland",
	"new york":   "America/New_York",
	"nyc":        "America/New_York",
	"chicago":    "America/Chicago",
	"denver":     "America/Denver",
	"los angeles": "America/Los_Angeles",
	"la":          "America/Los_Angeles",
	"san francisco": "America/Los_Angeles",
	"seattle":    "America/Los_Angeles",
	"toronto":    "America/Toronto",
	"vancouver":  "America/Vancouver",
	"mexico city": "America/Mexico_City",
	"sao paulo":  "America/Sao_Paulo",
	"local":      "",
}

// KnownTimezoneNames exposes the table's keys for the lexer's lookahead
// match against multi-word timezone names.
func KnownTimezoneNames() []string {
	names := make([]string, 0, len(timezoneNames))
	for k := range timezoneNames {
		names = append(names, k)
	}
	return names
}

// ResolveTimezone maps a user-typed timezone label to a *time.Location and
// the canonical IANA name. If the label is not recognized, it falls back to
// systemLoc and reports ok=false while the caller still keeps the original
// label as the attached TimezoneName — an unrecognized label is never a
// reason to abort evaluation.
func ResolveTimezone(label string, systemLoc *time.Location) (*time.Location, string, bool) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if iana, ok := timezoneNames[lower]; ok {
		if iana == "" {
			return systemLoc, systemLoc.String(), true
		}
		loc, err := time.LoadLocation(iana)
		if err != nil {
			return systemLoc, label, false
		}
		return loc, iana, true
	}
	if off, ok := parseUTCOffset(lower); ok {
		loc := time.FixedZone(label, off*3600)
		return loc, label, true
	}
	return systemLoc, label, false
}

func parseUTCOffset(s string) (int, bool) {
	if !strings.HasPrefix(s, "utc") {
		return 0, false
	}
	rest := s[3:]
	if rest == "" {
		return 0, true
	}
	sign := 1
	switch rest[0] {
	case '+':
		rest = rest[1:]
	case '-':
		sign = -1
		rest = rest[1:]
	default:
		return 0, false
	}
	n := 0
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return sign * n, true
}
