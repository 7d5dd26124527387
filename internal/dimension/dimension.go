// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

// Package dimension implements the compound-unit dimension algebra: parsing
// unit fragments into per-dimension exponent/unit maps, multiplying/dividing/
// exponentiating those maps, and converting between compatible units
// (including temperature's affine offset). RateFunc declares the shape of a
// host-supplied currency rate lookup; no conversion in this package uses it.
package dimension

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/pkg/errors"

	"calcnote/internal/calcerr"
)

// Base is one of the closed set of base physical dimensions a Quantity can
// carry.
type Base int

const (
	Length Base = iota
	Mass
	Time
	Temperature
	Data
	Volume
	Currency
	Angle
)

func (b Base) String() string {
	switch b {
	case Length:
		return "length"
	case Mass:
		return "mass"
	case Time:
		return "time"
	case Temperature:
		return "temperature"
	case Data:
		return "data"
	case Volume:
		return "volume"
	case Currency:
		return "currency"
	case Angle:
		return "angle"
	default:
		return "unknown"
	}
}

// Entry is the (exponent, canonical unit) pair recorded per base dimension.
// Invariant: Exponent is never 0 in a stored Map.
type Entry struct {
	Exponent int
	Unit     string
}

// Map is a compound unit: a dimension.Base -> Entry mapping. nil/empty Map
// means "dimensionless".
type Map map[Base]Entry

// Clone returns a deep copy (Map values are small, but copy defensively since
// Maps are shared by Quantity values across the notebook's clone boundary).
func (m Map) Clone() Map {
	if len(m) == 0 {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Empty reports whether the compound unit has collapsed to dimensionless.
func (m Map) Empty() bool {
	return len(m) == 0
}

// Equal reports structural equality of two dimension maps.
func (m Map) Equal(other Map) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// String renders a compound unit like "m/s²" in canonical form: positive
// exponents first, then a '/' and the negative exponents with their sign
// flipped. Within each side, bases appear in the fixed order mass, length,
// time, temperature, data, volume, currency, angle.
func (m Map) String() string {
	if m.Empty() {
		return ""
	}
	var num, den []string
	for _, b := range []Base{Mass, Length, Time, Temperature, Data, Volume, Currency, Angle} {
		e, ok := m[b]
		if !ok {
			continue
		}
		switch {
		case e.Exponent == 1:
			num = append(num, e.Unit)
		case e.Exponent > 1:
			num = append(num, fmt.Sprintf("%s%s", e.Unit, superscript(e.Exponent)))
		case e.Exponent == -1:
			den = append(den, e.Unit)
		case e.Exponent < 0:
			den = append(den, fmt.Sprintf("%s%s", e.Unit, superscript(-e.Exponent)))
		}
	}
	switch {
	case len(den) == 0:
		return strings.Join(num, "·")
	case len(num) == 0:
		return "1/" + strings.Join(den, "·")
	default:
		return strings.Join(num, "·") + "/" + strings.Join(den, "·")
	}
}

var superDigits = map[rune]rune{'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴', '5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹'}

func superscript(n int) string {
	var sb strings.Builder
	for _, r := range fmt.Sprintf("%d", n) {
		sb.WriteRune(superDigits[r])
	}
	return sb.String()
}

// Multiply merges two dimension maps, summing exponents and dropping any
// entry whose exponent becomes 0.
func Multiply(a, b Map) Map {
	out := make(Map, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := out[k]; ok {
			sum := existing.Exponent + v.Exponent
			if sum == 0 {
				delete(out, k)
				continue
			}
			out[k] = Entry{Exponent: sum, Unit: existing.Unit}
		} else {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Reciprocal negates every exponent.
func Reciprocal(a Map) Map {
	out := make(Map, len(a))
	for k, v := range a {
		out[k] = Entry{Exponent: -v.Exponent, Unit: v.Unit}
	}
	return out
}

// Divide is multiplication by the reciprocal.
func Divide(a, b Map) Map {
	return Multiply(a, Reciprocal(b))
}

// Pow multiplies every exponent by n. n must be an integer value (callers
// validate non-integer exponents of a dimensioned quantity as a parse/eval
// error before reaching here).
func Pow(a Map, n int) Map {
	if n == 0 {
		return nil
	}
	out := make(Map, len(a))
	for k, v := range a {
		out[k] = Entry{Exponent: v.Exponent * n, Unit: v.Unit}
	}
	return out
}

// unitDef describes one named unit: the dimension it belongs to and the
// linear factor to the dimension's canonical base unit. Temperature is
// special-cased (affine); currency codes have no unitDef.
type unitDef struct {
	dim    Base
	factor *apd.Decimal // value in base unit per 1 of this unit
}

var (
	decCtx = apd.BaseContext.WithPrecision(40)
	units  = map[string]unitDef{}
)

func mustDec(s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func reg(name string, dim Base, factor string) {
	units[name] = unitDef{dim: dim, factor: mustDec(factor)}
}

func init() {
	// length, canonical "m"
	reg("m", Length, "1")
	reg("meter", Length, "1")
	reg("meters", Length, "1")
	reg("mm", Length, "0.001")
	reg("cm", Length, "0.01")
	reg("km", Length, "1000")
	reg("in", Length, "0.0254")
	reg("inch", Length, "0.0254")
	reg("ft", Length, "0.3048")
	reg("feet", Length, "0.3048")
	reg("foot", Length, "0.3048")
	reg("yd", Length, "0.9144")
	reg("yard", Length, "0.9144")
	reg("mi", Length, "1609.344")
	reg("mile", Length, "1609.344")
	reg("miles", Length, "1609.344")
	siPrefix("m", Length, "1")

	// mass, canonical "g"
	reg("g", Mass, "1")
	reg("gram", Mass, "1")
	reg("grams", Mass, "1")
	reg("oz", Mass, "28.3495")
	reg("lb", Mass, "453.592")
	reg("lbs", Mass, "453.592")
	reg("pound", Mass, "453.592")
	siPrefix("g", Mass, "1")

	// time, canonical "s"
	reg("s", Time, "1")
	reg("sec", Time, "1")
	reg("second", Time, "1")
	reg("seconds", Time, "1")
	reg("min", Time, "60")
	reg("minute", Time, "60")
	reg("minutes", Time, "60")
	reg("h", Time, "3600")
	reg("hr", Time, "3600")
	reg("hour", Time, "3600")
	reg("hours", Time, "3600")
	reg("day", Time, "86400")
	reg("days", Time, "86400")
	reg("week", Time, "604800")
	reg("weeks", Time, "604800")
	reg("month", Time, "2592000")  // 30 days, calendar semantics override this on Date arithmetic
	reg("months", Time, "2592000")
	reg("year", Time, "31557600") // 365.25 days, calendar semantics override this on Date arithmetic
	reg("years", Time, "31557600")
	reg("ms", Time, "0.001")
	reg("us", Time, "0.000001")
	reg("ns", Time, "0.000000001")

	// temperature, canonical "c"; factor unused (affine handled specially)
	reg("c", Temperature, "1")
	reg("celsius", Temperature, "1")
	reg("f", Temperature, "1")
	reg("fahrenheit", Temperature, "1")
	reg("k", Temperature, "1")
	reg("kelvin", Temperature, "1")
	reg("C", Temperature, "1")
	reg("F", Temperature, "1")
	reg("K", Temperature, "1")

	// data, canonical "bit"
	reg("bit", Data, "1")
	reg("bits", Data, "1")
	reg("b", Data, "1")
	reg("byte", Data, "8")
	reg("bytes", Data, "8")
	reg("B", Data, "8")
	for _, p := range []struct {
		name   string
		factor string
	}{
		{"k", "1000"}, {"m", "1000000"}, {"g", "1000000000"}, {"t", "1000000000000"},
		{"ki", "1024"}, {"mi", "1048576"}, {"gi", "1073741824"}, {"ti", "1099511627776"},
	} {
		reg(p.name+"b", Data, mulStr(p.factor, "1"))
		reg(p.name+"B", Data, mulStr(p.factor, "8"))
	}

	// volume, canonical "l"
	reg("l", Volume, "1")
	reg("liter", Volume, "1")
	reg("liters", Volume, "1")
	reg("ml", Volume, "0.001")
	reg("cl", Volume, "0.01")
	reg("dl", Volume, "0.1")
	reg("foz", Volume, "0.0295735")
	reg("cup", Volume, "0.236588")
	reg("pt", Volume, "0.473176")
	reg("qt", Volume, "0.946353")
	reg("gal", Volume, "3.78541")
	siPrefix("l", Volume, "1")

	// angle, canonical "rad"
	reg("rad", Angle, "1")
	reg("radian", Angle, "1")
	reg("radians", Angle, "1")
	reg("deg", Angle, "0.017453292519943295")
	reg("degree", Angle, "0.017453292519943295")
	reg("degrees", Angle, "0.017453292519943295")
	reg("turn", Angle, "6.283185307179586")

	// derived units, decomposed into base dimensions only (no "current" base
	// exists in the closed dimension set, so amp-dependent units like ohm/
	// volt are intentionally not representable).
	derived["hz"] = Map{Time: {Exponent: -1, Unit: "s"}}
	derived["n"] = Map{Mass: {Exponent: 1, Unit: "g"}, Length: {Exponent: 1, Unit: "m"}, Time: {Exponent: -2, Unit: "s"}}
	derived["pa"] = Map{Mass: {Exponent: 1, Unit: "g"}, Length: {Exponent: -1, Unit: "m"}, Time: {Exponent: -2, Unit: "s"}}
	derived["j"] = Map{Mass: {Exponent: 1, Unit: "g"}, Length: {Exponent: 2, Unit: "m"}, Time: {Exponent: -2, Unit: "s"}}
	derived["w"] = Map{Mass: {Exponent: 1, Unit: "g"}, Length: {Exponent: 2, Unit: "m"}, Time: {Exponent: -3, Unit: "s"}}
}

var derived = map[string]Map{}

func mulStr(a, b string) string {
	x := mustDec(a)
	y := mustDec(b)
	r := new(apd.Decimal)
	decCtx.Mul(r, x, y)
	return r.Text('f')
}

var siPrefixes = []struct {
	sym    string
	factor string
}{
	{"da", "10"}, {"h", "100"}, {"k", "1000"}, {"M", "1000000"}, {"G", "1000000000"},
	{"T", "1000000000000"}, {"P", "1000000000000000"}, {"E", "1000000000000000000"},
	{"d", "0.1"}, {"c", "0.01"}, {"m", "0.001"}, {"u", "0.000001"}, {"µ", "0.000001"},
	{"n", "0.000000001"}, {"p", "0.000000000001"}, {"f", "0.000000000000001"}, {"a", "0.000000000000000001"},
}

func siPrefix(base string, dim Base, baseFactor string) {
	for _, p := range siPrefixes {
		reg(p.sym+base, dim, mulStr(p.factor, baseFactor))
	}
}

// Lookup parses a single unit fragment (no exponent, no compound) into its
// dimension Map and reports whether it is known.
func Lookup(name string) (Map, bool) {
	key := name
	if m, ok := derived[strings.ToLower(key)]; ok {
		return m.Clone(), true
	}
	if key == "currency" {
		return nil, false
	}
	if u, ok := units[key]; ok {
		return Map{u.dim: {Exponent: 1, Unit: canonicalName(key, u.dim)}}, true
	}
	// case-insensitive fallback, except single-letter units which are
	// case-sensitive (g vs G, m vs M) to avoid SI-prefix collisions.
	if len(key) > 1 {
		if u, ok := units[strings.ToLower(key)]; ok {
			return Map{u.dim: {Exponent: 1, Unit: canonicalName(strings.ToLower(key), u.dim)}}, true
		}
	}
	return nil, false
}

// IsKnownUnit reports whether name resolves to a unit fragment. Currency
// codes are not in the unit table and report false.
func IsKnownUnit(name string) bool {
	_, ok := Lookup(name)
	return ok
}

func canonicalName(name string, dim Base) string {
	// canonical display name is the unit as registered; abbreviations are
	// preferred (the first-registered spelling for common units).
	switch dim {
	case Length:
		return firstOf(name, map[string]string{"meter": "m", "meters": "m", "inch": "in", "feet": "ft", "foot": "ft", "yard": "yd", "mile": "mi", "miles": "mi"})
	case Mass:
		return firstOf(name, map[string]string{"gram": "g", "grams": "g", "lbs": "lb", "pound": "lb"})
	case Time:
		return firstOf(name, map[string]string{"sec": "s", "second": "s", "seconds": "s", "minute": "min", "minutes": "min", "hr": "h", "hour": "h", "hours": "h", "days": "day", "weeks": "week", "months": "month", "years": "year"})
	case Temperature:
		return firstOf(name, map[string]string{"celsius": "c", "fahrenheit": "f", "kelvin": "k"})
	case Volume:
		return firstOf(name, map[string]string{"liter": "l", "liters": "l"})
	case Data:
		return firstOf(name, map[string]string{"bits": "bit"})
	case Angle:
		return firstOf(name, map[string]string{"radian": "rad", "radians": "rad", "degree": "deg", "degrees": "deg"})
	default:
		return name
	}
}

func firstOf(name string, aliases map[string]string) string {
	if canon, ok := aliases[name]; ok {
		return canon
	}
	return name
}

// CurrencyUnit builds a dimensionless-except-currency Map for a currency
// code, e.g. "usd" -> {Currency: {1, "usd"}}.
func CurrencyUnit(code string) Map {
	return Map{Currency: {Exponent: 1, Unit: strings.ToLower(code)}}
}

// RateFunc resolves a conversion factor: 1 unit of from = factor units of to.
// Supplied by the evaluator's EvaluationContext (ultimately the embedding
// host); the dimension package never fetches rates itself.
type RateFunc func(from, to string) (*apd.Decimal, bool)

// factorToBase returns the linear factor from unit `name` to its dimension's
// canonical base unit. Temperature is not linear and is converted by
// ConvertTemperature instead; currency codes have no entry here.
func factorToBase(name string) (*apd.Decimal, bool) {
	if u, ok := units[name]; ok {
		return u.factor, true
	}
	if u, ok := units[strings.ToLower(name)]; ok {
		return u.factor, true
	}
	return nil, false
}

// SameBaseDimension reports whether two single-entry unit names belong to
// the same physical dimension (used by binary +/- to decide whether a right
// operand needs converting to the left operand's unit).
func SameBaseDimension(a, b string) bool {
	ua, oka := units[a]
	ub, okb := units[b]
	if oka && okb {
		return ua.dim == ub.dim
	}
	return false
}

// ConvertFactor returns the multiplicative factor to convert a scalar from
// unit `from` to unit `to`, for any non-temperature, non-currency dimension.
func ConvertFactor(from, to string) (*apd.Decimal, error) {
	ff, ok := factorToBase(from)
	if !ok {
		return nil, calcerr.New(calcerr.KindInvalidUnit, "unknown unit %q", from)
	}
	ft, ok := factorToBase(to)
	if !ok {
		return nil, calcerr.New(calcerr.KindInvalidUnit, "unknown unit %q", to)
	}
	if !SameBaseDimension(from, to) {
		return nil, calcerr.New(calcerr.KindIncompatibleDimensions, "cannot convert %s to %s", from, to)
	}
	out := new(apd.Decimal)
	_, err := decCtx.Quo(out, ff, ft)
	if err != nil {
		return nil, errors.Wrap(err, "computing conversion factor")
	}
	return out, nil
}

// ConvertTemperature converts a scalar value from one temperature unit to
// another using affine (offset) conversion, since temperature scales don't
// share a common zero the way length or mass units do.
func ConvertTemperature(value *apd.Decimal, from, to string) (*apd.Decimal, error) {
	toCelsius := func(v *apd.Decimal, unit string) (*apd.Decimal, error) {
		switch unit {
		case "c":
			return v, nil
		case "f":
			out := new(apd.Decimal)
			tmp := new(apd.Decimal)
			decCtx.Sub(tmp, v, mustDec("32"))
			decCtx.Mul(out, tmp, mustDec("5"))
			decCtx.Quo(out, out, mustDec("9"))
			return out, nil
		case "k":
			out := new(apd.Decimal)
			decCtx.Sub(out, v, mustDec("273.15"))
			return out, nil
		default:
			return nil, calcerr.New(calcerr.KindInvalidUnit, "unknown temperature unit %q", unit)
		}
	}
	fromCelsius := func(v *apd.Decimal, unit string) (*apd.Decimal, error) {
		switch unit {
		case "c":
			return v, nil
		case "f":
			out := new(apd.Decimal)
			decCtx.Mul(out, v, mustDec("9"))
			decCtx.Quo(out, out, mustDec("5"))
			decCtx.Add(out, out, mustDec("32"))
			return out, nil
		case "k":
			out := new(apd.Decimal)
			decCtx.Add(out, v, mustDec("273.15"))
			return out, nil
		default:
			return nil, calcerr.New(calcerr.KindInvalidUnit, "unknown temperature unit %q", unit)
		}
	}
	celsius, err := toCelsius(value, strings.ToLower(from))
	if err != nil {
		return nil, err
	}
	return fromCelsius(celsius, strings.ToLower(to))
}

// IsTemperature reports whether a single-dimension Map is a Temperature
// quantity (needed by the evaluator to route to ConvertTemperature).
func (m Map) IsTemperature() bool {
	if len(m) != 1 {
		return false
	}
	e, ok := m[Temperature]
	return ok && e.Exponent == 1
}

// IsCurrency reports whether a single-dimension Map is a bare Currency
// quantity.
func (m Map) IsCurrency() bool {
	if len(m) != 1 {
		return false
	}
	e, ok := m[Currency]
	return ok && e.Exponent == 1
}

// ParseCompoundUnit parses a textual compound-unit expression such as
// "m/s^2", "km/h" or "kg·m/s²" into a dimension Map, by splitting on '*'/'·'
// (multiplication), '/' (division) and '^' (integer exponent). It is used by
// the evaluator to resolve a parser-reconstructed `to`/`in`/`as` target.
func ParseCompoundUnit(expr string) (Map, error) {
	expr = normalizeSuperscripts(expr)
	// split into numerator/denominator around the first '/'
	numPart, denPart, hasDen := strings.Cut(expr, "/")
	num, err := parseUnitProduct(numPart)
	if err != nil {
		return nil, err
	}
	if !hasDen {
		return num, nil
	}
	den, err := parseUnitProduct(denPart)
	if err != nil {
		return nil, err
	}
	return Divide(num, den), nil
}

func parseUnitProduct(expr string) (Map, error) {
	out := Map{}
	for _, factor := range splitProduct(expr) {
		if factor == "" {
			continue
		}
		name, exp := splitExponent(factor)
		m, ok := Lookup(name)
		if !ok {
			return nil, calcerr.New(calcerr.KindInvalidUnit, "unknown unit %q", name)
		}
		out = Multiply(out, Pow(m, exp))
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func splitProduct(expr string) []string {
	var parts []string
	var cur strings.Builder
	for _, r := range expr {
		if r == '*' || r == '·' || r == '•' {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	parts = append(parts, cur.String())
	return parts
}

func splitExponent(factor string) (string, int) {
	idx := strings.IndexByte(factor, '^')
	if idx < 0 {
		return factor, 1
	}
	name := factor[:idx]
	expText := factor[idx+1:]
	exp := 1
	neg := false
	n := 0
	any := false
	for _, r := range expText {
		if r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			continue
		}
		n = n*10 + int(r-'0')
		any = true
	}
	if any {
		exp = n
		if neg {
			exp = -exp
		}
	}
	return name, exp
}

var superDigitValue = map[rune]rune{'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4', '⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9'}

// normalizeSuperscripts rewrites a trailing run of superscript digits (e.g.
// "s²" or "m⁻¹") into an explicit "^" exponent ("s^2", "m^-1").
func normalizeSuperscripts(s string) string {
	var sb strings.Builder
	inSuper := false
	for _, r := range s {
		if d, ok := superDigitValue[r]; ok {
			if !inSuper {
				sb.WriteByte('^')
				inSuper = true
			}
			sb.WriteRune(d)
			continue
		}
		if r == '⁻' {
			if !inSuper {
				sb.WriteByte('^')
				inSuper = true
			}
			sb.WriteByte('-')
			continue
		}
		inSuper = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// Category implements the unit-category tags the `is` operator recognises:
// length, weight, volume, temperature, data, time, currency, angle.
func (m Map) Category() (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	for b, e := range m {
		if e.Exponent != 1 {
			return "", false
		}
		switch b {
		case Length:
			return "length", true
		case Mass:
			return "weight", true
		case Volume:
			return "volume", true
		case Temperature:
			return "temperature", true
		case Data:
			return "data", true
		case Time:
			return "time", true
		case Currency:
			return "currency", true
		case Angle:
			return "angle", true
		}
	}
	return "", false
}
