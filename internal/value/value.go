// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

// Package value implements the tagged Value sum type: the runtime
// representation every calcnote expression evaluates to.
package value

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"calcnote/internal/ast"
	"calcnote/internal/dimension"
)

// Kind tags the active variant of a Value.
type Kind int

const (
	KindNumber Kind = iota
	KindPercentage
	KindQuantity
	KindString
	KindBoolean
	KindNull
	KindDate
	KindArray
	KindObject
	KindFunction
	KindPartial
	KindMarkdown
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindPercentage:
		return "percentage"
	case KindQuantity:
		return "quantity"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindNull:
		return "null"
	case KindDate:
		return "date"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	case KindPartial:
		return "partial"
	case KindMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// DecimalContext is the shared arithmetic context (precision, rounding) used
// throughout the evaluator. Default precision is 20 significant digits; the
// CLI/config layer may lower it (1..20).
var DecimalContext = apd.BaseContext.WithPrecision(20)

// SetPrecision reconfigures the shared decimal context's precision.
func SetPrecision(digits uint32) {
	if digits == 0 {
		digits = 20
	}
	DecimalContext = apd.BaseContext.WithPrecision(digits)
}

// NumberFormat distinguishes a plain decimal display from an explicit
// binary/hex literal spelling.
type NumberFormat int

const (
	FormatDecimal NumberFormat = iota
	FormatBinary
	FormatHex
)

// DateValue is the Date variant's payload: a UTC instant plus an optional
// attached timezone label and a flag distinguishing date from datetime.
type DateValue struct {
	Instant          time.Time // always stored in UTC
	Timezone         string    // attached label, "" if none
	HasTimeComponent bool
}

// ArrayValue is the mutable backing store shared by every Value that
// references the same array: mutating builtins like push!/pop! write
// through it, visible to every variable holding that same array until the
// next assignment deep-clones it.
type ArrayValue struct {
	Items []Value
}

// ObjectValue is the mutable backing store for Object values. Keys preserves
// insertion order for display; Entries holds the actual mapping.
type ObjectValue struct {
	Keys    []string
	Entries map[string]Value
}

func NewObject() *ObjectValue {
	return &ObjectValue{Entries: map[string]Value{}}
}

// Set inserts or updates a key, appending to Keys only on first insertion.
func (o *ObjectValue) Set(key string, v Value) {
	if _, exists := o.Entries[key]; !exists {
		o.Keys = append(o.Keys, key)
	}
	o.Entries[key] = v
}

func (o *ObjectValue) Get(key string) (Value, bool) {
	v, ok := o.Entries[key]
	return v, ok
}

// Function is a user-defined or lambda function value: an ordered parameter
// list, an AST body, and a snapshot of the defining environment.
type Function struct {
	Name   string
	Params []string
	Body   ast.Node
	Env    Environment
}

// Partial is a function or built-in awaiting additional arguments.
type Partial struct {
	Func       *Function // non-nil when wrapping a user function/lambda
	Builtin    string    // non-empty when wrapping a built-in by name
	Applied    []Value
	ParamCount int
}

func (p *Partial) Remaining() int {
	return p.ParamCount - len(p.Applied)
}

// Value is the tagged sum type. Only the fields relevant to Kind are
// meaningful; the rest are zero.
type Value struct {
	Kind Kind

	Num  *apd.Decimal    // Number, Percentage, Quantity
	Dims dimension.Map   // Quantity only

	Str string // String, Markdown (raw)

	Bool bool // Boolean

	Date DateValue // Date

	Arr *ArrayValue  // Array
	Obj *ObjectValue // Object

	Fn   *Function // Function
	Part *Partial  // Partial
}

// Environment maps a variable name to a Value. Unicode identifiers
// (including Cyrillic) are valid keys; the lexer normalizes them to NFC
// before they ever reach here.
type Environment map[string]Value

func (e Environment) Clone() Environment {
	out := make(Environment, len(e))
	for k, v := range e {
		out[k] = DeepClone(v)
	}
	return out
}

// Constructors

func Number(d *apd.Decimal) Value {
	return Value{Kind: KindNumber, Num: d}
}

func NumberFromInt(n int64) Value {
	return Value{Kind: KindNumber, Num: apd.New(n, 0)}
}

func Percentage(d *apd.Decimal) Value {
	return Value{Kind: KindPercentage, Num: d}
}

func Quantity(d *apd.Decimal, dims dimension.Map) Value {
	if dims.Empty() {
		return Number(d)
	}
	return Value{Kind: KindQuantity, Num: d, Dims: dims}
}

func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func Boolean(b bool) Value {
	return Value{Kind: KindBoolean, Bool: b}
}

func Null() Value {
	return Value{Kind: KindNull}
}

func Date(d DateValue) Value {
	return Value{Kind: KindDate, Date: d}
}

func Array(items []Value) Value {
	return Value{Kind: KindArray, Arr: &ArrayValue{Items: items}}
}

func Object(obj *ObjectValue) Value {
	return Value{Kind: KindObject, Obj: obj}
}

func FunctionValue(fn *Function) Value {
	return Value{Kind: KindFunction, Fn: fn}
}

func PartialValue(p *Partial) Value {
	return Value{Kind: KindPartial, Part: p}
}

func Markdown(raw string) Value {
	return Value{Kind: KindMarkdown, Str: raw}
}

// IsNull reports whether v is the Null variant (used by `??`).
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Truthy reports whether v counts as true in a boolean context: false,
// null, zero, the empty string, and empty arrays/objects are falsy; every
// other value (including Date and Function) is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBoolean:
		return v.Bool
	case KindNull:
		return false
	case KindNumber, KindPercentage, KindQuantity:
		return v.Num.Sign() != 0
	case KindString:
		return v.Str != ""
	case KindArray:
		return v.Arr != nil && len(v.Arr.Items) > 0
	case KindObject:
		return v.Obj != nil && len(v.Obj.Keys) > 0
	default:
		return true
	}
}

// DeepClone copies a Value such that mutation of arrays/objects reachable
// from the clone is never observed through the original. This is the
// barrier that keeps every notebook line's recomputation isolated from
// every other's: each line evaluates against its own deep-cloned copy of
// the variables in scope. Numbers/strings/booleans/dates are value types
// and need no structural copy beyond copying the decimal's internal state.
// Functions are shared as immutable references (their captured environment
// was already snapshotted at creation time); a Partial gets a fresh wrapper
// around the same callee with deep-cloned applied arguments.
func DeepClone(v Value) Value {
	switch v.Kind {
	case KindNumber, KindPercentage, KindQuantity:
		if v.Num == nil {
			return v
		}
		cp := new(apd.Decimal)
		cp.Set(v.Num)
		out := v
		out.Num = cp
		out.Dims = v.Dims.Clone()
		return out
	case KindArray:
		if v.Arr == nil {
			return v
		}
		items := make([]Value, len(v.Arr.Items))
		for i, it := range v.Arr.Items {
			items[i] = DeepClone(it)
		}
		return Value{Kind: KindArray, Arr: &ArrayValue{Items: items}}
	case KindObject:
		if v.Obj == nil {
			return v
		}
		out := NewObject()
		for _, k := range v.Obj.Keys {
			out.Set(k, DeepClone(v.Obj.Entries[k]))
		}
		return Value{Kind: KindObject, Obj: out}
	case KindPartial:
		applied := make([]Value, len(v.Part.Applied))
		for i, a := range v.Part.Applied {
			applied[i] = DeepClone(a)
		}
		return Value{Kind: KindPartial, Part: &Partial{
			Func: v.Part.Func, Builtin: v.Part.Builtin,
			Applied: applied, ParamCount: v.Part.ParamCount,
		}}
	default:
		return v
	}
}

// Equal implements structural equality: recursive for arrays/objects,
// calendar-equal for dates (including timezone label), decimal-equal for
// numbers. Used to detect whether a recomputed line's assignment actually
// changed a variable's value.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		// Number/Percentage/Quantity never compare equal across kinds in
		// this implementation: a bare Number and a Quantity carry different
		// meaning even at the same magnitude.
		return false
	}
	switch a.Kind {
	case KindNumber, KindPercentage:
		return a.Num.Cmp(b.Num) == 0
	case KindQuantity:
		return a.Num.Cmp(b.Num) == 0 && a.Dims.Equal(b.Dims)
	case KindString, KindMarkdown:
		return a.Str == b.Str
	case KindBoolean:
		return a.Bool == b.Bool
	case KindNull:
		return true
	case KindDate:
		return a.Date.Instant.Equal(b.Date.Instant) && a.Date.Timezone == b.Date.Timezone && a.Date.HasTimeComponent == b.Date.HasTimeComponent
	case KindArray:
		if len(a.Arr.Items) != len(b.Arr.Items) {
			return false
		}
		for i := range a.Arr.Items {
			if !Equal(a.Arr.Items[i], b.Arr.Items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.Obj.Keys) != len(b.Obj.Keys) {
			return false
		}
		for _, k := range a.Obj.Keys {
			bv, ok := b.Obj.Get(k)
			if !ok || !Equal(a.Obj.Entries[k], bv) {
				return false
			}
		}
		return true
	case KindFunction:
		return a.Fn == b.Fn
	case KindPartial:
		return a.Part == b.Part
	default:
		return false
	}
}

// String renders a Value for notebook display.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return v.Num.Text('f')
	case KindPercentage:
		return v.Num.Text('f') + "%"
	case KindQuantity:
		return v.Num.Text('f') + " " + v.Dims.String()
	case KindString:
		return v.Str
	case KindBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNull:
		return "null"
	case KindDate:
		return formatDate(v.Date)
	case KindArray:
		parts := make([]string, len(v.Arr.Items))
		for i, it := range v.Arr.Items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		parts := make([]string, 0, len(v.Obj.Keys))
		for _, k := range v.Obj.Keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, v.Obj.Entries[k].String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindFunction:
		return fmt.Sprintf("<function %s/%d>", v.Fn.Name, len(v.Fn.Params))
	case KindPartial:
		return fmt.Sprintf("<partial %d/%d>", len(v.Part.Applied), v.Part.ParamCount)
	case KindMarkdown:
		return v.Str
	default:
		return ""
	}
}

func formatDate(d DateValue) string {
	layout := "02.01.2006"
	if d.HasTimeComponent {
		layout = "02.01.2006T15:04"
	}
	s := d.Instant.Format(layout)
	if d.Timezone != "" {
		s += "@" + d.Timezone
	}
	return s
}

// TypeTag returns the `type(v)` string.
func TypeTag(v Value) string {
	return v.Kind.String()
}
