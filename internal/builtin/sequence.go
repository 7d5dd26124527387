// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package builtin

import (
	"sort"

	"calcnote/internal/calcerr"
	"calcnote/internal/evalctx"
	"calcnote/internal/value"
)

// registerSequence wires the array builtins: accessors, higher-order
// functions, and the `!`-suffixed mutating variants that act on the
// array's shared backing store in place.
func registerSequence() {
	register("first", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("first", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		if len(arr.Items) == 0 {
			return value.Null(), nil
		}
		return arr.Items[0], nil
	})
	register("last", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("last", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		if len(arr.Items) == 0 {
			return value.Null(), nil
		}
		return arr.Items[len(arr.Items)-1], nil
	})
	lenFn := func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		switch args[0].Kind {
		case value.KindArray:
			return value.NumberFromInt(int64(len(args[0].Arr.Items))), nil
		case value.KindString:
			return value.NumberFromInt(int64(len([]rune(args[0].Str)))), nil
		default:
			return value.Value{}, calcerr.ArgTypeMismatch("length", 1, "array or string")
		}
	}
	register("length", 1, 1, lenFn)
	register("len", 1, 1, lenFn)
	register("size", 1, 1, lenFn)

	register("slice", 2, 3, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("slice", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		from, err := intArg("slice", 2, args[1])
		if err != nil {
			return value.Value{}, err
		}
		to := int64(len(arr.Items))
		if len(args) == 3 {
			to, err = intArg("slice", 3, args[2])
			if err != nil {
				return value.Value{}, err
			}
		}
		from, to = clampRange(from, to, int64(len(arr.Items)))
		items := make([]value.Value, to-from)
		copy(items, arr.Items[from:to])
		return value.Array(items), nil
	})

	register("find", 2, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("find", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		for _, it := range arr.Items {
			result, err := apply(args[1], []value.Value{it})
			if err != nil {
				return value.Value{}, err
			}
			if result.Truthy() {
				return it, nil
			}
		}
		return value.Null(), nil
	})
	register("findindex", 2, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("findindex", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		for i, it := range arr.Items {
			result, err := apply(args[1], []value.Value{it})
			if err != nil {
				return value.Value{}, err
			}
			if result.Truthy() {
				return value.NumberFromInt(int64(i)), nil
			}
		}
		return value.NumberFromInt(-1), nil
	})
	register("filter", 2, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("filter", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		var out []value.Value
		for _, it := range arr.Items {
			result, err := apply(args[1], []value.Value{it})
			if err != nil {
				return value.Value{}, err
			}
			if result.Truthy() {
				out = append(out, it)
			}
		}
		return value.Array(out), nil
	})
	register("map", 2, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("map", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		out := make([]value.Value, len(arr.Items))
		for i, it := range arr.Items {
			result, err := apply(args[1], []value.Value{it})
			if err != nil {
				return value.Value{}, err
			}
			out[i] = result
		}
		return value.Array(out), nil
	})
	register("reduce", 2, 3, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("reduce", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		items := arr.Items
		var acc value.Value
		if len(args) == 3 {
			acc = args[2]
		} else {
			if len(items) == 0 {
				return value.Value{}, calcerr.New(calcerr.KindNoValuesToAggregate, "reduce of an empty array with no seed")
			}
			acc = items[0]
			items = items[1:]
		}
		for _, it := range items {
			acc, err = apply(args[1], []value.Value{acc, it})
			if err != nil {
				return value.Value{}, err
			}
		}
		return acc, nil
	})
	register("sort", 1, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("sort", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		out := make([]value.Value, len(arr.Items))
		copy(out, arr.Items)
		var sortErr error
		sort.SliceStable(out, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			if len(args) == 2 {
				result, err := apply(args[1], []value.Value{out[i], out[j]})
				if err != nil {
					sortErr = err
					return false
				}
				d, err := numArg("sort", 2, result)
				if err != nil {
					sortErr = err
					return false
				}
				return d.Sign() < 0
			}
			return defaultLess(out[i], out[j])
		})
		if sortErr != nil {
			return value.Value{}, sortErr
		}
		return value.Array(out), nil
	})
	register("groupby", 2, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("groupby", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		obj := value.NewObject()
		groups := map[string][]value.Value{}
		var order []string
		for _, it := range arr.Items {
			keyVal, err := apply(args[1], []value.Value{it})
			if err != nil {
				return value.Value{}, err
			}
			key := keyVal.String()
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], it)
		}
		for _, k := range order {
			obj.Set(k, value.Array(groups[k]))
		}
		return value.Object(obj), nil
	})

	register("push", 2, 2, mutatingAppend(false))
	register("push!", 2, 2, mutatingAppend(true))
	register("append", 2, 2, mutatingAppend(false))
	register("append!", 2, 2, mutatingAppend(true))
	register("prepend", 2, 2, mutatingPrepend(false))
	register("prepend!", 2, 2, mutatingPrepend(true))
	register("unshift", 2, 2, mutatingPrepend(false))
	register("unshift!", 2, 2, mutatingPrepend(true))

	register("pop", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		return popLast(args[0], false)
	})
	register("pop!", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		return popLast(args[0], true)
	})
	register("shift", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		return popFirst(args[0], false)
	})
	register("shift!", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		return popFirst(args[0], true)
	})
}

func clampRange(from, to, n int64) (int64, int64) {
	if from < 0 {
		from = n + from
	}
	if to < 0 {
		to = n + to
	}
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if from > to {
		from = to
	}
	return from, to
}

func defaultLess(a, b value.Value) bool {
	if a.Kind == value.KindString && b.Kind == value.KindString {
		return a.Str < b.Str
	}
	if a.Num != nil && b.Num != nil {
		return a.Num.Cmp(b.Num) < 0
	}
	return a.String() < b.String()
}

// mutatingAppend builds push/append: `!` writes through to the array's
// shared Items slice (observed by every other reference to the same
// array); the non-mutating form returns a new array value instead.
func mutatingAppend(mutate bool) func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
	return func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("append", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		if mutate {
			arr.Items = append(arr.Items, args[1])
			return args[0], nil
		}
		out := make([]value.Value, len(arr.Items)+1)
		copy(out, arr.Items)
		out[len(arr.Items)] = args[1]
		return value.Array(out), nil
	}
}

func mutatingPrepend(mutate bool) func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
	return func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("prepend", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		if mutate {
			arr.Items = append([]value.Value{args[1]}, arr.Items...)
			return args[0], nil
		}
		out := make([]value.Value, 0, len(arr.Items)+1)
		out = append(out, args[1])
		out = append(out, arr.Items...)
		return value.Array(out), nil
	}
}

func popLast(v value.Value, mutate bool) (value.Value, error) {
	arr, err := arrArg("pop", 1, v)
	if err != nil {
		return value.Value{}, err
	}
	if len(arr.Items) == 0 {
		return value.Null(), nil
	}
	last := arr.Items[len(arr.Items)-1]
	if mutate {
		arr.Items = arr.Items[:len(arr.Items)-1]
	}
	return last, nil
}

func popFirst(v value.Value, mutate bool) (value.Value, error) {
	arr, err := arrArg("shift", 1, v)
	if err != nil {
		return value.Value{}, err
	}
	if len(arr.Items) == 0 {
		return value.Null(), nil
	}
	first := arr.Items[0]
	if mutate {
		arr.Items = arr.Items[1:]
	}
	return first, nil
}
