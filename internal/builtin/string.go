// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package builtin

import (
	"fmt"
	"strings"

	"calcnote/internal/calcerr"
	"calcnote/internal/evalctx"
	"calcnote/internal/value"
)

func registerString() {
	register("substr", 2, 3, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		s, err := strArg("substr", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		runes := []rune(s)
		from, err := intArg("substr", 2, args[1])
		if err != nil {
			return value.Value{}, err
		}
		to := int64(len(runes))
		if len(args) == 3 {
			to, err = intArg("substr", 3, args[2])
			if err != nil {
				return value.Value{}, err
			}
		}
		from, to = clampRange(from, to, int64(len(runes)))
		return value.String(string(runes[from:to])), nil
	})
	register("charat", 2, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		s, err := strArg("charat", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		idx, err := intArg("charat", 2, args[1])
		if err != nil {
			return value.Value{}, err
		}
		runes := []rune(s)
		if idx < 0 || idx >= int64(len(runes)) {
			return value.Null(), nil
		}
		return value.String(string(runes[idx])), nil
	})
	register("trim", 1, 1, strUnary(strings.TrimSpace))
	register("upper", 1, 1, strUnary(strings.ToUpper))
	register("uppercase", 1, 1, strUnary(strings.ToUpper))
	register("lower", 1, 1, strUnary(strings.ToLower))
	register("lowercase", 1, 1, strUnary(strings.ToLower))
	register("capitalize", 1, 1, strUnary(capitalize))
	register("reverse", 1, 1, strUnary(reverseString))

	register("startswith", 2, 2, strPredicate(strings.HasPrefix))
	register("endswith", 2, 2, strPredicate(strings.HasSuffix))
	register("includes", 2, 2, strPredicate(strings.Contains))
	register("contains", 2, 2, strPredicate(strings.Contains))
	register("indexof", 2, 2, strIndex(strings.Index))
	register("lastindexof", 2, 2, strIndex(strings.LastIndex))

	register("replace", 3, 3, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		s, a, b, err := str3(args)
		if err != nil {
			return value.Value{}, err
		}
		return value.String(strings.Replace(s, a, b, 1)), nil
	})
	register("replaceall", 3, 3, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		s, a, b, err := str3(args)
		if err != nil {
			return value.Value{}, err
		}
		return value.String(strings.ReplaceAll(s, a, b)), nil
	})
	register("split", 2, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		s, err := strArg("split", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		sep, err := strArg("split", 2, args[1])
		if err != nil {
			return value.Value{}, err
		}
		parts := strings.Split(s, sep)
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = value.String(p)
		}
		return value.Array(out), nil
	})
	register("join", 2, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		arr, err := arrArg("join", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		sep, err := strArg("join", 2, args[1])
		if err != nil {
			return value.Value{}, err
		}
		parts := make([]string, len(arr.Items))
		for i, it := range arr.Items {
			parts[i] = it.String()
		}
		return value.String(strings.Join(parts, sep)), nil
	})
	register("padleft", 2, 3, padFn(true))
	register("padstart", 2, 3, padFn(true))
	register("padright", 2, 3, padFn(false))
	register("padend", 2, 3, padFn(false))
	register("format", 1, 32, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		tmpl, err := strArg("format", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		rest := make([]interface{}, len(args)-1)
		for i, a := range args[1:] {
			rest[i] = a.String()
		}
		return value.String(fmt.Sprintf(tmpl, rest...)), nil
	})
}

func strUnary(fn func(string) string) func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
	return func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		s, err := strArg("", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		return value.String(fn(s)), nil
	}
}

func strPredicate(fn func(s, sub string) bool) func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
	return func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		s, err := strArg("", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		sub, err := strArg("", 2, args[1])
		if err != nil {
			return value.Value{}, err
		}
		return value.Boolean(fn(s, sub)), nil
	}
}

func strIndex(fn func(s, sub string) int) func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
	return func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		s, err := strArg("", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		sub, err := strArg("", 2, args[1])
		if err != nil {
			return value.Value{}, err
		}
		return value.NumberFromInt(int64(fn(s, sub))), nil
	}
}

func str3(args []value.Value) (string, string, string, error) {
	s, err := strArg("replace", 1, args[0])
	if err != nil {
		return "", "", "", err
	}
	a, err := strArg("replace", 2, args[1])
	if err != nil {
		return "", "", "", err
	}
	b, err := strArg("replace", 3, args[2])
	if err != nil {
		return "", "", "", err
	}
	return s, a, b, nil
}

func padFn(left bool) func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
	return func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		s, err := strArg("pad", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		width, err := intArg("pad", 2, args[1])
		if err != nil {
			return value.Value{}, err
		}
		fill := " "
		if len(args) == 3 {
			fill, err = strArg("pad", 3, args[2])
			if err != nil {
				return value.Value{}, err
			}
			if fill == "" {
				return value.Value{}, calcerr.New(calcerr.KindArgTypeMismatch, "pad fill string must not be empty")
			}
		}
		runes := []rune(s)
		need := int(width) - len(runes)
		if need <= 0 {
			return value.String(s), nil
		}
		var pad strings.Builder
		fr := []rune(fill)
		for pad.Len() < need {
			for _, r := range fr {
				pad.WriteRune(r)
			}
		}
		padStr := string([]rune(pad.String())[:need])
		if left {
			return value.String(padStr + s), nil
		}
		return value.String(s + padStr), nil
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
