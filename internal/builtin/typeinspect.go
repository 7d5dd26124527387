// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package builtin

import (
	"calcnote/internal/evalctx"
	"calcnote/internal/value"
)

func registerTypeInspection() {
	register("type", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		return value.String(value.TypeTag(args[0])), nil
	})
	register("unit", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		if args[0].Kind != value.KindQuantity {
			return value.Null(), nil
		}
		return value.String(args[0].Dims.String()), nil
	})
	register("timezone", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		if args[0].Kind != value.KindDate {
			return value.Null(), nil
		}
		if args[0].Date.Timezone == "" {
			return value.String("local"), nil
		}
		return value.String(args[0].Date.Timezone), nil
	})
}
