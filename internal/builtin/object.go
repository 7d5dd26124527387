// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package builtin

import (
	"calcnote/internal/calcerr"
	"calcnote/internal/evalctx"
	"calcnote/internal/value"
)

func objArg(name string, pos int, v value.Value) (*value.ObjectValue, error) {
	if v.Kind != value.KindObject {
		return nil, calcerr.ArgTypeMismatch(name, pos, "object")
	}
	return v.Obj, nil
}

func registerObject() {
	register("keys", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		obj, err := objArg("keys", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		out := make([]value.Value, len(obj.Keys))
		for i, k := range obj.Keys {
			out[i] = value.String(k)
		}
		return value.Array(out), nil
	})
	register("values", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		obj, err := objArg("values", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		out := make([]value.Value, len(obj.Keys))
		for i, k := range obj.Keys {
			out[i] = obj.Entries[k]
		}
		return value.Array(out), nil
	})
	register("has", 2, 2, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		obj, err := objArg("has", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		key, err := strArg("has", 2, args[1])
		if err != nil {
			return value.Value{}, err
		}
		_, ok := obj.Get(key)
		return value.Boolean(ok), nil
	})
}
