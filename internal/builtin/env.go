// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package builtin

import (
	"encoding/json"

	"calcnote/internal/evalctx"
	"calcnote/internal/value"
)

func registerEnvironment() {
	register("env", 1, 1, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		name, err := strArg("env", 1, args[0])
		if err != nil {
			return value.Value{}, err
		}
		if v, ok := ctx.Env[name]; ok {
			return value.String(v), nil
		}
		return value.Null(), nil
	})
	register("arg", 0, 0, func(ctx *evalctx.Context, apply Apply, args []value.Value) (value.Value, error) {
		raw := ctx.Stdin
		if raw == "" {
			raw = ctx.CliArg
		}
		if raw == "" {
			return value.Null(), nil
		}
		if v, ok := decodeJSONValue(raw); ok {
			return v, nil
		}
		return value.String(raw), nil
	})
}

// decodeJSONValue attempts a JSON decode of raw into the closest matching
// Value kind (arg()'s "attempt JSON decode, fall back to string").
func decodeJSONValue(raw string) (value.Value, bool) {
	var generic interface{}
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return value.Value{}, false
	}
	return jsonToValue(generic), true
}

func jsonToValue(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Boolean(t)
	case float64:
		return value.Number(fromFloat(t))
	case string:
		return value.String(t)
	case []interface{}:
		items := make([]value.Value, len(t))
		for i, it := range t {
			items[i] = jsonToValue(it)
		}
		return value.Array(items)
	case map[string]interface{}:
		obj := value.NewObject()
		for k, vv := range t {
			obj.Set(k, jsonToValue(vv))
		}
		return value.Object(obj)
	default:
		return value.Null()
	}
}
