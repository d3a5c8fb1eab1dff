// Package cel evaluates CEL expressions against tag trees. The tree being
// examined is bound to the variable "tag"; compounds appear as maps, lists
// and arrays as lists, and every numeric kind as int or double.
package cel

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
)

// TagVar is the name expressions use for the document root.
const TagVar = "tag"

// NewEnvironment creates a CEL environment with the tag helpers registered.
func NewEnvironment() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.CustomTypeAdapter(NewTagAdapter()),
		cel.Variable(TagVar, cel.DynType),
		cel.StdLib(),
		ext.Strings(),
		ErrorHandlingFunctions(),
		BitwiseFunctions(),
		MathFunctions(),
		PathFunctions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

func ErrorHandlingFunctions() cel.EnvOption {
	return cel.Lib(&errorLib{})
}

type errorLib struct{}

func (*errorLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("error",
			cel.Overload("error_string", []*cel.Type{cel.StringType}, cel.AnyType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					msg, ok := val.(types.String)
					if !ok {
						return types.NewErr("expected string for error message")
					}
					return types.NewErr("%s", msg)
				}),
			),
		),
		cel.Function("isError",
			cel.Overload("iserror_any", []*cel.Type{cel.AnyType}, cel.BoolType,
				cel.OverloadIsNonStrict(),
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					return types.Bool(types.IsError(val))
				}),
			),
		),
	}
}

func (*errorLib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

// TagAdapter extends the default type adapter with tag trees and the
// narrow numeric types tags carry.
type TagAdapter struct {
	types.Adapter
}

func NewTagAdapter() *TagAdapter {
	return &TagAdapter{Adapter: types.DefaultTypeAdapter}
}

// NativeToValue converts tags and plain tag values to CEL values.
func (a *TagAdapter) NativeToValue(value any) ref.Val {
	switch v := value.(type) {
	case nbt.Tag:
		return a.NativeToValue(nbt.ToPlain(v))
	case int8:
		return types.Int(v)
	case int16:
		return types.Int(v)
	case int32:
		return types.Int(v)
	case float32:
		return types.Double(v)
	case []int32:
		elems := make([]ref.Val, len(v))
		for i, e := range v {
			elems[i] = types.Int(e)
		}
		return types.NewRefValList(a, elems)
	case []int64:
		elems := make([]ref.Val, len(v))
		for i, e := range v {
			elems[i] = types.Int(e)
		}
		return types.NewRefValList(a, elems)
	case []any:
		elems := make([]ref.Val, len(v))
		for i, e := range v {
			elems[i] = a.NativeToValue(e)
		}
		return types.NewRefValList(a, elems)
	case map[string]any:
		entries := make(map[ref.Val]ref.Val, len(v))
		for k, e := range v {
			entries[types.String(k)] = a.NativeToValue(e)
		}
		return types.NewRefValMap(a, entries)
	case nil:
		return types.NullValue
	default:
		return a.Adapter.NativeToValue(value)
	}
}
