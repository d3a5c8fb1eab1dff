package cel

import (
	"errors"
	"math"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/twinfer/nbt-plugin/pkg/tagpath"
)

// BitwiseFunctions registers bitAnd, bitOr, bitXor, bitShiftLeft and
// bitShiftRight over int. Byte and short tags are often flag sets.
func BitwiseFunctions() cel.EnvOption {
	return cel.Lib(&bitwiseLib{})
}

type bitwiseLib struct{}

func intBinary(name string, op func(l, r types.Int) ref.Val) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_int_int", []*cel.Type{cel.IntType, cel.IntType}, cel.IntType,
			cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
				l, ok1 := lhs.(types.Int)
				r, ok2 := rhs.(types.Int)
				if !ok1 || !ok2 {
					return types.NewErr("arguments to %s must be integers", name)
				}
				return op(l, r)
			}),
		),
	)
}

func shift(left bool) func(l, r types.Int) ref.Val {
	return func(l, r types.Int) ref.Val {
		if r < 0 {
			return types.NewErr("shift amount cannot be negative: %v", r)
		}
		if r > 63 {
			return types.Int(0)
		}
		if left {
			return l << uint(r)
		}
		return l >> uint(r)
	}
}

func (*bitwiseLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		intBinary("bitAnd", func(l, r types.Int) ref.Val { return l & r }),
		intBinary("bitOr", func(l, r types.Int) ref.Val { return l | r }),
		intBinary("bitXor", func(l, r types.Int) ref.Val { return l ^ r }),
		intBinary("bitShiftLeft", shift(true)),
		intBinary("bitShiftRight", shift(false)),
	}
}

func (*bitwiseLib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

// MathFunctions registers abs, min, max, ceil, floor and round.
func MathFunctions() cel.EnvOption {
	return cel.Lib(&mathLib{})
}

type mathLib struct{}

func doubleUnary(name string, f func(float64) float64) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_double", []*cel.Type{cel.DoubleType}, cel.DoubleType,
			cel.UnaryBinding(func(val ref.Val) ref.Val {
				x, ok := val.(types.Double)
				if !ok {
					return types.NewErr("expected double argument to %s, got %T", name, val)
				}
				return types.Double(f(float64(x)))
			}),
		),
	)
}

func pick(name string, less bool) cel.EnvOption {
	choose := func(lhs, rhs ref.Val) ref.Val {
		c, ok := lhs.(traits.Comparer)
		if !ok {
			return types.NewErr("arguments to %s must be comparable", name)
		}
		cmp := c.Compare(rhs)
		if types.IsError(cmp) {
			return cmp
		}
		if (cmp == types.IntNegOne) == less {
			return lhs
		}
		return rhs
	}
	return cel.Function(name,
		cel.Overload(name+"_int_int", []*cel.Type{cel.IntType, cel.IntType}, cel.IntType,
			cel.BinaryBinding(choose)),
		cel.Overload(name+"_double_double", []*cel.Type{cel.DoubleType, cel.DoubleType}, cel.DoubleType,
			cel.BinaryBinding(choose)),
	)
}

func (*mathLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("abs",
			cel.Overload("abs_int", []*cel.Type{cel.IntType}, cel.IntType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					x, ok := val.(types.Int)
					if !ok {
						return types.NewErr("expected int argument to abs, got %T", val)
					}
					if x == math.MinInt64 {
						return types.NewErr("abs overflow")
					}
					if x < 0 {
						return -x
					}
					return x
				}),
			),
			cel.Overload("abs_double", []*cel.Type{cel.DoubleType}, cel.DoubleType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					x, ok := val.(types.Double)
					if !ok {
						return types.NewErr("expected double argument to abs, got %T", val)
					}
					return types.Double(math.Abs(float64(x)))
				}),
			),
		),
		pick("min", true),
		pick("max", false),
		doubleUnary("ceil", math.Ceil),
		doubleUnary("floor", math.Floor),
		doubleUnary("round", math.Round),
	}
}

func (*mathLib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

// PathFunctions registers path(value, expr), which follows a tag path
// through maps and lists and errors when nothing is there, and
// hasPath(value, expr).
func PathFunctions() cel.EnvOption {
	return cel.Lib(&pathLib{})
}

type pathLib struct{}

func (*pathLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("path",
			cel.Overload("path_dyn_string", []*cel.Type{cel.DynType, cel.StringType}, cel.DynType,
				cel.BinaryBinding(func(val, expr ref.Val) ref.Val {
					v, ok, err := follow(val, expr)
					if err != nil {
						return types.WrapErr(err)
					}
					if !ok {
						return types.NewErr("no value at path %v", expr)
					}
					return v
				}),
			),
		),
		cel.Function("hasPath",
			cel.Overload("haspath_dyn_string", []*cel.Type{cel.DynType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(val, expr ref.Val) ref.Val {
					_, ok, err := follow(val, expr)
					if err != nil {
						return types.WrapErr(err)
					}
					return types.Bool(ok)
				}),
			),
		),
	}
}

func (*pathLib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

func follow(val, expr ref.Val) (ref.Val, bool, error) {
	src, ok := expr.(types.String)
	if !ok {
		return nil, false, errors.New("path expression must be a string")
	}
	p, err := tagpath.Parse(string(src))
	if err != nil {
		return nil, false, err
	}
	for _, seg := range p.Segments() {
		switch s := seg.(type) {
		case *tagpath.Field:
			m, ok := val.(traits.Mapper)
			if !ok {
				return nil, false, nil
			}
			if val, ok = m.Find(types.String(s.Name)); !ok {
				return nil, false, nil
			}
		case *tagpath.Index:
			if b, ok := val.(types.Bytes); ok {
				i, ok := resolveIndex(s.Value, len(b))
				if !ok {
					return nil, false, nil
				}
				val = types.Int(int8(b[i]))
				continue
			}
			l, ok := val.(traits.Lister)
			if !ok {
				return nil, false, nil
			}
			n, _ := l.Size().(types.Int)
			i, ok := resolveIndex(s.Value, int(n))
			if !ok {
				return nil, false, nil
			}
			val = l.Get(types.Int(i))
		}
	}
	return val, true, nil
}

func resolveIndex(i, n int) (int, bool) {
	if i < 0 {
		i += n
	}
	return i, i >= 0 && i < n
}
