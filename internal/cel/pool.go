// pool.go
package cel

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
)

// ExpressionPool caches compiled CEL expressions
type ExpressionPool struct {
	mu          sync.RWMutex
	expressions map[string]cel.Program
	env         *cel.Env
	adapter     *TagAdapter
}

// NewExpressionPool creates a new expression pool with a configured CEL environment
func NewExpressionPool() (*ExpressionPool, error) {
	env, err := NewEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create environment: %w", err)
	}
	return NewExpressionPoolWithEnv(env)
}

// NewExpressionPoolWithEnv creates a new expression pool with a custom CEL
// environment. The environment must declare TagVar.
func NewExpressionPoolWithEnv(env *cel.Env) (*ExpressionPool, error) {
	if env == nil {
		return nil, fmt.Errorf("CEL environment cannot be nil")
	}
	return &ExpressionPool{
		env:         env,
		expressions: make(map[string]cel.Program),
		adapter:     NewTagAdapter(),
	}, nil
}

// GetExpression retrieves or compiles an expression
func (e *ExpressionPool) GetExpression(exprStr string) (cel.Program, error) {
	e.mu.RLock()
	if program, ok := e.expressions[exprStr]; ok {
		e.mu.RUnlock()
		return program, nil
	}
	e.mu.RUnlock()

	ast, issues := e.env.Compile(exprStr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression %q: %w", exprStr, issues.Err())
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	e.mu.Lock()
	e.expressions[exprStr] = program
	e.mu.Unlock()

	return program, nil
}

// Len reports how many compiled expressions are cached.
func (e *ExpressionPool) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.expressions)
}

// Evaluate compiles exprStr if needed and runs it with tag bound to
// TagVar. The result is converted back to Go values.
func (e *ExpressionPool) Evaluate(exprStr string, tag nbt.Tag) (any, error) {
	program, err := e.GetExpression(exprStr)
	if err != nil {
		return nil, err
	}
	val, err := e.eval(program, tag)
	if err != nil {
		return nil, err
	}
	return ConvertFromRefVal(val)
}

// Matches evaluates a boolean expression against tag.
func (e *ExpressionPool) Matches(exprStr string, tag nbt.Tag) (bool, error) {
	program, err := e.GetExpression(exprStr)
	if err != nil {
		return false, err
	}
	val, err := e.eval(program, tag)
	if err != nil {
		return false, err
	}
	b, ok := val.(types.Bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %s, not bool", exprStr, val.Type().TypeName())
	}
	return bool(b), nil
}

func (e *ExpressionPool) eval(program cel.Program, tag nbt.Tag) (ref.Val, error) {
	activation, err := cel.NewActivation(map[string]any{
		TagVar: e.adapter.NativeToValue(tag),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create activation: %w", err)
	}
	val, _, err := program.Eval(activation)
	if err != nil {
		return nil, fmt.Errorf("expression evaluation error: %w", err)
	}
	return val, nil
}

// adaptCELResult converts CEL result values to Go native types
func adaptCELResult(val ref.Val) any {
	switch v := val.(type) {
	case types.Int:
		return int64(v)
	case types.Uint:
		return uint64(v)
	case types.Double:
		return float64(v)
	case types.Bool:
		return bool(v)
	case types.String:
		return string(v)
	case types.Bytes:
		return []byte(v)
	case types.Null:
		return nil
	case traits.Lister:
		size := v.Size().(types.Int)
		result := make([]any, size)
		for i := types.Int(0); i < size; i++ {
			result[i] = adaptCELResult(v.Get(i))
		}
		return result
	case traits.Mapper:
		result := make(map[string]any)
		iter := v.Iterator()
		for iter.HasNext() == types.True {
			key := iter.Next()
			keyStr, ok := key.Value().(string)
			if !ok {
				keyStr = fmt.Sprintf("%v", key.Value())
			}
			result[keyStr] = adaptCELResult(v.Get(key))
		}
		return result
	}
	return val.Value()
}

// ConvertFromRefVal converts a CEL ref.Val to a Go value
func ConvertFromRefVal(val ref.Val) (any, error) {
	if val == nil {
		return nil, nil
	}
	if types.IsError(val) {
		return nil, fmt.Errorf("CEL error: %v", val)
	}
	if types.IsUnknown(val) {
		return nil, fmt.Errorf("unknown CEL value")
	}
	return adaptCELResult(val), nil
}
