package surfmesh

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Fallback 无法求值时返回的高度
const Fallback = 0.0

// Sampler 在定义域上求高度
type Sampler interface {
	Eval(x, y float64) float64
}

type SamplerFunc func(x, y float64) float64

func (f SamplerFunc) Eval(x, y float64) float64 {
	return f(x, y)
}

var unaryFuncs = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"sqrt": math.Sqrt,
	"abs":  math.Abs,
	"log":  math.Log,
	"exp":  math.Exp,
}

var binaryFuncs = map[string]func(float64, float64) float64{
	"pow":   math.Pow,
	"atan2": math.Atan2,
	"min":   math.Min,
	"max":   math.Max,
}

// Expression 编译后的 z=f(x,y) 表达式.
// 编译失败的表达式仍然可用, 所有采样返回 Fallback.
type Expression struct {
	source   string
	program  *vm.Program
	err      error
	failures atomic.Int64
}

// Compile 编译表达式, 函数名不区分大小写
func Compile(source string) (*Expression, error) {
	e := &Expression{source: source}
	program, err := expr.Compile(strings.ToLower(source), compileOptions()...)
	if err != nil {
		e.err = fmt.Errorf("%w: %q: %v", ErrExpression, source, err)
		return e, e.err
	}
	e.program = program
	return e, nil
}

// Evaluate 编译并在 (x,y) 处求值一次
func Evaluate(source string, x, y float64) float64 {
	e, _ := Compile(source)
	return e.Eval(x, y)
}

func (e *Expression) Source() string {
	return e.source
}

func (e *Expression) Err() error {
	return e.err
}

// Failures 返回求值回退的累计次数
func (e *Expression) Failures() int64 {
	return e.failures.Load()
}

func (e *Expression) Eval(x, y float64) float64 {
	if e.program == nil {
		e.failures.Add(1)
		return Fallback
	}
	out, err := expr.Run(e.program, map[string]interface{}{"x": x, "y": y})
	if err != nil {
		e.failures.Add(1)
		return Fallback
	}
	v, ok := toFloat(out)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		e.failures.Add(1)
		return Fallback
	}
	return v
}

func compileOptions() []expr.Option {
	opts := []expr.Option{
		expr.Env(map[string]interface{}{"x": 0.0, "y": 0.0}),
		expr.DisableAllBuiltins(),
	}
	for name, f := range unaryFuncs {
		opts = append(opts, unaryFunc(name, f))
	}
	for name, f := range binaryFuncs {
		opts = append(opts, binaryFunc(name, f))
	}
	return opts
}

func unaryFunc(name string, f func(float64) float64) expr.Option {
	return expr.Function(name, func(params ...interface{}) (interface{}, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s: expected 1 argument, got %d", name, len(params))
		}
		a, ok := toFloat(params[0])
		if !ok {
			return nil, fmt.Errorf("%s: non-numeric argument %v", name, params[0])
		}
		return f(a), nil
	})
}

func binaryFunc(name string, f func(float64, float64) float64) expr.Option {
	return expr.Function(name, func(params ...interface{}) (interface{}, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(params))
		}
		a, ok := toFloat(params[0])
		if !ok {
			return nil, fmt.Errorf("%s: non-numeric argument %v", name, params[0])
		}
		b, ok := toFloat(params[1])
		if !ok {
			return nil, fmt.Errorf("%s: non-numeric argument %v", name, params[1])
		}
		return f(a, b), nil
	})
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
