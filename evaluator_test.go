package surfmesh

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-6

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		expr string
		x, y float64
		want float64
	}{
		{"SinCosOrigin", "sin(x)*cos(y)", 0, 0, 0},
		{"SinCosPeak", "sin(x)*cos(y)", math.Pi / 2, 0, 1},
		{"Polynomial", "x*x - y*y", 3, 2, 5},
		{"Sqrt", "sqrt(x*x + y*y)", 3, 4, 5},
		{"Abs", "abs(x) + abs(y)", -1.5, -2, 3.5},
		{"Log", "log(x)", math.E, 0, 1},
		{"Exp", "exp(x + y)", 0, 0, 1},
		{"Tan", "tan(x)", math.Pi / 4, 0, 1},
		{"Pow", "pow(x, 3)", 2, 0, 8},
		{"Atan2", "atan2(y, x)", 1, 1, math.Pi / 4},
		{"Min", "min(x, y)", 2, -3, -3},
		{"Max", "max(x, y)", 2, -3, 2},
		{"IntegerLiteral", "2", 5, 5, 2},
		{"Division", "1/(1 + x*x)", 1, 0, 0.5},
		{"CaseInsensitive", "SIN(X)*COS(Y)", math.Pi / 2, 0, 1},
		{"Nested", "exp(-(x*x + y*y)/4)", 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.expr, tt.x, tt.y)
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("Evaluate(%q, %v, %v) = %v, want %v", tt.expr, tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestEvaluateFallback(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"UnknownFunction", "unknown_fn(x)"},
		{"Malformed", "sin(x"},
		{"UnknownVariable", "x + z"},
		{"WrongArity", "sin(x, y)"},
		{"NaN", "sqrt(x)"},
		{"Infinite", "log(x)"},
		{"NonNumeric", "x > y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := 0.0
			if tt.name == "NaN" {
				x = -1
			}
			if got := Evaluate(tt.expr, x, 0); got != Fallback {
				t.Errorf("Evaluate(%q) = %v, want fallback %v", tt.expr, got, Fallback)
			}
		})
	}
}

func TestCompileError(t *testing.T) {
	e, err := Compile("unknown_fn(x)")
	if err == nil {
		t.Fatal("expected compile error for unknown function")
	}
	if !errors.Is(err, ErrExpression) {
		t.Errorf("expected ErrExpression, got %v", err)
	}
	if e == nil {
		t.Fatal("Compile must return a usable expression on error")
	}
	for i := 0; i < 3; i++ {
		if v := e.Eval(float64(i), 0); v != Fallback {
			t.Errorf("Eval = %v, want fallback", v)
		}
	}
	if e.Failures() != 3 {
		t.Errorf("Failures() = %d, want 3", e.Failures())
	}
	if e.Err() != err {
		t.Errorf("Err() = %v, want %v", e.Err(), err)
	}
}

func TestExpressionFailureCount(t *testing.T) {
	e, err := Compile("sqrt(x)")
	if err != nil {
		t.Fatal(err)
	}
	e.Eval(4, 0)
	e.Eval(-4, 0)
	e.Eval(9, 0)
	if e.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", e.Failures())
	}
	if e.Source() != "sqrt(x)" {
		t.Errorf("Source() = %q", e.Source())
	}
}

func TestSamplerFunc(t *testing.T) {
	var s Sampler = SamplerFunc(func(x, y float64) float64 { return x * y })
	if got := s.Eval(3, 4); got != 12 {
		t.Errorf("Eval = %v, want 12", got)
	}
}
