package field

import (
	"fmt"
	"math"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/notargets/gocut/logger"
)

var coordinateNames = [...]string{"x", "y", "z"}

func unaryMath(name string, f func(float64) float64) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_double", []*cel.Type{cel.DoubleType}, cel.DoubleType,
			cel.UnaryBinding(func(v ref.Val) ref.Val {
				return types.Double(f(float64(v.(types.Double))))
			})))
}

func binaryMath(name string, f func(a, b float64) float64) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_double_double", []*cel.Type{cel.DoubleType, cel.DoubleType}, cel.DoubleType,
			cel.BinaryBinding(func(a, b ref.Val) ref.Val {
				return types.Double(f(float64(a.(types.Double)), float64(b.(types.Double))))
			})))
}

func newEnv(withTime bool) (*cel.Env, error) {
	opts := []cel.EnvOption{
		unaryMath("sqrt", math.Sqrt),
		unaryMath("abs", math.Abs),
		unaryMath("exp", math.Exp),
		unaryMath("log", math.Log),
		unaryMath("sin", math.Sin),
		unaryMath("cos", math.Cos),
		unaryMath("tanh", math.Tanh),
		binaryMath("pow", math.Pow),
		binaryMath("min", math.Min),
		binaryMath("max", math.Max),
	}
	for _, name := range coordinateNames {
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}
	if withTime {
		opts = append(opts, cel.Variable("t", cel.DoubleType))
	}
	return cel.NewEnv(opts...)
}

/*
Expression is a scalar field parsed from a CEL expression over the double variables x, y, z and
t, with the functions sqrt, abs, exp, log, sin, cos, tanh, pow, min and max. CEL has no implicit
int to double conversion, so numeric literals must be written as doubles ("1.0", not "1").
*/
type Expression struct {
	Source   string
	prg      cel.Program
	usesTime bool
}

func NewExpression(src string) (ex *Expression, err error) {
	var (
		env   *cel.Env
		ast   *cel.Ast
		iss   *cel.Issues
		prg   cel.Program
		space *cel.Env
	)
	if env, err = newEnv(true); err != nil {
		return
	}
	if ast, iss = env.Compile(src); iss != nil && iss.Err() != nil {
		err = fmt.Errorf("%w: %q: %v", ErrInvalidExpression, src, iss.Err())
		return
	}
	if !ast.OutputType().IsExactType(cel.DoubleType) {
		err = fmt.Errorf("%w: %q has type %s, need double", ErrInvalidExpression, src, ast.OutputType())
		return
	}
	if prg, err = env.Program(ast); err != nil {
		err = fmt.Errorf("%w: %q: %v", ErrInvalidExpression, src, err)
		return
	}
	ex = &Expression{Source: src, prg: prg}
	// An expression that only compiles with t declared depends on time
	if space, err = newEnv(false); err != nil {
		return
	}
	_, iss = space.Compile(src)
	ex.usesTime = iss != nil && iss.Err() != nil
	return
}

func (ex *Expression) UsesTime() bool { return ex.usesTime }

func (ex *Expression) bind(b Binding, _ logger.Logger) (Evaluator, error) {
	if b.Mode == TimeIndependent && ex.usesTime {
		return nil, mismatch("time dependent expression", b)
	}
	return &expressionEvaluator{ex: ex, b: b}, nil
}

func (ex *Expression) eval(xs []float64, t float64) (val float64, err error) {
	if len(xs) > len(coordinateNames) {
		err = fmt.Errorf("%w: point of dimension %d", ErrEvaluation, len(xs))
		return
	}
	vars := map[string]any{"x": 0., "y": 0., "z": 0., "t": t}
	for d, v := range xs {
		vars[coordinateNames[d]] = v
	}
	out, _, err := ex.prg.Eval(vars)
	if err != nil {
		err = fmt.Errorf("%w: %q at %v: %v", ErrEvaluation, ex.Source, xs, err)
		return
	}
	val, ok := out.Value().(float64)
	if !ok || math.IsNaN(val) {
		err = fmt.Errorf("%w: %q at %v gave %v", ErrEvaluation, ex.Source, xs, out.Value())
	}
	return
}

type expressionEvaluator struct {
	ex *Expression
	b  Binding
}

func (ee *expressionEvaluator) Evaluate(x []float64) (float64, error) {
	xs, t, err := splitTime(ee.b, x)
	if err != nil {
		return 0, err
	}
	return ee.ex.eval(xs, t)
}
