package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gocut/logger"
)

/*
Func is a generic field given as a Go function of the evaluation point. It knows nothing about
time, so it cannot be bound to a fixed time; bound to an interpolated time it receives the point
with the reference time appended and is trusted to treat that coordinate as time.
*/
type Func func(x []float64) (float64, error)

func (f Func) Evaluate(x []float64) (val float64, err error) {
	if val, err = f(x); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}
	if math.IsNaN(val) {
		err = fmt.Errorf("%w: NaN at %v", ErrEvaluation, x)
	}
	return
}

func (f Func) bind(b Binding, log logger.Logger) (Evaluator, error) {
	switch b.Mode {
	case TimeFixed:
		return nil, mismatch("generic function", b)
	case TimeInterpolated:
		log.Warn("generic field bound to an interpolated time: the last coordinate is treated as reference time",
			"interval", b.Interval)
	}
	return f, nil
}

// Const is a spatially constant field
type Const float64

func (c Const) Evaluate([]float64) (float64, error) { return float64(c), nil }

// VectorFunc is a vector field given as a Go function
type VectorFunc func(x, out []float64) error

func (f VectorFunc) EvaluateVector(x, out []float64) error { return f(x, out) }

// NormalizedGradient is the unit gradient direction of a scalar field, by central differences
type NormalizedGradient struct {
	Field Evaluator
	Step  float64
}

func (ng NormalizedGradient) EvaluateVector(x, out []float64) (err error) {
	var (
		firstErr error
	)
	fd.Gradient(out, func(p []float64) float64 {
		v, e := ng.Field.Evaluate(p)
		if e != nil && firstErr == nil {
			firstErr = e
		}
		return v
	}, x, &fd.Settings{Formula: fd.Central, Step: ng.Step})
	if firstErr != nil {
		return firstErr
	}
	if norm := floats.Norm(out, 2); norm > 0 {
		floats.Scale(1/norm, out)
	}
	return
}
