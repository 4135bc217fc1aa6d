package field

import (
	"errors"
	"fmt"

	"github.com/notargets/gocut/logger"
)

var (
	ErrConstructionMismatch = errors.New("field representation cannot bind to the requested time mode")
	ErrEvaluation           = errors.New("field evaluation failed")
	ErrInvalidExpression    = errors.New("invalid field expression")
)

// Evaluator is a scalar field evaluated at a point. Implementations are immutable and safe for concurrent use.
type Evaluator interface {
	Evaluate(x []float64) (float64, error)
}

// VectorEvaluator is a vector field evaluated at a point into out
type VectorEvaluator interface {
	EvaluateVector(x, out []float64) error
}

type TimeMode uint8

const (
	// TimeIndependent evaluates a stationary field at spatial points
	TimeIndependent TimeMode = iota
	// TimeFixed evaluates a time dependent field at a time chosen at binding
	TimeFixed
	// TimeInterpolated appends a reference time tau in [0,1] to each point, mapped onto Interval
	TimeInterpolated
)

func (tm TimeMode) String() string {
	return [...]string{"independent", "fixed", "interpolated"}[tm]
}

type Binding struct {
	Mode     TimeMode
	Time     float64
	Interval [2]float64
}

func Independent() Binding { return Binding{Mode: TimeIndependent} }

func FixedAt(t float64) Binding { return Binding{Mode: TimeFixed, Time: t} }

func InterpolatedOn(tOld, tNew float64) Binding {
	return Binding{Mode: TimeInterpolated, Interval: [2]float64{tOld, tNew}}
}

// TimeOf maps reference time tau onto the bound interval
func (b Binding) TimeOf(tau float64) float64 {
	return b.Interval[0] + tau*(b.Interval[1]-b.Interval[0])
}

/*
Representation is the closed set of field representations an Evaluator can be bound to:
*Interpolant, *Expression and Func. Each representation decides at binding which time modes it
supports; unsupported combinations fail with ErrConstructionMismatch.
*/
type Representation interface {
	bind(b Binding, log logger.Logger) (Evaluator, error)
}

type options struct {
	log logger.Logger
}

type Option func(*options)

func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// Bind returns an immutable evaluator of rep under the time binding b
func Bind(rep Representation, b Binding, opts ...Option) (ev Evaluator, err error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = logger.OrDefault(o.log)
	if rep == nil {
		err = fmt.Errorf("%w: nil representation", ErrConstructionMismatch)
		return
	}
	if b.Mode > TimeInterpolated {
		err = fmt.Errorf("%w: unknown time mode %d", ErrConstructionMismatch, b.Mode)
		return
	}
	if b.Mode == TimeInterpolated && !(b.Interval[1] > b.Interval[0]) {
		err = fmt.Errorf("%w: empty time interval [%g,%g]", ErrConstructionMismatch, b.Interval[0], b.Interval[1])
		return
	}
	return rep.bind(b, o.log)
}

func mismatch(rep string, b Binding) error {
	return fmt.Errorf("%w: %s with %s time", ErrConstructionMismatch, rep, b.Mode)
}

// splitTime separates the spatial coordinates from the time under binding b
func splitTime(b Binding, x []float64) (xs []float64, t float64, err error) {
	switch b.Mode {
	case TimeIndependent:
		xs = x
	case TimeFixed:
		xs, t = x, b.Time
	case TimeInterpolated:
		if len(x) < 1 {
			err = fmt.Errorf("%w: point has no time coordinate", ErrEvaluation)
			return
		}
		xs, t = x[:len(x)-1], b.TimeOf(x[len(x)-1])
	}
	return
}
