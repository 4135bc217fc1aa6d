package field

import (
	"fmt"

	"github.com/notargets/gocut/fem"
	"github.com/notargets/gocut/logger"
	"github.com/notargets/gocut/mesh"
)

/*
Interpolant is a finite element function on an H1 space, either stationary (one level of dof
values) or given at two time levels and linear in time between them.
*/
type Interpolant struct {
	Space   *fem.H1Space
	Levels  [][]float64
	Times   []float64
	locator *mesh.Locator
}

func NewInterpolant(sp *fem.H1Space, values []float64) (ip *Interpolant, err error) {
	if len(values) != sp.Ndof() {
		err = fmt.Errorf("interpolant has %d values, space has %d dofs", len(values), sp.Ndof())
		return
	}
	ip = &Interpolant{Space: sp, Levels: [][]float64{values}, locator: mesh.NewLocator(sp.Mesh)}
	return
}

// NewTimeLevelInterpolant builds a field equal to u0 at t0 and u1 at t1
func NewTimeLevelInterpolant(sp *fem.H1Space, t0, t1 float64, u0, u1 []float64) (ip *Interpolant, err error) {
	if !(t1 > t0) {
		err = fmt.Errorf("time levels must increase, have [%g,%g]", t0, t1)
		return
	}
	if len(u0) != sp.Ndof() || len(u1) != sp.Ndof() {
		err = fmt.Errorf("time level values have lengths %d and %d, space has %d dofs", len(u0), len(u1), sp.Ndof())
		return
	}
	ip = &Interpolant{
		Space:   sp,
		Levels:  [][]float64{u0, u1},
		Times:   []float64{t0, t1},
		locator: mesh.NewLocator(sp.Mesh),
	}
	return
}

// Interpolate builds the stationary nodal interpolant of ev
func Interpolate(sp *fem.H1Space, ev Evaluator) (ip *Interpolant, err error) {
	u := make([]float64, sp.Ndof())
	if err = sp.Interpolate(ev.Evaluate, u); err != nil {
		return
	}
	return NewInterpolant(sp, u)
}

func (ip *Interpolant) Timed() bool { return len(ip.Times) == 2 }

func (ip *Interpolant) bind(b Binding, _ logger.Logger) (Evaluator, error) {
	if ip.Timed() == (b.Mode == TimeIndependent) {
		return nil, mismatch("finite element interpolant", b)
	}
	return &interpolantEvaluator{ip: ip, b: b}, nil
}

// valueAt evaluates level-weighted dof values at spatial point x
func (ip *Interpolant) valueAt(x []float64, t float64) (val float64, err error) {
	var (
		m    = ip.Space.Mesh
		bary = make([]float64, m.Dim+1)
	)
	if len(x) != m.Dim {
		err = fmt.Errorf("%w: point of dimension %d on a %dD mesh", ErrEvaluation, len(x), m.Dim)
		return
	}
	k, found := ip.locator.Locate(x, bary)
	if !found {
		err = fmt.Errorf("%w: point %v is outside the mesh", ErrEvaluation, x)
		return
	}
	xi := bary[1:]
	if !ip.Timed() {
		return ip.Space.Evaluate(k, xi, ip.Levels[0]), nil
	}
	w := (t - ip.Times[0]) / (ip.Times[1] - ip.Times[0])
	v0 := ip.Space.Evaluate(k, xi, ip.Levels[0])
	v1 := ip.Space.Evaluate(k, xi, ip.Levels[1])
	return (1-w)*v0 + w*v1, nil
}

type interpolantEvaluator struct {
	ip *Interpolant
	b  Binding
}

func (ie *interpolantEvaluator) Evaluate(x []float64) (float64, error) {
	xs, t, err := splitTime(ie.b, x)
	if err != nil {
		return 0, err
	}
	return ie.ip.valueAt(xs, t)
}
