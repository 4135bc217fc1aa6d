package lsetcurving

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gocut/field"
	"github.com/notargets/gocut/logger"
	"github.com/notargets/gocut/utils"
)

var ErrRootSearchDivergence = errors.New("root search found no sign change in the search interval")

// ShiftReport lists the dofs visited by ProjectShift, by outcome, in ascending order
type ShiftReport struct {
	Nodes    int
	InBand   []int
	Shifted  []int
	Diverged []int
}

// Err reports root search divergence as a soft error, nil when every band node converged
func (r ShiftReport) Err() error {
	if len(r.Diverged) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d band nodes unshifted", ErrRootSearchDivergence, len(r.Diverged), len(r.InBand))
}

type Option func(*options)

type options struct {
	log logger.Logger
}

func WithLogger(l logger.Logger) Option { return func(o *options) { o.log = l } }

/*
ProjectShift writes into deform a displacement for every dof of its space. A dof at x with linear
level set value phi0 = linear(x) outside the band gets no displacement. Inside the band, the
displacement is t*d with d = direction(x) and t the root nearest zero of

	highOrder(x + t d) = phi0

searched within SearchFactor local mesh sizes, and is scaled by the band weight of phi0. Nodes on
the zero level of the linear field move onto the zero level of the high order field; other band
nodes move to the matching level, which keeps the deformation smooth across the band.

A node whose search finds no sign change keeps a zero displacement and is listed in the report's
Diverged set; the batch continues. Failing to evaluate the linear or direction field is an error.
*/
func ProjectShift(highOrder, linear field.Evaluator, direction field.VectorEvaluator, deform *Deformation,
	p Params, opts ...Option) (rep ShiftReport, err error) {
	var (
		o  = options{}
		sp = deform.Space
		N  = sp.Ndof()
	)
	for _, opt := range opts {
		opt(&o)
	}
	o.log = logger.OrDefault(o.log)
	if err = p.Band.Validate(); err != nil {
		return
	}
	p = p.withDefaults()
	np := utils.ParallelDegree(p.Parallel)
	if np > N {
		np = N
	}
	var (
		inBand   = make([][]int, np)
		shifted  = make([][]int, np)
		diverged = make([][]int, np)
	)
	err = utils.ParallelFor(N, np, func(bn, kMin, kMax int, heap *utils.Arena) error {
		var (
			dim = sp.Mesh.Dim
		)
		for dof := kMin; dof < kMax; dof++ {
			heap.Reset()
			var (
				x    = heap.Alloc(dim)
				dir  = heap.Alloc(dim)
				xt   = heap.Alloc(dim)
				out  = deform.Values[dof]
				phi0 float64
				err  error
			)
			for i := range out {
				out[i] = 0
			}
			sp.DofCoordinates(dof, x)
			if phi0, err = linear.Evaluate(x); err != nil {
				return fmt.Errorf("linear level set at dof %d: %w", dof, err)
			}
			if !p.Contains(phi0) {
				continue
			}
			inBand[bn] = append(inBand[bn], dof)
			if err = direction.EvaluateVector(x, dir); err != nil {
				return fmt.Errorf("shift direction at dof %d: %w", dof, err)
			}
			dnorm := floats.Norm(dir, 2)
			if dnorm == 0 || math.IsNaN(dnorm) {
				diverged[bn] = append(diverged[bn], dof)
				continue
			}
			g := func(t float64) (float64, error) {
				copy(xt, x)
				floats.AddScaled(xt, t, dir)
				v, err := highOrder.Evaluate(xt)
				return v - phi0, err
			}
			var (
				h     = sp.DofScale(dof)
				tMax  = p.SearchFactor * h / dnorm
				tol   = p.Tolerance * h / dnorm
				tRoot float64
			)
			g0, err := g(0)
			if err != nil {
				diverged[bn] = append(diverged[bn], dof)
				continue
			}
			if math.Abs(g0) > tol*dnorm {
				a, b, ga, gb, found := bracket(g, g0, tMax)
				if !found {
					diverged[bn] = append(diverged[bn], dof)
					continue
				}
				if tRoot, err = illinois(g, a, b, ga, gb, tol, p.MaxIterations); err != nil {
					diverged[bn] = append(diverged[bn], dof)
					continue
				}
			}
			w := p.Weight(phi0)
			floats.AddScaled(out, w*tRoot, dir)
			if tRoot != 0 && w != 0 {
				shifted[bn] = append(shifted[bn], dof)
			}
		}
		return nil
	})
	if err != nil {
		return
	}
	rep.Nodes = N
	for bn := 0; bn < np; bn++ {
		rep.InBand = append(rep.InBand, inBand[bn]...)
		rep.Shifted = append(rep.Shifted, shifted[bn]...)
		rep.Diverged = append(rep.Diverged, diverged[bn]...)
	}
	if len(rep.Diverged) > 0 {
		o.log.Warn("level set projection left nodes unshifted",
			"diverged", len(rep.Diverged), "band", len(rep.InBand), "nodes", N)
	}
	o.log.Debug("level set projection", "band", len(rep.InBand), "shifted", len(rep.Shifted),
		"max_shift", deform.MaxNorm())
	return
}
