package ghostpenalty

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gocut/fem"
	"github.com/notargets/gocut/field"
	"github.com/notargets/gocut/logger"
	"github.com/notargets/gocut/mesh"
	"github.com/notargets/gocut/utils"
)

var (
	ErrInvalidCoefficientCount = errors.New("invalid ghost penalty coefficient count")
	ErrUnsupportedOperation    = errors.New("unsupported operation")
	ErrFacetMismatch           = errors.New("elements do not share the facet")
	ErrInvalidTimeInterval     = errors.New("invalid time interval")
)

/*
Integrator is the ghost penalty facet bilinear form

	a(u,v) = sum over subdomains of lambda_dom(x) [d^k u/dn^k] [d^k v/dn^k]

integrated over a facet shared by two elements, where [.] is the jump from side 1 to side 2 and
n is the outward normal of side 1. The form acts on one copy of the element basis per
subdomain; local dofs are ordered [el1 NEG, el1 POS, el2 NEG, el2 POS].

The coefficients are lambda_neg, lambda_pos, delta for the space only form, scaled by delta, or
lambda_neg, lambda_pos, t_old, t_new, delta for the space-time form, scaled by delta/tau with
tau = t_new - t_old. The lambdas and delta are evaluated at each quadrature point, t_old and t_new
once, at the origin, at construction.
*/
type Integrator struct {
	Dim       int
	Element   *fem.Lagrange
	DiffOp    fem.DiffOpDuDnk
	LambdaNeg field.Evaluator
	LambdaPos field.Evaluator
	Delta     field.Evaluator
	SpaceTime bool
	TOld      float64
	TNew      float64
	log       logger.Logger
}

type Option func(*Integrator)

func WithLogger(l logger.Logger) Option { return func(gp *Integrator) { gp.log = l } }

// NewIntegrator builds the form for order p elements of dimension dim and the normal derivative of order diffOrder.
// It accepts exactly 3 coefficients (space only) or 5 (space-time), any other count is ErrInvalidCoefficientCount.
func NewIntegrator(dim, p, diffOrder int, coefs []field.Evaluator, opts ...Option) (gp *Integrator, err error) {
	var (
		origin = make([]float64, dim)
		consts []float64
	)
	if len(coefs) != 3 && len(coefs) != 5 {
		err = fmt.Errorf("%w: have %d, need 3 (lambda_neg, lambda_pos, delta) or 5 (lambda_neg, lambda_pos, t_old, t_new, delta)",
			ErrInvalidCoefficientCount, len(coefs))
		return
	}
	gp = &Integrator{Dim: dim, LambdaNeg: coefs[0], LambdaPos: coefs[1], Delta: coefs[len(coefs)-1],
		SpaceTime: len(coefs) == 5}
	for _, opt := range opts {
		opt(gp)
	}
	gp.log = logger.OrDefault(gp.log)
	if gp.DiffOp, err = fem.NewDiffOpDuDnk(dim, diffOrder); err != nil {
		return nil, err
	}
	if gp.Element, err = fem.NewLagrange(dim, p); err != nil {
		return nil, err
	}
	if gp.SpaceTime {
		for i, c := range coefs[2:4] {
			var v float64
			if v, err = c.Evaluate(origin); err != nil {
				return nil, fmt.Errorf("ghost penalty coefficient %d: %w", i+2, err)
			}
			consts = append(consts, v)
		}
		if err = gp.SetTimeInterval(consts[0], consts[1]); err != nil {
			return nil, err
		}
	}
	if p < diffOrder {
		gp.log.Warn("ghost penalty derivative order exceeds the element order, the form vanishes",
			"order", p, "diff_order", diffOrder)
	}
	return
}

// SetTimeInterval moves the space-time window. It must not run concurrently with CalcFacetMatrix.
func (gp *Integrator) SetTimeInterval(tOld, tNew float64) error {
	if !gp.SpaceTime {
		return fmt.Errorf("%w: time interval on a space only ghost penalty", ErrUnsupportedOperation)
	}
	if !(tNew > tOld) {
		return fmt.Errorf("%w: [%g,%g)", ErrInvalidTimeInterval, tOld, tNew)
	}
	gp.TOld, gp.TNew = tOld, tNew
	return nil
}

// TimeScale multiplies delta in the integrand: 1, or 1/tau in space-time
func (gp *Integrator) TimeScale() float64 {
	if gp.SpaceTime {
		return 1 / (gp.TNew - gp.TOld)
	}
	return 1
}

// IntegrationOrder is the facet quadrature order, honouring the differential order
func (gp *Integrator) IntegrationOrder() int {
	return gp.DiffOp.IntegrationOrder(gp.Element.P)
}

// LocalDofs is the size of the facet matrix
func (gp *Integrator) LocalDofs() int { return 4 * gp.Element.Np }

// FacetSide is one element adjacent to a facet
type FacetSide struct {
	LocalFacet int
	Transform  *fem.Transformation
	Vertices   []int
}

func (fs FacetSide) facetVertices(dim int) (fv []int) {
	for _, lv := range mesh.LocalFacet(dim, fs.LocalFacet) {
		fv = append(fv, fs.Vertices[lv])
	}
	sort.Ints(fv)
	return
}

// CalcElementMatrix always fails, the form couples elements through facets only
func (gp *Integrator) CalcElementMatrix(FacetSide) (*mat.SymDense, error) {
	return nil, fmt.Errorf("%w: ghost penalty has no element matrix", ErrUnsupportedOperation)
}

// CalcFacetMatrix integrates the form over the facet shared by side1 and side2
func (gp *Integrator) CalcFacetMatrix(side1, side2 FacetSide) (A *mat.SymDense, err error) {
	var (
		dim    = gp.Dim
		el     = gp.Element
		Np     = el.Np
		fv1    = side1.facetVertices(dim)
		fv2    = side2.facetVertices(dim)
		ref    = fem.ReferenceVertices(dim)
		normal = make([]float64, dim)
		scale  = gp.TimeScale()
	)
	for i := range fv1 {
		if fv1[i] != fv2[i] {
			err = fmt.Errorf("%w: facet vertices %v and %v", ErrFacetMismatch, fv1, fv2)
			return
		}
	}
	qr, err := fem.SimplexRule(dim-1, gp.IntegrationOrder())
	if err != nil {
		return
	}
	// Physical facet vertices, taken from side 1
	var (
		lv  = mesh.LocalFacet(dim, side1.LocalFacet)
		pts = make([][]float64, len(lv))
	)
	for i, v := range lv {
		pts[i] = make([]float64, dim)
		side1.Transform.Map(ref[v], pts[i])
	}
	measure := fem.SimplexMeasure(pts) * utils.Factorial(dim-1)
	side1.Transform.FacetNormal(side1.LocalFacet, normal)

	var (
		M1   = gp.DiffOp.Matrix(el, side1.Transform, normal)
		M2   = gp.DiffOp.Matrix(el, side2.Transform, normal)
		x    = make([]float64, dim)
		xi   = make([]float64, dim)
		row  = make([]float64, Np)
		vNeg = mat.NewVecDense(4*Np, nil)
		vPos = mat.NewVecDense(4*Np, nil)
	)
	A = mat.NewSymDense(4*Np, nil)
	for q, eta := range qr.Points {
		copy(x, pts[0])
		for i := range eta {
			for d := 0; d < dim; d++ {
				x[d] += eta[i] * (pts[i+1][d] - pts[0][d])
			}
		}
		side1.Transform.InverseMap(x, xi)
		el.Row(xi, M1, row)
		for j := 0; j < Np; j++ {
			vNeg.SetVec(j, row[j])
			vPos.SetVec(Np+j, row[j])
		}
		side2.Transform.InverseMap(x, xi)
		el.Row(xi, M2, row)
		for j := 0; j < Np; j++ {
			vNeg.SetVec(2*Np+j, -row[j])
			vPos.SetVec(3*Np+j, -row[j])
		}
		var lamNeg, lamPos, delta float64
		if delta, err = gp.Delta.Evaluate(x); err != nil {
			return nil, fmt.Errorf("delta: %w", err)
		}
		if lamNeg, err = gp.LambdaNeg.Evaluate(x); err != nil {
			return nil, fmt.Errorf("lambda_neg: %w", err)
		}
		if lamPos, err = gp.LambdaPos.Evaluate(x); err != nil {
			return nil, fmt.Errorf("lambda_pos: %w", err)
		}
		w := qr.Weights[q] * measure * scale * delta
		A.SymRankOne(A, w*lamNeg, vNeg)
		A.SymRankOne(A, w*lamPos, vPos)
	}
	return
}
