package fem

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gocut/utils"
)

var (
	ErrUnsupportedOrder  = errors.New("unsupported order")
	ErrDegenerateElement = errors.New("degenerate element")
)

/*
The reference simplex of dimension D has vertex 0 at the origin and vertex i at the
unit vector e_(i-1). Local facet i is opposite vertex i.
*/

// ReferenceVertices returns the vertices of the reference simplex
func ReferenceVertices(dim int) (v [][]float64) {
	v = make([][]float64, dim+1)
	for i := range v {
		v[i] = make([]float64, dim)
		if i > 0 {
			v[i][i-1] = 1
		}
	}
	return
}

// ReferenceFacetNormal returns the unit outward normal of local facet lf of the reference simplex
func ReferenceFacetNormal(dim, lf int) (n []float64) {
	n = make([]float64, dim)
	if lf == 0 {
		for d := range n {
			n[d] = 1 / math.Sqrt(float64(dim))
		}
		return
	}
	n[lf-1] = -1
	return
}

// QuadratureRule holds points and weights on a reference simplex; weights sum to the simplex measure
type QuadratureRule struct {
	Dim     int
	Points  [][]float64
	Weights []float64
}

func legendre01(n int) (x, w []float64) {
	x = make([]float64, n)
	w = make([]float64, n)
	quad.Legendre{}.FixedLocations(x, w, 0, 1)
	return
}

/*
SimplexRule returns a rule on the reference simplex exact for polynomials of total degree
order. Rules for triangles and tets are Gauss-Legendre products in collapsed coordinates,
with the collapse Jacobian folded into the weights.
*/
func SimplexRule(dim, order int) (qr QuadratureRule, err error) {
	if order < 0 {
		order = 0
	}
	npts := func(degree int) int { return degree/2 + 1 }
	qr.Dim = dim
	switch dim {
	case 0:
		qr.Points = [][]float64{{}}
		qr.Weights = []float64{1}
	case 1:
		x, w := legendre01(npts(order))
		for i := range x {
			qr.Points = append(qr.Points, []float64{x[i]})
			qr.Weights = append(qr.Weights, w[i])
		}
	case 2:
		xu, wu := legendre01(npts(order + 1))
		xv, wv := legendre01(npts(order))
		for i := range xu {
			for j := range xv {
				qr.Points = append(qr.Points, []float64{xu[i], xv[j] * (1 - xu[i])})
				qr.Weights = append(qr.Weights, wu[i]*wv[j]*(1-xu[i]))
			}
		}
	case 3:
		xu, wu := legendre01(npts(order + 2))
		xv, wv := legendre01(npts(order + 1))
		xw, ww := legendre01(npts(order))
		for i := range xu {
			for j := range xv {
				for k := range xw {
					var (
						u, v, w = xu[i], xv[j], xw[k]
					)
					qr.Points = append(qr.Points, []float64{u, v * (1 - u), w * (1 - u) * (1 - v)})
					qr.Weights = append(qr.Weights, wu[i]*wv[j]*ww[k]*(1-u)*(1-u)*(1-v))
				}
			}
		}
	default:
		err = fmt.Errorf("%w: no quadrature on a simplex of dimension %d", ErrUnsupportedOrder, dim)
	}
	return
}

/*
SimplexMeasure returns the d-dimensional measure of the simplex with the given d+1 vertices,
embedded in any ambient dimension, from the Gram determinant of its edge vectors.
*/
func SimplexMeasure(pts [][]float64) float64 {
	var (
		d = len(pts) - 1
	)
	if d <= 0 {
		return 1
	}
	var (
		amb = len(pts[0])
		E   = mat.NewDense(amb, d, nil)
		G   = mat.NewSymDense(d, nil)
	)
	for j := 0; j < d; j++ {
		for i := 0; i < amb; i++ {
			E.Set(i, j, pts[j+1][i]-pts[0][i])
		}
	}
	G.SymOuterK(1, E.T())
	if d == amb {
		return math.Abs(mat.Det(E)) / utils.Factorial(d)
	}
	det := mat.Det(G)
	if det <= 0 {
		return 0
	}
	return math.Sqrt(det) / utils.Factorial(d)
}
