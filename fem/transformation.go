package fem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gocut/utils"
)

// Transformation is the affine map x = X0 + J xi from the reference simplex to a mesh element
type Transformation struct {
	Dim  int
	X0   []float64
	J    *mat.Dense
	Jinv *mat.Dense
	Det  float64
}

// NewTransformation builds the map from the Dim+1 element vertex coordinates
func NewTransformation(pts [][]float64) (tr *Transformation, err error) {
	var (
		dim = len(pts) - 1
	)
	if dim < 1 {
		err = fmt.Errorf("%w: %d points do not form a simplex", ErrDegenerateElement, len(pts))
		return
	}
	if len(pts[0]) != dim {
		err = fmt.Errorf("%w: %d points do not form a full dimensional simplex", ErrDegenerateElement, len(pts))
		return
	}
	tr = &Transformation{
		Dim:  dim,
		X0:   append([]float64(nil), pts[0]...),
		J:    mat.NewDense(dim, dim, nil),
		Jinv: mat.NewDense(dim, dim, nil),
	}
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			tr.J.Set(i, j, pts[j+1][i]-pts[0][i])
		}
	}
	tr.Det = mat.Det(tr.J)
	if tr.Det == 0 || math.IsNaN(tr.Det) {
		err = fmt.Errorf("%w: zero Jacobian determinant", ErrDegenerateElement)
		return
	}
	if err = tr.Jinv.Inverse(tr.J); err != nil {
		err = fmt.Errorf("%w: %v", ErrDegenerateElement, err)
	}
	return
}

// Map computes x = X0 + J xi
func (tr *Transformation) Map(xi, x []float64) {
	for i := 0; i < tr.Dim; i++ {
		x[i] = tr.X0[i]
		for j := 0; j < tr.Dim; j++ {
			x[i] += tr.J.At(i, j) * xi[j]
		}
	}
}

// InverseMap computes xi = Jinv (x - X0)
func (tr *Transformation) InverseMap(x, xi []float64) {
	for i := 0; i < tr.Dim; i++ {
		xi[i] = 0
		for j := 0; j < tr.Dim; j++ {
			xi[i] += tr.Jinv.At(i, j) * (x[j] - tr.X0[j])
		}
	}
}

// Measure is the volume (area in 2D) of the element
func (tr *Transformation) Measure() float64 {
	return math.Abs(tr.Det) / utils.Factorial(tr.Dim)
}

// FacetNormal fills n with the unit outward normal of local facet lf, Jinv^T applied to the reference normal
func (tr *Transformation) FacetNormal(lf int, n []float64) {
	var (
		nRef = ReferenceFacetNormal(tr.Dim, lf)
	)
	for i := 0; i < tr.Dim; i++ {
		n[i] = 0
		for j := 0; j < tr.Dim; j++ {
			n[i] += tr.Jinv.At(j, i) * nRef[j]
		}
	}
	floats.Scale(1/floats.Norm(n, 2), n)
}

// ReferenceDirection fills dir with Jinv v, the reference space image of physical direction v
func (tr *Transformation) ReferenceDirection(v, dir []float64) {
	for i := 0; i < tr.Dim; i++ {
		dir[i] = 0
		for j := 0; j < tr.Dim; j++ {
			dir[i] += tr.Jinv.At(i, j) * v[j]
		}
	}
}
