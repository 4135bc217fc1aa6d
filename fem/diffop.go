package fem

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MaxDiffOpOrder is the highest normal derivative order DiffOpDuDnk supports
const MaxDiffOpOrder = 8

// DiffOpDuDnk is the Order-th directional derivative along the outward facet normal of a Dim-dimensional element
type DiffOpDuDnk struct {
	Dim, Order int
}

func NewDiffOpDuDnk(dim, order int) (op DiffOpDuDnk, err error) {
	switch {
	case dim != 2 && dim != 3:
		err = fmt.Errorf("%w: normal derivative in dimension %d", ErrUnsupportedOrder, dim)
	case order < 1 || order > MaxDiffOpOrder:
		err = fmt.Errorf("%w: normal derivative of order %d, must be in [1,%d]", ErrUnsupportedOrder, order, MaxDiffOpOrder)
	default:
		op = DiffOpDuDnk{Dim: dim, Order: order}
	}
	return
}

// DiffOrder is the differential order, honoured by IntegrationOrder
func (op DiffOpDuDnk) DiffOrder() int { return op.Order }

// IntegrationOrder is the quadrature order for a product of two such derivatives of order-p functions
func (op DiffOpDuDnk) IntegrationOrder(p int) int {
	q := 2*(p-op.Order) + 2
	if q < 0 {
		q = 0
	}
	return q
}

/*
Matrix returns the operator on nodal values of fel whose rows, evaluated through fel.Row at a
reference point, give the normal derivative of each basis function. The physical normal maps to
the reference direction Jinv n.
*/
func (op DiffOpDuDnk) Matrix(fel *Lagrange, tr *Transformation, normal []float64) *mat.Dense {
	var (
		dir = make([]float64, op.Dim)
	)
	tr.ReferenceDirection(normal, dir)
	return fel.DirectionalDerivativeMatrix(dir, op.Order)
}

// GenerateMatrix fills row with the normal derivative of every basis function of fel at xi
func (op DiffOpDuDnk) GenerateMatrix(fel *Lagrange, tr *Transformation, xi, normal, row []float64) {
	fel.Row(xi, op.Matrix(fel, tr, normal), row)
}

// Apply returns the normal derivative at xi of the element function with nodal values coefs
func (op DiffOpDuDnk) Apply(fel *Lagrange, tr *Transformation, xi, normal, coefs []float64) (val float64) {
	var (
		row = make([]float64, fel.Np)
	)
	op.GenerateMatrix(fel, tr, xi, normal, row)
	for j, c := range coefs {
		val += row[j] * c
	}
	return
}
