package lsetcurving

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gocut/fem"
)

// Deformation is a vector valued displacement field on an H1 space, one vector per dof
type Deformation struct {
	Space  *fem.H1Space
	Values [][]float64 // [Ndof][Dim]
}

func NewDeformation(sp *fem.H1Space) (d *Deformation) {
	var (
		dim  = sp.Mesh.Dim
		flat = make([]float64, sp.Ndof()*dim)
	)
	d = &Deformation{Space: sp, Values: make([][]float64, sp.Ndof())}
	for i := range d.Values {
		d.Values[i] = flat[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return
}

func (d *Deformation) Zero() {
	for _, v := range d.Values {
		for i := range v {
			v[i] = 0
		}
	}
}

// MaxNorm is the largest displacement length
func (d *Deformation) MaxNorm() (mx float64) {
	for _, v := range d.Values {
		mx = math.Max(mx, floats.Norm(v, 2))
	}
	return
}

// MapPoint fills x with the deformed position of reference point xi of element k
func (d *Deformation) MapPoint(k int, tr *fem.Transformation, xi, x []float64) {
	var (
		el    = d.Space.Element
		shape = make([]float64, el.Np)
	)
	tr.Map(xi, x)
	el.Shape(xi, shape)
	for j, dof := range d.Space.ElementDofs(k) {
		floats.AddScaled(x, shape[j], d.Values[dof])
	}
}

// Jacobian fills J with the derivative of the deformed map of element k at reference point xi
func (d *Deformation) Jacobian(k int, tr *fem.Transformation, xi []float64, J *mat.Dense) {
	var (
		el   = d.Space.Element
		dim  = tr.Dim
		grad = make([][]float64, el.Np)
	)
	for j := range grad {
		grad[j] = make([]float64, dim)
	}
	el.Gradient(xi, grad)
	J.Copy(tr.J)
	for j, dof := range d.Space.ElementDofs(k) {
		disp := d.Values[dof]
		for r := 0; r < dim; r++ {
			for c := 0; c < dim; c++ {
				J.Set(r, c, J.At(r, c)+disp[r]*grad[j][c])
			}
		}
	}
}
