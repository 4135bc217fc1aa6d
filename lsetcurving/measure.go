package lsetcurving

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gocut/cutinfo"
	"github.com/notargets/gocut/fem"
	"github.com/notargets/gocut/utils"
)

/*
NegativeMeasure is the measure of the region where the linear interpolant of vertexVals is
negative, on the mesh deformed by deform. The negative part of each element is cut in reference
coordinates and integrated with the determinant of the deformed map, so with a zero deformation
this is the measure of the piecewise linear negative domain.
*/
func NegativeMeasure(deform *Deformation, vertexVals []float64, parallel int) (vol float64, err error) {
	var (
		sp  = deform.Space
		m   = sp.Mesh
		dim = m.Dim
		ref = fem.ReferenceVertices(dim)
		np  = utils.ParallelDegree(parallel)
	)
	if len(vertexVals) != m.NumVertices {
		err = fmt.Errorf("%d vertex values for %d vertices", len(vertexVals), m.NumVertices)
		return
	}
	// det of a degree p map is a polynomial of degree dim*(p-1) on the reference element
	qr, err := fem.SimplexRule(dim, dim*(sp.Order-1))
	if err != nil {
		return
	}
	if np > m.NumElements {
		np = m.NumElements
	}
	partial := make([]float64, np)
	err = utils.ParallelFor(m.NumElements, np, func(bn, kMin, kMax int, heap *utils.Arena) error {
		var (
			J  = mat.NewDense(dim, dim, nil)
			xi = make([]float64, dim)
		)
		for k := kMin; k < kMax; k++ {
			heap.Reset()
			vals := heap.Alloc(dim + 1)
			for i, v := range m.Elements[k] {
				vals[i] = vertexVals[v]
			}
			subs := cutinfo.NegativeSubSimplices(vals, ref, heap)
			if len(subs) == 0 {
				continue
			}
			tr, err := sp.Transformation(k)
			if err != nil {
				return err
			}
			for _, s := range subs {
				// Reference measure of the sub-simplex relative to the reference element
				scale := fem.SimplexMeasure(s) * utils.Factorial(dim)
				for q, eta := range qr.Points {
					for d := 0; d < dim; d++ {
						xi[d] = s[0][d]
						for i := 0; i < dim; i++ {
							xi[d] += eta[i] * (s[i+1][d] - s[0][d])
						}
					}
					deform.Jacobian(k, tr, xi, J)
					partial[bn] += qr.Weights[q] * scale * math.Abs(mat.Det(J))
				}
			}
		}
		return nil
	})
	for _, p := range partial {
		vol += p
	}
	return
}
