package ghostpenalty

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/james-bowman/sparse"

	"github.com/notargets/gocut/fem"
	"github.com/notargets/gocut/utils"
)

type triplet struct {
	i, j int
	v    float64
}

/*
Assemble adds the facet matrices of the interior facets in facets into a sparse matrix over two
copies of sp: NEG dofs first, then POS dofs offset by sp.Ndof(). Boundary facets are skipped.
Facet matrices are computed in parallel and summed in facet order.
*/
func (gp *Integrator) Assemble(sp *fem.H1Space, facets *bitset.BitSet, parallel int) (A *sparse.CSR, err error) {
	var (
		m    = sp.Mesh
		ndof = sp.Ndof()
		list []int
	)
	if sp.Order != gp.Element.P || m.Dim != gp.Dim {
		err = fmt.Errorf("space of order %d in %dD does not match a ghost penalty of order %d in %dD",
			sp.Order, m.Dim, gp.Element.P, gp.Dim)
		return
	}
	for f, ok := facets.NextSet(0); ok; f, ok = facets.NextSet(f + 1) {
		if int(f) < m.NumFacets && m.FacetElements[f][1] >= 0 {
			list = append(list, int(f))
		}
	}
	np := utils.ParallelDegree(parallel)
	if np > len(list) {
		np = len(list)
	}
	contributions := make([][]triplet, np)
	err = utils.ParallelFor(len(list), np, func(bn, kMin, kMax int, _ *utils.Arena) error {
		for _, f := range list[kMin:kMax] {
			var (
				fe, fl = m.FacetElements[f], m.FacetLocal[f]
				sides  [2]FacetSide
				dofs   [2][]int
			)
			for s := 0; s < 2; s++ {
				tr, err := sp.Transformation(fe[s])
				if err != nil {
					return err
				}
				sides[s] = FacetSide{LocalFacet: fl[s], Transform: tr, Vertices: m.Elements[fe[s]]}
				dofs[s] = sp.ElementDofs(fe[s])
			}
			Af, err := gp.CalcFacetMatrix(sides[0], sides[1])
			if err != nil {
				return fmt.Errorf("facet %d: %w", f, err)
			}
			global := make([]int, 0, gp.LocalDofs())
			for s := 0; s < 2; s++ {
				for copyNr := 0; copyNr < 2; copyNr++ {
					for _, d := range dofs[s] {
						global = append(global, d+copyNr*ndof)
					}
				}
			}
			for i, gi := range global {
				for j, gj := range global {
					if v := Af.At(i, j); v != 0 {
						contributions[bn] = append(contributions[bn], triplet{gi, gj, v})
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return
	}
	dok := sparse.NewDOK(2*ndof, 2*ndof)
	for _, c := range contributions {
		for _, t := range c {
			dok.Set(t.i, t.j, dok.At(t.i, t.j)+t.v)
		}
	}
	A = dok.ToCSR()
	gp.log.Debug("ghost penalty assembled", "facets", len(list), "nnz", A.NNZ())
	return
}
