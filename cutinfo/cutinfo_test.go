package cutinfo

import (
	"errors"
	"math"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gocut/fem"
	"github.com/notargets/gocut/field"
	"github.com/notargets/gocut/mesh"
	"github.com/notargets/gocut/utils"
)

var (
	refTriangle = [][]float64{{0, 0}, {1, 0}, {0, 1}}
	refTet      = [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
)

// twoTriangles is the unit square split along the diagonal {0,2}
func twoTriangles(t *testing.T) *mesh.Mesh {
	m, err := mesh.NewMesh(2, [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, [][]int{{0, 1, 2}, {0, 2, 3}})
	require.NoError(t, err)
	return m
}

func sharedFacet(m *mesh.Mesh) int {
	for lf, nbr := range m.EToE[0] {
		if nbr == 1 {
			return m.EToF[0][lf]
		}
	}
	return -1
}

func setOf(n int, members ...int) *bitset.BitSet {
	s := bitset.New(uint(n))
	for _, i := range members {
		s.Set(uint(i))
	}
	return s
}

func TestCutRatio(t *testing.T) {
	heap := utils.NewArena(utils.DefaultArenaSize)
	{ // Triangle corners against closed forms
		assert.InDelta(t, 0.25, CutRatio([]float64{-1, 1, 1}, refTriangle, heap), 1e-15)
		assert.InDelta(t, 0.75, CutRatio([]float64{1, -1, -1}, refTriangle, heap), 1e-15)
		// Zero crossings at 1/3 and 1/4 along the edges from vertex 0
		assert.InDelta(t, 1./12., CutRatio([]float64{-1, 2, 3}, refTriangle, nil), 1e-15)
		assert.InDelta(t, 11./12., CutRatio([]float64{1, -2, -3}, refTriangle, nil), 1e-15)
	}
	{ // Pure entities
		assert.Equal(t, 0., CutRatio([]float64{1, 2, 3}, refTriangle, heap))
		assert.Equal(t, 1., CutRatio([]float64{-1, -2, -3}, refTriangle, heap))
		assert.Equal(t, 1., CutRatio([]float64{-1}, [][]float64{{0.5, 0.5}}, heap))
	}
	{ // Tetrahedra
		assert.InDelta(t, 1./24., CutRatio([]float64{-1, 2, 3, 1}, refTet, heap), 1e-15)
		assert.InDelta(t, 23./24., CutRatio([]float64{1, -2, -3, -1}, refTet, heap), 1e-15)
		assert.InDelta(t, 0.5, CutRatio([]float64{-1, -1, 1, 1}, refTet, heap), 1e-15)
		// The two sides of an asymmetric 2/2 cut sum to the whole
		r := CutRatio([]float64{-1, -3, 2, 1}, refTet, heap)
		assert.InDelta(t, 1., r+CutRatio([]float64{1, 3, -2, -1}, refTet, heap), 1e-14)
		assert.True(t, r > 0 && r < 1)
	}
	{ // Invariant under relabeling the vertices
		vals := []float64{-1, -3, 2, 1}
		r := CutRatio(vals, refTet, heap)
		perm := []int{2, 0, 3, 1}
		pv := make([]float64, 4)
		pp := make([][]float64, 4)
		for i, p := range perm {
			pv[i], pp[i] = vals[p], refTet[p]
		}
		assert.InDelta(t, r, CutRatio(pv, pp, heap), 1e-14)
	}
	{ // Affine invariance, including a triangle embedded in 3D
		tri := [][]float64{{0, 0, 0}, {2, 0, 0}, {0, 2, 1}}
		assert.InDelta(t, 0.25, CutRatio([]float64{-1, 1, 1}, tri, heap), 1e-15)
		assert.InDelta(t, 0.5, CutRatio([]float64{-1, 1}, [][]float64{{0, 0, 0}, {3, 4, 0}}, heap), 1e-15)
	}
	{ // Sub-simplices of a negative corner sum to its measure
		subs := NegativeSubSimplices([]float64{1, -1, -1, -1}, refTet, heap)
		assert.Len(t, subs, 3)
		var vol float64
		for _, s := range subs {
			vol += fem.SimplexMeasure(s)
		}
		assert.InDelta(t, 7./48., vol, 1e-15)
	}
}

func TestZeroPolicy(t *testing.T) {
	for _, zp := range []ZeroPolicy{ZeroNeutral, ZeroInterface} {
		assert.Equal(t, NEG, zp.Classify([]float64{0, 0, 0}))
		assert.Equal(t, IF, zp.Classify([]float64{-1, 0, 1}))
		assert.Equal(t, POS, zp.Classify([]float64{1, 2, 3}))
		assert.Equal(t, NEG, zp.Classify([]float64{-1, -2, -3}))
	}
	assert.Equal(t, POS, ZeroNeutral.Classify([]float64{0, 1, 1}))
	assert.Equal(t, NEG, ZeroNeutral.Classify([]float64{0, -1, -1}))
	assert.Equal(t, IF, ZeroInterface.Classify([]float64{0, 1, 1}))
	assert.Equal(t, IF, ZeroInterface.Classify([]float64{0, -1, -1}))

	zp, err := ParseZeroPolicy("Interface")
	require.NoError(t, err)
	assert.Equal(t, ZeroInterface, zp)
	zp, err = ParseZeroPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ZeroNeutral, zp)
	_, err = ParseZeroPolicy("both")
	assert.Error(t, err)
}

func TestUpdateTwoElements(t *testing.T) {
	m := twoTriangles(t)
	interior := sharedFacet(m)
	require.True(t, interior >= 0)
	{ // Pure POS and pure NEG
		ci := NewCutInformation(m)
		require.NoError(t, ci.UpdateFromVertexValues([]float64{1, 2, 3, 4}))
		for k := 0; k < 2; k++ {
			assert.Equal(t, POS, ci.DomainTypeOfElement(ElementId{Volume, k}))
			assert.Equal(t, 0., ci.CutRatioOfElement(ElementId{Volume, k}))
		}
		require.NoError(t, ci.UpdateFromVertexValues([]float64{-1, -2, -3, -4}))
		for k := 0; k < 2; k++ {
			assert.Equal(t, NEG, ci.DomainTypeOfElement(ElementId{Volume, k}))
			assert.Equal(t, 1., ci.CutRatioOfElement(ElementId{Volume, k}))
		}
		assert.Equal(t, uint(4), ci.GetElementsOfDomainType(NEG, Boundary).Count())
		assert.Equal(t, uint(0), ci.GetCutNeighboringNodes(mesh.NodeVertex).Count())
	}
	{ // Vertex 1 negative cuts only element 0
		ci := NewCutInformation(m, WithParallelDegree(2))
		require.NoError(t, ci.UpdateFromVertexValues([]float64{1, -1, 1, 1}))
		assert.Equal(t, IF, ci.DomainTypeOfElement(ElementId{Volume, 0}))
		assert.Equal(t, POS, ci.DomainTypeOfElement(ElementId{Volume, 1}))
		assert.InDelta(t, 0.25, ci.CutRatioOfElement(ElementId{Volume, 0}), 1e-15)
		assert.Equal(t, []float64{1, -1, 1, 1}, ci.VertexValues())

		assert.Equal(t, POS, ci.DomainTypeOfNode(mesh.NodeFacet, interior))
		assert.Equal(t, uint(2), ci.GetFacetsOfDomainType(IF).Count())
		assert.Equal(t, uint(2), ci.GetElementsOfDomainType(IF, Boundary).Count())
		for b := range m.BoundaryElements {
			id := ElementId{Boundary, b}
			if ci.DomainTypeOfElement(id) == IF {
				assert.InDelta(t, 0.5, ci.CutRatioOfElement(id), 1e-15)
			}
		}
		assert.Equal(t, NEG, ci.DomainTypeOfNode(mesh.NodeVertex, 1))
		assert.Equal(t, 1., ci.CutRatioOfNode(mesh.NodeVertex, 1))
		assert.Equal(t, IF, ci.DomainTypeOfNode(mesh.NodeElement, 0))
		assert.Equal(t, IF, ci.DomainTypeOfNode(mesh.NodeFace, 0))
		assert.Equal(t, uint(0), ci.GetNodesOfDomainType(IF, mesh.NodeCell).Count())
		assert.True(t, ci.GetCutNeighboringNodes(mesh.NodeVertex).Equal(setOf(4, 0, 1, 2)))
		assert.Equal(t, uint(3), ci.GetCutNeighboringNodes(mesh.NodeEdge).Count())

		ifOrPos := ci.GetElementsOfDomainTypes(Volume, IF, POS)
		assert.Equal(t, uint(2), ifOrPos.Count())
	}
}

func TestZeroPolicyUpdate(t *testing.T) {
	m := twoTriangles(t)
	vals := []float64{0, 1, 1, 1}
	{
		ci := NewCutInformation(m)
		require.NoError(t, ci.UpdateFromVertexValues(vals))
		assert.Equal(t, uint(2), ci.GetElementsOfDomainType(POS, Volume).Count())
	}
	{ // A touching vertex forces IF, with nothing on the negative side
		ci := NewCutInformation(m, WithZeroPolicy(ZeroInterface))
		require.NoError(t, ci.UpdateFromVertexValues(vals))
		assert.Equal(t, uint(2), ci.GetElementsOfDomainType(IF, Volume).Count())
		assert.Equal(t, 0., ci.CutRatioOfElement(ElementId{Volume, 0}))
		assert.Equal(t, NEG, ci.DomainTypeOfNode(mesh.NodeVertex, 0))
	}
}

func TestFacetQueries(t *testing.T) {
	m := twoTriangles(t)
	interior := sharedFacet(m)
	ci := NewCutInformation(m)
	require.NoError(t, ci.UpdateFromVertexValues([]float64{1, 1, 1, 1}))
	var (
		e0, e1, none = setOf(2, 0), setOf(2, 1), setOf(2)
		boundaryOf0  = setOf(m.NumFacets)
	)
	for lf, nbr := range m.EToE[0] {
		if nbr < 0 {
			boundaryOf0.Set(uint(m.EToF[0][lf]))
		}
	}
	{ // AND: only the shared facet has one element in each set
		f := ci.GetFacetsWithNeighborTypes(e0, e1, false, false, true)
		assert.True(t, f.Equal(setOf(m.NumFacets, interior)))
		// Commutative in the swap of the two sets
		assert.True(t, f.Equal(ci.GetFacetsWithNeighborTypes(e1, e0, false, false, true)))
	}
	{ // AND with a default for the missing neighbour
		f := ci.GetFacetsWithNeighborTypes(e0, e0, false, false, true)
		assert.Equal(t, uint(0), f.Count())
		f = ci.GetFacetsWithNeighborTypes(e0, e0, false, true, true)
		assert.True(t, f.Equal(boundaryOf0))
		assert.True(t, f.Equal(ci.GetFacetsWithNeighborTypes(e0, e0, true, false, true)))
	}
	{ // OR: every facet of element 0
		f := ci.GetFacetsWithNeighborTypes(e0, none, false, false, false)
		expected := boundaryOf0.Clone()
		expected.Set(uint(interior))
		assert.True(t, f.Equal(expected))
		assert.True(t, f.Equal(ci.GetFacetsWithNeighborTypes(none, e0, false, false, false)))
		// A true default admits every boundary facet
		f = ci.GetFacetsWithNeighborTypes(none, none, true, false, false)
		assert.Equal(t, uint(len(m.BoundaryElements)), f.Count())
	}
	{
		els := ci.GetElementsWithNeighborFacets(setOf(m.NumFacets, interior))
		assert.True(t, els.Equal(setOf(2, 0, 1)))
		els = ci.GetElementsWithNeighborFacets(boundaryOf0)
		assert.True(t, els.Equal(setOf(2, 0)))
	}
	{ // Dofs of element 1 in P1 and P2
		sp, err := fem.NewH1Space(m, 1)
		require.NoError(t, err)
		dofs := ci.GetDofsOfElements(sp, e1)
		assert.True(t, dofs.Equal(setOf(4, 0, 2, 3)))
		sp, err = fem.NewH1Space(m, 2)
		require.NoError(t, err)
		assert.Equal(t, uint(6), ci.GetDofsOfElements(sp, e1).Count())
		// The shared edge is counted once
		assert.Equal(t, uint(4+5), ci.GetDofsOfElements(sp, setOf(2, 0, 1)).Count())
	}
}

func TestUpdateLevelSet(t *testing.T) {
	{ // A plane is resolved exactly on a tet mesh, in volume and on the boundary
		m, err := mesh.NewBox([3]int{2, 2, 2}, [3]float64{0, 0, 0}, [3]float64{1, 1, 1})
		require.NoError(t, err)
		ex, err := field.NewExpression("x - 0.3")
		require.NoError(t, err)
		ls, err := field.Bind(ex, field.Independent())
		require.NoError(t, err)
		ci := NewCutInformation(m)
		require.NoError(t, ci.Update(ls))
		var vol, area float64
		pts := make([][]float64, 4)
		for i := range pts {
			pts[i] = make([]float64, 3)
		}
		for k, r := range ci.GetCutRatios(Volume) {
			vol += r * fem.SimplexMeasure(m.Coordinates(m.Elements[k], pts))
		}
		for b, r := range ci.GetCutRatios(Boundary) {
			area += r * fem.SimplexMeasure(m.Coordinates(m.BoundaryElementVertices(b), pts[:3]))
		}
		assert.InDelta(t, 0.3, vol, 1e-13)
		assert.InDelta(t, 1+4*0.3, area, 1e-13)
		assert.True(t, ci.GetElementsOfDomainType(IF, Volume).Count() > 0)
	}
	{ // Circle area converges under refinement
		m, err := mesh.NewRectangle(32, 32, [2]float64{-1, -1}, [2]float64{1, 1})
		require.NoError(t, err)
		ex, err := field.NewExpression("sqrt(x*x + y*y) - 0.6")
		require.NoError(t, err)
		ls, err := field.Bind(ex, field.Independent())
		require.NoError(t, err)
		ci := NewCutInformation(m)
		require.NoError(t, ci.Update(ls))
		var area float64
		for k, r := range ci.GetCutRatios(Volume) {
			tr, err := fem.NewTransformation(m.Coordinates(m.Elements[k], [][]float64{{0, 0}, {0, 0}, {0, 0}}))
			require.NoError(t, err)
			area += r * tr.Measure()
			if ci.DomainTypeOfElement(ElementId{Volume, k}) == IF {
				assert.True(t, r >= 0 && r <= 1)
			}
		}
		assert.InDelta(t, math.Pi*0.36, area, 0.01)
	}
	{ // A failing evaluation leaves the previous classification in place
		m := twoTriangles(t)
		ci := NewCutInformation(m)
		require.NoError(t, ci.UpdateFromVertexValues([]float64{1, -1, 1, 1}))
		failing := field.Func(func(x []float64) (float64, error) {
			if x[0] > 0.5 {
				return 0, errors.New("out of range")
			}
			return -1, nil
		})
		err := ci.Update(failing)
		assert.True(t, errors.Is(err, ErrLevelSetEvaluation))
		assert.Equal(t, IF, ci.DomainTypeOfElement(ElementId{Volume, 0}))
		assert.Error(t, ci.UpdateFromVertexValues([]float64{1, 2}))
		assert.Error(t, ci.UpdateFromVertexValues([]float64{1, math.NaN(), 1, 1}))
	}
	{
		ci := NewCutInformation(twoTriangles(t))
		assert.Panics(t, func() { ci.DomainTypeOfElement(ElementId{Volume, 0}) })
	}
}
