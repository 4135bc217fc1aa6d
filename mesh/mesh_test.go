package mesh

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectangleTopology(t *testing.T) {
	m, err := NewRectangle(2, 2, [2]float64{0, 0}, [2]float64{1, 1})
	require.NoError(t, err)
	{ // Counts satisfy Euler's relation V - E + F = 1
		assert.Equal(t, 9, m.NumVertices)
		assert.Equal(t, 8, m.NumElements)
		assert.Equal(t, 16, len(m.Edges))
		assert.Equal(t, 16, m.NumFacets)
		assert.Equal(t, 8, len(m.BoundaryElements))
		assert.Equal(t, 1, m.NumVertices-len(m.Edges)+m.NumElements)
	}
	{ // Facet i is opposite vertex i and EToE is symmetric
		for k := 0; k < m.NumElements; k++ {
			for lf := 0; lf < 3; lf++ {
				f := m.EToF[k][lf]
				assert.NotContains(t, m.Facets[f], m.Elements[k][lf])
				nbr := m.EToE[k][lf]
				if nbr == -1 {
					assert.Equal(t, -1, m.FacetElements[f][1])
					continue
				}
				assert.Contains(t, m.EToE[nbr], k)
				fe := m.FacetElements[f]
				assert.True(t, (fe[0] == k && fe[1] == nbr) || (fe[0] == nbr && fe[1] == k))
			}
		}
	}
	{ // Node types in 2D: faces are elements, no cells
		assert.Equal(t, m.NumElements, m.NumNodes(NodeFace))
		assert.Equal(t, 0, m.NumNodes(NodeCell))
		assert.Nil(t, m.ElementNodes(NodeCell, 0))
		assert.Equal(t, []int{3}, m.ElementNodes(NodeFace, 3))
		assert.Equal(t, m.Elements[3], m.NodeVertices(NodeFace, 3))
		assert.Len(t, m.ElementNodes(NodeEdge, 0), 3)
		assert.Panics(t, func() { m.NodeVertices(NodeCell, 0) })
	}
	{ // Local scale is the mean incident edge length
		assert.InDelta(t, 0.5, m.EdgeLength(m.VertexEdges[0][0]), 1e-15)
		h := m.VertexScale(4)
		assert.True(t, h > 0.5 && h < 0.71)
	}
}

func TestFacetElements(t *testing.T) {
	check := func(m *Mesh) {
		require.Len(t, m.FacetElements, m.NumFacets)
		require.Len(t, m.FacetLocal, m.NumFacets)
		for f, fe := range m.FacetElements {
			for s := 0; s < 2; s++ {
				if fe[s] == -1 {
					assert.Equal(t, 1, s)
					continue
				}
				assert.Equal(t, f, m.EToF[fe[s]][m.FacetLocal[f][s]])
			}
		}
	}
	{ // A single square: edge ids run 01, 02, 12 while facets are visited 12, 02, 01
		m, err := NewRectangle(1, 1, [2]float64{0, 0}, [2]float64{1, 1})
		require.NoError(t, err)
		assert.Equal(t, 5, m.NumFacets)
		assert.Len(t, m.BoundaryElements, 4)
		check(m)
	}
	{
		m, err := NewMesh(2, [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, [][]int{{0, 1, 2}, {0, 2, 3}})
		require.NoError(t, err)
		check(m)
		assert.Equal(t, []int{-1, 1, -1}, m.EToE[0])
	}
	{
		m, err := NewBox([3]int{2, 2, 1}, [3]float64{0, 0, 0}, [3]float64{1, 1, 1})
		require.NoError(t, err)
		check(m)
	}
}

func TestBoxTopology(t *testing.T) {
	m, err := NewBox([3]int{1, 1, 1}, [3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 8, m.NumVertices)
	assert.Equal(t, 6, m.NumElements)
	assert.Equal(t, 19, len(m.Edges))
	assert.Equal(t, 18, len(m.Faces))
	assert.Equal(t, 12, len(m.BoundaryElements))
	assert.Equal(t, 6, m.NumNodes(NodeCell))
	assert.Len(t, m.ElementNodes(NodeEdge, 0), 6)
	assert.Len(t, m.BoundaryElementVertices(0), 3)
	{ // Every tet has positive volume and the volumes sum to one
		var total float64
		for _, e := range m.Elements {
			a, b, c, d := m.Vertices[e[0]], m.Vertices[e[1]], m.Vertices[e[2]], m.Vertices[e[3]]
			u := []float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
			v := []float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
			w := []float64{d[0] - a[0], d[1] - a[1], d[2] - a[2]}
			det := u[0]*(v[1]*w[2]-v[2]*w[1]) - u[1]*(v[0]*w[2]-v[2]*w[0]) + u[2]*(v[0]*w[1]-v[1]*w[0])
			assert.InDelta(t, 1./6., abs(det)/6, 1e-14)
			total += abs(det) / 6
		}
		assert.InDelta(t, 1., total, 1e-14)
	}
	{ // Two cells: conforming, Euler characteristic of a ball
		m2, err := NewBox([3]int{2, 1, 1}, [3]float64{0, 0, 0}, [3]float64{2, 1, 1})
		require.NoError(t, err)
		assert.Equal(t, 1, m2.NumVertices-len(m2.Edges)+len(m2.Faces)-m2.NumElements)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestNewMeshValidation(t *testing.T) {
	_, err := NewMesh(1, nil, nil)
	assert.Error(t, err)
	_, err = NewMesh(2, [][]float64{{0, 0}, {1, 0}, {0, 1}}, [][]int{{0, 1}})
	assert.Error(t, err)
	_, err = NewMesh(2, [][]float64{{0, 0}, {1, 0}, {0, 1}}, [][]int{{0, 1, 3}})
	assert.Error(t, err)
	_, err = NewRectangle(0, 1, [2]float64{0, 0}, [2]float64{1, 1})
	assert.Error(t, err)
	_, err = ReadMeshFile("grid.su2")
	assert.Error(t, err)
}

const twoTriangles = `        CONTROL INFO 2.0.0
** GAMBIT NEUTRAL FILE
two
PROGRAM:                Gambit     VERSION:  2.0.0
     NUMNP     NELEM     NGRPS    NBSETS     NDFCD     NDFVL
         4         2         1         0         2         2
ENDOFSECTION
   NODAL COORDINATES 2.0.0
         1   0.0000000000e+00   0.0000000000e+00
         2   1.0000000000e+00   0.0000000000e+00
         3   1.0000000000e+00   1.0000000000e+00
         4   0.0000000000e+00   1.0000000000e+00
ENDOFSECTION
      ELEMENTS/CELLS 2.0.0
       1  3  3        1       2       3
       2  3  3        1       3       4
ENDOFSECTION
       ELEMENT GROUP 2.0.0
GROUP:          7 ELEMENTS:          2 MATERIAL:          2 NFLAGS:          1
                           fluid
       0
       1       2
ENDOFSECTION
`

func TestParseGambitNeutral(t *testing.T) {
	m, err := ParseGambitNeutral(strings.NewReader(twoTriangles))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Dim)
	assert.Equal(t, 4, m.NumVertices)
	assert.Equal(t, 2, m.NumElements)
	assert.Equal(t, []int{7, 7}, m.ElementTags)
	assert.Equal(t, []int{0, 2, 3}, m.Elements[1])
	assert.Equal(t, 5, m.NumFacets)
	var interior []int
	for f, fe := range m.FacetElements {
		if fe[1] != -1 {
			interior = append(interior, f)
		}
	}
	require.Len(t, interior, 1)
	verts := append([]int(nil), m.Facets[interior[0]]...)
	sort.Ints(verts)
	assert.Equal(t, []int{0, 2}, verts)

	_, err = ParseGambitNeutral(strings.NewReader("no header here"))
	assert.Error(t, err)
	bad := strings.Replace(twoTriangles, "1  3  3        1       2       3", "1  2  4        1       2       3     4", 1)
	_, err = ParseGambitNeutral(strings.NewReader(bad))
	assert.Error(t, err)
}

const gmshTwoTriangles = `$MeshFormat
2.2 0 8
$EndMeshFormat
$PhysicalNames
2
1 1 "wall"
2 5 "fluid"
$EndPhysicalNames
$Nodes
4
10 0 0 0
11 1 0 0
12 1 1 0
14 0 1 0
$EndNodes
$Elements
4
1 15 2 0 1 10
2 1 2 1 1 10 11
3 2 2 5 1 10 11 12
4 2 2 5 1 10 12 14
$EndElements
`

func TestParseGmsh22(t *testing.T) {
	m, err := ParseGmsh22(strings.NewReader(gmshTwoTriangles))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Dim)
	assert.Equal(t, 4, m.NumVertices)
	assert.Equal(t, []float64{1, 1}, m.Vertices[2])
	assert.Equal(t, [][]int{{0, 1, 2}, {0, 2, 3}}, m.Elements)
	assert.Equal(t, []int{5, 5}, m.ElementTags)
	assert.Equal(t, 4, len(m.BoundaryElements))
	{ // Version 4 is rejected
		_, err = ParseGmsh22(strings.NewReader(strings.Replace(gmshTwoTriangles, "2.2 0 8", "4.1 0 8", 1)))
		assert.Error(t, err)
	}
	{ // Quadrangles in a 2D mesh cannot be represented
		quad := strings.Replace(gmshTwoTriangles, "4\n1 15", "5\n5 3 2 5 1 10 11 12 14\n1 15", 1)
		_, err = ParseGmsh22(strings.NewReader(quad))
		assert.Error(t, err)
	}
	{ // Unknown node
		_, err = ParseGmsh22(strings.NewReader(strings.Replace(gmshTwoTriangles, "10 12 14", "10 12 13", 1)))
		assert.Error(t, err)
	}
	_, err = ParseGmsh22(strings.NewReader("$MeshFormat\n2.2 0 8\n$EndMeshFormat\n"))
	assert.Error(t, err)
}

func TestLocator(t *testing.T) {
	{ // 2D
		m, err := NewRectangle(4, 3, [2]float64{-1, 0}, [2]float64{1, 1.5})
		require.NoError(t, err)
		l := NewLocator(m)
		bary := make([]float64, 3)
		for _, x := range [][]float64{{-1, 0}, {0.1, 0.7}, {1, 1.5}, {0.5, 0.5}, {-0.99, 1.2}} {
			k, ok := l.Locate(x, bary)
			require.True(t, ok, "point %v", x)
			var (
				sum float64
				rx  = make([]float64, 2)
			)
			for i, lam := range bary {
				assert.True(t, lam > -1e-10)
				sum += lam
				for d := 0; d < 2; d++ {
					rx[d] += lam * m.Vertices[m.Elements[k][i]][d]
				}
			}
			assert.InDelta(t, 1, sum, 1e-12)
			assert.InDeltaSlice(t, x, rx, 1e-12)
		}
		_, ok := l.Locate([]float64{2, 0}, bary)
		assert.False(t, ok)
	}
	{ // 3D
		m, err := NewBox([3]int{2, 2, 2}, [3]float64{0, 0, 0}, [3]float64{1, 1, 1})
		require.NoError(t, err)
		l := NewLocator(m)
		bary := make([]float64, 4)
		k, ok := l.Locate([]float64{0.3, 0.6, 0.9}, bary)
		require.True(t, ok)
		assert.True(t, k >= 0 && k < m.NumElements)
	}
}
