package mesh

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gocut/types"
)

// NodeType enumerates the topological entity kinds a classification can be recorded for
type NodeType uint8

const (
	NodeVertex NodeType = iota
	NodeEdge
	NodeFace
	NodeCell
	NodeElement
	NodeFacet
)

// AllNodeTypes lists every NodeType, used to build total mappings keyed by NodeType
var AllNodeTypes = []NodeType{NodeVertex, NodeEdge, NodeFace, NodeCell, NodeElement, NodeFacet}

func (nt NodeType) String() string {
	return [...]string{"Vertex", "Edge", "Face", "Cell", "Element", "Facet"}[nt]
}

/*
Mesh is a conforming simplicial mesh (triangles in 2D, tetrahedra in 3D) with its full topology.

Local conventions:
  - local facet i of an element is the facet opposite local vertex i
  - local edges are the vertex pairs (i<j) in lexicographic order
  - facets are the edges in 2D and the faces in 3D, and share their numbering
*/
type Mesh struct {
	Dim int

	// Geometry
	Vertices [][]float64 // Vertex coordinates [nvertices][Dim]

	// Element data
	Elements    [][]int // Element to vertex connectivity [nelems][Dim+1]
	ElementTags []int   // Physical group/tag for each element

	// Connectivity (built during initialization)
	Edges   [][2]int // Sorted vertex pairs
	EToEdge [][]int  // Element to edge connectivity [nelems][nedges_per_elem]
	Faces   [][3]int // Sorted vertex triples, 3D only
	Facets  [][]int  // Sorted facet vertices
	EToF    [][]int  // Element to facet connectivity [nelems][Dim+1]
	EToE    [][]int  // Element to element connectivity over each local facet, -1 on the boundary

	FacetElements [][2]int // Elements adjacent to a facet, second is -1 on the boundary
	FacetLocal    [][2]int // Local facet index of the facet within each adjacent element

	BoundaryElements []int // Facets with a single neighbour, indexed by boundary element number

	VertexEdges [][]int // Edges incident to each vertex

	NumElements int
	NumVertices int
	NumFacets   int
}

// NewMesh copies the coordinates and element list and builds the topology
func NewMesh(dim int, vertices [][]float64, elements [][]int) (m *Mesh, err error) {
	if dim != 2 && dim != 3 {
		err = fmt.Errorf("unsupported mesh dimension %d, must be 2 or 3", dim)
		return
	}
	m = &Mesh{
		Dim:         dim,
		Vertices:    make([][]float64, len(vertices)),
		Elements:    make([][]int, len(elements)),
		ElementTags: make([]int, len(elements)),
		NumElements: len(elements),
		NumVertices: len(vertices),
	}
	for i, v := range vertices {
		if len(v) < dim {
			err = fmt.Errorf("vertex %d has %d coordinates, need %d", i, len(v), dim)
			return
		}
		m.Vertices[i] = append([]float64(nil), v[:dim]...)
	}
	for k, e := range elements {
		if len(e) != dim+1 {
			err = fmt.Errorf("element %d has %d vertices, need %d", k, len(e), dim+1)
			return
		}
		for _, v := range e {
			if v < 0 || v >= m.NumVertices {
				err = fmt.Errorf("element %d references vertex %d, out of range [0,%d)", k, v, m.NumVertices)
				return
			}
		}
		m.Elements[k] = append([]int(nil), e...)
	}
	m.BuildConnectivity()
	return
}

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string) (*Mesh, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".neu":
		return ReadGambitNeutral(filename)
	case ".msh":
		return ReadGmsh22(filename)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s", ext)
	}
}

// LocalEdges returns the local vertex pairs of the edges of a simplex of dimension dim
func LocalEdges(dim int) (le [][2]int) {
	for i := 0; i <= dim; i++ {
		for j := i + 1; j <= dim; j++ {
			le = append(le, [2]int{i, j})
		}
	}
	return
}

// LocalFacet returns the local vertices of local facet lf, the facet opposite vertex lf
func LocalFacet(dim, lf int) (lv []int) {
	for i := 0; i <= dim; i++ {
		if i != lf {
			lv = append(lv, i)
		}
	}
	return
}

// BuildConnectivity builds edges, faces, facets and element-to-element connectivity
func (m *Mesh) BuildConnectivity() {
	var (
		edgeMap  = make(map[types.EdgeKey]int)
		faceMap  = make(map[types.FaceKey]int)
		lEdges   = LocalEdges(m.Dim)
		nFacets  = m.Dim + 1
		facetMap func(verts []int) (id int, isNew bool)
	)
	m.Edges, m.Faces, m.Facets = nil, nil, nil
	m.FacetElements, m.FacetLocal, m.BoundaryElements = nil, nil, nil
	m.EToEdge = make([][]int, m.NumElements)
	m.EToF = make([][]int, m.NumElements)
	m.EToE = make([][]int, m.NumElements)
	m.VertexEdges = make([][]int, m.NumVertices)

	addEdge := func(a, b int) (id int, isNew bool) {
		key := types.NewEdgeKey([2]int{a, b})
		if id, ok := edgeMap[key]; ok {
			return id, false
		}
		id = len(m.Edges)
		edgeMap[key] = id
		m.Edges = append(m.Edges, key.GetVertices(false))
		m.VertexEdges[a] = append(m.VertexEdges[a], id)
		m.VertexEdges[b] = append(m.VertexEdges[b], id)
		return id, true
	}
	addFace := func(verts []int) (id int, isNew bool) {
		key := types.NewFaceKey([3]int{verts[0], verts[1], verts[2]})
		if id, ok := faceMap[key]; ok {
			return id, false
		}
		id = len(m.Faces)
		faceMap[key] = id
		m.Faces = append(m.Faces, key.GetVertices())
		return id, true
	}
	if m.Dim == 2 {
		facetMap = func(verts []int) (int, bool) { return addEdge(verts[0], verts[1]) }
	} else {
		facetMap = addFace
	}

	for k, verts := range m.Elements {
		m.EToEdge[k] = make([]int, len(lEdges))
		for i, le := range lEdges {
			m.EToEdge[k][i], _ = addEdge(verts[le[0]], verts[le[1]])
		}
		m.EToF[k] = make([]int, nFacets)
		m.EToE[k] = make([]int, nFacets)
		for lf := 0; lf < nFacets; lf++ {
			fv := make([]int, 0, m.Dim)
			for _, lv := range LocalFacet(m.Dim, lf) {
				fv = append(fv, verts[lv])
			}
			// In 2D facets are edges, already numbered by the edge loop, so slots are filled by id
			id, _ := facetMap(fv)
			for len(m.FacetElements) <= id {
				m.FacetElements = append(m.FacetElements, [2]int{-1, -1})
				m.FacetLocal = append(m.FacetLocal, [2]int{-1, -1})
			}
			m.EToF[k][lf] = id
			m.EToE[k][lf] = -1
			fe := &m.FacetElements[id]
			if fe[0] == -1 {
				fe[0], m.FacetLocal[id][0] = k, lf
				continue
			}
			if fe[1] != -1 {
				panic(fmt.Errorf("facet %d is shared by more than two elements", id))
			}
			fe[1] = k
			m.FacetLocal[id][1] = lf
			// Set connectivity
			nbr, nbrLocal := fe[0], m.FacetLocal[id][0]
			m.EToE[k][lf] = nbr
			m.EToE[nbr][nbrLocal] = k
		}
	}
	if m.Dim == 2 {
		m.Facets = make([][]int, len(m.Edges))
		for i, e := range m.Edges {
			m.Facets[i] = []int{e[0], e[1]}
		}
	} else {
		m.Facets = make([][]int, len(m.Faces))
		for i, f := range m.Faces {
			m.Facets[i] = []int{f[0], f[1], f[2]}
		}
	}
	m.NumFacets = len(m.Facets)
	for f, fe := range m.FacetElements {
		if fe[1] == -1 {
			m.BoundaryElements = append(m.BoundaryElements, f)
		}
	}
}

// NumNodes returns the number of entities of the given NodeType
func (m *Mesh) NumNodes(nt NodeType) int {
	switch nt {
	case NodeVertex:
		return m.NumVertices
	case NodeEdge:
		return len(m.Edges)
	case NodeFace:
		if m.Dim == 2 {
			return m.NumElements
		}
		return len(m.Faces)
	case NodeCell:
		if m.Dim == 2 {
			return 0
		}
		return m.NumElements
	case NodeElement:
		return m.NumElements
	case NodeFacet:
		return m.NumFacets
	}
	panic(fmt.Errorf("unknown node type %d", nt))
}

// NodeVertices returns the vertices defining node nr of type nt. The result must not be modified.
func (m *Mesh) NodeVertices(nt NodeType, nr int) []int {
	switch nt {
	case NodeVertex:
		return []int{nr}
	case NodeEdge:
		return m.Edges[nr][:]
	case NodeFace:
		if m.Dim == 2 {
			return m.Elements[nr]
		}
		return m.Faces[nr][:]
	case NodeCell:
		if m.Dim == 2 {
			panic("no cells in a 2D mesh")
		}
		return m.Elements[nr]
	case NodeElement:
		return m.Elements[nr]
	case NodeFacet:
		return m.Facets[nr]
	}
	panic(fmt.Errorf("unknown node type %d", nt))
}

// ElementNodes returns the nodes of type nt belonging to element k
func (m *Mesh) ElementNodes(nt NodeType, k int) []int {
	switch nt {
	case NodeVertex:
		return m.Elements[k]
	case NodeEdge:
		return m.EToEdge[k]
	case NodeFace:
		if m.Dim == 2 {
			return []int{k}
		}
		return m.EToF[k]
	case NodeCell:
		if m.Dim == 2 {
			return nil
		}
		return []int{k}
	case NodeElement:
		return []int{k}
	case NodeFacet:
		return m.EToF[k]
	}
	panic(fmt.Errorf("unknown node type %d", nt))
}

// BoundaryElementVertices returns the vertices of boundary element b
func (m *Mesh) BoundaryElementVertices(b int) []int {
	return m.Facets[m.BoundaryElements[b]]
}

// Coordinates gathers the coordinates of verts into pts, which must have len(verts) rows
func (m *Mesh) Coordinates(verts []int, pts [][]float64) [][]float64 {
	for i, v := range verts {
		copy(pts[i], m.Vertices[v])
	}
	return pts
}

func (m *Mesh) EdgeLength(e int) float64 {
	var (
		a, b = m.Vertices[m.Edges[e][0]], m.Vertices[m.Edges[e][1]]
	)
	return floats.Distance(a, b, 2)
}

// VertexScale is the mean length of the edges incident to vertex v
func (m *Mesh) VertexScale(v int) (h float64) {
	if len(m.VertexEdges[v]) == 0 {
		return 0
	}
	for _, e := range m.VertexEdges[v] {
		h += m.EdgeLength(e)
	}
	h /= float64(len(m.VertexEdges[v]))
	return
}

// BoundingBox returns the componentwise minimum and maximum vertex coordinates
func (m *Mesh) BoundingBox() (min, max []float64) {
	min = make([]float64, m.Dim)
	max = make([]float64, m.Dim)
	for d := 0; d < m.Dim; d++ {
		min[d], max[d] = math.Inf(1), math.Inf(-1)
	}
	for _, v := range m.Vertices {
		for d := 0; d < m.Dim; d++ {
			min[d] = math.Min(min[d], v[d])
			max[d] = math.Max(max[d], v[d])
		}
	}
	return
}

// Statistics returns mesh statistics as key/value pairs for structured logging
func (m *Mesh) Statistics() []any {
	return []any{
		"dim", m.Dim,
		"vertices", m.NumVertices,
		"elements", m.NumElements,
		"edges", len(m.Edges),
		"facets", m.NumFacets,
		"boundary", len(m.BoundaryElements),
	}
}
