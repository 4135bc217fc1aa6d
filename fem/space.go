package fem

import (
	"fmt"

	"github.com/notargets/gocut/mesh"
)

/*
H1Space is the continuous Lagrange space of order 1 or 2 on a mesh. Dofs are numbered vertices
first, then one dof per mesh edge at its midpoint, so for order 2 the local dofs of an element
follow the Lagrange node order: local vertices, then local edges.
*/
type H1Space struct {
	Mesh    *mesh.Mesh
	Order   int
	Element *Lagrange
	ndof    int
}

func NewH1Space(m *mesh.Mesh, order int) (sp *H1Space, err error) {
	if order != 1 && order != 2 {
		err = fmt.Errorf("%w: H1 space of order %d, must be 1 or 2", ErrUnsupportedOrder, order)
		return
	}
	sp = &H1Space{Mesh: m, Order: order}
	if sp.Element, err = NewLagrange(m.Dim, order); err != nil {
		return
	}
	sp.ndof = m.NumVertices
	if order == 2 {
		sp.ndof += len(m.Edges)
	}
	return
}

func (sp *H1Space) Ndof() int { return sp.ndof }

// ElementDofs returns the global dofs of element k in local node order
func (sp *H1Space) ElementDofs(k int) (dofs []int) {
	var (
		m = sp.Mesh
	)
	dofs = make([]int, 0, sp.Element.Np)
	dofs = append(dofs, m.Elements[k]...)
	if sp.Order == 2 {
		for _, e := range m.EToEdge[k] {
			dofs = append(dofs, m.NumVertices+e)
		}
	}
	return
}

// IsVertexDof reports whether dof sits on a mesh vertex
func (sp *H1Space) IsVertexDof(dof int) bool { return dof < sp.Mesh.NumVertices }

// DofCoordinates fills x with the physical location of dof
func (sp *H1Space) DofCoordinates(dof int, x []float64) {
	var (
		m = sp.Mesh
	)
	if sp.IsVertexDof(dof) {
		copy(x, m.Vertices[dof])
		return
	}
	e := m.Edges[dof-m.NumVertices]
	for d := 0; d < m.Dim; d++ {
		x[d] = 0.5 * (m.Vertices[e[0]][d] + m.Vertices[e[1]][d])
	}
}

// DofScale is the local mesh size at dof: the mean incident edge length at vertices, the edge length at midpoints
func (sp *H1Space) DofScale(dof int) float64 {
	if sp.IsVertexDof(dof) {
		return sp.Mesh.VertexScale(dof)
	}
	return sp.Mesh.EdgeLength(dof - sp.Mesh.NumVertices)
}

// Transformation returns the affine map of element k
func (sp *H1Space) Transformation(k int) (*Transformation, error) {
	var (
		m   = sp.Mesh
		pts = make([][]float64, m.Dim+1)
	)
	for i, v := range m.Elements[k] {
		pts[i] = m.Vertices[v]
	}
	tr, err := NewTransformation(pts)
	if err != nil {
		return nil, fmt.Errorf("element %d: %w", k, err)
	}
	return tr, nil
}

// Interpolate sets u to the nodal interpolant of f
func (sp *H1Space) Interpolate(f func(x []float64) (float64, error), u []float64) (err error) {
	var (
		x = make([]float64, sp.Mesh.Dim)
	)
	for dof := 0; dof < sp.ndof; dof++ {
		sp.DofCoordinates(dof, x)
		if u[dof], err = f(x); err != nil {
			return fmt.Errorf("interpolating at dof %d: %w", dof, err)
		}
	}
	return
}

// Evaluate returns the value of the finite element function u at reference point xi of element k
func (sp *H1Space) Evaluate(k int, xi, u []float64) (val float64) {
	var (
		shape = make([]float64, sp.Element.Np)
	)
	sp.Element.Shape(xi, shape)
	for i, dof := range sp.ElementDofs(k) {
		val += shape[i] * u[dof]
	}
	return
}
