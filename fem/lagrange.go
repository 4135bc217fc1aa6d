package fem

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gocut/mesh"
	"github.com/notargets/gocut/utils"
)

/*
Lagrange is the nodal Lagrange element of order P on the reference simplex of dimension Dim,
using the equispaced lattice as nodes.

There is no closed form for the Lagrange polynomials through an arbitrary set of points on the
simplex, so we express them through the monomial basis: with V the generalized Vandermonde
matrix of the monomials at the nodes, the Lagrange basis at a point is m(xi)^T Vinv, where m is
the vector of monomials. Derivatives act on monomial coefficients through the sparse matrices
Dmono, so any directional derivative of any order is a row of m(xi)^T (sum_d a_d Dmono_d)^k Vinv.

Nodes are ordered vertices first, then edge interiors by local edge, then face interiors by
local face, then the cell interior, so that the P1 and P2 dofs of an element line up with its
vertices and its mesh edges.
*/
type Lagrange struct {
	Dim, P, Np int
	Nodes      [][]float64
	Exponents  [][]int // Monomial exponents, one row per monomial
	Vinv       *mat.Dense
	Dmono      []*mat.Dense // Derivative in monomial coefficient space, per reference axis
	Dr         []*mat.Dense // Dmono[d] * Vinv, per reference axis
}

func NewLagrange(dim, P int) (el *Lagrange, err error) {
	if dim < 1 || dim > 3 {
		err = fmt.Errorf("%w: Lagrange element of dimension %d", ErrUnsupportedOrder, dim)
		return
	}
	if P < 1 {
		err = fmt.Errorf("%w: Lagrange element of order %d", ErrUnsupportedOrder, P)
		return
	}
	el = &Lagrange{Dim: dim, P: P}
	el.Exponents = multiIndices(dim, P, false)
	el.Np = len(el.Exponents)
	el.Nodes = latticeNodes(dim, P)

	V := mat.NewDense(el.Np, el.Np, nil)
	for i, xi := range el.Nodes {
		V.SetRow(i, el.Monomials(xi, nil))
	}
	el.Vinv = mat.NewDense(el.Np, el.Np, nil)
	if err = el.Vinv.Inverse(V); err != nil {
		err = fmt.Errorf("lagrange vandermonde of order %d is singular: %w", P, err)
		return
	}

	index := make(map[[3]int]int, el.Np)
	for j, e := range el.Exponents {
		index[expKey(e)] = j
	}
	el.Dmono = make([]*mat.Dense, dim)
	el.Dr = make([]*mat.Dense, dim)
	for d := 0; d < dim; d++ {
		D := mat.NewDense(el.Np, el.Np, nil)
		for j, e := range el.Exponents {
			if e[d] == 0 {
				continue
			}
			lower := append([]int(nil), e...)
			lower[d]--
			D.Set(index[expKey(lower)], j, float64(e[d]))
		}
		el.Dmono[d] = D
		el.Dr[d] = mat.NewDense(el.Np, el.Np, nil)
		el.Dr[d].Mul(D, el.Vinv)
	}
	return
}

func expKey(e []int) (k [3]int) {
	copy(k[:], e)
	return
}

// Monomials fills m with the monomial basis evaluated at xi, allocating when m is nil
func (el *Lagrange) Monomials(xi, m []float64) []float64 {
	if m == nil {
		m = make([]float64, el.Np)
	}
	for j, e := range el.Exponents {
		m[j] = 1
		for d := 0; d < el.Dim; d++ {
			m[j] *= utils.POW(xi[d], e[d])
		}
	}
	return m
}

// Shape fills shape with the Lagrange basis functions evaluated at xi
func (el *Lagrange) Shape(xi, shape []float64) {
	el.Row(xi, el.Vinv, shape)
}

// Gradient fills grad[j][d] with the derivative of basis function j along reference axis d at xi
func (el *Lagrange) Gradient(xi []float64, grad [][]float64) {
	var (
		m = el.Monomials(xi, nil)
	)
	for d := 0; d < el.Dim; d++ {
		for j := 0; j < el.Np; j++ {
			var s float64
			for i := 0; i < el.Np; i++ {
				s += m[i] * el.Dr[d].At(i, j)
			}
			grad[j][d] = s
		}
	}
}

// Row fills out with m(xi)^T M, where M is an operator on monomial coefficients composed with Vinv
func (el *Lagrange) Row(xi []float64, M mat.Matrix, out []float64) {
	var (
		m = el.Monomials(xi, nil)
	)
	for j := 0; j < el.Np; j++ {
		var s float64
		for i := 0; i < el.Np; i++ {
			s += m[i] * M.At(i, j)
		}
		out[j] = s
	}
}

/*
DirectionalDerivativeMatrix returns (sum_d dir_d Dmono_d)^k Vinv, whose rows evaluated through
Row give the k-th derivative of each basis function along the reference direction dir.
*/
func (el *Lagrange) DirectionalDerivativeMatrix(dir []float64, k int) (M *mat.Dense) {
	var (
		A = mat.NewDense(el.Np, el.Np, nil)
	)
	for d := 0; d < el.Dim; d++ {
		if dir[d] == 0 {
			continue
		}
		var scaled mat.Dense
		scaled.Scale(dir[d], el.Dmono[d])
		A.Add(A, &scaled)
	}
	M = mat.DenseCopyOf(el.Vinv)
	for i := 0; i < k; i++ {
		var tmp mat.Dense
		tmp.Mul(A, M)
		M.Copy(&tmp)
	}
	return
}

// multiIndices enumerates exponent tuples of length dim with total degree <= P (or == P when exact)
func multiIndices(dim, P int, exact bool) (idx [][]int) {
	var rec func(prefix []int, remaining int)
	rec = func(prefix []int, remaining int) {
		if len(prefix) == dim {
			if !exact || remaining == 0 {
				idx = append(idx, append([]int(nil), prefix...))
			}
			return
		}
		for i := 0; i <= remaining; i++ {
			rec(append(prefix, i), remaining-i)
		}
	}
	rec(nil, P)
	sort.SliceStable(idx, func(a, b int) bool {
		var sa, sb int
		for d := range idx[a] {
			sa += idx[a][d]
			sb += idx[b][d]
		}
		return sa < sb
	})
	return
}

/*
latticeNodes returns the equispaced nodes of order P, ordered by the entity owning them. Each node
is a barycentric lattice point (i_0..i_dim) summing to P; its support (the nonzero indices)
identifies the vertex, edge, face or cell it lies in.
*/
func latticeNodes(dim, P int) (nodes [][]float64) {
	type node struct {
		bary     []int
		rank     int
		entity   int
		position int
	}
	var (
		lEdges = mesh.LocalEdges(dim)
		all    []node
	)
	for pos, b := range multiIndices(dim+1, P, true) {
		var support []int
		for i, v := range b {
			if v > 0 {
				support = append(support, i)
			}
		}
		nd := node{bary: b, rank: len(support), position: pos}
		switch len(support) {
		case 1:
			nd.entity = support[0]
		case 2:
			for i, le := range lEdges {
				if le[0] == support[0] && le[1] == support[1] {
					nd.entity = i
				}
			}
		case 3:
			if dim == 3 {
				// Face opposite the missing vertex
				nd.entity = 6 - support[0] - support[1] - support[2]
			}
		}
		all = append(all, nd)
	}
	sort.SliceStable(all, func(a, b int) bool {
		if all[a].rank != all[b].rank {
			return all[a].rank < all[b].rank
		}
		if all[a].entity != all[b].entity {
			return all[a].entity < all[b].entity
		}
		return all[a].position < all[b].position
	})
	nodes = make([][]float64, len(all))
	for i, nd := range all {
		nodes[i] = make([]float64, dim)
		for d := 0; d < dim; d++ {
			nodes[i][d] = float64(nd.bary[d+1]) / float64(P)
		}
	}
	return
}
