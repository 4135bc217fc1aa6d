package cutinfo

import (
	"github.com/notargets/gocut/fem"
	"github.com/notargets/gocut/utils"
)

/*
NegativeSubSimplices decomposes the part of a simplex where the linear interpolant of vals is
negative into sub-simplices. pts holds the len(vals) vertices, in any ambient dimension. Vertex
values of zero count as non-negative. The decomposition is the marching simplex one:
  - one negative vertex: the corner simplex cut off at the zero crossings of its edges
  - one non-negative vertex: the simplex minus that vertex's corner, a quadrilateral split into two
    triangles or a prism split into three tets
  - two negative and two non-negative tet vertices: a prism split into three tets

Scratch points come from heap when it is not nil.
*/
func NegativeSubSimplices(vals []float64, pts [][]float64, heap *utils.Arena) (subs [][][]float64) {
	var (
		n           = len(vals)
		amb         = len(pts[0])
		neg, nonneg = make([]int, 0, n), make([]int, 0, n)
	)
	for i, v := range vals {
		if v < 0 {
			neg = append(neg, i)
		} else {
			nonneg = append(nonneg, i)
		}
	}
	newPoints := func(np int) [][]float64 {
		if heap != nil {
			return heap.AllocPoints(np, amb)
		}
		p := make([][]float64, np)
		for i := range p {
			p[i] = make([]float64, amb)
		}
		return p
	}
	// crossing fills p with the zero of the interpolant on edge (i,j), vals[i] < 0 <= vals[j]
	crossing := func(i, j int, p []float64) []float64 {
		t := vals[i] / (vals[i] - vals[j])
		for d := range p {
			p[d] = pts[i][d] + t*(pts[j][d]-pts[i][d])
		}
		return p
	}
	switch {
	case len(neg) == 0:
		return nil
	case len(nonneg) == 0:
		s := newPoints(n)
		for i := range s {
			copy(s[i], pts[i])
		}
		return [][][]float64{s}
	case len(neg) == 1:
		var (
			i = neg[0]
			s = newPoints(n)
		)
		for j := 0; j < n; j++ {
			if j == i {
				copy(s[j], pts[i])
				continue
			}
			crossing(i, j, s[j])
		}
		return [][][]float64{s}
	case len(nonneg) == 1:
		var (
			j = nonneg[0]
			q = newPoints(len(neg))
		)
		for ii, i := range neg {
			crossing(i, j, q[ii])
		}
		if n == 3 {
			a, b := pts[neg[0]], pts[neg[1]]
			return [][][]float64{
				{a, b, q[1]},
				{a, q[1], q[0]},
			}
		}
		return prism(pts[neg[0]], pts[neg[1]], pts[neg[2]], q[0], q[1], q[2])
	default:
		// Tet with two negative vertices a, b and two non-negative vertices c, d
		var (
			a, b = neg[0], neg[1]
			c, d = nonneg[0], nonneg[1]
			q    = newPoints(4)
		)
		crossing(a, c, q[0])
		crossing(a, d, q[1])
		crossing(b, c, q[2])
		crossing(b, d, q[3])
		return prism(pts[a], q[0], q[1], pts[b], q[2], q[3])
	}
}

// prism splits the triangular prism with bottom (A,B,C) and top (A',B',C') into three tets
func prism(A, B, C, A1, B1, C1 []float64) [][][]float64 {
	return [][][]float64{
		{A, B, C, A1},
		{B, C, A1, B1},
		{C, A1, B1, C1},
	}
}

// NegativeMeasure is the measure of the region where the linear interpolant of vals is negative
func NegativeMeasure(vals []float64, pts [][]float64, heap *utils.Arena) (vol float64) {
	for _, s := range NegativeSubSimplices(vals, pts, heap) {
		vol += fem.SimplexMeasure(s)
	}
	return
}

// CutRatio is the fraction of the simplex measure where the linear interpolant of vals is negative
func CutRatio(vals []float64, pts [][]float64, heap *utils.Arena) float64 {
	total := fem.SimplexMeasure(pts)
	if total == 0 {
		return 0
	}
	r := NegativeMeasure(vals, pts, heap) / total
	switch {
	case r < 0:
		r = 0
	case r > 1:
		r = 1
	}
	return r
}
