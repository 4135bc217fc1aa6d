package mesh

import "fmt"

// NewRectangle builds a structured triangle mesh of [min,max] with nx by ny cells, each split into two triangles
func NewRectangle(nx, ny int, min, max [2]float64) (m *Mesh, err error) {
	if nx < 1 || ny < 1 {
		err = fmt.Errorf("need at least one cell in each direction, have %d x %d", nx, ny)
		return
	}
	var (
		vertices = make([][]float64, 0, (nx+1)*(ny+1))
		elements = make([][]int, 0, 2*nx*ny)
		dx       = (max[0] - min[0]) / float64(nx)
		dy       = (max[1] - min[1]) / float64(ny)
		vid      = func(i, j int) int { return j*(nx+1) + i }
	)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			vertices = append(vertices, []float64{min[0] + float64(i)*dx, min[1] + float64(j)*dy})
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v00, v10, v11, v01 := vid(i, j), vid(i+1, j), vid(i+1, j+1), vid(i, j+1)
			elements = append(elements, []int{v00, v10, v11}, []int{v00, v11, v01})
		}
	}
	return NewMesh(2, vertices, elements)
}

// kuhnPaths are the axis orders of the six tetrahedra of the Kuhn split of a cube
var kuhnPaths = [6][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

// NewBox builds a structured tetrahedral mesh of [min,max] with n[0] x n[1] x n[2] cells, each split into six tets
func NewBox(n [3]int, min, max [3]float64) (m *Mesh, err error) {
	if n[0] < 1 || n[1] < 1 || n[2] < 1 {
		err = fmt.Errorf("need at least one cell in each direction, have %v", n)
		return
	}
	var (
		vertices [][]float64
		elements [][]int
		h        [3]float64
		vid      = func(i, j, k int) int { return (k*(n[1]+1)+j)*(n[0]+1) + i }
	)
	for d := 0; d < 3; d++ {
		h[d] = (max[d] - min[d]) / float64(n[d])
	}
	for k := 0; k <= n[2]; k++ {
		for j := 0; j <= n[1]; j++ {
			for i := 0; i <= n[0]; i++ {
				vertices = append(vertices, []float64{
					min[0] + float64(i)*h[0], min[1] + float64(j)*h[1], min[2] + float64(k)*h[2]})
			}
		}
	}
	for k := 0; k < n[2]; k++ {
		for j := 0; j < n[1]; j++ {
			for i := 0; i < n[0]; i++ {
				for _, path := range kuhnPaths {
					var (
						c   = [3]int{i, j, k}
						tet = make([]int, 0, 4)
					)
					tet = append(tet, vid(c[0], c[1], c[2]))
					for _, axis := range path {
						c[axis]++
						tet = append(tet, vid(c[0], c[1], c[2]))
					}
					elements = append(elements, tet)
				}
			}
		}
	}
	return NewMesh(3, vertices, elements)
}
