package mesh

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// barycentricTol admits points on element boundaries despite roundoff
const barycentricTol = 1e-10

/*
Locator finds the element containing a point. Elements are binned by bounding box
into a uniform grid of roughly one element per bin. A Locator is read-only after
construction and safe for concurrent use.
*/
type Locator struct {
	m        *Mesh
	min, max []float64
	nBins    []int
	binSize  []float64
	bins     [][]int
	jInv     [][]float64 // per element inverse Jacobian, row major Dim x Dim
}

func NewLocator(m *Mesh) (l *Locator) {
	var (
		dim     = m.Dim
		perAxis = int(math.Ceil(math.Pow(float64(m.NumElements), 1./float64(dim))))
		total   = 1
	)
	if perAxis < 1 {
		perAxis = 1
	}
	l = &Locator{m: m, nBins: make([]int, dim), binSize: make([]float64, dim)}
	l.min, l.max = m.BoundingBox()
	for d := 0; d < dim; d++ {
		l.nBins[d] = perAxis
		l.binSize[d] = (l.max[d] - l.min[d]) / float64(perAxis)
		if l.binSize[d] == 0 {
			l.binSize[d] = 1
		}
		total *= perAxis
	}
	l.bins = make([][]int, total)
	l.jInv = make([][]float64, m.NumElements)
	var (
		J    = mat.NewDense(dim, dim, nil)
		Jinv = mat.NewDense(dim, dim, nil)
		lo   = make([]int, dim)
		hi   = make([]int, dim)
	)
	for k, verts := range m.Elements {
		x0 := m.Vertices[verts[0]]
		for i := 1; i <= dim; i++ {
			for d := 0; d < dim; d++ {
				J.Set(d, i-1, m.Vertices[verts[i]][d]-x0[d])
			}
		}
		if err := Jinv.Inverse(J); err != nil {
			panic(err)
		}
		l.jInv[k] = append([]float64(nil), Jinv.RawMatrix().Data...)
		for d := 0; d < dim; d++ {
			emin, emax := math.Inf(1), math.Inf(-1)
			for _, v := range verts {
				emin = math.Min(emin, m.Vertices[v][d])
				emax = math.Max(emax, m.Vertices[v][d])
			}
			lo[d], hi[d] = l.binIndex(d, emin), l.binIndex(d, emax)
		}
		l.forRange(lo, hi, func(b int) { l.bins[b] = append(l.bins[b], k) })
	}
	return
}

func (l *Locator) binIndex(d int, x float64) (i int) {
	i = int(math.Floor((x - l.min[d]) / l.binSize[d]))
	if i < 0 {
		i = 0
	}
	if i >= l.nBins[d] {
		i = l.nBins[d] - 1
	}
	return
}

func (l *Locator) forRange(lo, hi []int, f func(b int)) {
	var (
		dim = len(lo)
		idx = append([]int(nil), lo...)
	)
	for {
		b := 0
		for d := dim - 1; d >= 0; d-- {
			b = b*l.nBins[d] + idx[d]
		}
		f(b)
		d := 0
		for ; d < dim; d++ {
			idx[d]++
			if idx[d] <= hi[d] {
				break
			}
			idx[d] = lo[d]
		}
		if d == dim {
			return
		}
	}
}

// Barycentric computes the barycentric coordinates of x with respect to element k into bary (len Dim+1)
func (l *Locator) Barycentric(k int, x, bary []float64) {
	var (
		dim  = l.m.Dim
		x0   = l.m.Vertices[l.m.Elements[k][0]]
		jInv = l.jInv[k]
		sum  float64
	)
	for i := 0; i < dim; i++ {
		var xi float64
		for d := 0; d < dim; d++ {
			xi += jInv[i*dim+d] * (x[d] - x0[d])
		}
		bary[i+1] = xi
		sum += xi
	}
	bary[0] = 1 - sum
}

// Locate returns the element containing x and the barycentric coordinates of x in it
func (l *Locator) Locate(x, bary []float64) (k int, found bool) {
	var (
		dim = l.m.Dim
		b   = 0
	)
	for d := 0; d < dim; d++ {
		if x[d] < l.min[d]-barycentricTol || x[d] > l.max[d]+barycentricTol {
			return -1, false
		}
	}
	for d := dim - 1; d >= 0; d-- {
		b = b*l.nBins[d] + l.binIndex(d, x[d])
	}
	for _, k = range l.bins[b] {
		l.Barycentric(k, x, bary)
		inside := true
		for _, lam := range bary {
			if lam < -barycentricTol {
				inside = false
				break
			}
		}
		if inside {
			return k, true
		}
	}
	return -1, false
}
