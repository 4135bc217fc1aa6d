package utils

// DefaultArenaSize is the number of float64 slots pre-allocated for a worker arena
const DefaultArenaSize = 1 << 14

/*
Arena is a bump allocator for per-entity scratch memory. A worker owns one Arena,
allocates while processing an entity and calls Reset before the next one.
Allocations that do not fit fall back to the heap and are counted in Overflow.
An Arena must not be shared between goroutines.
*/
type Arena struct {
	buf      []float64
	ints     []int
	top      int
	itop     int
	Overflow int
}

func NewArena(size int) (a *Arena) {
	a = &Arena{
		buf:  make([]float64, size),
		ints: make([]int, size/4+1),
	}
	return
}

// Alloc returns a zeroed slice of length n
func (a *Arena) Alloc(n int) (s []float64) {
	if a.top+n > len(a.buf) {
		a.Overflow++
		return make([]float64, n)
	}
	s = a.buf[a.top : a.top+n : a.top+n]
	a.top += n
	for i := range s {
		s[i] = 0
	}
	return
}

// AllocInts returns a zeroed int slice of length n
func (a *Arena) AllocInts(n int) (s []int) {
	if a.itop+n > len(a.ints) {
		a.Overflow++
		return make([]int, n)
	}
	s = a.ints[a.itop : a.itop+n : a.itop+n]
	a.itop += n
	for i := range s {
		s[i] = 0
	}
	return
}

// AllocPoints returns n zeroed points of dimension dim backed by one allocation
func (a *Arena) AllocPoints(n, dim int) (p [][]float64) {
	var (
		flat = a.Alloc(n * dim)
	)
	p = make([][]float64, n)
	for i := range p {
		p[i] = flat[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return
}

// Mark and Release bracket a nested scope of allocations
func (a *Arena) Mark() (top, itop int) { return a.top, a.itop }

func (a *Arena) Release(top, itop int) {
	a.top, a.itop = top, itop
}

func (a *Arena) Reset() {
	a.top, a.itop = 0, 0
}

func (a *Arena) InUse() int { return a.top }
