package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypes(t *testing.T) {
	{ // Test packed int for edge labeling
		en := NewEdgeKey([2]int{1, 0})
		assert.Equal(t, EdgeKey(1<<32), en)
		assert.Equal(t, [2]int{0, 1}, en.GetVertices(false))

		en = NewEdgeKey([2]int{100, 1})
		assert.Equal(t, EdgeKey(100*(1<<32)+1), en)
		assert.Equal(t, [2]int{1, 100}, en.GetVertices(false))
		assert.Equal(t, [2]int{100, 1}, en.GetVertices(true))

		// Test maximum/minimum indices
		en = NewEdgeKey([2]int{1<<32 - 1, 1})
		assert.Equal(t, EdgeKey((1<<32-1)<<32+1), en)
		assert.Equal(t, [2]int{1, 1<<32 - 1}, en.GetVertices(false))

		assert.Panics(t, func() { NewEdgeKey([2]int{-1, 2}) })
	}
	{ // Face keys are independent of vertex order
		fk := NewFaceKey([3]int{7, 2, 5})
		assert.Equal(t, fk, NewFaceKey([3]int{2, 5, 7}))
		assert.Equal(t, fk, NewFaceKey([3]int{5, 7, 2}))
		assert.Equal(t, [3]int{2, 5, 7}, fk.GetVertices())
		assert.NotEqual(t, fk, NewFaceKey([3]int{2, 5, 8}))

		// Large meshes: indices past 21 bits stay distinct
		big := 1 << 21
		fk = NewFaceKey([3]int{big + 5, 0, big - 1})
		assert.Equal(t, [3]int{0, big - 1, big + 5}, fk.GetVertices())
		assert.NotEqual(t, fk, NewFaceKey([3]int{0, big - 1, 5}))
		faces := map[FaceKey]int{fk: 1}
		assert.Equal(t, 1, faces[NewFaceKey([3]int{big - 1, big + 5, 0})])
		assert.Panics(t, func() { NewFaceKey([3]int{0, -1, 2}) })
	}
}
