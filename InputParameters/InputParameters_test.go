package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	{ // Full input
		fileInput := []byte(`
Title: Circle
Dimension: 2
Mesh:
  Cells: [16, 16]
  Min: [-1, -1]
  Max: [1, 1]
LevelSet: "sqrt(x*x + y*y) - 0.5"
Band:
  Lower: -0.1
  Upper: 0.1
  Threshold: 0.25
ZeroPolicy: interface
GhostPenalty:
  DiffOrder: 2
  LambdaNeg: 1
  LambdaPos: "1.0 + x*x"
  Delta: 1.0e-3
  TimeInterval: [0, 0.5]
Parallel: 4
`)
		var ip InputParametersCut
		require.NoError(t, ip.Parse(fileInput))
		assert.Equal(t, "Circle", ip.Title)
		assert.Equal(t, []int{16, 16}, ip.Mesh.Cells)
		assert.Equal(t, []float64{-1, -1}, ip.Mesh.Min)
		assert.Equal(t, ScalarExpression("sqrt(x*x + y*y) - 0.5"), ip.LevelSet)
		assert.Equal(t, -0.1, ip.Band.Lower)
		assert.Equal(t, 0.25, ip.Band.Threshold)
		assert.Equal(t, "interface", ip.ZeroPolicy)
		assert.Equal(t, ScalarExpression("1.0"), ip.GhostPenalty.LambdaNeg)
		assert.Equal(t, ScalarExpression("1.0 + x*x"), ip.GhostPenalty.LambdaPos)
		assert.Equal(t, ScalarExpression("0.001"), ip.GhostPenalty.Delta)
		assert.Equal(t, []float64{0, 0.5}, ip.GhostPenalty.TimeInterval)
		assert.Equal(t, 2, ip.DeformationOrder)
		assert.Equal(t, 2, ip.GhostPenalty.PolynomialOrder)
		assert.Equal(t, 4, ip.Parallel)
		ip.Print()
	}
	{ // Defaults
		var ip InputParametersCut
		require.NoError(t, ip.Parse([]byte("LevelSet: x - 0.3\nMesh:\n  Cells: [4, 4]\n")))
		assert.Equal(t, 2, ip.Dimension)
		assert.Equal(t, []float64{0, 0}, ip.Mesh.Min)
		assert.Equal(t, []float64{1, 1}, ip.Mesh.Max)
		assert.Equal(t, 0, ip.GhostPenalty.DiffOrder)
		assert.Empty(t, ip.GhostPenalty.Delta)
	}
	{ // Invalid inputs
		var ip InputParametersCut
		assert.Error(t, ip.Parse([]byte("Mesh:\n  Cells: [4, 4]\n")))
		ip = InputParametersCut{}
		assert.Error(t, ip.Parse([]byte("LevelSet: x\nDimension: 3\nMesh:\n  Cells: [4, 4]\n")))
		ip = InputParametersCut{}
		assert.Error(t, ip.Parse([]byte("LevelSet: x\nMesh:\n  Cells: [4, 0]\n")))
		ip = InputParametersCut{}
		assert.Error(t, ip.Parse([]byte("LevelSet: x\nMesh:\n  File: a.neu\nGhostPenalty:\n  DiffOrder: 1\n  TimeInterval: [1]\n")))
		ip = InputParametersCut{}
		assert.Error(t, ip.Parse([]byte("LevelSet: [1, 2]\nMesh:\n  File: a.neu\n")))
	}
}
