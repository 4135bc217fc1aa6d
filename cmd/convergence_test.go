package cmd

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gocut/InputParameters"
	"github.com/notargets/gocut/logger"
)

func TestObservedOrders(t *testing.T) {
	{ // Second order sequence with a known limit
		vals := []float64{1 + 1, 1 + 0.25, 1 + 0.0625}
		ord := ObservedOrders(vals, 1)
		assert.True(t, math.IsNaN(ord[0]))
		assert.InDelta(t, 2., ord[1], 1e-12)
		assert.InDelta(t, 2., ord[2], 1e-12)
	}
	{ // Richardson estimate
		vals := []float64{3 + 8, 3 + 1, 3 + 0.125, 3 + 1./64}
		ord := ObservedOrders(vals, math.NaN())
		assert.True(t, math.IsNaN(ord[0]))
		assert.InDelta(t, 3., ord[1], 1e-12)
		assert.InDelta(t, 3., ord[2], 1e-12)
		assert.True(t, math.IsNaN(ord[3]))
	}
}

func TestConvergenceCSV(t *testing.T) {
	cs := NewConvergenceStudy("plane")
	cs.Add(4, 0.5, 0.25)
	cs.Add(8, 0.125, 1./3)
	var buf bytes.Buffer
	require.NoError(t, cs.WriteCSV(&buf))
	studies, err := ReadConvergenceCSV(&buf)
	require.NoError(t, err)
	require.Contains(t, studies, "plane")
	assert.Equal(t, cs, studies["plane"])
	_, err = ReadConvergenceCSV(strings.NewReader("Title,Cells,NegativeLinear,NegativeDeformed\nplane,x,1,1\n"))
	assert.Error(t, err)
	buf.Reset()
	cs.Print(&buf, math.NaN())
	assert.True(t, strings.Contains(buf.String(), "Title = plane"))
}

func TestRunConvergence(t *testing.T) {
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel})
	var ip InputParameters.InputParametersCut
	require.NoError(t, ip.Parse([]byte(`
Title: Circle
Mesh:
  Cells: [8, 8]
  Min: [-1, -1]
  Max: [1, 1]
LevelSet: "sqrt(x*x + y*y) - 0.6"
Band:
  Lower: -0.5
  Upper: 0.5
  Threshold: 0.1
`)))
	cs, err := RunConvergence(&ip, 3, log)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 16, 32}, cs.Cells)
	assert.Equal(t, []int{8, 8}, ip.Mesh.Cells)
	exact := math.Pi * 0.36
	ordLin := ObservedOrders(cs.NegativeLinear, exact)
	assert.Greater(t, ordLin[2], 1.2)
	for i := range cs.Cells {
		assert.Less(t, math.Abs(cs.NegativeDeformed[i]-exact), math.Abs(cs.NegativeLinear[i]-exact))
	}

	ip.Mesh.File = "circle.neu"
	_, err = RunConvergence(&ip, 2, log)
	assert.Error(t, err)
}
