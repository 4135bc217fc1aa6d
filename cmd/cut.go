/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/bits-and-blooms/bitset"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gocut/InputParameters"
	"github.com/notargets/gocut/cutinfo"
	"github.com/notargets/gocut/fem"
	"github.com/notargets/gocut/field"
	"github.com/notargets/gocut/ghostpenalty"
	"github.com/notargets/gocut/logger"
	"github.com/notargets/gocut/lsetcurving"
	"github.com/notargets/gocut/mesh"
)

type ModelCut struct {
	MeshFile  string
	InputFile string
}

// CutSummary collects the results of one cut run
type CutSummary struct {
	Elements         map[cutinfo.DomainType]int
	Facets           map[cutinfo.DomainType]int
	BandNodes        int
	ShiftedNodes     int
	DivergedNodes    int
	MaxDeformation   float64
	NegativeLinear   float64 // Measure of the negative domain of the linear level set
	NegativeDeformed float64 // Same, on the deformed mesh
	GhostFacets      int
	GhostNNZ         int
}

// CutCmd represents the cut command
var CutCmd = &cobra.Command{
	Use:   "cut",
	Short: "Classify, curve and stabilize a mesh cut by a level set",
	Long: `
Reads a mesh (or generates a structured one), classifies its entities against the
level set, computes the isoparametric deformation that moves the linear interface
onto the high order level set, and assembles the ghost penalty matrix on the
facets of cut elements.

gocut cut -I input.yml [-F mesh.neu]`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			mc = &ModelCut{}
			ip *InputParameters.InputParametersCut
		)
		if mc.InputFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return
		}
		if mc.MeshFile, err = cmd.Flags().GetString("gridFile"); err != nil {
			return
		}
		if ip, err = processCutInput(mc); err != nil {
			return
		}
		ip.Print()
		_, err = RunCut(ip, logger.Default())
		return
	},
}

func processCutInput(mc *ModelCut) (ip *InputParameters.InputParametersCut, err error) {
	if len(mc.InputFile) == 0 {
		exampleFile := `
########################################
Title: "Circle"
Dimension: 2
Mesh:
  Cells: [32, 32]
  Min: [-1, -1]
  Max: [1, 1]
LevelSet: "sqrt(x*x + y*y) - 0.5"
Band:
  Lower: -0.1
  Upper: 0.1
  Threshold: 0.25
DeformationOrder: 2
ZeroPolicy: neutral # Can be "interface"
GhostPenalty:
  DiffOrder: 1
  Delta: 0.1
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
	}
	var data []byte
	if data, err = os.ReadFile(mc.InputFile); err != nil {
		return
	}
	ip = &InputParameters.InputParametersCut{}
	if len(mc.MeshFile) != 0 {
		ip.Mesh.File = mc.MeshFile
	}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", mc.InputFile, err)
	}
	if len(mc.MeshFile) != 0 {
		ip.Mesh.File = mc.MeshFile
	}
	return
}

func init() {
	rootCmd.AddCommand(CutCmd)
	CutCmd.Flags().StringP("gridFile", "F", "", "Grid file to read in Gambit (.neu) format, overrides the input file mesh")
	CutCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- LevelSet\n\t- Band\n\t- GhostPenalty")
}

func buildMesh(ip *InputParameters.InputParametersCut) (*mesh.Mesh, error) {
	mp := ip.Mesh
	if len(mp.File) != 0 {
		return mesh.ReadMeshFile(mp.File)
	}
	if ip.Dimension == 2 {
		return mesh.NewRectangle(mp.Cells[0], mp.Cells[1],
			[2]float64{mp.Min[0], mp.Min[1]}, [2]float64{mp.Max[0], mp.Max[1]})
	}
	return mesh.NewBox([3]int{mp.Cells[0], mp.Cells[1], mp.Cells[2]},
		[3]float64{mp.Min[0], mp.Min[1], mp.Min[2]}, [3]float64{mp.Max[0], mp.Max[1], mp.Max[2]})
}

// bindExpression binds a parsed expression at time t when it depends on time
func bindExpression(src InputParameters.ScalarExpression, t float64, log logger.Logger) (ev field.Evaluator, err error) {
	var (
		ex *field.Expression
		b  = field.Independent()
	)
	if ex, err = field.NewExpression(string(src)); err != nil {
		return
	}
	if ex.UsesTime() {
		b = field.FixedAt(t)
	}
	return field.Bind(ex, b, field.WithLogger(log))
}

// RunCut runs classification, geometry correction and ghost penalty assembly for ip
func RunCut(ip *InputParameters.InputParametersCut, log logger.Logger) (sum CutSummary, err error) {
	var (
		m              *mesh.Mesh
		sp1, spDef     *fem.H1Space
		levelset       field.Evaluator
		linear, hi     field.Evaluator
		interp         *field.Interpolant
		zp             cutinfo.ZeroPolicy
		rep            lsetcurving.ShiftReport
		t0             float64
		gpParams       = ip.GhostPenalty
		boxMin, boxMax []float64
	)
	if len(gpParams.TimeInterval) == 2 {
		t0 = gpParams.TimeInterval[0]
	}
	if m, err = buildMesh(ip); err != nil {
		return
	}
	log.Info("mesh", m.Statistics()...)
	if zp, err = cutinfo.ParseZeroPolicy(ip.ZeroPolicy); err != nil {
		return
	}
	if levelset, err = bindExpression(ip.LevelSet, t0, log); err != nil {
		return
	}
	if sp1, err = fem.NewH1Space(m, 1); err != nil {
		return
	}
	if len(ip.LinearLevelSet) != 0 {
		if linear, err = bindExpression(ip.LinearLevelSet, t0, log); err != nil {
			return
		}
	} else {
		if interp, err = field.Interpolate(sp1, levelset); err != nil {
			return
		}
		if linear, err = field.Bind(interp, field.Independent(), field.WithLogger(log)); err != nil {
			return
		}
	}

	ci := cutinfo.NewCutInformation(m,
		cutinfo.WithZeroPolicy(zp), cutinfo.WithParallelDegree(ip.Parallel), cutinfo.WithLogger(log))
	if err = ci.Update(linear); err != nil {
		return
	}
	sum.Elements = make(map[cutinfo.DomainType]int)
	sum.Facets = make(map[cutinfo.DomainType]int)
	for _, dt := range cutinfo.AllDomainTypes {
		sum.Elements[dt] = int(ci.GetElementsOfDomainType(dt, cutinfo.Volume).Count())
		sum.Facets[dt] = int(ci.GetFacetsOfDomainType(dt).Count())
	}
	log.Info("classified", "neg", sum.Elements[cutinfo.NEG], "pos", sum.Elements[cutinfo.POS], "if", sum.Elements[cutinfo.IF])

	// Geometry correction
	if spDef, err = fem.NewH1Space(m, ip.DeformationOrder); err != nil {
		return
	}
	if interp, err = field.Interpolate(spDef, levelset); err != nil {
		return
	}
	if hi, err = field.Bind(interp, field.Independent(), field.WithLogger(log)); err != nil {
		return
	}
	boxMin, boxMax = m.BoundingBox()
	floats.Sub(boxMax, boxMin)
	direction := field.NormalizedGradient{Field: levelset, Step: 1e-6 * floats.Norm(boxMax, 2)}
	deform := lsetcurving.NewDeformation(spDef)
	params := lsetcurving.Params{
		Band: lsetcurving.Band{
			Lower: ip.Band.Lower, Upper: ip.Band.Upper, Threshold: ip.Band.Threshold,
		},
		SearchFactor:  ip.Band.SearchFactor,
		MaxIterations: ip.Band.MaxIterations,
		Parallel:      ip.Parallel,
	}
	if rep, err = lsetcurving.ProjectShift(hi, linear, direction, deform, params, lsetcurving.WithLogger(log)); err != nil {
		return
	}
	if softErr := rep.Err(); softErr != nil {
		log.Warn("geometry correction incomplete", "err", softErr)
	}
	sum.BandNodes, sum.ShiftedNodes, sum.DivergedNodes = len(rep.InBand), len(rep.Shifted), len(rep.Diverged)
	sum.MaxDeformation = deform.MaxNorm()
	if sum.NegativeLinear, err = lsetcurving.NegativeMeasure(lsetcurving.NewDeformation(spDef), ci.VertexValues(), ip.Parallel); err != nil {
		return
	}
	if sum.NegativeDeformed, err = lsetcurving.NegativeMeasure(deform, ci.VertexValues(), ip.Parallel); err != nil {
		return
	}
	log.Info("deformed", "band", sum.BandNodes, "shifted", sum.ShiftedNodes, "diverged", sum.DivergedNodes,
		"max", sum.MaxDeformation, "neg_linear", sum.NegativeLinear, "neg_deformed", sum.NegativeDeformed)

	if gpParams.DiffOrder == 0 {
		return
	}
	err = runGhostPenalty(ip, m, ci, t0, log, &sum)
	return
}

func runGhostPenalty(ip *InputParameters.InputParametersCut, m *mesh.Mesh, ci *cutinfo.CutInformation, t0 float64,
	log logger.Logger, sum *CutSummary) (err error) {
	var (
		gpParams = ip.GhostPenalty
		coefs    []field.Evaluator
		sp       *fem.H1Space
		gp       *ghostpenalty.Integrator
	)
	for _, src := range []InputParameters.ScalarExpression{gpParams.LambdaNeg, gpParams.LambdaPos} {
		var ev field.Evaluator
		if ev, err = bindExpression(src, t0, log); err != nil {
			return
		}
		coefs = append(coefs, ev)
	}
	if len(gpParams.TimeInterval) == 2 {
		coefs = append(coefs, field.Const(gpParams.TimeInterval[0]), field.Const(gpParams.TimeInterval[1]))
	}
	delta, err := bindExpression(gpParams.Delta, t0, log)
	if err != nil {
		return
	}
	coefs = append(coefs, delta)
	if gp, err = ghostpenalty.NewIntegrator(m.Dim, gpParams.PolynomialOrder, gpParams.DiffOrder, coefs,
		ghostpenalty.WithLogger(log)); err != nil {
		return
	}
	if sp, err = fem.NewH1Space(m, gpParams.PolynomialOrder); err != nil {
		return
	}
	// Facets between a cut element and any element
	var (
		cut = ci.GetElementsOfDomainType(cutinfo.IF, cutinfo.Volume)
		all = bitset.New(uint(m.NumElements)).Complement()
	)
	facets := ci.GetFacetsWithNeighborTypes(cut, all, false, false, true)
	A, err := gp.Assemble(sp, facets, ip.Parallel)
	if err != nil {
		return
	}
	sum.GhostFacets, sum.GhostNNZ = int(facets.Count()), A.NNZ()
	log.Info("ghost penalty", "facets", sum.GhostFacets, "dofs", 2*sp.Ndof(), "nnz", sum.GhostNNZ,
		"time_scale", gp.TimeScale())
	return
}
