package InputParameters

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ghodss/yaml"
)

/*
ScalarExpression is a scalar field source as written in the input file. It accepts either a
quoted expression or a bare number; numbers are stored as double literals so that "1" reads as
the expression "1.0".
*/
type ScalarExpression string

func (se *ScalarExpression) UnmarshalJSON(data []byte) (err error) {
	var (
		s string
		v float64
	)
	if err = json.Unmarshal(data, &s); err == nil {
		*se = ScalarExpression(s)
		return
	}
	if err = json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("expression must be a string or a number: %s", data)
	}
	s = strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	*se = ScalarExpression(s)
	return
}

type MeshParameters struct {
	File  string    `yaml:"File"`  // Gambit neutral file, overrides the generator below
	Cells []int     `yaml:"Cells"` // Structured cells per direction
	Min   []float64 `yaml:"Min"`
	Max   []float64 `yaml:"Max"`
}

type BandParameters struct {
	Lower         float64 `yaml:"Lower"`
	Upper         float64 `yaml:"Upper"`
	Threshold     float64 `yaml:"Threshold"`
	SearchFactor  float64 `yaml:"SearchFactor"`
	MaxIterations int     `yaml:"MaxIterations"`
}

type GhostPenaltyParameters struct {
	DiffOrder       int              `yaml:"DiffOrder"` // Zero disables the stabilization
	PolynomialOrder int              `yaml:"PolynomialOrder"`
	LambdaNeg       ScalarExpression `yaml:"LambdaNeg"`
	LambdaPos       ScalarExpression `yaml:"LambdaPos"`
	Delta           ScalarExpression `yaml:"Delta"`
	TimeInterval    []float64        `yaml:"TimeInterval"` // [t_old, t_new] selects the space-time form
}

// Parameters obtained from the YAML input file
type InputParametersCut struct {
	Title            string                 `yaml:"Title"`
	Dimension        int                    `yaml:"Dimension"`
	Mesh             MeshParameters         `yaml:"Mesh"`
	LevelSet         ScalarExpression       `yaml:"LevelSet"`
	LinearLevelSet   ScalarExpression       `yaml:"LinearLevelSet"` // Defaults to the P1 interpolant of LevelSet
	Band             BandParameters         `yaml:"Band"`
	DeformationOrder int                    `yaml:"DeformationOrder"`
	ZeroPolicy       string                 `yaml:"ZeroPolicy"`
	GhostPenalty     GhostPenaltyParameters `yaml:"GhostPenalty"`
	Parallel         int                    `yaml:"Parallel"`
}

func (ip *InputParametersCut) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	ip.setDefaults()
	return ip.Validate()
}

func (ip *InputParametersCut) setDefaults() {
	if ip.Dimension == 0 {
		ip.Dimension = 2
	}
	if ip.DeformationOrder == 0 {
		ip.DeformationOrder = 2
	}
	if len(ip.Mesh.File) == 0 {
		if len(ip.Mesh.Min) == 0 {
			ip.Mesh.Min = make([]float64, ip.Dimension)
		}
		if len(ip.Mesh.Max) == 0 {
			ip.Mesh.Max = make([]float64, ip.Dimension)
			for i := range ip.Mesh.Max {
				ip.Mesh.Max[i] = 1
			}
		}
	}
	gp := &ip.GhostPenalty
	if gp.DiffOrder != 0 {
		if gp.PolynomialOrder == 0 {
			gp.PolynomialOrder = ip.DeformationOrder
		}
		if len(gp.LambdaNeg) == 0 {
			gp.LambdaNeg = "1.0"
		}
		if len(gp.LambdaPos) == 0 {
			gp.LambdaPos = "1.0"
		}
		if len(gp.Delta) == 0 {
			gp.Delta = "1.0"
		}
	}
}

func (ip *InputParametersCut) Validate() (err error) {
	switch {
	case ip.Dimension != 2 && ip.Dimension != 3:
		err = fmt.Errorf("dimension %d, must be 2 or 3", ip.Dimension)
	case len(ip.LevelSet) == 0:
		err = fmt.Errorf("missing LevelSet expression")
	case len(ip.Mesh.File) == 0 && len(ip.Mesh.Cells) != ip.Dimension:
		err = fmt.Errorf("mesh needs a File or %d Cells, have %v", ip.Dimension, ip.Mesh.Cells)
	case len(ip.Mesh.File) == 0 && (len(ip.Mesh.Min) != ip.Dimension || len(ip.Mesh.Max) != ip.Dimension):
		err = fmt.Errorf("mesh Min %v and Max %v must have %d coordinates", ip.Mesh.Min, ip.Mesh.Max, ip.Dimension)
	case ip.DeformationOrder < 1 || ip.DeformationOrder > 2:
		err = fmt.Errorf("deformation order %d, must be 1 or 2", ip.DeformationOrder)
	case ip.GhostPenalty.DiffOrder < 0:
		err = fmt.Errorf("ghost penalty derivative order %d is negative", ip.GhostPenalty.DiffOrder)
	case len(ip.GhostPenalty.TimeInterval) != 0 && len(ip.GhostPenalty.TimeInterval) != 2:
		err = fmt.Errorf("ghost penalty TimeInterval needs [t_old, t_new], have %v", ip.GhostPenalty.TimeInterval)
	}
	for i, c := range ip.Mesh.Cells {
		if c < 1 {
			err = fmt.Errorf("mesh Cells[%d] = %d, must be positive", i, c)
		}
	}
	return
}

func (ip *InputParametersCut) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d]\t\t\t\t= Dimension\n", ip.Dimension)
	if len(ip.Mesh.File) != 0 {
		fmt.Printf("[%s]\t= Mesh File\n", ip.Mesh.File)
	} else {
		fmt.Printf("%v in %v x %v\t= Mesh Cells\n", ip.Mesh.Cells, ip.Mesh.Min, ip.Mesh.Max)
	}
	fmt.Printf("[%s]\t= Level Set\n", ip.LevelSet)
	if len(ip.LinearLevelSet) != 0 {
		fmt.Printf("[%s]\t= Linear Level Set\n", ip.LinearLevelSet)
	}
	fmt.Printf("[%8.5f,%8.5f]\t= Band, Threshold %5.3f\n", ip.Band.Lower, ip.Band.Upper, ip.Band.Threshold)
	fmt.Printf("[%d]\t\t\t\t= Deformation Order\n", ip.DeformationOrder)
	if gp := ip.GhostPenalty; gp.DiffOrder != 0 {
		fmt.Printf("[%d]\t\t\t\t= Ghost Penalty Derivative Order\n", gp.DiffOrder)
		fmt.Printf("[%s, %s, %s]\t= Ghost Penalty Lambdas and Delta\n", gp.LambdaNeg, gp.LambdaPos, gp.Delta)
		if len(gp.TimeInterval) == 2 {
			fmt.Printf("[%g,%g)\t\t= Ghost Penalty Time Interval\n", gp.TimeInterval[0], gp.TimeInterval[1])
		}
	}
}
