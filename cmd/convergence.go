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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/notargets/gocut/InputParameters"
	"github.com/notargets/gocut/logger"
)

// ConvergenceStudy holds the negative domain measures of a sequence of uniformly refined meshes
type ConvergenceStudy struct {
	Title            string
	Cells            []int // Cells in the first direction at each level
	NegativeLinear   []float64
	NegativeDeformed []float64
}

func NewConvergenceStudy(title string) *ConvergenceStudy {
	return &ConvergenceStudy{Title: title}
}

func (cs *ConvergenceStudy) Add(cells int, negLinear, negDeformed float64) {
	cs.Cells = append(cs.Cells, cells)
	cs.NegativeLinear = append(cs.NegativeLinear, negLinear)
	cs.NegativeDeformed = append(cs.NegativeDeformed, negDeformed)
}

/*
ObservedOrders estimates the convergence order at each interior level of a sequence computed
on meshes halved at each level. With a known limit, order = log2(e[i-1]/e[i]) with e the error
against it; without one (exact is NaN), the Richardson estimate log2(|v[i-1]-v[i]| / |v[i]-v[i+1]|).
Levels without an estimate are NaN.
*/
func ObservedOrders(vals []float64, exact float64) (orders []float64) {
	orders = make([]float64, len(vals))
	for i := range orders {
		orders[i] = math.NaN()
	}
	if !math.IsNaN(exact) {
		for i := 1; i < len(vals); i++ {
			orders[i] = math.Log2(math.Abs(vals[i-1]-exact) / math.Abs(vals[i]-exact))
		}
		return
	}
	for i := 1; i < len(vals)-1; i++ {
		orders[i] = math.Log2(math.Abs(vals[i-1]-vals[i]) / math.Abs(vals[i]-vals[i+1]))
	}
	return
}

func (cs *ConvergenceStudy) WriteCSV(w io.Writer) (err error) {
	cw := csv.NewWriter(w)
	if err = cw.Write([]string{"Title", "Cells", "NegativeLinear", "NegativeDeformed"}); err != nil {
		return
	}
	for i := range cs.Cells {
		if err = cw.Write([]string{cs.Title, strconv.Itoa(cs.Cells[i]),
			strconv.FormatFloat(cs.NegativeLinear[i], 'g', -1, 64),
			strconv.FormatFloat(cs.NegativeDeformed[i], 'g', -1, 64)}); err != nil {
			return
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadConvergenceCSV reads studies written by WriteCSV, keyed by title
func ReadConvergenceCSV(r io.Reader) (studies map[string]*ConvergenceStudy, err error) {
	var (
		records [][]string
		ok      bool
		cs      *ConvergenceStudy
	)
	studies = make(map[string]*ConvergenceStudy)
	if records, err = csv.NewReader(r).ReadAll(); err != nil {
		return
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) != 4 {
			return nil, fmt.Errorf("line %d: have %d fields, need 4", i+1, len(rec))
		}
		var (
			cells      int
			neg, negDf float64
		)
		if cells, err = strconv.Atoi(rec[1]); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if neg, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if negDf, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if cs, ok = studies[rec[0]]; !ok {
			cs = NewConvergenceStudy(rec[0])
			studies[rec[0]] = cs
		}
		cs.Add(cells, neg, negDf)
	}
	return
}

// RunConvergence runs RunCut on levels meshes, doubling the cells in each direction at each level
func RunConvergence(ip *InputParameters.InputParametersCut, levels int, log logger.Logger) (cs *ConvergenceStudy, err error) {
	if len(ip.Mesh.File) != 0 {
		return nil, fmt.Errorf("convergence studies refine generated meshes, not %s", ip.Mesh.File)
	}
	var (
		level  = *ip
		cells0 = append([]int(nil), ip.Mesh.Cells...)
	)
	level.Mesh.Cells = make([]int, len(cells0))
	cs = NewConvergenceStudy(ip.Title)
	for l := 0; l < levels; l++ {
		for i, c := range cells0 {
			level.Mesh.Cells[i] = c << l
		}
		var sum CutSummary
		if sum, err = RunCut(&level, log.With("level", l)); err != nil {
			return nil, fmt.Errorf("level %d: %w", l, err)
		}
		cs.Add(level.Mesh.Cells[0], sum.NegativeLinear, sum.NegativeDeformed)
	}
	return
}

// ConvergenceCmd represents the convergence command
var ConvergenceCmd = &cobra.Command{
	Use:   "convergence",
	Short: "Refine the generated mesh and report the convergence of the negative domain measure",
	Long: `
Runs the cut pipeline on a sequence of uniformly refined meshes and prints the
observed convergence order of the negative domain measure, with and without the
geometry correction.

gocut convergence -I input.yml -l 4 [--exact 1.1309733] [--csvFile study.csv]`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			mc     = &ModelCut{}
			ip     *InputParameters.InputParametersCut
			cs     *ConvergenceStudy
			levels int
			exact  float64
			csvOut string
		)
		if mc.InputFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return
		}
		levels, _ = cmd.Flags().GetInt("levels")
		exact, _ = cmd.Flags().GetFloat64("exact")
		csvOut, _ = cmd.Flags().GetString("csvFile")
		if !cmd.Flags().Changed("exact") {
			exact = math.NaN()
		}
		if ip, err = processCutInput(mc); err != nil {
			return
		}
		if cs, err = RunConvergence(ip, levels, logger.Default()); err != nil {
			return
		}
		cs.Print(os.Stdout, exact)
		if len(csvOut) != 0 {
			var f *os.File
			if f, err = os.Create(csvOut); err != nil {
				return
			}
			defer f.Close()
			err = cs.WriteCSV(f)
		}
		return
	},
}

func (cs *ConvergenceStudy) Print(w io.Writer, exact float64) {
	var (
		ordLin = ObservedOrders(cs.NegativeLinear, exact)
		ordDef = ObservedOrders(cs.NegativeDeformed, exact)
	)
	fmt.Fprintf(w, "Title = %s\n", cs.Title)
	fmt.Fprintf(w, "%8s %22s %8s %22s %8s\n", "Cells", "Linear", "Order", "Deformed", "Order")
	for i := range cs.Cells {
		fmt.Fprintf(w, "%8d %22.15g %8.3f %22.15g %8.3f\n",
			cs.Cells[i], cs.NegativeLinear[i], ordLin[i], cs.NegativeDeformed[i], ordDef[i])
	}
}

func init() {
	rootCmd.AddCommand(ConvergenceCmd)
	ConvergenceCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters, with a generated mesh")
	ConvergenceCmd.Flags().IntP("levels", "l", 3, "number of refinement levels")
	ConvergenceCmd.Flags().Float64("exact", 0, "exact measure of the negative domain, Richardson estimates when absent")
	ConvergenceCmd.Flags().String("csvFile", "", "file to write the study to")
}
