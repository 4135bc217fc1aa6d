package lsetcurving

import (
	"fmt"

	"github.com/notargets/gocut/utils"
)

const (
	DefaultSearchFactor  = 1.
	DefaultMaxIterations = 50
	DefaultTolerance     = 1e-12
)

/*
Band selects the nodes that are shifted: those whose linear level set value lies in
[Lower, Upper]. Threshold is the fraction of the band width, at each end, over which the
shift is blended down to zero.
*/
type Band struct {
	Lower, Upper, Threshold float64
}

// Params configures ProjectShift. Zero values of the search settings select the defaults.
type Params struct {
	Band
	SearchFactor  float64 // Search interval half width, in units of the local mesh size
	MaxIterations int
	Tolerance     float64 // Root tolerance, relative to the local mesh size
	Parallel      int
}

func (p Params) withDefaults() Params {
	if p.SearchFactor <= 0 {
		p.SearchFactor = DefaultSearchFactor
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = DefaultMaxIterations
	}
	if p.Tolerance <= 0 {
		p.Tolerance = DefaultTolerance
	}
	return p
}

func (b Band) Validate() (err error) {
	switch {
	case !(b.Upper >= b.Lower):
		err = fmt.Errorf("band upper bound %g is below lower bound %g", b.Upper, b.Lower)
	case b.Threshold < 0 || b.Threshold > 0.5:
		err = fmt.Errorf("band threshold %g outside [0,0.5]", b.Threshold)
	}
	return
}

func (b Band) Contains(phi float64) bool {
	return phi >= b.Lower && phi <= b.Upper
}

// Weight is the blending factor of a shift at linear level set value phi: zero outside the band,
// one away from its ends and a smoothstep ramp across the outer Threshold of the band at each end
func (b Band) Weight(phi float64) float64 {
	if !b.Contains(phi) {
		return 0
	}
	ramp := b.Threshold * (b.Upper - b.Lower)
	if ramp <= 0 {
		return 1
	}
	return utils.SmoothStep((phi-b.Lower)/ramp) * utils.SmoothStep((b.Upper-phi)/ramp)
}
