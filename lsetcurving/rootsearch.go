package lsetcurving

import (
	"math"
)

// searchSteps is the number of subintervals scanned on each side of zero when bracketing
const searchSteps = 4

/*
bracket scans outward from t=0 on both sides, in steps of tMax/searchSteps, for the sign change
of g nearest to zero. g0 is g(0). Evaluation failures end the scan on that side.
*/
func bracket(g func(t float64) (float64, error), g0, tMax float64) (a, b, ga, gb float64, found bool) {
	var (
		dt          = tMax / searchSteps
		prev        = [2]float64{0, 0}
		gPrev       = [2]float64{g0, g0}
		alive       = [2]bool{true, true}
		directions  = [2]float64{1, -1}
		t, gt       float64
		err         error
		side, steps int
	)
	for steps = 1; steps <= searchSteps; steps++ {
		for side = 0; side < 2; side++ {
			if !alive[side] {
				continue
			}
			t = directions[side] * float64(steps) * dt
			if gt, err = g(t); err != nil {
				alive[side] = false
				continue
			}
			if math.Signbit(gt) != math.Signbit(gPrev[side]) || gt == 0 {
				return prev[side], t, gPrev[side], gt, true
			}
			prev[side], gPrev[side] = t, gt
		}
	}
	return
}

/*
illinois refines a bracketed root of g in [a,b] with the Illinois variant of regula falsi,
stopping when the bracket or the last step is narrower than tol, or g vanishes.
*/
func illinois(g func(t float64) (float64, error), a, b, ga, gb, tol float64, maxIter int) (t float64, err error) {
	var (
		gt    float64
		tPrev = a
	)
	if gb == 0 {
		return b, nil
	}
	for i := 0; i < maxIter; i++ {
		t = (a*gb - b*ga) / (gb - ga)
		if gt, err = g(t); err != nil {
			return
		}
		if gt == 0 || math.Abs(b-a) < tol || math.Abs(t-tPrev) < tol {
			return
		}
		tPrev = t
		if math.Signbit(gt) != math.Signbit(gb) {
			a, ga = b, gb
		} else {
			ga /= 2
		}
		b, gb = t, gt
	}
	return
}
