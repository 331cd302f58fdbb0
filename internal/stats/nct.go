package stats

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	nctErrMax  = 1e-12
	nctItrMax  = 1000
	nctLambdaZ = 1400 // beyond this the Poisson weights underflow
)

var (
	r2pi   = math.Sqrt(2 / math.Pi)
	alnrpi = 0.5 * math.Log(math.Pi)
)

// nctCDF is the cumulative distribution of a noncentral t variable with df
// degrees of freedom and noncentrality delta, evaluated at t. It sums the
// Poisson-weighted incomplete beta series of Lenth (AS 243).
func nctCDF(t, df, delta float64) float64 {
	if math.IsNaN(t) || math.IsNaN(df) || math.IsNaN(delta) || df <= 0 {
		return math.NaN()
	}
	if math.IsInf(t, 1) {
		return 1
	}
	if math.IsInf(t, -1) {
		return 0
	}

	tt, del := t, delta
	negdel := false
	if t < 0 {
		negdel = true
		tt, del = -t, -delta
	}

	lambda := del * del
	if lambda > nctLambdaZ {
		// Abramowitz and Stegun 26.7.10
		z := (tt*(1-1/(4*df)) - del) / math.Sqrt(1+tt*tt/(2*df))
		return flip(distuv.UnitNormal.CDF(z), negdel)
	}

	var tnc float64
	if tt > 0 {
		x := tt * tt / (tt*tt + df)
		p := 0.5 * math.Exp(-0.5*lambda)
		q := r2pi * p * del
		s := 0.5 - p
		a := 0.5
		b := 0.5 * df
		rxb := math.Pow(1-x, b)

		lgb, _ := math.Lgamma(b)
		lgab, _ := math.Lgamma(a + b)
		albeta := alnrpi + lgb - lgab

		xodd := mathext.RegIncBeta(a, b, x)
		godd := 2 * rxb * math.Exp(a*math.Log(x)-albeta)
		xeven := 1 - rxb
		geven := b * x * rxb
		tnc = p*xodd + q*xeven

		for en := 1.0; ; en++ {
			a++
			xodd -= godd
			xeven -= geven
			godd *= x * (a + b - 1) / a
			geven *= x * (a + b - 0.5) / (a + 0.5)
			p *= lambda / (2 * en)
			q *= lambda / (2*en + 1)
			s -= p
			tnc += p*xodd + q*xeven

			errbd := 2 * s * (xodd - godd)
			if errbd <= nctErrMax || en >= nctItrMax {
				break
			}
		}
	}

	tnc += distuv.UnitNormal.Survival(del)
	return flip(clamp01(tnc), negdel)
}

func flip(p float64, negate bool) float64 {
	if negate {
		return 1 - p
	}
	return p
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
