package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Power is the probability that a two-sided independent two-sample t-test
// at level alpha rejects the null hypothesis when the true standardized
// difference is effectSize, given n1 and n2 observations.
//
// Power is symmetric in the sign of effectSize, and equals alpha when
// effectSize is zero.
func Power(effectSize float64, n1, n2 int, alpha float64) float64 {
	if n1 < 2 || n2 < 2 || math.IsNaN(effectSize) || math.IsInf(effectSize, 0) {
		return 0
	}

	df := float64(n1 + n2 - 2)
	nobs := 1 / (1/float64(n1) + 1/float64(n2))
	nc := math.Abs(effectSize) * math.Sqrt(nobs)

	central := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	crit := central.Quantile(1 - alpha/2)

	upper := 1 - nctCDF(crit, df, nc)
	lower := nctCDF(-crit, df, nc)
	return clamp01(upper + lower)
}
