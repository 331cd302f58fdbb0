package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// PValue is a two-tailed p-value. Valid is false when the test statistic
// is undefined, for example when both samples have zero variance.
type PValue struct {
	Value float64
	Valid bool
}

// TTest holds the result of Welch's unequal-variance t-test.
type TTest struct {
	T  float64
	DF float64
	P  PValue
}

// WelchTTest runs a two-sided t-test of a against b without assuming equal
// variances. Degrees of freedom follow Welch–Satterthwaite.
func WelchTTest(a, b Sample) TTest {
	n1, n2 := float64(a.Len()), float64(b.Len())
	if n1 < 2 || n2 < 2 {
		return TTest{T: math.NaN(), DF: math.NaN()}
	}

	v1 := a.Variance() / n1
	v2 := b.Variance() / n2
	se := v1 + v2

	t := (a.Mean() - b.Mean()) / math.Sqrt(se)
	df := se * se / (v1*v1/(n1-1) + v2*v2/(n2-1))

	res := TTest{T: t, DF: df}
	if math.IsNaN(t) || math.IsNaN(df) {
		return res
	}
	if math.IsInf(t, 0) {
		res.P = PValue{Value: 0, Valid: true}
		return res
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	res.P = PValue{Value: math.Min(p, 1), Valid: true}
	return res
}
