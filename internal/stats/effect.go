package stats

import "math"

// PooledStdDev combines the Bessel-corrected variances of both samples,
// weighting each by its degrees of freedom.
func PooledStdDev(control, variant Sample) float64 {
	dfControl := float64(control.Len() - 1)
	dfVariant := float64(variant.Len() - 1)

	sum := control.Variance()*dfControl + variant.Variance()*dfVariant
	return math.Sqrt(sum / (dfControl + dfVariant))
}

// PercentDiff returns (control - variant) / control. It reports false when
// the control mean is zero and the ratio is undefined.
func PercentDiff(controlMean, variantMean float64) (float64, bool) {
	if controlMean == 0 {
		return 0, false
	}
	return (controlMean - variantMean) / controlMean, true
}

// EffectSize expresses the mean difference in units of pooled standard
// deviation: percentDiff * controlMean / pooled.
func EffectSize(percentDiff, controlMean, pooled float64) float64 {
	return percentDiff * controlMean / pooled
}
