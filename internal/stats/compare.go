package stats

// Comparison is the full statistical verdict for one variant against control.
type Comparison struct {
	Alpha        float64
	Power        float64
	PValue       PValue
	ControlMean  float64
	MeanDiff     float64 // variant mean minus control mean
	PercentDiff  float64 // (variant - control) / control * 100
	Significance Significance
}

// Compare evaluates variant against control. It reports false when either
// sample has fewer than two observations.
func Compare(control, variant Sample) (Comparison, bool) {
	if control.Len() < 2 || variant.Len() < 2 {
		return Comparison{}, false
	}

	controlMean := control.Mean()
	variantMean := variant.Mean()
	pooled := PooledStdDev(control, variant)

	// Power and percent difference stay zero when either is undefined
	var power, percentDiff float64
	if pd, ok := PercentDiff(controlMean, variantMean); ok && pooled != 0 {
		percentDiff = pd
		power = Power(EffectSize(pd, controlMean, pooled), control.Len(), variant.Len(), Alpha)
	}

	ttest := WelchTTest(control, variant)
	meanDiff := variantMean - controlMean

	reported := -percentDiff * 100
	if percentDiff == 0 {
		reported = 0
	}

	return Comparison{
		Alpha:        Alpha,
		Power:        power,
		PValue:       ttest.P,
		ControlMean:  controlMean,
		MeanDiff:     meanDiff,
		PercentDiff:  reported,
		Significance: Classify(ttest.P, meanDiff, Alpha),
	}, true
}
