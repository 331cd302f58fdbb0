package stats

// Significance classifies a variant against control.
type Significance int

const (
	Neutral Significance = iota
	Positive
	Negative
	// Undefined means the p-value could not be computed.
	Undefined
)

func (s Significance) String() string {
	switch s {
	case Positive:
		return "Positive"
	case Negative:
		return "Negative"
	case Undefined:
		return "Undefined"
	default:
		return "Neutral"
	}
}

// ParseSignificance is the inverse of String. Unknown labels parse as Neutral.
func ParseSignificance(label string) Significance {
	switch label {
	case "Positive":
		return Positive
	case "Negative":
		return Negative
	case "Undefined":
		return Undefined
	default:
		return Neutral
	}
}

// Classify labels a comparison from its p-value and the sign of
// variantMean - controlMean.
func Classify(p PValue, meanDiff, alpha float64) Significance {
	if !p.Valid {
		return Undefined
	}
	if p.Value > alpha {
		return Neutral
	}
	switch {
	case meanDiff < 0:
		return Negative
	case meanDiff > 0:
		return Positive
	}
	return Neutral
}
