package domain

import "github.com/shopspring/decimal"

type Kind int

const (
	KindComputed Kind = iota
	KindForced
	KindExcluded
)

func (k Kind) String() string {
	switch k {
	case KindExcluded:
		return "excluded"
	case KindForced:
		return "forced"
	default:
		return "computed"
	}
}

var (
	MinScore = decimal.Zero
	MaxScore = decimal.NewFromInt(100)
)

// Classification is the outcome of one score type. Excluded always carries
// score 0 and Forced always carries score 100.
type Classification struct {
	Kind     Kind
	Selected bool
	Score    decimal.Decimal
}

func Excluded() Classification {
	return Classification{Kind: KindExcluded, Selected: false, Score: MinScore}
}

func Forced() Classification {
	return Classification{Kind: KindForced, Selected: true, Score: MaxScore}
}

func Computed(score decimal.Decimal, threshold decimal.Decimal) Classification {
	score = score.Round(2)
	return Classification{Kind: KindComputed, Selected: score.GreaterThanOrEqual(threshold), Score: score}
}

// Resolve applies the override precedence: exclusion, then force, then compute.
// compute is not invoked when an override decides the outcome.
func Resolve(exclude, force bool, compute func() Classification) Classification {
	switch {
	case exclude:
		return Excluded()
	case force:
		return Forced()
	default:
		return compute()
	}
}
