package engine

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/showcase/internal/config"
	"github.com/smallbiznis/showcase/internal/scoring/domain"
)

const (
	ViewWindowDays = 30
	day            = 24 * time.Hour
)

var (
	hundred = decimal.NewFromInt(100)

	featuredViewsWeight  = decimal.NewFromInt(30)
	featuredClicksWeight = decimal.NewFromInt(25)
	featuredViewsTarget  = decimal.NewFromInt(100)
	featuredClicksTarget = decimal.NewFromInt(50)

	engagementWeight = decimal.NewFromInt(35)
	engagementTarget = decimal.NewFromInt(200)

	cheapRatio = decimal.RequireFromString("0.8")
)

// Engine computes featured and recommendation classifications from a snapshot.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	thresholds *config.ScoringConfigHolder
}

func New(thresholds *config.ScoringConfigHolder) *Engine {
	if thresholds == nil {
		thresholds = config.NewStaticScoringConfig(config.DefaultScoringConfig())
	}
	return &Engine{thresholds: thresholds}
}

func (e *Engine) Score(s domain.Snapshot, now time.Time) domain.Result {
	cfg := e.thresholds.Get()
	return domain.Result{
		Featured: domain.Resolve(s.Overrides.ExcludeFromFeatured, s.Overrides.ForceFeatured, func() domain.Classification {
			return domain.Computed(FeaturedScore(s, now), decimal.NewFromFloat(cfg.FeaturedThreshold))
		}),
		Recommended: domain.Resolve(s.Overrides.ExcludeFromRecommended, s.Overrides.ForceRecommended, func() domain.Classification {
			return domain.Computed(RecommendationScore(s, now), decimal.NewFromFloat(cfg.RecommendationThreshold))
		}),
	}
}

// daysSince counts whole elapsed days, truncated toward zero.
func daysSince(now, t time.Time) int64 {
	return int64(now.Sub(t) / day)
}

// ViewsLastNDays extrapolates recent views from the lifetime counter and the
// last view time. The estimate is truncated and never exceeds viewCount.
func ViewsLastNDays(viewCount int64, lastViewedAt *time.Time, now time.Time, n int64) int64 {
	if lastViewedAt == nil {
		return 0
	}
	days := daysSince(now, *lastViewedAt)
	if days > n {
		return 0
	}
	estimate := viewCount * n / max(days, 1)
	return min(estimate, viewCount)
}

func capped(value, target, weight decimal.Decimal) decimal.Decimal {
	return decimal.Min(value.Div(target).Mul(weight), weight)
}

func FeaturedScore(s domain.Snapshot, now time.Time) decimal.Decimal {
	views := ViewsLastNDays(s.ViewCount, s.LastViewedAt, now, ViewWindowDays)

	score := capped(decimal.NewFromInt(views), featuredViewsTarget, featuredViewsWeight)
	score = score.Add(capped(decimal.NewFromInt(s.WhatsAppClickCount), featuredClicksTarget, featuredClicksWeight))
	score = score.Add(decimal.NewFromInt(noveltyPoints(daysSince(now, s.CreatedAt))))
	score = score.Add(decimal.NewFromInt(stockPoints(s.StockQuantity)))
	score = score.Add(decimal.NewFromInt(pricePoints(s.Price, s.CategoryAveragePrice)))
	score = score.Add(decimal.NewFromInt(marginPoints(s.Price, s.CostPrice)))
	return score.Round(2)
}

func noveltyPoints(ageDays int64) int64 {
	switch {
	case ageDays <= 7:
		return 10
	case ageDays <= 30:
		return 7
	case ageDays <= 90:
		return 5
	default:
		return 2
	}
}

func stockPoints(stock int) int64 {
	switch {
	case stock >= 20:
		return 15
	case stock >= 10:
		return 10
	case stock > 0:
		return 5
	default:
		return 0
	}
}

// pricePoints falls back to the product's own price when the category has no
// active in-stock products.
func pricePoints(price decimal.Decimal, avg decimal.NullDecimal) int64 {
	average := price
	if avg.Valid {
		average = avg.Decimal
	}
	switch {
	case price.LessThanOrEqual(average.Mul(cheapRatio)):
		return 10
	case price.LessThanOrEqual(average):
		return 7
	default:
		return 3
	}
}

func marginPoints(price decimal.Decimal, cost decimal.NullDecimal) int64 {
	if !cost.Valid || !cost.Decimal.IsPositive() || !price.IsPositive() {
		return 5
	}
	margin := price.Sub(cost.Decimal).Div(price).Mul(hundred)
	switch {
	case margin.GreaterThanOrEqual(decimal.NewFromInt(40)):
		return 10
	case margin.GreaterThanOrEqual(decimal.NewFromInt(25)):
		return 7
	case margin.GreaterThanOrEqual(decimal.NewFromInt(15)):
		return 4
	default:
		return 0
	}
}

func RecommendationScore(s domain.Snapshot, now time.Time) decimal.Decimal {
	engagement := s.ViewCount + s.WhatsAppClickCount*3

	score := capped(decimal.NewFromInt(engagement), engagementTarget, engagementWeight)
	score = score.Add(decimal.NewFromInt(demandPoints(s.ViewCount, s.StockQuantity)))
	score = score.Add(decimal.NewFromInt(popularityPoints(s.Peers.Total, s.Peers.HigherViewed)))
	score = score.Add(decimal.NewFromInt(discountPoints(s.Price, s.CompareAtPrice)))
	score = score.Add(decimal.NewFromInt(recencyPoints(s.LastViewedAt, now)))
	return score.Round(2)
}

func demandPoints(views int64, stock int) int64 {
	if stock <= 0 {
		return 0
	}
	if views == 0 {
		return 5
	}
	ratio := decimal.NewFromInt(views).Div(decimal.NewFromInt(int64(stock)))
	switch {
	case ratio.GreaterThanOrEqual(decimal.NewFromInt(5)):
		return 20
	case ratio.GreaterThanOrEqual(decimal.NewFromInt(2)):
		return 15
	default:
		return 10
	}
}

func popularityPoints(total, higher int64) int64 {
	if total <= 0 {
		return 10
	}
	above := decimal.NewFromInt(higher).Div(decimal.NewFromInt(total))
	percentile := decimal.NewFromInt(1).Sub(above).Mul(hundred)
	switch {
	case percentile.GreaterThanOrEqual(decimal.NewFromInt(80)):
		return 20
	case percentile.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return 15
	case percentile.GreaterThanOrEqual(decimal.NewFromInt(30)):
		return 10
	default:
		return 5
	}
}

func discountPoints(price decimal.Decimal, compareAt decimal.NullDecimal) int64 {
	if !compareAt.Valid || !compareAt.Decimal.GreaterThan(price) {
		return 7
	}
	pct := compareAt.Decimal.Sub(price).Div(compareAt.Decimal).Mul(hundred)
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(30)):
		return 15
	case pct.GreaterThanOrEqual(decimal.NewFromInt(15)):
		return 12
	default:
		return 8
	}
}

// recencyPoints gives a never-viewed product 5 points while a product last
// viewed more than 90 days ago gets 0.
func recencyPoints(lastViewedAt *time.Time, now time.Time) int64 {
	if lastViewedAt == nil {
		return 5
	}
	switch days := daysSince(now, *lastViewedAt); {
	case days <= 7:
		return 10
	case days <= 30:
		return 7
	case days <= 90:
		return 4
	default:
		return 0
	}
}
