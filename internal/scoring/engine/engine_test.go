package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/showcase/internal/config"
	productdomain "github.com/smallbiznis/showcase/internal/product/domain"
	"github.com/smallbiznis/showcase/internal/scoring/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func nullDec(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func maxFeaturedSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Price:                decimal.NewFromInt(80),
		CostPrice:            nullDec("48"),
		StockQuantity:        20,
		CreatedAt:            now,
		ViewCount:            100,
		WhatsAppClickCount:   50,
		LastViewedAt:         ago(0),
		CategoryAveragePrice: nullDec("100"),
	}
}

func TestViewsLastNDays(t *testing.T) {
	cases := []struct {
		name  string
		views int64
		last  *time.Time
		want  int64
	}{
		{name: "never_viewed", views: 40, last: nil, want: 0},
		{name: "capped_at_total", views: 300, last: ago(10 * day), want: 300},
		{name: "same_day", views: 12, last: ago(time.Hour), want: 12},
		{name: "window_edge", views: 9, last: ago(30*day + time.Hour), want: 9},
		{name: "stale", views: 500, last: ago(31 * day), want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ViewsLastNDays(tc.views, tc.last, now, 30))
		})
	}
}

func TestFeaturedScore_MaximumIsExactly100(t *testing.T) {
	score := FeaturedScore(maxFeaturedSnapshot(), now)
	assert.True(t, score.Equal(decimal.NewFromInt(100)), "got %s", score)

	s := maxFeaturedSnapshot()
	s.ViewCount = 100000
	s.WhatsAppClickCount = 100000
	assert.True(t, FeaturedScore(s, now).Equal(decimal.NewFromInt(100)))
}

func TestFeaturedScore_ThresholdBoundary(t *testing.T) {
	e := New(nil)

	s := maxFeaturedSnapshot()
	s.ViewCount = 0
	s.LastViewedAt = nil
	res := e.Score(s, now)
	assert.Equal(t, "70", res.Featured.Score.String())
	assert.True(t, res.Featured.Selected)
	assert.Equal(t, domain.KindComputed, res.Featured.Kind)

	s.WhatsAppClickCount = 49
	res = e.Score(s, now)
	assert.Equal(t, "69.5", res.Featured.Score.String())
	assert.False(t, res.Featured.Selected)
}

func TestFeaturedScore_Tiers(t *testing.T) {
	base := domain.Snapshot{
		Price:         decimal.NewFromInt(100),
		StockQuantity: 0,
		CreatedAt:     now.Add(-100 * day),
	}
	// novelty 2, stock 0, price at own average 7, no cost 5
	assert.Equal(t, "14", FeaturedScore(base, now).String())

	s := base
	s.CreatedAt = now.Add(-(30*day + 23*time.Hour))
	s.StockQuantity = 10
	s.CategoryAveragePrice = nullDec("90")
	s.CostPrice = nullDec("80")
	// novelty 7, stock 10, above average 3, margin 20% gives 4
	assert.Equal(t, "24", FeaturedScore(s, now).String())
}

func TestRecommendationScore(t *testing.T) {
	s := domain.Snapshot{
		Price:          decimal.NewFromInt(100),
		CompareAtPrice: nullDec("130"),
		StockQuantity:  10,
		ViewCount:      100,
		LastViewedAt:   ago(2 * day),
		Peers:          productdomain.PeerStats{Total: 4, HigherViewed: 0},
	}
	// 17.5 engagement, 20 demand, 20 popularity, 12 discount, 10 recency
	assert.Equal(t, "79.5", RecommendationScore(s, now).String())
}

func TestRecommendationScore_RecencyAsymmetry(t *testing.T) {
	never := domain.Snapshot{Price: decimal.NewFromInt(10)}
	assert.Equal(t, "22", RecommendationScore(never, now).String())

	stale := never
	stale.ViewCount = 1
	stale.LastViewedAt = ago(100 * day)
	assert.Equal(t, "17.18", RecommendationScore(stale, now).String())
}

func TestScore_OverridePrecedence(t *testing.T) {
	e := New(nil)

	s := maxFeaturedSnapshot()
	s.Overrides = productdomain.Overrides{ExcludeFromFeatured: true, ForceFeatured: true, ForceRecommended: true}
	res := e.Score(s, now)
	assert.Equal(t, domain.KindExcluded, res.Featured.Kind)
	assert.False(t, res.Featured.Selected)
	assert.True(t, res.Featured.Score.IsZero())
	assert.Equal(t, domain.KindForced, res.Recommended.Kind)
	assert.True(t, res.Recommended.Selected)
	assert.True(t, res.Recommended.Score.Equal(decimal.NewFromInt(100)))

	empty := domain.Snapshot{Price: decimal.NewFromInt(1), Overrides: productdomain.Overrides{ForceFeatured: true}}
	res = e.Score(empty, now)
	assert.Equal(t, domain.KindForced, res.Featured.Kind)
	assert.True(t, res.Featured.Selected)
}

func TestResolve_SkipsComputeWhenOverridden(t *testing.T) {
	called := false
	compute := func() domain.Classification {
		called = true
		return domain.Computed(decimal.NewFromInt(99), decimal.NewFromInt(70))
	}

	domain.Resolve(true, false, compute)
	domain.Resolve(false, true, compute)
	require.False(t, called)

	got := domain.Resolve(false, false, compute)
	assert.True(t, called)
	assert.True(t, got.Selected)
}

func TestScore_UsesConfiguredThresholds(t *testing.T) {
	e := New(config.NewStaticScoringConfig(config.ScoringConfig{FeaturedThreshold: 100, RecommendationThreshold: 0}))

	res := e.Score(maxFeaturedSnapshot(), now)
	assert.True(t, res.Featured.Selected)

	s := maxFeaturedSnapshot()
	s.WhatsAppClickCount = 0
	res = e.Score(s, now)
	assert.False(t, res.Featured.Selected)
	assert.True(t, res.Recommended.Selected)
}

func TestScore_IsDeterministic(t *testing.T) {
	e := New(nil)
	s := maxFeaturedSnapshot()
	s.Peers = productdomain.PeerStats{Total: 10, HigherViewed: 3}

	first := e.Score(s, now).Scores()
	second := e.Score(s, now).Scores()
	assert.True(t, first.Equal(second))
}
