package pricing

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/showcase/internal/promotion/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newEngine() *Engine {
	return NewEngine(zap.NewNop(), nil)
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func value(v string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(v)) }

func promo(id int64, t domain.Type, v string, stackable bool) *domain.Promotion {
	p := &domain.Promotion{
		ID:           snowflake.ID(id),
		Name:         "promo",
		Type:         t,
		AppliesToAll: true,
		Active:       true,
		IsStackable:  stackable,
	}
	if v != "" {
		p.Value = value(v)
	}
	return p
}

func candidates(promos ...*domain.Promotion) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(promos))
	for _, p := range promos {
		out = append(out, domain.Candidate{Promotion: p})
	}
	return out
}

func item(price string) domain.Item {
	return domain.Item{
		ProductID:    snowflake.ID(10),
		Price:        dec(price),
		CategoryPath: []snowflake.ID{300, 200, 100},
	}
}

func TestAppliesToProduct(t *testing.T) {
	it := item("10")

	all := promo(1, domain.TypePercent, "10", false)
	assert.True(t, AppliesToProduct(all, it))

	direct := promo(2, domain.TypePercent, "10", false)
	direct.AppliesToAll = false
	direct.ProductIDs = []snowflake.ID{10}
	assert.True(t, AppliesToProduct(direct, it))

	ancestor := promo(3, domain.TypePercent, "10", false)
	ancestor.AppliesToAll = false
	ancestor.CategoryIDs = []snowflake.ID{100}
	assert.True(t, AppliesToProduct(ancestor, it))

	unrelated := promo(4, domain.TypePercent, "10", false)
	unrelated.AppliesToAll = false
	unrelated.CategoryIDs = []snowflake.ID{999}
	unrelated.ProductIDs = []snowflake.ID{11}
	assert.False(t, AppliesToProduct(unrelated, it))

	inactive := promo(5, domain.TypePercent, "10", false)
	inactive.Active = false
	assert.False(t, AppliesToProduct(inactive, it))
	assert.False(t, AppliesToProduct(nil, it))
}

func TestIsActiveAt(t *testing.T) {
	p := promo(1, domain.TypePercent, "10", false)
	assert.True(t, IsActiveAt(p, now, 0))

	start := now.Add(time.Hour)
	p.StartAt = &start
	assert.False(t, IsActiveAt(p, now, 0))
	assert.True(t, IsActiveAt(p, start, 0))

	p.StartAt = nil
	end := now.Add(-time.Hour)
	p.EndAt = &end
	assert.False(t, IsActiveAt(p, now, 0))
	assert.True(t, IsActiveAt(p, end, 0))

	p.EndAt = nil
	limit := int64(3)
	p.UsageLimit = &limit
	assert.True(t, IsActiveAt(p, now, 2))
	assert.False(t, IsActiveAt(p, now, 3))

	p.UsageLimit = nil
	p.Active = false
	assert.False(t, IsActiveAt(p, now, 0))
}

func TestComputeDiscount_PerType(t *testing.T) {
	e := newEngine()
	it := item("100")

	cases := []struct {
		name      string
		promotion *domain.Promotion
		quantity  int
		total     string
		final     string
	}{
		{name: "percent", promotion: promo(1, domain.TypePercent, "15", false), quantity: 2, total: "30.00", final: "85.00"},
		{name: "amount", promotion: promo(2, domain.TypeAmount, "30", false), quantity: 3, total: "90.00", final: "70.00"},
		{name: "amount_clamped", promotion: promo(3, domain.TypeAmount, "150", false), quantity: 1, total: "100.00", final: "0.00"},
		{name: "set_price", promotion: promo(4, domain.TypeSetPrice, "60", false), quantity: 2, total: "80.00", final: "60.00"},
		{name: "set_price_above", promotion: promo(5, domain.TypeSetPrice, "120", false), quantity: 2, total: "0.00", final: "120.00"},
		{name: "zero_quantity", promotion: promo(6, domain.TypePercent, "10", false), quantity: 0, total: "10.00", final: "90.00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := e.ComputeDiscount(domain.Candidate{Promotion: tc.promotion}, it, tc.quantity, now)
			assert.Equal(t, tc.total, d.Total.StringFixed(2))
			assert.Equal(t, tc.final, d.FinalUnit.StringFixed(2))
		})
	}
}

func TestComputeDiscount_BuyXGetY(t *testing.T) {
	p := promo(1, domain.TypeBuyXGetY, "", false)
	p.BuyX = 2
	p.GetY = 1

	d := newEngine().ComputeDiscount(domain.Candidate{Promotion: p}, item("50"), 9, now)
	assert.Equal(t, "150.00", d.Total.StringFixed(2))
	assert.Equal(t, "50.00", d.FinalUnit.StringFixed(2))

	d = newEngine().ComputeDiscount(domain.Candidate{Promotion: p}, item("50"), 2, now)
	assert.True(t, d.Total.IsZero())
}

func TestComputeDiscount_RoundsOnceAtTheEnd(t *testing.T) {
	// rounding the unit price first would give 7 x 0.33 = 2.31
	p := promo(1, domain.TypePercent, "33.5", false)
	d := newEngine().ComputeDiscount(domain.Candidate{Promotion: p}, item("1.00"), 7, now)
	assert.Equal(t, "2.35", d.Total.StringFixed(2))
	assert.Equal(t, "0.67", d.FinalUnit.StringFixed(2))
}

func TestComputeDiscount_NotApplicableOrInactive(t *testing.T) {
	e := newEngine()
	it := item("80")

	targeted := promo(1, domain.TypePercent, "50", false)
	targeted.AppliesToAll = false
	d := e.ComputeDiscount(domain.Candidate{Promotion: targeted}, it, 1, now)
	assert.True(t, d.Total.IsZero())
	assert.True(t, d.FinalUnit.Equal(it.Price))

	limit := int64(1)
	exhausted := promo(2, domain.TypePercent, "50", false)
	exhausted.UsageLimit = &limit
	d = e.ComputeDiscount(domain.Candidate{Promotion: exhausted, UsageTotal: 1}, it, 1, now)
	assert.True(t, d.FinalUnit.Equal(it.Price))
}

func TestComputeDiscount_MalformedValuesDoNotApply(t *testing.T) {
	e := newEngine()
	it := item("80")

	for _, p := range []*domain.Promotion{
		promo(1, domain.TypePercent, "140", false),
		promo(2, domain.TypePercent, "", false),
		promo(3, domain.TypeAmount, "-5", false),
		promo(4, domain.TypeBuyXGetY, "", false),
		promo(5, domain.Type("mystery"), "10", false),
	} {
		d := e.ComputeDiscount(domain.Candidate{Promotion: p}, it, 1, now)
		assert.True(t, d.Total.IsZero(), "promotion %d", p.ID)
		assert.True(t, d.FinalUnit.Equal(it.Price), "promotion %d", p.ID)
	}
}

func TestBest_LowestFinalPriceWithStableTieBreak(t *testing.T) {
	e := newEngine()
	it := item("100")

	best := e.Best(candidates(
		promo(30, domain.TypeAmount, "20", false),
		promo(20, domain.TypePercent, "20", false),
		promo(40, domain.TypeSetPrice, "85", false),
	), it, 1, now)
	require.NotNil(t, best)
	assert.Equal(t, snowflake.ID(20), best.ID)

	assert.Nil(t, e.Best(nil, it, 1, now))
	assert.Nil(t, e.Best(candidates(promo(1, domain.TypeSetPrice, "100", false)), it, 1, now))
}

func TestCalculate_NoPromotionsReturnsOriginalPrice(t *testing.T) {
	q := newEngine().Calculate(nil, item("12.50"), 2, now)
	assert.True(t, q.DiscountTotal.IsZero())
	assert.True(t, q.FinalUnitPrice.Equal(dec("12.50")))
	assert.Equal(t, "25.00", q.Total.StringFixed(2))
	assert.Empty(t, q.Applied)
}

func TestCalculate_StackableBeatsExclusive(t *testing.T) {
	percent := promo(1, domain.TypePercent, "20", true)
	amount := promo(2, domain.TypeAmount, "100", true)
	setPrice := promo(3, domain.TypeSetPrice, "750", false)

	q := newEngine().Calculate(candidates(percent, amount, setPrice), item("1000"), 1, now)
	assert.Equal(t, "720.00", q.FinalUnitPrice.StringFixed(2))
	assert.Equal(t, "280.00", q.DiscountTotal.StringFixed(2))
	assert.ElementsMatch(t, []snowflake.ID{1, 2}, q.Applied)
}

func TestCalculate_ExclusiveBeatsStackable(t *testing.T) {
	percent := promo(1, domain.TypePercent, "10", true)
	setPrice := promo(2, domain.TypeSetPrice, "600", false)

	q := newEngine().Calculate(candidates(percent, setPrice), item("1000"), 3, now)
	assert.Equal(t, "600.00", q.FinalUnitPrice.StringFixed(2))
	assert.Equal(t, "1200.00", q.DiscountTotal.StringFixed(2))
	assert.Equal(t, "1800.00", q.Total.StringFixed(2))
	assert.Equal(t, []snowflake.ID{2}, q.Applied)
}

func TestCalculate_PercentagesStackMultiplicatively(t *testing.T) {
	q := newEngine().Calculate(candidates(
		promo(1, domain.TypePercent, "10", true),
		promo(2, domain.TypePercent, "10", true),
	), item("100"), 1, now)
	assert.Equal(t, "81.00", q.FinalUnitPrice.StringFixed(2))
	assert.Equal(t, "19.00", q.DiscountTotal.StringFixed(2))
}

func TestCalculate_StackingOrder(t *testing.T) {
	// min set price 80, minus 5+5, then 50%.
	q := newEngine().Calculate(candidates(
		promo(1, domain.TypeSetPrice, "90", true),
		promo(2, domain.TypeSetPrice, "80", true),
		promo(3, domain.TypeAmount, "5", true),
		promo(4, domain.TypeAmount, "5", true),
		promo(5, domain.TypePercent, "50", true),
	), item("100"), 1, now)
	assert.Equal(t, "35.00", q.FinalUnitPrice.StringFixed(2))
	assert.Equal(t, []snowflake.ID{2, 3, 4, 5}, q.Applied)
}

func TestCalculate_NeverIncreasesPrice(t *testing.T) {
	e := newEngine()
	grid := [][]*domain.Promotion{
		{promo(1, domain.TypeSetPrice, "150", true)},
		{promo(1, domain.TypeSetPrice, "150", false)},
		{promo(1, domain.TypePercent, "0", true), promo(2, domain.TypeSetPrice, "500", true)},
		{promo(1, domain.TypeAmount, "500", true), promo(2, domain.TypePercent, "99", false)},
	}
	for i, promos := range grid {
		for _, qty := range []int{0, 1, 5} {
			q := e.Calculate(candidates(promos...), item("100"), qty, now)
			assert.True(t, q.FinalUnitPrice.LessThanOrEqual(dec("100")), "case %d qty %d", i, qty)
			assert.False(t, q.DiscountTotal.IsNegative(), "case %d qty %d", i, qty)
		}
	}
}

func TestCalculate_MalformedPromotionIsIsolated(t *testing.T) {
	q := newEngine().Calculate(candidates(
		promo(1, domain.TypePercent, "250", true),
		promo(2, domain.TypeAmount, "10", true),
	), item("100"), 1, now)
	assert.Equal(t, "90.00", q.FinalUnitPrice.StringFixed(2))
	assert.Equal(t, []snowflake.ID{2}, q.Applied)
}
