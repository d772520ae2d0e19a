package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/showcase/internal/observability/metrics"
	"github.com/smallbiznis/showcase/internal/promotion/domain"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// Discount is the outcome of one promotion on one product line.
type Discount struct {
	Total     decimal.Decimal
	FinalUnit decimal.Decimal
}

// Engine evaluates promotions against a product snapshot. It never reads storage.
type Engine struct {
	log     *zap.Logger
	metrics *metrics.CatalogMetrics
}

func NewEngine(log *zap.Logger, m *metrics.CatalogMetrics) *Engine {
	return &Engine{
		log:     log.Named("promotion.pricing"),
		metrics: m,
	}
}

// AppliesToProduct reports whether the promotion targets the item, either
// globally, directly, or through the item's category or one of its ancestors.
func AppliesToProduct(p *domain.Promotion, item domain.Item) bool {
	if p == nil || !p.Active {
		return false
	}
	if p.AppliesToAll {
		return true
	}
	for _, id := range p.ProductIDs {
		if id == item.ProductID {
			return true
		}
	}
	if len(p.CategoryIDs) == 0 || len(item.CategoryPath) == 0 {
		return false
	}
	targets := make(map[snowflake.ID]struct{}, len(p.CategoryIDs))
	for _, id := range p.CategoryIDs {
		targets[id] = struct{}{}
	}
	for _, id := range item.CategoryPath {
		if _, ok := targets[id]; ok {
			return true
		}
	}
	return false
}

// IsActiveAt checks the active flag, the [start, end] window and global usage exhaustion.
func IsActiveAt(p *domain.Promotion, at time.Time, usageTotal int64) bool {
	if p == nil || !p.Active {
		return false
	}
	if p.StartAt != nil && at.Before(*p.StartAt) {
		return false
	}
	if p.EndAt != nil && at.After(*p.EndAt) {
		return false
	}
	if p.UsageLimit != nil && usageTotal >= *p.UsageLimit {
		return false
	}
	return true
}

// Applicable filters candidates down to those active at `at` and targeting item,
// ordered by promotion id.
func (e *Engine) Applicable(candidates []domain.Candidate, item domain.Item, at time.Time) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if IsActiveAt(c.Promotion, at, c.UsageTotal) && AppliesToProduct(c.Promotion, item) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Promotion.ID < out[j].Promotion.ID
	})
	return out
}

// ComputeDiscount prices quantity units of item under a single promotion.
// Promotions that do not apply, are not active, or carry malformed values yield (0, price).
func (e *Engine) ComputeDiscount(c domain.Candidate, item domain.Item, quantity int, at time.Time) Discount {
	none := Discount{Total: decimal.Zero, FinalUnit: item.Price}
	if !IsActiveAt(c.Promotion, at, c.UsageTotal) || !AppliesToProduct(c.Promotion, item) {
		return none
	}
	d, ok := e.evaluate(c.Promotion, item, quantity)
	if !ok {
		return none
	}
	return d
}

// evaluate runs the per-type formula. A failure is logged and reported as ok=false
// so one broken promotion cannot break the scan over the others.
func (e *Engine) evaluate(p *domain.Promotion, item domain.Item, quantity int) (d Discount, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.skip(p, item, metrics.PricingAnomalyPanic, fmt.Errorf("%v", r))
			d, ok = Discount{}, false
		}
	}()

	if err := domain.ValidateValue(p.Type, p.Value, p.BuyX, p.GetY); err != nil {
		e.skip(p, item, metrics.PricingAnomalyMalformed, err)
		return Discount{}, false
	}

	qty := decimal.NewFromInt(int64(normalizeQuantity(quantity)))
	price := item.Price

	switch p.Type {
	case domain.TypePercent:
		final := price.Mul(decimal.NewFromInt(1).Sub(p.Value.Decimal.Div(hundred)))
		return Discount{
			Total:     price.Sub(final).Mul(qty).Round(2),
			FinalUnit: final.Round(2),
		}, true
	case domain.TypeAmount:
		final := decimal.Max(decimal.Zero, price.Sub(p.Value.Decimal))
		return Discount{
			Total:     price.Sub(final).Mul(qty).Round(2),
			FinalUnit: final.Round(2),
		}, true
	case domain.TypeSetPrice:
		final := p.Value.Decimal
		return Discount{
			Total:     decimal.Max(decimal.Zero, price.Sub(final)).Mul(qty).Round(2),
			FinalUnit: final.Round(2),
		}, true
	case domain.TypeBuyXGetY:
		group := int64(p.BuyX + p.GetY)
		freeUnits := qty.IntPart() / group * int64(p.GetY)
		return Discount{
			Total:     price.Mul(decimal.NewFromInt(freeUnits)).Round(2),
			FinalUnit: price,
		}, true
	}
	return Discount{}, false
}

// Best returns the applicable promotion with the lowest final unit price, or nil
// when none lowers the price. Ties keep the lowest promotion id.
func (e *Engine) Best(candidates []domain.Candidate, item domain.Item, quantity int, at time.Time) *domain.Promotion {
	best, _ := e.bestOf(e.Applicable(candidates, item, at), item, quantity)
	return best
}

func (e *Engine) bestOf(applicable []domain.Candidate, item domain.Item, quantity int) (*domain.Promotion, decimal.Decimal) {
	var best *domain.Promotion
	bestFinal := item.Price
	for _, c := range applicable {
		d, ok := e.evaluate(c.Promotion, item, quantity)
		if !ok {
			continue
		}
		if d.FinalUnit.LessThan(bestFinal) {
			best = c.Promotion
			bestFinal = d.FinalUnit
		}
	}
	return best, bestFinal
}

// Calculate prices quantity units of item under every applicable promotion. The
// customer gets the better of all stackable promotions combined and the single
// best non-stackable promotion, never both.
func (e *Engine) Calculate(candidates []domain.Candidate, item domain.Item, quantity int, at time.Time) domain.Quote {
	e.metrics.IncQuote()

	qty := normalizeQuantity(quantity)
	quote := domain.Quote{
		ProductID:         item.ProductID,
		Quantity:          qty,
		OriginalUnitPrice: item.Price,
		FinalUnitPrice:    item.Price,
		DiscountTotal:     decimal.Zero,
	}

	applicable := e.Applicable(candidates, item, at)
	if len(applicable) == 0 {
		quote.Total = item.Price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
		return quote
	}

	var stackable, exclusive []domain.Candidate
	for _, c := range applicable {
		if c.Promotion.IsStackable {
			stackable = append(stackable, c)
		} else {
			exclusive = append(exclusive, c)
		}
	}

	stackPrice, stackIDs := e.stackedUnitPrice(stackable, item)
	bestExclusive, exclusivePrice := e.bestOf(exclusive, item, qty)

	final := decimal.Min(stackPrice, exclusivePrice)
	switch {
	case !final.LessThan(item.Price):
	case stackPrice.LessThanOrEqual(exclusivePrice):
		quote.Applied = stackIDs
	case bestExclusive != nil:
		quote.Applied = []snowflake.ID{bestExclusive.ID}
	}

	quantityDec := decimal.NewFromInt(int64(qty))
	quote.FinalUnitPrice = final
	quote.DiscountTotal = item.Price.Sub(final).Mul(quantityDec).Round(2)
	quote.Total = final.Mul(quantityDec).Round(2)
	return quote
}

// stackedUnitPrice combines stackable promotions in a fixed order: lowest set
// price, then the sum of amounts off, then each percentage multiplicatively.
// Only the final unit price is rounded.
func (e *Engine) stackedUnitPrice(stackable []domain.Candidate, item domain.Item) (decimal.Decimal, []snowflake.ID) {
	running := item.Price
	var contributors []snowflake.ID

	var setPrice *domain.Promotion
	amountTotal := decimal.Zero
	var amounts, percents []*domain.Promotion

	for _, c := range stackable {
		p := c.Promotion
		if err := domain.ValidateValue(p.Type, p.Value, p.BuyX, p.GetY); err != nil {
			e.skip(p, item, metrics.PricingAnomalyMalformed, err)
			continue
		}
		switch p.Type {
		case domain.TypeSetPrice:
			if setPrice == nil || p.Value.Decimal.LessThan(setPrice.Value.Decimal) {
				setPrice = p
			}
		case domain.TypeAmount:
			amounts = append(amounts, p)
			amountTotal = amountTotal.Add(p.Value.Decimal)
		case domain.TypePercent:
			percents = append(percents, p)
		}
	}

	if setPrice != nil {
		running = setPrice.Value.Decimal
		contributors = append(contributors, setPrice.ID)
	}
	if len(amounts) > 0 {
		running = decimal.Max(decimal.Zero, running.Sub(amountTotal))
		for _, p := range amounts {
			contributors = append(contributors, p.ID)
		}
	}
	one := decimal.NewFromInt(1)
	for _, p := range percents {
		running = running.Mul(one.Sub(p.Value.Decimal.Div(hundred)))
		contributors = append(contributors, p.ID)
	}

	return running.Round(2), contributors
}

func (e *Engine) skip(p *domain.Promotion, item domain.Item, reason string, err error) {
	e.metrics.IncPricingAnomaly(reason)
	e.log.Warn("promotion skipped during pricing",
		zap.String("promotion_id", p.ID.String()),
		zap.String("product_id", item.ProductID.String()),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

func normalizeQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}
