package domain

import (
	"time"

	"github.com/shopspring/decimal"
	productdomain "github.com/smallbiznis/showcase/internal/product/domain"
)

// Snapshot is everything the engine reads for one product, fetched up front.
type Snapshot struct {
	Price          decimal.Decimal
	CompareAtPrice decimal.NullDecimal
	CostPrice      decimal.NullDecimal
	StockQuantity  int
	CreatedAt      time.Time

	ViewCount          int64
	WhatsAppClickCount int64
	LastViewedAt       *time.Time
	Overrides          productdomain.Overrides

	// CategoryAveragePrice is invalid when the category has no active in-stock products.
	CategoryAveragePrice decimal.NullDecimal
	Peers                productdomain.PeerStats
}

func NewSnapshot(product *productdomain.Product, status *productdomain.Status, avg decimal.NullDecimal, peers productdomain.PeerStats) Snapshot {
	return Snapshot{
		Price:                product.Price,
		CompareAtPrice:       product.CompareAtPrice,
		CostPrice:            product.CostPrice,
		StockQuantity:        product.StockQuantity,
		CreatedAt:            product.CreatedAt,
		ViewCount:            status.ViewCount,
		WhatsAppClickCount:   status.WhatsAppClickCount,
		LastViewedAt:         status.LastViewedAt,
		Overrides:            status.Overrides,
		CategoryAveragePrice: avg,
		Peers:                peers,
	}
}

type Result struct {
	Featured    Classification
	Recommended Classification
}

func (r Result) Scores() productdomain.Scores {
	return productdomain.Scores{
		IsFeatured:          r.Featured.Selected,
		FeaturedScore:       r.Featured.Score,
		IsRecommended:       r.Recommended.Selected,
		RecommendationScore: r.Recommended.Score,
	}
}
