package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const NewArrivalWindow = 30 * 24 * time.Hour

type Product struct {
	ID             snowflake.ID        `json:"id" gorm:"primaryKey"`
	CategoryID     snowflake.ID        `json:"category_id" gorm:"not null;index"`
	Name           string              `json:"name" gorm:"type:text;not null"`
	Slug           string              `json:"slug" gorm:"type:varchar(200);not null;uniqueIndex:ux_products_slug"`
	Brand          string              `json:"brand,omitempty" gorm:"type:varchar(100)"`
	SKU            string              `json:"sku" gorm:"type:varchar(64);not null;uniqueIndex:ux_products_sku"`
	Price          decimal.Decimal     `json:"price" gorm:"type:decimal(12,2);not null"`
	CompareAtPrice decimal.NullDecimal `json:"compare_at_price" gorm:"type:decimal(12,2)"`
	CostPrice      decimal.NullDecimal `json:"cost_price" gorm:"type:decimal(12,2)"`
	StockQuantity  int                 `json:"stock_quantity" gorm:"not null"`
	InStock        bool                `json:"in_stock" gorm:"not null;index"`
	IsActive       bool                `json:"is_active" gorm:"not null;index"`
	CreatedAt      time.Time           `json:"created_at" gorm:"not null;index"`
	UpdatedAt      time.Time           `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

func (p Product) IsNew(now time.Time) bool {
	return now.Sub(p.CreatedAt) <= NewArrivalWindow
}

func (p Product) HasDiscount() bool {
	return p.CompareAtPrice.Valid && p.CompareAtPrice.Decimal.GreaterThan(p.Price)
}

// DiscountPercent is the whole-number markdown from the compare-at price, truncated.
func (p Product) DiscountPercent() int64 {
	if !p.HasDiscount() {
		return 0
	}
	compareAt := p.CompareAtPrice.Decimal
	return compareAt.Sub(p.Price).Div(compareAt).Mul(decimal.NewFromInt(100)).IntPart()
}

// Overrides are the manual classification flags. Exclusion beats force.
type Overrides struct {
	ForceFeatured          bool `json:"force_featured" gorm:"not null"`
	ForceRecommended       bool `json:"force_recommended" gorm:"not null"`
	ExcludeFromFeatured    bool `json:"exclude_from_featured" gorm:"not null"`
	ExcludeFromRecommended bool `json:"exclude_from_recommended" gorm:"not null"`
}

type Status struct {
	ID                  snowflake.ID    `json:"id" gorm:"primaryKey"`
	ProductID           snowflake.ID    `json:"product_id" gorm:"not null;uniqueIndex:ux_product_statuses_product"`
	ViewCount           int64           `json:"view_count" gorm:"not null"`
	WhatsAppClickCount  int64           `json:"whatsapp_click_count" gorm:"column:whatsapp_click_count;not null"`
	LastViewedAt        *time.Time      `json:"last_viewed_at,omitempty"`
	IsFeatured          bool            `json:"is_featured" gorm:"not null;index"`
	FeaturedScore       decimal.Decimal `json:"featured_score" gorm:"type:decimal(5,2);not null"`
	IsRecommended       bool            `json:"is_recommended" gorm:"not null;index"`
	RecommendationScore decimal.Decimal `json:"recommendation_score" gorm:"type:decimal(5,2);not null"`
	Overrides           `gorm:"embedded"`
	NeedsRescore        bool       `json:"needs_rescore" gorm:"not null;index"`
	ScoredAt            *time.Time `json:"scored_at,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at" gorm:"not null"`
}

func (Status) TableName() string { return "product_statuses" }

// Scores is the classification output written back by the scoring engine.
type Scores struct {
	IsFeatured          bool
	FeaturedScore       decimal.Decimal
	IsRecommended       bool
	RecommendationScore decimal.Decimal
}

func (s Status) Scores() Scores {
	return Scores{
		IsFeatured:          s.IsFeatured,
		FeaturedScore:       s.FeaturedScore,
		IsRecommended:       s.IsRecommended,
		RecommendationScore: s.RecommendationScore,
	}
}

func (s Scores) Equal(other Scores) bool {
	return s.IsFeatured == other.IsFeatured &&
		s.IsRecommended == other.IsRecommended &&
		s.FeaturedScore.Equal(other.FeaturedScore) &&
		s.RecommendationScore.Equal(other.RecommendationScore)
}

// PeerStats summarises active products sharing a category.
type PeerStats struct {
	Total        int64
	HigherViewed int64
}
