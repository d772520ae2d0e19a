package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Type string

const (
	TypePercent  Type = "percent"
	TypeAmount   Type = "amount"
	TypeSetPrice Type = "set_price"
	TypeBuyXGetY Type = "bogo"
)

func (t Type) Valid() bool {
	switch t {
	case TypePercent, TypeAmount, TypeSetPrice, TypeBuyXGetY:
		return true
	default:
		return false
	}
}

type Promotion struct {
	ID           snowflake.ID        `json:"id" gorm:"primaryKey"`
	Name         string              `json:"name" gorm:"type:varchar(150);not null"`
	Slug         string              `json:"slug" gorm:"type:varchar(180);not null;uniqueIndex:ux_promotions_slug"`
	Code         *string             `json:"code,omitempty" gorm:"type:varchar(50);uniqueIndex:ux_promotions_code"`
	Type         Type                `json:"promotion_type" gorm:"column:promotion_type;type:varchar(20);not null"`
	Value        decimal.NullDecimal `json:"value" gorm:"type:decimal(10,2)"`
	BuyX         int                 `json:"buy_x" gorm:"not null"`
	GetY         int                 `json:"get_y" gorm:"not null"`
	AppliesToAll bool                `json:"applies_to_all" gorm:"not null"`
	StartAt      *time.Time          `json:"start_at,omitempty" gorm:"index:ix_promotions_window,priority:2"`
	EndAt        *time.Time          `json:"end_at,omitempty" gorm:"index:ix_promotions_window,priority:3"`
	Active       bool                `json:"active" gorm:"not null;index:ix_promotions_window,priority:1"`
	UsageLimit   *int64              `json:"usage_limit,omitempty"`
	PerUserLimit *int64              `json:"per_user_limit,omitempty"`
	IsStackable  bool                `json:"is_stackable" gorm:"not null"`
	Metadata     datatypes.JSONMap   `json:"metadata,omitempty"`
	CreatedAt    time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time           `json:"updated_at" gorm:"not null"`

	ProductIDs  []snowflake.ID `json:"product_ids,omitempty" gorm:"-"`
	CategoryIDs []snowflake.ID `json:"category_ids,omitempty" gorm:"-"`
}

func (Promotion) TableName() string { return "promotions" }

// PromotionProduct and PromotionCategory are the many-to-many targets. Removing
// a product or category only removes the link row.
type PromotionProduct struct {
	PromotionID snowflake.ID `gorm:"primaryKey"`
	ProductID   snowflake.ID `gorm:"primaryKey;index"`
}

func (PromotionProduct) TableName() string { return "promotion_products" }

type PromotionCategory struct {
	PromotionID snowflake.ID `gorm:"primaryKey"`
	CategoryID  snowflake.ID `gorm:"primaryKey;index"`
}

func (PromotionCategory) TableName() string { return "promotion_categories" }

// AnonymousUser is the shared usage slot for redemptions without a user.
const AnonymousUser = ""

type Usage struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	PromotionID snowflake.ID `json:"promotion_id" gorm:"not null;uniqueIndex:ux_promotion_usages_owner,priority:1"`
	UserID      string       `json:"user_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_promotion_usages_owner,priority:2"`
	Count       int64        `json:"count" gorm:"not null"`
	LastUsedAt  time.Time    `json:"last_used_at" gorm:"not null"`
}

func (Usage) TableName() string { return "promotion_usages" }

// Candidate pairs a promotion with its current global usage so pricing can
// evaluate exhaustion without touching storage.
type Candidate struct {
	Promotion  *Promotion
	UsageTotal int64
}

// Item is the priced product as seen by the pricing engine.
type Item struct {
	ProductID snowflake.ID
	Price     decimal.Decimal
	// CategoryPath is the product category followed by its ancestors.
	CategoryPath []snowflake.ID
}

type Quote struct {
	ProductID         snowflake.ID    `json:"product_id"`
	Quantity          int             `json:"quantity"`
	OriginalUnitPrice decimal.Decimal `json:"original_unit_price"`
	FinalUnitPrice    decimal.Decimal `json:"final_unit_price"`
	DiscountTotal     decimal.Decimal `json:"discount_total"`
	Total             decimal.Decimal `json:"total"`
	Applied           []snowflake.ID  `json:"applied_promotion_ids,omitempty"`
}
