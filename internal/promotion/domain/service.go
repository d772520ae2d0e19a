package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Promotion, error)
	Update(ctx context.Context, req UpdateRequest) (*Promotion, error)
	Get(ctx context.Context, id string) (*Promotion, error)
	FindByCode(ctx context.Context, code string) (*Promotion, error)

	ApplicablePromotions(ctx context.Context, productID string) ([]*Promotion, error)
	BestPromotion(ctx context.Context, productID string, quantity int) (*Promotion, error)
	Quote(ctx context.Context, productID string, quantity int) (*Quote, error)
	EffectiveUnitPrice(ctx context.Context, productID string) (decimal.Decimal, error)

	CanUserRedeem(ctx context.Context, promotionID string, userID string) (bool, error)
	// Redeem returns false without mutating anything when a usage limit would be exceeded.
	Redeem(ctx context.Context, req RedeemRequest) (bool, error)
}

type CreateRequest struct {
	Name         string           `json:"name"`
	Code         string           `json:"code"`
	Type         Type             `json:"promotion_type"`
	Value        *decimal.Decimal `json:"value"`
	BuyX         int              `json:"buy_x"`
	GetY         int              `json:"get_y"`
	AppliesToAll bool             `json:"applies_to_all"`
	ProductIDs   []string         `json:"product_ids"`
	CategoryIDs  []string         `json:"category_ids"`
	StartAt      *time.Time       `json:"start_at"`
	EndAt        *time.Time       `json:"end_at"`
	Active       *bool            `json:"active"`
	UsageLimit   *int64           `json:"usage_limit"`
	PerUserLimit *int64           `json:"per_user_limit"`
	IsStackable  bool             `json:"is_stackable"`
	Metadata     map[string]any   `json:"metadata"`
}

// UpdateRequest applies only the non-nil fields. The Clear flags reset an
// optional bound to unset and win over a value sent alongside them.
type UpdateRequest struct {
	ID           string           `json:"id"`
	Name         *string          `json:"name"`
	Value        *decimal.Decimal `json:"value"`
	StartAt      *time.Time       `json:"start_at"`
	EndAt        *time.Time       `json:"end_at"`
	Active       *bool            `json:"active"`
	UsageLimit   *int64           `json:"usage_limit"`
	PerUserLimit *int64           `json:"per_user_limit"`
	IsStackable  *bool            `json:"is_stackable"`
	ProductIDs   []string         `json:"product_ids"`
	CategoryIDs  []string         `json:"category_ids"`
	Metadata     map[string]any   `json:"metadata"`

	ClearStartAt      bool `json:"clear_start_at"`
	ClearEndAt        bool `json:"clear_end_at"`
	ClearUsageLimit   bool `json:"clear_usage_limit"`
	ClearPerUserLimit bool `json:"clear_per_user_limit"`
}

type RedeemRequest struct {
	PromotionID string `json:"promotion_id"`
	// UserID is empty for anonymous redemptions.
	UserID    string `json:"user_id"`
	Increment int64  `json:"increment"`
}
