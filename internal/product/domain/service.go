package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/showcase/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	GetStatus(ctx context.Context, productID string) (*Status, error)

	IncrementViewCount(ctx context.Context, productID string) (*Status, error)
	IncrementWhatsAppClick(ctx context.Context, productID string) (*Status, error)
	SetOverrides(ctx context.Context, productID string, overrides Overrides) (*Status, error)

	Featured(ctx context.Context, limit int) ([]Product, error)
	Recommended(ctx context.Context, limit int, excludeIDs []string) ([]Product, error)
	NewArrivals(ctx context.Context, limit int) ([]Product, error)
	BestSellers(ctx context.Context, limit int) ([]Product, error)
	ByCategory(ctx context.Context, categoryID string, page pagination.Pagination) (*ListResponse, error)
	WithDiscount(ctx context.Context, limit int) ([]Product, error)
}

type CreateRequest struct {
	CategoryID     string           `json:"category_id"`
	Name           string           `json:"name"`
	Brand          string           `json:"brand"`
	SKU            string           `json:"sku"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	CostPrice      *decimal.Decimal `json:"cost_price"`
	StockQuantity  int              `json:"stock_quantity"`
	Active         *bool            `json:"is_active"`
}

type ListResponse struct {
	Items    []Product           `json:"items"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

const DefaultListLimit = 12

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidStock    = errors.New("invalid_stock")
	ErrDuplicateSKU    = errors.New("duplicate_sku")
	ErrNotFound        = errors.New("not_found")
)
