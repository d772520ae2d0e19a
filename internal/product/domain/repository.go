package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product, status *Status) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	FindStatus(ctx context.Context, db *gorm.DB, productID snowflake.ID) (*Status, error)
	SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error)

	IncrementViewCount(ctx context.Context, db *gorm.DB, productID snowflake.ID, at time.Time) (*Status, error)
	IncrementWhatsAppClick(ctx context.Context, db *gorm.DB, productID snowflake.ID, at time.Time) (*Status, error)
	UpdateOverrides(ctx context.Context, db *gorm.DB, productID snowflake.ID, overrides Overrides, at time.Time) error
	UpdateScores(ctx context.Context, db *gorm.DB, productID snowflake.ID, scores Scores, at time.Time) error
	ClearRescore(ctx context.Context, db *gorm.DB, productID snowflake.ID, at time.Time) error
	// DeferRescore keeps a pending product pending but moves it behind the
	// other pending products.
	DeferRescore(ctx context.Context, db *gorm.DB, productID snowflake.ID, at time.Time) error
	ListPendingRescore(ctx context.Context, db *gorm.DB, limit int) ([]snowflake.ID, error)
	ListIDs(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]snowflake.ID, error)

	CategoryAveragePrice(ctx context.Context, db *gorm.DB, categoryID snowflake.ID) (decimal.NullDecimal, error)
	CategoryPeerStats(ctx context.Context, db *gorm.DB, categoryID snowflake.ID, viewCount int64) (PeerStats, error)

	ListFeatured(ctx context.Context, db *gorm.DB, limit int) ([]Product, error)
	ListRecommended(ctx context.Context, db *gorm.DB, limit int, excludeIDs []snowflake.ID) ([]Product, error)
	ListNewArrivals(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]Product, error)
	ListBestSellers(ctx context.Context, db *gorm.DB, limit int) ([]Product, error)
	ListByCategories(ctx context.Context, db *gorm.DB, categoryIDs []snowflake.ID, after *Cursor, limit int) ([]Product, error)
	ListWithDiscount(ctx context.Context, db *gorm.DB, limit int) ([]Product, error)
}

// Cursor is the keyset position for category listings ordered by created_at desc, id desc.
type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
