package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, promotion *Promotion) error
	Update(ctx context.Context, db *gorm.DB, promotion *Promotion) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*Promotion, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Promotion, error)
	SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error)

	// ListCandidates returns active promotions inside their date window that
	// target the product directly, one of the categories, or everything.
	ListCandidates(ctx context.Context, db *gorm.DB, productID snowflake.ID, categoryIDs []snowflake.ID, at time.Time) ([]Candidate, error)

	UsageTotal(ctx context.Context, db *gorm.DB, promotionID snowflake.ID) (int64, error)
	UsageCount(ctx context.Context, db *gorm.DB, promotionID snowflake.ID, userID string) (int64, error)
	IncrementUsage(ctx context.Context, db *gorm.DB, usage *Usage, increment int64) error
}
