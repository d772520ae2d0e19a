package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, category *Category) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Category, error)
	SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error)
	UpdateParent(ctx context.Context, db *gorm.DB, id snowflake.ID, parentID *snowflake.ID) error
	ChildIDs(ctx context.Context, db *gorm.DB, parentIDs []snowflake.ID) ([]snowflake.ID, error)
}
