package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/showcase/internal/category/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Create(category).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Category, error) {
	var item domain.Category
	err := db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) UpdateParent(ctx context.Context, db *gorm.DB, id snowflake.ID, parentID *snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"parent_id":  parentID,
			"updated_at": db.NowFunc(),
		}).Error
}

func (r *repo) ChildIDs(ctx context.Context, db *gorm.DB, parentIDs []snowflake.ID) ([]snowflake.ID, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("parent_id IN ?", parentIDs).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}
