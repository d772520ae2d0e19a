package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/showcase/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product, status *domain.Status) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		status.ProductID = product.ID
		return tx.Create(status).Error
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var item domain.Product
	err := db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindStatus(ctx context.Context, db *gorm.DB, productID snowflake.ID) (*domain.Status, error) {
	var item domain.Status
	err := db.WithContext(ctx).Where("product_id = ?", productID).First(&item).Error
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
		Model(&domain.Product{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) IncrementViewCount(ctx context.Context, db *gorm.DB, productID snowflake.ID, at time.Time) (*domain.Status, error) {
	return r.incrementAndFetch(ctx, db, productID, map[string]any{
		"view_count":     gorm.Expr("view_count + ?", 1),
		"last_viewed_at": at,
		"needs_rescore":  true,
		"updated_at":     at,
	})
}

func (r *repo) IncrementWhatsAppClick(ctx context.Context, db *gorm.DB, productID snowflake.ID, at time.Time) (*domain.Status, error) {
	return r.incrementAndFetch(ctx, db, productID, map[string]any{
		"whatsapp_click_count": gorm.Expr("whatsapp_click_count + ?", 1),
		"needs_rescore":        true,
		"updated_at":           at,
	})
}

// incrementAndFetch applies the update and re-reads the row in one transaction
// so callers see the value their own increment produced.
func (r *repo) incrementAndFetch(ctx context.Context, db *gorm.DB, productID snowflake.ID, updates map[string]any) (*domain.Status, error) {
	var out *domain.Status
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Status{}).
			Where("product_id = ?", productID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		status, err := r.FindStatus(ctx, tx, productID)
		if err != nil {
			return err
		}
		out = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) UpdateOverrides(ctx context.Context, db *gorm.DB, productID snowflake.ID, overrides domain.Overrides, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Status{}).
		Where("product_id = ?", productID).
		Updates(map[string]any{
			"force_featured":           overrides.ForceFeatured,
			"force_recommended":        overrides.ForceRecommended,
			"exclude_from_featured":    overrides.ExcludeFromFeatured,
			"exclude_from_recommended": overrides.ExcludeFromRecommended,
			"needs_rescore":            true,
			"updated_at":               at,
		}).Error
}

func (r *repo) UpdateScores(ctx context.Context, db *gorm.DB, productID snowflake.ID, scores domain.Scores, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Status{}).
		Where("product_id = ?", productID).
		Updates(map[string]any{
			"is_featured":          scores.IsFeatured,
			"featured_score":       scores.FeaturedScore,
			"is_recommended":       scores.IsRecommended,
			"recommendation_score": scores.RecommendationScore,
			"needs_rescore":        false,
			"scored_at":            at,
			"updated_at":           at,
		}).Error
}

func (r *repo) ClearRescore(ctx context.Context, db *gorm.DB, productID snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Status{}).
		Where("product_id = ?", productID).
		Updates(map[string]any{
			"needs_rescore": false,
			"scored_at":     at,
		}).Error
}

func (r *repo) DeferRescore(ctx context.Context, db *gorm.DB, productID snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Status{}).
		Where("product_id = ? AND needs_rescore = ?", productID, true).
		Update("updated_at", at).Error
}

func (r *repo) ListPendingRescore(ctx context.Context, db *gorm.DB, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.Status{}).
		Where("needs_rescore = ?", true).
		Order("updated_at ASC").
		Order("product_id ASC").
		Limit(limit).
		Pluck("product_id", &ids).Error
	return ids, err
}

func (r *repo) ListIDs(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repo) CategoryAveragePrice(ctx context.Context, db *gorm.DB, categoryID snowflake.ID) (decimal.NullDecimal, error) {
	var avg decimal.NullDecimal
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Select("AVG(price)").
		Where("category_id = ? AND is_active = ? AND in_stock = ?", categoryID, true, true).
		Row().
		Scan(&avg)
	return avg, err
}

func (r *repo) CategoryPeerStats(ctx context.Context, db *gorm.DB, categoryID snowflake.ID, viewCount int64) (domain.PeerStats, error) {
	var stats domain.PeerStats
	err := db.WithContext(ctx).
		Table("products").
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN product_statuses.view_count > ? THEN 1 ELSE 0 END), 0) AS higher_viewed", viewCount).
		Joins("JOIN product_statuses ON product_statuses.product_id = products.id").
		Where("products.category_id = ? AND products.is_active = ?", categoryID, true).
		Row().
		Scan(&stats.Total, &stats.HigherViewed)
	return stats, err
}

func (r *repo) listable(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).
		Model(&domain.Product{}).
		Select("products.*").
		Joins("JOIN product_statuses ON product_statuses.product_id = products.id").
		Where("products.is_active = ? AND products.in_stock = ?", true, true)
}

func (r *repo) ListFeatured(ctx context.Context, db *gorm.DB, limit int) ([]domain.Product, error) {
	var items []domain.Product
	err := r.listable(ctx, db).
		Where("product_statuses.is_featured = ?", true).
		Order("product_statuses.featured_score DESC").
		Order("products.created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *repo) ListRecommended(ctx context.Context, db *gorm.DB, limit int, excludeIDs []snowflake.ID) ([]domain.Product, error) {
	var items []domain.Product
	query := r.listable(ctx, db).
		Where("product_statuses.is_recommended = ?", true)
	if len(excludeIDs) > 0 {
		query = query.Where("products.id NOT IN ?", excludeIDs)
	}
	err := query.
		Order("product_statuses.recommendation_score DESC").
		Order("products.created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *repo) ListNewArrivals(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("is_active = ? AND in_stock = ? AND created_at >= ?", true, true, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *repo) ListBestSellers(ctx context.Context, db *gorm.DB, limit int) ([]domain.Product, error) {
	var items []domain.Product
	err := r.listable(ctx, db).
		Order("product_statuses.whatsapp_click_count DESC").
		Order("product_statuses.view_count DESC").
		Order("products.id ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *repo) ListByCategories(ctx context.Context, db *gorm.DB, categoryIDs []snowflake.ID, after *domain.Cursor, limit int) ([]domain.Product, error) {
	var items []domain.Product
	query := db.WithContext(ctx).
		Where("category_id IN ? AND is_active = ?", categoryIDs, true)
	if after != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *repo) ListWithDiscount(ctx context.Context, db *gorm.DB, limit int) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("is_active = ? AND in_stock = ? AND compare_at_price IS NOT NULL AND compare_at_price > price", true, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
