package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/showcase/internal/promotion/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, promotion *domain.Promotion) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(promotion).Error; err != nil {
			return err
		}
		return replaceTargets(tx, promotion)
	})
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, promotion *domain.Promotion) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("*").Omit("id", "created_at").Updates(promotion).Error; err != nil {
			return err
		}
		return replaceTargets(tx, promotion)
	})
}

func replaceTargets(tx *gorm.DB, promotion *domain.Promotion) error {
	if err := tx.Where("promotion_id = ?", promotion.ID).Delete(&domain.PromotionProduct{}).Error; err != nil {
		return err
	}
	if err := tx.Where("promotion_id = ?", promotion.ID).Delete(&domain.PromotionCategory{}).Error; err != nil {
		return err
	}

	if len(promotion.ProductIDs) > 0 {
		rows := make([]domain.PromotionProduct, 0, len(promotion.ProductIDs))
		for _, id := range promotion.ProductIDs {
			rows = append(rows, domain.PromotionProduct{PromotionID: promotion.ID, ProductID: id})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(promotion.CategoryIDs) > 0 {
		rows := make([]domain.PromotionCategory, 0, len(promotion.CategoryIDs))
		for _, id := range promotion.CategoryIDs {
			rows = append(rows, domain.PromotionCategory{PromotionID: promotion.ID, CategoryID: id})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Promotion, error) {
	query := db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var item domain.Promotion
	err := query.Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items := []*domain.Promotion{&item}
	if err := loadTargets(ctx, db, items); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Promotion, error) {
	var item domain.Promotion
	err := db.WithContext(ctx).Where("code = ?", code).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := loadTargets(ctx, db, []*domain.Promotion{&item}); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Promotion{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) ListCandidates(ctx context.Context, db *gorm.DB, productID snowflake.ID, categoryIDs []snowflake.ID, at time.Time) ([]domain.Candidate, error) {
	conn := db.WithContext(ctx)

	byProduct := conn.Model(&domain.PromotionProduct{}).
		Select("promotion_id").
		Where("product_id = ?", productID)

	query := conn.Model(&domain.Promotion{}).
		Where("active = ?", true).
		Where("(start_at IS NULL OR start_at <= ?)", at).
		Where("(end_at IS NULL OR end_at >= ?)", at)

	if len(categoryIDs) > 0 {
		byCategory := conn.Model(&domain.PromotionCategory{}).
			Select("promotion_id").
			Where("category_id IN ?", categoryIDs)
		query = query.Where("(applies_to_all = ? OR id IN (?) OR id IN (?))", true, byProduct, byCategory)
	} else {
		query = query.Where("(applies_to_all = ? OR id IN (?))", true, byProduct)
	}

	var items []domain.Promotion
	if err := query.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	promotions := make([]*domain.Promotion, len(items))
	ids := make([]snowflake.ID, len(items))
	for i := range items {
		promotions[i] = &items[i]
		ids[i] = items[i].ID
	}
	if err := loadTargets(ctx, db, promotions); err != nil {
		return nil, err
	}

	totals, err := usageTotals(ctx, db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(promotions))
	for _, p := range promotions {
		out = append(out, domain.Candidate{Promotion: p, UsageTotal: totals[p.ID]})
	}
	return out, nil
}

func loadTargets(ctx context.Context, db *gorm.DB, promotions []*domain.Promotion) error {
	if len(promotions) == 0 {
		return nil
	}
	index := make(map[snowflake.ID]*domain.Promotion, len(promotions))
	ids := make([]snowflake.ID, 0, len(promotions))
	for _, p := range promotions {
		index[p.ID] = p
		ids = append(ids, p.ID)
	}

	var products []domain.PromotionProduct
	if err := db.WithContext(ctx).Where("promotion_id IN ?", ids).Order("product_id ASC").Find(&products).Error; err != nil {
		return err
	}
	for _, row := range products {
		p := index[row.PromotionID]
		p.ProductIDs = append(p.ProductIDs, row.ProductID)
	}

	var categories []domain.PromotionCategory
	if err := db.WithContext(ctx).Where("promotion_id IN ?", ids).Order("category_id ASC").Find(&categories).Error; err != nil {
		return err
	}
	for _, row := range categories {
		p := index[row.PromotionID]
		p.CategoryIDs = append(p.CategoryIDs, row.CategoryID)
	}
	return nil
}

type usageTotalRow struct {
	PromotionID snowflake.ID
	Total       int64
}

func usageTotals(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]int64, error) {
	var rows []usageTotalRow
	err := db.WithContext(ctx).
		Model(&domain.Usage{}).
		Select("promotion_id, COALESCE(SUM(count), 0) AS total").
		Where("promotion_id IN ?", ids).
		Group("promotion_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]int64, len(rows))
	for _, row := range rows {
		out[row.PromotionID] = row.Total
	}
	return out, nil
}

func (r *repo) UsageTotal(ctx context.Context, db *gorm.DB, promotionID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Usage{}).
		Select("COALESCE(SUM(count), 0)").
		Where("promotion_id = ?", promotionID).
		Row().
		Scan(&total)
	return total, err
}

func (r *repo) UsageCount(ctx context.Context, db *gorm.DB, promotionID snowflake.ID, userID string) (int64, error) {
	var usage domain.Usage
	err := db.WithContext(ctx).
		Where("promotion_id = ? AND user_id = ?", promotionID, userID).
		First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return usage.Count, nil
}

// IncrementUsage inserts the (promotion, user) row or adds increment to it.
func (r *repo) IncrementUsage(ctx context.Context, db *gorm.DB, usage *domain.Usage, increment int64) error {
	usage.Count = increment
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "promotion_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"count":        gorm.Expr("promotion_usages.count + ?", increment),
				"last_used_at": usage.LastUsedAt,
			}),
		}).
		Create(usage).Error
}
