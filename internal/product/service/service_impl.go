package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	categorydomain "github.com/smallbiznis/showcase/internal/category/domain"
	"github.com/smallbiznis/showcase/internal/clock"
	"github.com/smallbiznis/showcase/internal/product/domain"
	"github.com/smallbiznis/showcase/pkg/db"
	"github.com/smallbiznis/showcase/pkg/db/pagination"
	"github.com/smallbiznis/showcase/pkg/slugs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const slugMaxLen = 200

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Tree  categorydomain.Tree
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	tree  categorydomain.Tree
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		clock: p.Clock,
		tree:  p.Tree,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	categoryID, err := snowflake.ParseString(strings.TrimSpace(req.CategoryID))
	if err != nil {
		return nil, domain.ErrInvalidCategory
	}
	if _, err := s.tree.AncestorsIncludingSelf(ctx, categoryID); err != nil {
		if errors.Is(err, categorydomain.ErrNotFound) {
			return nil, domain.ErrInvalidCategory
		}
		return nil, err
	}

	if !req.Price.IsPositive() {
		return nil, domain.ErrInvalidPrice
	}
	compareAt, err := optionalPrice(req.CompareAtPrice)
	if err != nil {
		return nil, err
	}
	cost, err := optionalPrice(req.CostPrice)
	if err != nil {
		return nil, err
	}
	if req.StockQuantity < 0 {
		return nil, domain.ErrInvalidStock
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	slug, err := slugs.Unique(ctx, name, slugMaxLen, func(ctx context.Context, candidate string) (bool, error) {
		return s.repo.SlugExists(ctx, s.db, candidate)
	})
	if err != nil {
		return nil, domain.ErrInvalidName
	}

	id := s.genID.Generate()
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		sku = "SKU-" + strings.ToUpper(id.Base36())
	}

	now := s.clock.Now()
	item := &domain.Product{
		ID:             id,
		CategoryID:     categoryID,
		Name:           name,
		Slug:           slug,
		Brand:          strings.TrimSpace(req.Brand),
		SKU:            sku,
		Price:          req.Price.Round(2),
		CompareAtPrice: compareAt,
		CostPrice:      cost,
		StockQuantity:  req.StockQuantity,
		InStock:        req.StockQuantity > 0,
		IsActive:       active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	status := &domain.Status{
		ID:                  s.genID.Generate(),
		FeaturedScore:       decimal.Zero,
		RecommendationScore: decimal.Zero,
		NeedsRescore:        true,
		UpdatedAt:           now,
	}

	if err := s.repo.Insert(ctx, s.db, item, status); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateSKU
		}
		return nil, err
	}
	return item, nil
}

func optionalPrice(value *decimal.Decimal) (decimal.NullDecimal, error) {
	if value == nil {
		return decimal.NullDecimal{}, nil
	}
	if !value.IsPositive() {
		return decimal.NullDecimal{}, domain.ErrInvalidPrice
	}
	return decimal.NewNullDecimal(value.Round(2)), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	productID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) GetStatus(ctx context.Context, productID string) (*domain.Status, error) {
	id, err := parseID(productID)
	if err != nil {
		return nil, err
	}

	status, err := s.repo.FindStatus(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, domain.ErrNotFound
	}
	return status, nil
}

func (s *Service) IncrementViewCount(ctx context.Context, productID string) (*domain.Status, error) {
	id, err := parseID(productID)
	if err != nil {
		return nil, err
	}

	status, err := s.repo.IncrementViewCount(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, domain.ErrNotFound
	}
	return status, nil
}

func (s *Service) IncrementWhatsAppClick(ctx context.Context, productID string) (*domain.Status, error) {
	id, err := parseID(productID)
	if err != nil {
		return nil, err
	}

	status, err := s.repo.IncrementWhatsAppClick(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, domain.ErrNotFound
	}
	return status, nil
}

func (s *Service) SetOverrides(ctx context.Context, productID string, overrides domain.Overrides) (*domain.Status, error) {
	id, err := parseID(productID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateOverrides(ctx, s.db, id, overrides, s.clock.Now()); err != nil {
		return nil, err
	}

	status, err := s.repo.FindStatus(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, domain.ErrNotFound
	}
	s.log.Info("classification overrides updated",
		zap.String("product_id", id.String()),
		zap.Bool("force_featured", overrides.ForceFeatured),
		zap.Bool("force_recommended", overrides.ForceRecommended),
		zap.Bool("exclude_from_featured", overrides.ExcludeFromFeatured),
		zap.Bool("exclude_from_recommended", overrides.ExcludeFromRecommended),
	)
	return status, nil
}

func (s *Service) Featured(ctx context.Context, limit int) ([]domain.Product, error) {
	return s.repo.ListFeatured(ctx, s.db, normalizeLimit(limit))
}

func (s *Service) Recommended(ctx context.Context, limit int, excludeIDs []string) ([]domain.Product, error) {
	exclude := make([]snowflake.ID, 0, len(excludeIDs))
	for _, raw := range excludeIDs {
		id, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		exclude = append(exclude, id)
	}
	return s.repo.ListRecommended(ctx, s.db, normalizeLimit(limit), exclude)
}

func (s *Service) NewArrivals(ctx context.Context, limit int) ([]domain.Product, error) {
	since := s.clock.Now().Add(-domain.NewArrivalWindow)
	return s.repo.ListNewArrivals(ctx, s.db, since, normalizeLimit(limit))
}

func (s *Service) BestSellers(ctx context.Context, limit int) ([]domain.Product, error) {
	return s.repo.ListBestSellers(ctx, s.db, normalizeLimit(limit))
}

func (s *Service) WithDiscount(ctx context.Context, limit int) ([]domain.Product, error) {
	return s.repo.ListWithDiscount(ctx, s.db, normalizeLimit(limit))
}

// ByCategory lists active products of the category and every category below it.
func (s *Service) ByCategory(ctx context.Context, categoryID string, page pagination.Pagination) (*domain.ListResponse, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(categoryID))
	if err != nil {
		return nil, domain.ErrInvalidCategory
	}

	categoryIDs, err := s.tree.DescendantsIncludingSelf(ctx, id)
	if err != nil {
		if errors.Is(err, categorydomain.ErrNotFound) {
			return nil, domain.ErrInvalidCategory
		}
		return nil, err
	}

	after, err := decodeCursor(page.PageToken)
	if err != nil {
		return nil, err
	}

	limit := page.Limit()
	items, err := s.repo.ListByCategories(ctx, s.db, categoryIDs, after, limit+1)
	if err != nil {
		return nil, err
	}

	items, info, err := pagination.Trim(items, limit, func(p domain.Product) pagination.Cursor {
		return pagination.Cursor{
			ID:        p.ID.String(),
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return nil, err
	}
	return &domain.ListResponse{Items: items, PageInfo: info}, nil
}

func decodeCursor(token string) (*domain.Cursor, error) {
	cursor, err := pagination.DecodeCursor(token)
	if err != nil || cursor == nil {
		return nil, err
	}
	id, err := snowflake.ParseString(cursor.ID)
	if err != nil {
		return nil, pagination.ErrInvalidPageToken
	}
	createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
	if err != nil {
		return nil, pagination.ErrInvalidPageToken
	}
	return &domain.Cursor{ID: id, CreatedAt: createdAt.UTC()}, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return domain.DefaultListLimit
	}
	if limit > pagination.MaxPageSize {
		return pagination.MaxPageSize
	}
	return limit
}
