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
	"github.com/smallbiznis/showcase/internal/lock"
	"github.com/smallbiznis/showcase/internal/observability/metrics"
	productdomain "github.com/smallbiznis/showcase/internal/product/domain"
	"github.com/smallbiznis/showcase/internal/promotion/domain"
	"github.com/smallbiznis/showcase/internal/promotion/pricing"
	"github.com/smallbiznis/showcase/pkg/db"
	"github.com/smallbiznis/showcase/pkg/slugs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const slugMaxLen = 180

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Products productdomain.Service
	Tree     categorydomain.Tree
	Locker   lock.Locker
	Engine   *pricing.Engine
	Metrics  *metrics.CatalogMetrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	products productdomain.Service
	tree     categorydomain.Tree
	locker   lock.Locker
	engine   *pricing.Engine
	metrics  *metrics.CatalogMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("promotion.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		products: p.Products,
		tree:     p.Tree,
		locker:   p.Locker,
		engine:   p.Engine,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Promotion, error) {
	name := strings.TrimSpace(req.Name)

	productIDs, err := parseIDs(req.ProductIDs)
	if err != nil {
		return nil, err
	}
	categoryIDs, err := parseIDs(req.CategoryIDs)
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	item := &domain.Promotion{
		ID:           s.genID.Generate(),
		Name:         name,
		Code:         normalizeCode(req.Code),
		Type:         domain.Type(strings.TrimSpace(string(req.Type))),
		Value:        nullDecimal(req.Value),
		BuyX:         req.BuyX,
		GetY:         req.GetY,
		AppliesToAll: req.AppliesToAll,
		StartAt:      utcPtr(req.StartAt),
		EndAt:        utcPtr(req.EndAt),
		Active:       active,
		UsageLimit:   req.UsageLimit,
		PerUserLimit: req.PerUserLimit,
		IsStackable:  req.IsStackable,
		CreatedAt:    now,
		UpdatedAt:    now,
		ProductIDs:   productIDs,
		CategoryIDs:  categoryIDs,
	}
	if req.Metadata != nil {
		item.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if item.Code != nil {
		existing, err := s.repo.FindByCode(ctx, s.db, *item.Code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.ErrDuplicateCode
		}
	}

	slug, err := slugs.Unique(ctx, name, slugMaxLen, func(ctx context.Context, candidate string) (bool, error) {
		return s.repo.SlugExists(ctx, s.db, candidate)
	})
	if err != nil {
		return nil, domain.ErrInvalidName
	}
	item.Slug = slug

	if err := s.repo.Insert(ctx, s.db, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateCode
		}
		return nil, err
	}

	s.log.Info("promotion created",
		zap.String("promotion_id", item.ID.String()),
		zap.String("promotion_type", string(item.Type)),
		zap.Bool("stackable", item.IsStackable),
	)
	return item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Promotion, error) {
	item, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Value != nil {
		item.Value = decimal.NewNullDecimal(*req.Value)
	}
	if req.StartAt != nil {
		item.StartAt = utcPtr(req.StartAt)
	}
	if req.EndAt != nil {
		item.EndAt = utcPtr(req.EndAt)
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if req.UsageLimit != nil {
		item.UsageLimit = req.UsageLimit
	}
	if req.PerUserLimit != nil {
		item.PerUserLimit = req.PerUserLimit
	}
	if req.IsStackable != nil {
		item.IsStackable = *req.IsStackable
	}
	if req.ProductIDs != nil {
		if item.ProductIDs, err = parseIDs(req.ProductIDs); err != nil {
			return nil, err
		}
	}
	if req.CategoryIDs != nil {
		if item.CategoryIDs, err = parseIDs(req.CategoryIDs); err != nil {
			return nil, err
		}
	}
	if req.Metadata != nil {
		item.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if req.ClearStartAt {
		item.StartAt = nil
	}
	if req.ClearEndAt {
		item.EndAt = nil
	}
	if req.ClearUsageLimit {
		item.UsageLimit = nil
	}
	if req.ClearPerUserLimit {
		item.PerUserLimit = nil
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Promotion, error) {
	promotionID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, promotionID, false)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) FindByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	normalized := normalizeCode(code)
	if normalized == nil {
		return nil, domain.ErrNotFound
	}

	item, err := s.repo.FindByCode(ctx, s.db, *normalized)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

// ApplicablePromotions lists promotions currently active and targeting the product.
func (s *Service) ApplicablePromotions(ctx context.Context, productID string) ([]*domain.Promotion, error) {
	item, candidates, at, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}

	applicable := s.engine.Applicable(candidates, item, at)
	out := make([]*domain.Promotion, 0, len(applicable))
	for _, c := range applicable {
		out = append(out, c.Promotion)
	}
	return out, nil
}

// BestPromotion returns nil when no applicable promotion lowers the unit price.
func (s *Service) BestPromotion(ctx context.Context, productID string, quantity int) (*domain.Promotion, error) {
	item, candidates, at, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.engine.Best(candidates, item, quantity, at), nil
}

func (s *Service) Quote(ctx context.Context, productID string, quantity int) (*domain.Quote, error) {
	item, candidates, at, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	quote := s.engine.Calculate(candidates, item, quantity, at)
	return &quote, nil
}

func (s *Service) EffectiveUnitPrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	quote, err := s.Quote(ctx, productID, 1)
	if err != nil {
		return decimal.Zero, err
	}
	return quote.FinalUnitPrice, nil
}

// load builds the pricing snapshot: the product with its category path and the
// promotions that may target it, evaluated at one instant.
func (s *Service) load(ctx context.Context, productID string) (domain.Item, []domain.Candidate, time.Time, error) {
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return domain.Item{}, nil, time.Time{}, err
	}

	path, err := s.tree.AncestorsIncludingSelf(ctx, product.CategoryID)
	if err != nil && !errors.Is(err, categorydomain.ErrNotFound) {
		return domain.Item{}, nil, time.Time{}, err
	}

	item := domain.Item{
		ProductID:    product.ID,
		Price:        product.Price,
		CategoryPath: path,
	}

	at := s.clock.Now()
	candidates, err := s.repo.ListCandidates(ctx, s.db, product.ID, path, at)
	if err != nil {
		return domain.Item{}, nil, time.Time{}, err
	}
	return item, candidates, at, nil
}

// CanUserRedeem reports whether the promotion is active and the user still has
// per-user allowance. Anonymous users are only bound by the global limit.
func (s *Service) CanUserRedeem(ctx context.Context, promotionID string, userID string) (bool, error) {
	item, err := s.Get(ctx, promotionID)
	if err != nil {
		return false, err
	}

	total, err := s.repo.UsageTotal(ctx, s.db, item.ID)
	if err != nil {
		return false, err
	}
	if !pricing.IsActiveAt(item, s.clock.Now(), total) {
		return false, nil
	}

	userID = strings.TrimSpace(userID)
	if item.PerUserLimit == nil || userID == domain.AnonymousUser {
		return true, nil
	}

	count, err := s.repo.UsageCount(ctx, s.db, item.ID, userID)
	if err != nil {
		return false, err
	}
	return count < *item.PerUserLimit, nil
}

func (s *Service) Redeem(ctx context.Context, req domain.RedeemRequest) (bool, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveRedeemDuration(time.Since(start).Seconds())
	}()

	promotionID, err := parseID(req.PromotionID)
	if err != nil {
		return false, err
	}
	increment := req.Increment
	if increment == 0 {
		increment = 1
	}
	if increment < 0 {
		return false, domain.ErrInvalidIncrement
	}
	userID := strings.TrimSpace(req.UserID)

	release, err := s.locker.Acquire(ctx, lock.PromotionRedeemKey(promotionID.String()))
	if err != nil {
		s.metrics.IncRedemption(metrics.RedeemResultError)
		return false, err
	}
	defer release()

	redeemed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, promotionID, db.SupportsRowLocks(tx))
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		total, err := s.repo.UsageTotal(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		if item.UsageLimit != nil && total+increment > *item.UsageLimit {
			return nil
		}

		if userID != domain.AnonymousUser && item.PerUserLimit != nil {
			count, err := s.repo.UsageCount(ctx, tx, item.ID, userID)
			if err != nil {
				return err
			}
			if count+increment > *item.PerUserLimit {
				return nil
			}
		}

		usage := &domain.Usage{
			ID:          s.genID.Generate(),
			PromotionID: item.ID,
			UserID:      userID,
			LastUsedAt:  s.clock.Now(),
		}
		if err := s.repo.IncrementUsage(ctx, tx, usage, increment); err != nil {
			return err
		}
		redeemed = true
		return nil
	})
	if err != nil {
		s.metrics.IncRedemption(metrics.RedeemResultError)
		return false, err
	}

	if !redeemed {
		s.metrics.IncRedemption(metrics.RedeemResultLimitExceeded)
		s.log.Info("promotion redemption rejected",
			zap.String("promotion_id", promotionID.String()),
			zap.Bool("anonymous", userID == domain.AnonymousUser),
			zap.Int64("increment", increment),
		)
		return false, nil
	}
	s.metrics.IncRedemption(metrics.RedeemResultRedeemed)
	return true, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseIDs(raw []string) ([]snowflake.ID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]snowflake.ID, 0, len(raw))
	seen := make(map[snowflake.ID]struct{}, len(raw))
	for _, value := range raw {
		id, err := parseID(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func normalizeCode(code string) *string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	return &code
}

func nullDecimal(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*value)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
