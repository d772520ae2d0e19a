package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/showcase/internal/clock"
	"github.com/smallbiznis/showcase/internal/events"
	"github.com/smallbiznis/showcase/internal/observability/metrics"
	productdomain "github.com/smallbiznis/showcase/internal/product/domain"
	"github.com/smallbiznis/showcase/internal/scoring/domain"
	"github.com/smallbiznis/showcase/internal/scoring/engine"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultBatchSize   = 200
	defaultConcurrency = 4
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Products  productdomain.Repository
	Engine    *engine.Engine
	Publisher events.Publisher
	Metrics   *metrics.CatalogMetrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	products  productdomain.Repository
	engine    *engine.Engine
	publisher events.Publisher
	metrics   *metrics.CatalogMetrics
}

func New(p Params) domain.Service {
	publisher := p.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("scoring.service"),
		clock:     p.Clock,
		products:  p.Products,
		engine:    p.Engine,
		publisher: publisher,
		metrics:   p.Metrics,
	}
}

func (s *Service) Recalculate(ctx context.Context, productID string) (bool, error) {
	id, err := snowflake.ParseString(productID)
	if err != nil {
		return false, domain.ErrInvalidID
	}
	return s.recalculate(ctx, id)
}

type outcome struct {
	changed  bool
	previous productdomain.Scores
	current  productdomain.Scores
}

func (s *Service) recalculate(ctx context.Context, productID snowflake.ID) (bool, error) {
	now := s.clock.Now()

	var out outcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.products.FindByID(ctx, tx, productID)
		if err != nil {
			return err
		}
		status, err := s.products.FindStatus(ctx, tx, productID)
		if err != nil {
			return err
		}
		if product == nil || status == nil {
			return domain.ErrNotFound
		}

		avg, err := s.products.CategoryAveragePrice(ctx, tx, product.CategoryID)
		if err != nil {
			return err
		}
		peers, err := s.products.CategoryPeerStats(ctx, tx, product.CategoryID, status.ViewCount)
		if err != nil {
			return err
		}

		result := s.engine.Score(domain.NewSnapshot(product, status, avg, peers), now)
		out.previous = status.Scores()
		out.current = result.Scores()

		if out.current.Equal(out.previous) {
			if !status.NeedsRescore {
				return nil
			}
			return s.products.ClearRescore(ctx, tx, productID, now)
		}

		out.changed = true
		return s.products.UpdateScores(ctx, tx, productID, out.current, now)
	})
	if err != nil {
		s.metrics.IncRescore(metrics.RescoreResultError)
		return false, err
	}

	if !out.changed {
		s.metrics.IncRescore(metrics.RescoreResultUnchanged)
		return false, nil
	}

	s.metrics.IncRescore(metrics.RescoreResultChanged)
	if out.previous.IsFeatured != out.current.IsFeatured {
		s.metrics.IncClassificationChange("featured", out.current.IsFeatured)
	}
	if out.previous.IsRecommended != out.current.IsRecommended {
		s.metrics.IncClassificationChange("recommended", out.current.IsRecommended)
	}
	s.publish(ctx, productID, out, now)
	return true, nil
}

// publish failures are logged only; the new scores are already committed.
func (s *Service) publish(ctx context.Context, productID snowflake.ID, out outcome, now time.Time) {
	event := events.ClassificationChanged{
		ProductID:           productID.String(),
		IsFeatured:          out.current.IsFeatured,
		FeaturedScore:       out.current.FeaturedScore,
		IsRecommended:       out.current.IsRecommended,
		RecommendationScore: out.current.RecommendationScore,
		WasFeatured:         out.previous.IsFeatured,
		WasRecommended:      out.previous.IsRecommended,
		OccurredAt:          now,
	}
	if err := s.publisher.PublishClassificationChanged(ctx, event); err != nil {
		s.metrics.IncEventPublished("error")
		s.log.Warn("publish classification change failed",
			zap.String("product_id", event.ProductID),
			zap.Error(err),
		)
		return
	}
	s.metrics.IncEventPublished("ok")
}

func (s *Service) RecalculatePending(ctx context.Context, limit int) (domain.BatchResult, error) {
	if limit <= 0 {
		limit = defaultBatchSize
	}
	ids, err := s.products.ListPendingRescore(ctx, s.db, limit)
	if err != nil {
		return domain.BatchResult{}, err
	}
	return s.run(ctx, ids, 1)
}

// RecalculateAll walks every product in id order, scoring each page with up to
// concurrency workers. Novelty and recency decay with time, so this catches
// products whose counters never changed.
func (s *Service) RecalculateAll(ctx context.Context, batchSize, concurrency int) (domain.BatchResult, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var total domain.BatchResult
	var after snowflake.ID
	for {
		ids, err := s.products.ListIDs(ctx, s.db, after, batchSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		res, err := s.run(ctx, ids, concurrency)
		total.Processed += res.Processed
		total.Changed += res.Changed
		total.Failed += res.Failed
		if err != nil {
			return total, err
		}

		if len(ids) < batchSize {
			return total, nil
		}
		after = ids[len(ids)-1]
	}
}

// run rescores ids; one product's failure is counted and never stops the batch.
func (s *Service) run(ctx context.Context, ids []snowflake.ID, concurrency int) (domain.BatchResult, error) {
	var (
		mu  sync.Mutex
		res domain.BatchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			changed, err := s.recalculate(gctx, id)
			failed := err != nil && !errors.Is(err, domain.ErrNotFound)
			if failed {
				s.deferRescore(gctx, id)
			}

			mu.Lock()
			defer mu.Unlock()
			res.Processed++
			switch {
			case failed:
				res.Failed++
				s.log.Warn("rescore failed", zap.String("product_id", id.String()), zap.Error(err))
			case changed:
				res.Changed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, ctx.Err()
}

// deferRescore requeues a failed product behind the other pending ones so a
// product that keeps failing cannot hold the head of the queue.
func (s *Service) deferRescore(ctx context.Context, id snowflake.ID) {
	if err := s.products.DeferRescore(ctx, s.db, id, s.clock.Now()); err != nil {
		s.log.Warn("defer rescore failed", zap.String("product_id", id.String()), zap.Error(err))
	}
}
