package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const TypeClassificationChanged = "product.classification_changed"

// ClassificationChanged is emitted after a rescore alters any stored score.
type ClassificationChanged struct {
	ProductID           string          `json:"product_id"`
	IsFeatured          bool            `json:"is_featured"`
	FeaturedScore       decimal.Decimal `json:"featured_score"`
	IsRecommended       bool            `json:"is_recommended"`
	RecommendationScore decimal.Decimal `json:"recommendation_score"`
	WasFeatured         bool            `json:"was_featured"`
	WasRecommended      bool            `json:"was_recommended"`
	OccurredAt          time.Time       `json:"occurred_at"`
}

type Publisher interface {
	PublishClassificationChanged(ctx context.Context, event ClassificationChanged) error
}

type NoopPublisher struct{}

func (NoopPublisher) PublishClassificationChanged(context.Context, ClassificationChanged) error {
	return nil
}
