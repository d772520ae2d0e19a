package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("not_found")
)

type Service interface {
	// Recalculate rescores one product. changed is false when the stored
	// classification already matched and nothing was written.
	Recalculate(ctx context.Context, productID string) (changed bool, err error)
	RecalculatePending(ctx context.Context, limit int) (BatchResult, error)
	RecalculateAll(ctx context.Context, batchSize, concurrency int) (BatchResult, error)
}

type BatchResult struct {
	Processed int
	Changed   int
	Failed    int
}
