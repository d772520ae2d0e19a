package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Tree answers hierarchy questions for pricing (ancestors) and catalog listings (descendants).
type Tree interface {
	// AncestorsIncludingSelf returns id followed by its parents up to the root.
	AncestorsIncludingSelf(ctx context.Context, id snowflake.ID) ([]snowflake.ID, error)
	// DescendantsIncludingSelf returns id followed by every node below it, breadth first.
	DescendantsIncludingSelf(ctx context.Context, id snowflake.ID) ([]snowflake.ID, error)
}

type Service interface {
	Tree

	Create(ctx context.Context, req CreateRequest) (*Category, error)
	Get(ctx context.Context, id string) (*Category, error)
	Move(ctx context.Context, id string, parentID string) (*Category, error)
}

type CreateRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
	Active   *bool  `json:"active"`
}

// MaxDepth bounds tree walks so corrupted parent links cannot loop forever.
const MaxDepth = 64

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidParent = errors.New("invalid_parent")
	ErrCyclicParent  = errors.New("cyclic_parent")
	ErrTreeTooDeep   = errors.New("tree_too_deep")
	ErrNotFound      = errors.New("not_found")
)
