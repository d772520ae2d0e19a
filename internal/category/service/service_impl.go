package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/showcase/internal/category/domain"
	"github.com/smallbiznis/showcase/internal/clock"
	"github.com/smallbiznis/showcase/pkg/slugs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const slugMaxLen = 120

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("category.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	var parentID *snowflake.ID
	if raw := strings.TrimSpace(req.ParentID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidParent
		}
		parent, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, domain.ErrInvalidParent
		}
		parentID = &id
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

	now := s.clock.Now()
	item := &domain.Category{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug,
		ParentID:  parentID,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Category, error) {
	categoryID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, categoryID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

// Move re-parents a category. An empty parentID makes it a root.
func (s *Service) Move(ctx context.Context, id string, parentID string) (*domain.Category, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var target *snowflake.ID
	if raw := strings.TrimSpace(parentID); raw != "" {
		pid, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidParent
		}
		ancestors, err := s.AncestorsIncludingSelf(ctx, pid)
		if err != nil {
			return nil, err
		}
		for _, ancestor := range ancestors {
			if ancestor == item.ID {
				return nil, domain.ErrCyclicParent
			}
		}
		target = &pid
	}

	if err := s.repo.UpdateParent(ctx, s.db, item.ID, target); err != nil {
		return nil, err
	}
	item.ParentID = target
	item.UpdatedAt = s.clock.Now()
	return item, nil
}

func (s *Service) AncestorsIncludingSelf(ctx context.Context, id snowflake.ID) ([]snowflake.ID, error) {
	chain := make([]snowflake.ID, 0, 4)
	seen := make(map[snowflake.ID]struct{}, 4)

	current := &id
	for current != nil {
		if _, ok := seen[*current]; ok {
			s.log.Warn("category parent loop detected", zap.String("category_id", id.String()))
			return nil, domain.ErrCyclicParent
		}
		if len(chain) >= domain.MaxDepth {
			return nil, domain.ErrTreeTooDeep
		}

		item, err := s.repo.FindByID(ctx, s.db, *current)
		if err != nil {
			return nil, err
		}
		if item == nil {
			if len(chain) == 0 {
				return nil, domain.ErrNotFound
			}
			// dangling parent link, stop at the last known node
			break
		}

		seen[item.ID] = struct{}{}
		chain = append(chain, item.ID)
		current = item.ParentID
	}
	return chain, nil
}

func (s *Service) DescendantsIncludingSelf(ctx context.Context, id snowflake.ID) ([]snowflake.ID, error) {
	root, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, domain.ErrNotFound
	}

	out := []snowflake.ID{root.ID}
	seen := map[snowflake.ID]struct{}{root.ID: {}}
	frontier := []snowflake.ID{root.ID}

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= domain.MaxDepth {
			return nil, domain.ErrTreeTooDeep
		}
		children, err := s.repo.ChildIDs(ctx, s.db, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, child := range children {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			out = append(out, child)
			frontier = append(frontier, child)
		}
	}
	return out, nil
}
