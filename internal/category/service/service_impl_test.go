package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/showcase/internal/category/domain"
	"github.com/smallbiznis/showcase/internal/category/repository"
	"github.com/smallbiznis/showcase/internal/clock"
	"github.com/smallbiznis/showcase/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Category{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	}).(*Service)
}

func mustCreate(t *testing.T, svc *Service, name string, parent *domain.Category) *domain.Category {
	t.Helper()
	req := domain.CreateRequest{Name: name}
	if parent != nil {
		req.ParentID = parent.ID.String()
	}
	item, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	return item
}

func TestCreate_GeneratesUniqueSlugs(t *testing.T) {
	svc := newTestService(t)

	first := mustCreate(t, svc, "Téléphones", nil)
	second := mustCreate(t, svc, "Téléphones", nil)

	assert.Equal(t, "telephones", first.Slug)
	assert.Equal(t, "telephones-2", second.Slug)
	assert.True(t, first.Active)
	assert.True(t, first.IsRoot())
}

func TestCreate_RejectsUnknownParent(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{Name: "Orphan", ParentID: "12345"})
	assert.ErrorIs(t, err, domain.ErrInvalidParent)

	_, err = svc.Create(context.Background(), domain.CreateRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestAncestorsIncludingSelf_OrdersSelfToRoot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	electronics := mustCreate(t, svc, "Electronics", nil)
	phones := mustCreate(t, svc, "Phones", electronics)
	android := mustCreate(t, svc, "Android", phones)

	chain, err := svc.AncestorsIncludingSelf(ctx, android.ID)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{android.ID, phones.ID, electronics.ID}, chain)

	chain, err = svc.AncestorsIncludingSelf(ctx, electronics.ID)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{electronics.ID}, chain)

	_, err = svc.AncestorsIncludingSelf(ctx, snowflake.ID(42))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDescendantsIncludingSelf_BreadthFirst(t *testing.T) {
	svc := newTestService(t)

	root := mustCreate(t, svc, "Home", nil)
	kitchen := mustCreate(t, svc, "Kitchen", root)
	garden := mustCreate(t, svc, "Garden", root)
	knives := mustCreate(t, svc, "Knives", kitchen)
	mustCreate(t, svc, "Unrelated", nil)

	ids, err := svc.DescendantsIncludingSelf(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{root.ID, kitchen.ID, garden.ID, knives.ID}, ids)
}

func TestMove_RejectsCycles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, "A", nil)
	b := mustCreate(t, svc, "B", a)
	c := mustCreate(t, svc, "C", b)

	_, err := svc.Move(ctx, a.ID.String(), c.ID.String())
	assert.ErrorIs(t, err, domain.ErrCyclicParent)

	_, err = svc.Move(ctx, a.ID.String(), a.ID.String())
	assert.ErrorIs(t, err, domain.ErrCyclicParent)

	moved, err := svc.Move(ctx, c.ID.String(), "")
	require.NoError(t, err)
	assert.True(t, moved.IsRoot())

	chain, err := svc.AncestorsIncludingSelf(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{c.ID}, chain)
}
