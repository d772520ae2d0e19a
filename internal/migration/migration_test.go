package migration

import (
	"io/fs"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	categorydomain "github.com/smallbiznis/showcase/internal/category/domain"
	productdomain "github.com/smallbiznis/showcase/internal/product/domain"
	"github.com/smallbiznis/showcase/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	assert.True(t, names["000001_init_catalog.up.sql"])
	assert.True(t, names["000001_init_catalog.down.sql"])
}

func TestMigrate_AutoMigratesSQLite(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, Migrate(conn))
	for _, model := range Models() {
		assert.True(t, conn.Migrator().HasTable(model))
	}
	assert.True(t, conn.Migrator().HasIndex(Models()[6], "ux_promotion_usages_owner"))

	// idempotent
	require.NoError(t, Migrate(conn))
}

func TestMigrate_RestartKeepsRows(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	category := &categorydomain.Category{ID: node.Generate(), Name: "Phones", Slug: "phones", Active: true, CreatedAt: now}
	require.NoError(t, conn.Create(category).Error)
	product := &productdomain.Product{
		ID:             node.Generate(),
		CategoryID:     category.ID,
		Name:           "Phone",
		Slug:           "phone",
		SKU:            "SKU-1",
		Price:          decimal.RequireFromString("199.90"),
		CompareAtPrice: decimal.NewNullDecimal(decimal.NewFromInt(250)),
		StockQuantity:  3,
		InStock:        true,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, conn.Create(product).Error)

	require.NoError(t, Migrate(conn))
	require.NoError(t, Migrate(conn))

	var count int64
	require.NoError(t, conn.Model(&productdomain.Product{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var stored productdomain.Product
	require.NoError(t, conn.First(&stored, "id = ?", product.ID).Error)
	assert.True(t, decimal.RequireFromString("199.9").Equal(stored.Price))
}

func TestMigrate_RequiresConnection(t *testing.T) {
	assert.Error(t, Migrate(nil))
	assert.Error(t, RunMigrations(nil))
}
