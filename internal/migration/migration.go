package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	categorydomain "github.com/smallbiznis/showcase/internal/category/domain"
	productdomain "github.com/smallbiznis/showcase/internal/product/domain"
	promotiondomain "github.com/smallbiznis/showcase/internal/promotion/domain"
	"github.com/smallbiznis/showcase/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table the catalog owns, parents first.
func Models() []any {
	return []any{
		&categorydomain.Category{},
		&productdomain.Product{},
		&productdomain.Status{},
		&promotiondomain.Promotion{},
		&promotiondomain.PromotionProduct{},
		&promotiondomain.PromotionCategory{},
		&promotiondomain.Usage{},
	}
}

// Migrate applies the embedded SQL on postgres, AutoMigrate on mysql, and
// creates missing tables on sqlite.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	switch conn.Dialector.Name() {
	case db.TypePostgres:
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	case db.TypeSQLite:
		return createMissingTables(conn)
	default:
		return conn.AutoMigrate(Models()...)
	}
}

// createMissingTables never alters an existing sqlite table: the sqlite
// migrator rebuilds altered tables by re-parsing their stored DDL and rejects
// the products and promotions definitions.
func createMissingTables(conn *gorm.DB) error {
	migrator := conn.Migrator()
	for _, model := range Models() {
		if migrator.HasTable(model) {
			continue
		}
		if err := migrator.CreateTable(model); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}
