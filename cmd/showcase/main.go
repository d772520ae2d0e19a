package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/showcase/internal/category"
	categorydomain "github.com/smallbiznis/showcase/internal/category/domain"
	"github.com/smallbiznis/showcase/internal/clock"
	"github.com/smallbiznis/showcase/internal/config"
	"github.com/smallbiznis/showcase/internal/events"
	"github.com/smallbiznis/showcase/internal/lock"
	"github.com/smallbiznis/showcase/internal/logger"
	"github.com/smallbiznis/showcase/internal/migration"
	"github.com/smallbiznis/showcase/internal/observability"
	"github.com/smallbiznis/showcase/internal/product"
	productdomain "github.com/smallbiznis/showcase/internal/product/domain"
	"github.com/smallbiznis/showcase/internal/promotion"
	promotiondomain "github.com/smallbiznis/showcase/internal/promotion/domain"
	"github.com/smallbiznis/showcase/internal/scheduler"
	"github.com/smallbiznis/showcase/internal/scoring"
	"github.com/smallbiznis/showcase/internal/server"
	"github.com/smallbiznis/showcase/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		events.Module,
		migration.Module,

		// Functional Domains
		category.Module,
		product.Module,
		promotion.Module,
		scoring.Module,

		scheduler.Module,
		server.Module,

		// nothing in-process consumes the catalog services yet; build them so
		// wiring errors fail startup instead of the first caller
		fx.Invoke(func(log *zap.Logger, _ categorydomain.Service, _ productdomain.Service, _ promotiondomain.Service) {
			log.Info("catalog services ready")
		}),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
