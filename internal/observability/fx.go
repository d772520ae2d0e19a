package observability

import (
	"github.com/smallbiznis/showcase/internal/config"
	"github.com/smallbiznis/showcase/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(provideMetricsConfig),
	fx.Provide(provideCatalogMetrics),
	fx.Provide(provideSchedulerMetrics),
)

func provideMetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	}
}

func provideCatalogMetrics(cfg metrics.Config) *metrics.CatalogMetrics {
	return metrics.CatalogWithConfig(cfg)
}

func provideSchedulerMetrics(cfg metrics.Config) *metrics.SchedulerMetrics {
	return metrics.SchedulerWithConfig(cfg)
}
