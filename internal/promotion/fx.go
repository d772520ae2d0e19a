package promotion

import (
	"github.com/smallbiznis/showcase/internal/promotion/pricing"
	"github.com/smallbiznis/showcase/internal/promotion/repository"
	"github.com/smallbiznis/showcase/internal/promotion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("promotion.service",
	fx.Provide(repository.Provide),
	fx.Provide(pricing.NewEngine),
	fx.Provide(service.New),
)
