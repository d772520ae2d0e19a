package scoring

import (
	"github.com/smallbiznis/showcase/internal/scoring/engine"
	"github.com/smallbiznis/showcase/internal/scoring/service"
	"go.uber.org/fx"
)

var Module = fx.Module("scoring.service",
	fx.Provide(engine.New),
	fx.Provide(service.New),
)
