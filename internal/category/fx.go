package category

import (
	"github.com/smallbiznis/showcase/internal/category/domain"
	"github.com/smallbiznis/showcase/internal/category/repository"
	"github.com/smallbiznis/showcase/internal/category/service"
	"go.uber.org/fx"
)

var Module = fx.Module("category.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) domain.Tree { return svc }),
)
