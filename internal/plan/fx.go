package plan

import (
	"context"

	plandomain "github.com/invozo/invozo/internal/plan/domain"
	"github.com/invozo/invozo/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(service.NewService),
	fx.Invoke(registerCatalog),
)

func registerCatalog(lc fx.Lifecycle, svc plandomain.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.EnsureCatalog(ctx)
		},
	})
}
