package billing

import (
	"github.com/invozo/invozo/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(service.NewItemBuilder),
)
