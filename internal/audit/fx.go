package audit

import (
	"github.com/invozo/invozo/internal/audit/repository"
	"github.com/invozo/invozo/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewRecorder),
)
