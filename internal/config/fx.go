package config

import (
	"errors"

	"go.uber.org/fx"
)

var ErrUnsupportedDriver = errors.New("unsupported_db_driver")

var Module = fx.Module("config",
	fx.Provide(Load),
)
