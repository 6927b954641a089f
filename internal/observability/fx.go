package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/invozo/invozo/internal/config"
	"github.com/invozo/invozo/internal/observability/logger"
	"github.com/invozo/invozo/internal/observability/metrics"
	"github.com/invozo/invozo/internal/observability/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(logger.New),
	fx.Provide(newTracingConfig),
	fx.Provide(tracing.NewProvider),
	fx.Provide(func() *metrics.HTTPMetrics {
		return metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	}),
)

func newTracingConfig(cfg config.Config) tracing.Config {
	ratio, _ := strconv.ParseFloat(strings.TrimSpace(os.Getenv("INVOZO_TRACE_SAMPLING_RATIO")), 64)
	enabled, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("INVOZO_TRACING_ENABLED")))
	return tracing.Config{
		Enabled:          enabled,
		ServiceName:      "invozo",
		Environment:      cfg.Environment,
		ExporterEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SamplingRatio:    ratio,
	}
}
