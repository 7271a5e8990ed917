package observability

import (
	"github.com/smallbiznis/lis/internal/observability/logger"
	"github.com/smallbiznis/lis/internal/observability/metrics"
	"github.com/smallbiznis/lis/internal/observability/remotewrite"
	"github.com/smallbiznis/lis/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		splitConfig,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	// Nothing else depends on the tracer provider; force it so the global is installed.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
	fx.Invoke(remotewrite.Register),
)

type componentConfigs struct {
	fx.Out

	Logger  logger.Config
	Tracing tracing.Config
	Metrics metrics.Config
}

func splitConfig(cfg Config) componentConfigs {
	tel := cfg.Telemetry
	return componentConfigs{
		Logger: logger.Config{
			ServiceName:         cfg.ServiceName,
			Environment:         cfg.Environment,
			Version:             cfg.Version,
			Level:               tel.LogLevel,
			Format:              tel.LogFormat,
			IncludeCaller:       true,
			IncludeStackOnError: cfg.Debug(),
		},
		Tracing: tracing.Config{
			Enabled:          tel.ExportEnabled,
			ServiceName:      cfg.ServiceName,
			ServiceVersion:   cfg.Version,
			Environment:      cfg.Environment,
			ExporterEndpoint: tel.OTLPEndpoint,
			ExporterProtocol: tel.OTLPProtocol,
			SamplingRatio:    tel.SamplingRatio,
		},
		Metrics: metrics.Config{
			Enabled:          tel.ExportEnabled,
			ExporterEndpoint: tel.OTLPEndpoint,
			ExporterProtocol: tel.OTLPProtocol,
			ServiceName:      cfg.ServiceName,
			Environment:      cfg.Environment,
		},
	}
}
