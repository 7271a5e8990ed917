package observability

import (
	"testing"

	"github.com/smallbiznis/lis/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaultsServiceName(t *testing.T) {
	cfg := LoadConfig(config.Config{Environment: " production ", AppVersion: "1.2.0"})
	assert.Equal(t, "lis", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.Debug())

	cfg.Telemetry.LogLevel = "debug"
	assert.True(t, cfg.Debug())
}

func TestSplitConfigSharesExportSettings(t *testing.T) {
	out := splitConfig(Config{
		ServiceName: "lis",
		Environment: "development",
		Telemetry: config.TelemetryConfig{
			LogLevel:      "info",
			OTLPEndpoint:  "collector:4317",
			OTLPProtocol:  "grpc",
			SamplingRatio: 0.5,
			ExportEnabled: true,
		},
	})

	assert.True(t, out.Logger.IncludeStackOnError)
	assert.True(t, out.Tracing.Enabled)
	assert.Equal(t, 0.5, out.Tracing.SamplingRatio)
	assert.Equal(t, out.Tracing.ExporterEndpoint, out.Metrics.ExporterEndpoint)
}
