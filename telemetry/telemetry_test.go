package telemetry

import (
	"context"
	"testing"
	"time"

	"ume-client/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), config.Config{}, zap.NewNop())
	assert.NoError(t, err)
	assert.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestEndpointsPreferSignalSpecific(t *testing.T) {
	cfg := config.TelemetryConfig{
		OTLPEndpoint:        "collector:4317",
		OTLPMetricsEndpoint: "metrics:4317",
	}
	traces, metrics := endpoints(cfg)
	assert.Equal(t, "collector:4317", traces)
	assert.Equal(t, "metrics:4317", metrics)
	assert.True(t, Enabled(cfg))
	assert.False(t, Enabled(config.TelemetryConfig{}))
}

func TestNewExportersHTTPAndGRPC(t *testing.T) {
	for _, protocol := range []string{"http/protobuf", "grpc"} {
		cfg := config.TelemetryConfig{
			OTLPEndpoint:  "127.0.0.1:4318",
			OTLPProtocol:  protocol,
			OTLPInsecure:  true,
			ExportTimeout: time.Second,
		}
		traceExporter, metricExporter, err := newExporters(context.Background(), cfg)
		assert.NoError(t, err, protocol)
		assert.NotNil(t, traceExporter)
		assert.NotNil(t, metricExporter)
	}
}
