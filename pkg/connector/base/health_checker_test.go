package base

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nova/pkg/config"
	"github.com/ajitpratap0/nova/pkg/connector/core"
)

func TestHealthChecker_FailureEscalation(t *testing.T) {
	hc := NewHealthChecker("test", time.Hour)
	hc.SetCheckFunc(func(ctx context.Context) error {
		return fmt.Errorf("endpoint unreachable")
	})

	ctx := context.Background()

	hc.performCheck(ctx)
	assert.Equal(t, "degraded", hc.GetStatus().Status)

	hc.performCheck(ctx)
	assert.Equal(t, "degraded", hc.GetStatus().Status)

	hc.performCheck(ctx)
	status := hc.GetStatus()
	assert.Equal(t, "unhealthy", status.Status, "three consecutive failures mean unhealthy")
	assert.Equal(t, 3, status.Details["consecutive_failures"])
	assert.Equal(t, "endpoint unreachable", status.Details["last_error"])
	assert.EqualValues(t, 3, hc.CheckCount())
	assert.EqualValues(t, 3, hc.FailureCount())
}

func TestHealthChecker_Recovery(t *testing.T) {
	hc := NewHealthChecker("test", time.Hour)
	checkErr := fmt.Errorf("flaky")
	hc.SetCheckFunc(func(ctx context.Context) error { return checkErr })

	ctx := context.Background()
	hc.performCheck(ctx)
	require.Equal(t, "degraded", hc.GetStatus().Status)

	checkErr = nil
	hc.performCheck(ctx)

	status := hc.GetStatus()
	assert.Equal(t, "healthy", status.Status)
	assert.Nil(t, status.Error)
	assert.NotContains(t, status.Details, "consecutive_failures")
	assert.NotContains(t, status.Details, "last_error")
}

func TestHealthChecker_WithoutCheckFuncStaysHealthy(t *testing.T) {
	hc := NewHealthChecker("test", time.Hour)

	hc.performCheck(context.Background())
	assert.Equal(t, "healthy", hc.GetStatus().Status)
	assert.EqualValues(t, 1, hc.CheckCount())
	assert.EqualValues(t, 0, hc.FailureCount())
}

func TestHealthChecker_UpdateStatus(t *testing.T) {
	hc := NewHealthChecker("test", time.Hour)

	hc.UpdateStatus(false, map[string]interface{}{"write_error": "disk full"})
	status := hc.GetStatus()
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "disk full", status.Details["write_error"])

	hc.UpdateStatus(true, nil)
	assert.Equal(t, "healthy", hc.GetStatus().Status)
}

func TestBaseConnector_HealthCheckDisabled(t *testing.T) {
	cfg := config.NewBaseConfig("test", "source")
	cfg.Reliability.HealthCheck = false

	bc := NewBaseConnector("test", core.ConnectorTypeSource, "1.0.0")
	require.NoError(t, bc.Initialize(context.Background(), cfg))
	defer func() { _ = bc.Close(context.Background()) }()

	assert.Nil(t, bc.GetHealthChecker())
	assert.NoError(t, bc.Health(context.Background()))

	m := bc.Metrics()
	assert.NotContains(t, m, "health_status")
}

func TestBaseConnector_HealthCheckEnabled(t *testing.T) {
	cfg := config.NewBaseConfig("test", "source")
	require.True(t, cfg.Reliability.HealthCheck, "periodic checks default on")

	bc := NewBaseConnector("test", core.ConnectorTypeSource, "1.0.0")
	require.NoError(t, bc.Initialize(context.Background(), cfg))
	defer func() { _ = bc.Close(context.Background()) }()

	require.NotNil(t, bc.GetHealthChecker())
	assert.NoError(t, bc.Health(context.Background()))
	assert.Contains(t, bc.Metrics(), "health_status")
}
