package alerting

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilientsys/degrade/pkg/degradation"
)

type captureHandler struct {
	mu     sync.Mutex
	alerts []Alert
	fail   bool
}

func (h *captureHandler) HandleAlert(ctx context.Context, alert Alert) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return fmt.Errorf("handler failed")
	}
	h.alerts = append(h.alerts, alert)
	return nil
}

func (h *captureHandler) Name() string { return "capture" }

func (h *captureHandler) captured() []Alert {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Alert(nil), h.alerts...)
}

func TestManagerSend(t *testing.T) {
	manager := NewManager()
	handler := &captureHandler{}
	manager.AddHandler(handler)

	err := manager.Send(context.Background(), Alert{
		Severity: SeverityWarning,
		Title:    "Test Alert",
		Source:   "test",
	})
	require.NoError(t, err)

	alerts := handler.captured()
	require.Len(t, alerts, 1)
	assert.NotEmpty(t, alerts[0].ID)
	assert.False(t, alerts[0].Timestamp.IsZero())
	assert.Equal(t, "Test Alert", alerts[0].Title)
}

func TestManagerAllHandlersFailed(t *testing.T) {
	manager := NewManager()
	manager.AddHandler(&captureHandler{fail: true})

	err := manager.Send(context.Background(), Alert{Title: "x", Source: "test"})
	assert.Error(t, err)
}

func TestManagerRateLimit(t *testing.T) {
	manager := NewManager()
	handler := &captureHandler{}
	manager.AddHandler(handler)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, manager.Send(ctx, Alert{Title: "flood", Source: "noisy"}))
	}

	err := manager.Send(ctx, Alert{Title: "flood", Source: "noisy"})
	assert.Error(t, err, "101st alert from the same source is dropped")

	// A different source is unaffected.
	assert.NoError(t, manager.Send(ctx, Alert{Title: "ok", Source: "quiet"}))
}

func TestLevelMonitorOnLevelChange(t *testing.T) {
	manager := NewManager()
	handler := &captureHandler{}
	manager.AddHandler(handler)

	monitor := NewLevelMonitor("inference-api", manager)
	monitor.OnLevelChange(degradation.LevelNormal, degradation.LevelMinimal)

	alerts := handler.captured()
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityError, alerts[0].Severity)
	assert.Equal(t, "inference-api", alerts[0].Source)
	assert.Equal(t, "NORMAL", alerts[0].Tags["previous_level"])
	assert.Equal(t, "MINIMAL", alerts[0].Tags["current_level"])
	assert.Contains(t, alerts[0].Description, "inference-api")
}

func TestSeverityForLevel(t *testing.T) {
	assert.Equal(t, SeverityInfo, severityForLevel(degradation.LevelNormal))
	assert.Equal(t, SeverityWarning, severityForLevel(degradation.LevelDegraded))
	assert.Equal(t, SeverityError, severityForLevel(degradation.LevelMinimal))
	assert.Equal(t, SeverityCritical, severityForLevel(degradation.LevelOffline))
}
