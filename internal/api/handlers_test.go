package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilientsys/degrade/pkg/degradation"
)

type testProbe struct {
	mu      sync.Mutex
	healthy bool
}

func (p *testProbe) probe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.healthy {
		return nil
	}
	return fmt.Errorf("dependency unreachable")
}

func newTestRouter(t *testing.T) (*gin.Engine, *degradation.AIController) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	probe := &testProbe{healthy: true}
	controller, err := degradation.NewAIController(degradation.AIConfig{
		Controller: degradation.Config{
			ServiceName: "inference-api",
			Probe:       probe.probe,
			Rules:       degradation.DefaultRules(0.2, 0.5, 0.9),
		},
		PrimaryModel:      "large-v3",
		FallbackModel:     "small-v2",
		DefaultMaxTokens:  4000,
		DegradedMaxTokens: 1000,
		ErrorMessage:      "unavailable",
	})
	require.NoError(t, err)

	router := SetupRouter(RouterConfig{
		Handlers: NewHandlers(controller, nil),
	})
	return router, controller
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	return data
}

func TestGetStatus(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "inference-api", data["service"])
	assert.Equal(t, "NORMAL", data["level"])
	assert.Equal(t, false, data["overridden"])
	assert.Equal(t, "large-v3", data["current_model"])
	assert.Equal(t, float64(4000), data["max_tokens"])
}

func TestOverrideLifecycle(t *testing.T) {
	router, controller := newTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/v1/override", OverrideRequest{Level: "minimal"})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "MINIMAL", data["level"])
	assert.Equal(t, true, data["overridden"])
	assert.Equal(t, "small-v2", data["current_model"])
	assert.Equal(t, degradation.LevelMinimal, controller.CurrentLevel())

	w = doRequest(router, http.MethodDelete, "/api/v1/override", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data = decodeData(t, w)
	assert.Equal(t, "NORMAL", data["level"])
	assert.Equal(t, false, data["overridden"])
	assert.Equal(t, degradation.LevelNormal, controller.CurrentLevel())
}

func TestOverrideRejectsBadInput(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/v1/override", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPut, "/api/v1/override", OverrideRequest{Level: "catastrophic"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForceCheck(t *testing.T) {
	router, controller := newTestRouter(t)

	before := controller.Metrics().TotalChecks
	w := doRequest(router, http.MethodPost, "/api/v1/check", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "NORMAL", data["level"])
	assert.Equal(t, before+1, controller.Metrics().TotalChecks)
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestNoRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/nonsense", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}
