package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilientsys/degrade/pkg/errors"
)

func TestErrorResponseFromError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", errors.NewValidationError("bad input"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"timeout", errors.NewTimeoutError("degraded execution"), http.StatusRequestTimeout, "TIMEOUT"},
		{"offline", errors.NewOfflineError("inference-api"), http.StatusServiceUnavailable, "SERVICE_OFFLINE"},
		{"external", errors.NewExternalError("redis", "ping failed"), http.StatusBadGateway, "EXTERNAL_SERVICE_ERROR"},
		{"internal", errors.NewInternalError("broken"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"plain error", fmt.Errorf("mystery"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/boom", func(c *gin.Context) {
				ErrorResponseFromError(c, tt.err)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
