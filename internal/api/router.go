package api

import (
	"github.com/gin-gonic/gin"

	"github.com/resilientsys/degrade/pkg/logging"
	"github.com/resilientsys/degrade/pkg/metrics"
	"github.com/resilientsys/degrade/pkg/tracing"
)

// RouterConfig bundles the dependencies of the HTTP control plane.
type RouterConfig struct {
	Handlers *Handlers
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
	Tracing  *tracing.Service
}

// SetupRouter builds the Gin engine with the full middleware chain and all
// control-plane routes.
func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware())
	if cfg.Tracing != nil {
		router.Use(cfg.Tracing.Middleware())
	}
	if cfg.Logger != nil {
		router.Use(LoggingMiddleware(cfg.Logger))
	}

	router.GET("/healthz", cfg.Handlers.Healthz)
	if cfg.Metrics != nil {
		router.GET("/metrics", cfg.Metrics.Handler())
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", cfg.Handlers.GetStatus)
		v1.PUT("/override", cfg.Handlers.SetOverride)
		v1.DELETE("/override", cfg.Handlers.ClearOverride)
		v1.POST("/check", cfg.Handlers.ForceCheck)
	}

	router.NoRoute(func(c *gin.Context) {
		NotFoundResponse(c, "endpoint not found")
	})

	return router
}
