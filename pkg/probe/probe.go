// Package probe provides ready-made health probes for the degradation
// controller: HTTP endpoints, Redis, and Postgres. Each constructor returns
// a degradation.Probe; a nil result from the probe means healthy.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/resilientsys/degrade/pkg/degradation"
	"github.com/resilientsys/degrade/pkg/errors"
)

// HTTP probes a health endpoint with GET. Any transport error or a status
// outside 2xx is an unhealthy signal.
func HTTP(url string, timeout time.Duration) degradation.Probe {
	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.NewInternalError("failed to create probe request").WithCause(err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return errors.NewExternalError(url, "probe request failed").WithCause(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return errors.NewExternalError(url, fmt.Sprintf("probe returned status %d", resp.StatusCode))
		}
		return nil
	}
}

// Redis probes a Redis server with PING.
func Redis(client *redis.Client) degradation.Probe {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.NewInternalError("redis client is nil")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.NewExternalError("redis", "ping failed").WithCause(err)
		}
		return nil
	}
}

// Postgres probes a database connection with a ping.
func Postgres(db *sqlx.DB) degradation.Probe {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.NewInternalError("database connection is nil")
		}
		if err := db.PingContext(ctx); err != nil {
			return errors.NewExternalError("postgres", "ping failed").WithCause(err)
		}
		return nil
	}
}

// Func adapts a plain boolean health function into a probe.
func Func(name string, fn func(ctx context.Context) (bool, error)) degradation.Probe {
	return func(ctx context.Context) error {
		healthy, err := fn(ctx)
		if err != nil {
			return errors.NewExternalError(name, "probe failed").WithCause(err)
		}
		if !healthy {
			return errors.NewExternalError(name, "probe reported unhealthy")
		}
		return nil
	}
}
