package degradation

import (
	"context"
	"sync"
	"time"

	"github.com/resilientsys/degrade/pkg/errors"
	"github.com/resilientsys/degrade/pkg/logging"
)

const (
	// DefaultCheckInterval is the period of the background health-check loop
	DefaultCheckInterval = 30 * time.Second
	// DefaultDegradedTimeout bounds operations executed at LevelDegraded
	DefaultDegradedTimeout = 15 * time.Second
)

// Probe checks the health of the monitored dependency. A nil return means
// healthy; any error is treated as an unhealthy signal and is never
// propagated to the caller of CheckHealth.
type Probe func(ctx context.Context) error

// Operation is a unit of work executed under the controller's current policy.
type Operation func(ctx context.Context) (interface{}, error)

// Fallback supplies a substitute result when the primary operation is
// skipped or fails. A nil Fallback means no fallback was provided.
type Fallback func(ctx context.Context) (interface{}, error)

// Recorder receives controller observations. Implementations must be safe
// for concurrent use; pkg/metrics provides a Prometheus-backed one.
type Recorder interface {
	RecordLevel(level DegradationLevel)
	RecordHealthCheck(healthy bool)
	RecordExecution(level DegradationLevel, outcome string, duration time.Duration)
	RecordChainStage(source ChainSource)
}

// Execution outcomes reported to the Recorder.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeCache    = "cache"
	OutcomeError    = "error"
)

// Config holds the immutable configuration of a Controller.
type Config struct {
	// ServiceName identifies the monitored dependency in errors and logs
	ServiceName string
	// Probe is the health check invoked by the background loop
	Probe Probe
	// Rules map metrics to levels; evaluated most severe first
	Rules []Rule
	// CheckInterval is the probe loop period (default 30s)
	CheckInterval time.Duration
	// DegradedTimeout bounds operations at LevelDegraded (default 15s)
	DegradedTimeout time.Duration
	// OnLevelChange is called after every effective level transition
	OnLevelChange func(from, to DegradationLevel)
	// Recorder receives check/execution observations (optional)
	Recorder Recorder
	// Logger defaults to the global logger
	Logger *logging.Logger
}

// Controller owns the current operating level of one external dependency.
// A background loop drives level transitions from health-check results while
// callers wrap their work in Execute to run it under a level-appropriate
// strategy. All state is mutex-guarded; the controller is safe for
// concurrent use from any number of goroutines.
type Controller struct {
	name            string
	probe           Probe
	rules           []Rule
	checkInterval   time.Duration
	degradedTimeout time.Duration
	onLevelChange   func(from, to DegradationLevel)
	recorder        Recorder
	logger          *logging.Logger

	mutex           sync.RWMutex
	currentLevel    DegradationLevel
	override        *DegradationLevel
	totalChecks     int64
	failedChecks    int64
	lastHealthCheck time.Time
	startedAt       time.Time
	lastCached      interface{}
	hasCached       bool

	running  bool
	stopChan chan struct{}
}

// NewController creates a controller for the named service.
func NewController(config Config) (*Controller, error) {
	if config.ServiceName == "" {
		return nil, errors.NewValidationError("service name is required")
	}
	if config.Probe == nil {
		return nil, errors.NewValidationError("health probe is required")
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultCheckInterval
	}
	if config.DegradedTimeout <= 0 {
		config.DegradedTimeout = DefaultDegradedTimeout
	}
	if config.Logger == nil {
		config.Logger = logging.GetLogger()
	}

	return &Controller{
		name:            config.ServiceName,
		probe:           config.Probe,
		rules:           config.Rules,
		checkInterval:   config.CheckInterval,
		degradedTimeout: config.DegradedTimeout,
		onLevelChange:   config.OnLevelChange,
		recorder:        config.Recorder,
		logger:          config.Logger,
		currentLevel:    LevelNormal,
	}, nil
}

// Name returns the monitored service identifier.
func (c *Controller) Name() string {
	return c.name
}

// CurrentLevel returns the effective operating level: the manual override
// when one is set, the computed level otherwise.
func (c *Controller) CurrentLevel() DegradationLevel {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.override != nil {
		return *c.override
	}
	return c.currentLevel
}

// CheckHealth runs the probe once and recomputes the level from fresh
// metrics. Probe failures are converted into an unhealthy signal, never
// returned. The computed level is always stored, so clearing an override
// immediately reflects the latest real health; the returned level is the
// effective one, post-override.
func (c *Controller) CheckHealth(ctx context.Context) DegradationLevel {
	err := c.probe(ctx)
	healthy := err == nil

	c.mutex.Lock()
	c.totalChecks++
	c.lastHealthCheck = time.Now()
	if !healthy {
		c.failedChecks++
	}

	metrics := ServiceMetrics{
		RequestCount: c.totalChecks,
	}
	if c.totalChecks > 0 {
		metrics.ErrorRate = float64(c.failedChecks) / float64(c.totalChecks)
	}

	computed := resolveLevel(c.rules, metrics)
	previous := c.currentLevel
	overridden := c.override != nil
	c.currentLevel = computed

	effective := computed
	if overridden {
		effective = *c.override
	}
	c.mutex.Unlock()

	if !healthy {
		c.logger.Debug("Health probe failed",
			"service", c.name,
			"error", err.Error(),
			"error_rate", metrics.ErrorRate,
		)
	}

	if c.recorder != nil {
		c.recorder.RecordHealthCheck(healthy)
		c.recorder.RecordLevel(effective)
	}

	if computed != previous && !overridden {
		c.logger.LogLevelTransition(c.name, previous.String(), computed.String(), nil)
		if c.onLevelChange != nil {
			c.onLevelChange(previous, computed)
		}
	}

	return effective
}

// Execute runs fn under the policy of the current effective level:
//
//   - Normal: call fn directly; failures propagate unmodified.
//   - Degraded: bound fn to the configured degraded timeout; on timeout or
//     failure use the fallback when supplied, otherwise surface the error.
//     Timeouts are a distinct error type (errors.IsTimeout).
//   - Minimal: prefer the fallback; then the last cached result; only with
//     neither available call fn directly, uncapped.
//   - Offline: never call fn. Use the fallback when supplied, otherwise fail
//     with an offline error naming the service.
//
// The level is read once at entry; a long-running call does not observe
// mid-flight transitions.
func (c *Controller) Execute(ctx context.Context, fn Operation, fallback Fallback) (interface{}, error) {
	level := c.CurrentLevel()
	start := time.Now()

	result, outcome, err := c.executeAtLevel(ctx, level, fn, fallback)

	if c.recorder != nil {
		c.recorder.RecordExecution(level, outcome, time.Since(start))
	}
	return result, err
}

func (c *Controller) executeAtLevel(ctx context.Context, level DegradationLevel, fn Operation, fallback Fallback) (interface{}, string, error) {
	switch level {
	case LevelDegraded:
		result, err := c.executeBounded(ctx, fn)
		if err == nil {
			c.storeCached(result)
			return result, OutcomeSuccess, nil
		}
		if fallback != nil {
			result, ferr := fallback(ctx)
			if ferr != nil {
				return nil, OutcomeError, ferr
			}
			return result, OutcomeFallback, nil
		}
		return nil, OutcomeError, err

	case LevelMinimal:
		if fallback != nil {
			if result, err := fallback(ctx); err == nil {
				return result, OutcomeFallback, nil
			}
		}
		if cached, ok := c.cachedResult(); ok {
			return cached, OutcomeCache, nil
		}
		result, err := fn(ctx)
		if err != nil {
			return nil, OutcomeError, err
		}
		c.storeCached(result)
		return result, OutcomeSuccess, nil

	case LevelOffline:
		if fallback != nil {
			result, err := fallback(ctx)
			if err != nil {
				return nil, OutcomeError, err
			}
			return result, OutcomeFallback, nil
		}
		return nil, OutcomeError, errors.NewOfflineError(c.name)

	default: // LevelNormal
		result, err := fn(ctx)
		if err != nil {
			return nil, OutcomeError, err
		}
		c.storeCached(result)
		return result, OutcomeSuccess, nil
	}
}

// executeBounded races fn against the degraded timeout. On expiry the
// operation is discarded, not aborted: its goroutine may keep running, but
// its result is dropped and the caller gets a timeout error.
func (c *Controller) executeBounded(ctx context.Context, fn Operation) (interface{}, error) {
	type outcome struct {
		result interface{}
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		result, err := fn(ctx)
		done <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(c.degradedTimeout)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.result, o.err
	case <-timer.C:
		return nil, errors.NewTimeoutError("degraded execution").WithDetail("service", c.name)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MetricsSnapshot is the read-only view of controller state exposed to
// dashboards, alerting, and the HTTP API.
type MetricsSnapshot struct {
	Service         string           `json:"service"`
	Level           DegradationLevel `json:"level"`
	Uptime          time.Duration    `json:"uptime"`
	LastHealthCheck time.Time        `json:"last_health_check"`
	FailureRate     float64          `json:"failure_rate"`
	TotalChecks     int64            `json:"total_checks"`
	FailedChecks    int64            `json:"failed_checks"`
	Overridden      bool             `json:"overridden"`
}

// Metrics returns a snapshot of the controller's current state.
func (c *Controller) Metrics() MetricsSnapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snapshot := MetricsSnapshot{
		Service:         c.name,
		Level:           c.currentLevel,
		LastHealthCheck: c.lastHealthCheck,
		TotalChecks:     c.totalChecks,
		FailedChecks:    c.failedChecks,
		Overridden:      c.override != nil,
	}
	if c.override != nil {
		snapshot.Level = *c.override
	}
	if !c.startedAt.IsZero() {
		snapshot.Uptime = time.Since(c.startedAt)
	}
	if c.totalChecks > 0 {
		snapshot.FailureRate = float64(c.failedChecks) / float64(c.totalChecks)
	}
	return snapshot
}

// Override pins the effective level to the given value, superseding computed
// health until cleared with nil. Level computation continues underneath, so
// clearing restores the latest real health without a forced re-check.
func (c *Controller) Override(level *DegradationLevel) {
	c.mutex.Lock()
	before := c.currentLevel
	if c.override != nil {
		before = *c.override
	}

	c.override = level

	after := c.currentLevel
	if c.override != nil {
		after = *c.override
	}
	c.mutex.Unlock()

	if level != nil {
		c.logger.Info("Manual override set", "service", c.name, "level", level.String())
	} else {
		c.logger.Info("Manual override cleared", "service", c.name, "level", after.String())
	}

	if before != after {
		if c.recorder != nil {
			c.recorder.RecordLevel(after)
		}
		if c.onLevelChange != nil {
			c.onLevelChange(before, after)
		}
	}
}

// Start begins the periodic health-check loop and performs one immediate
// check so the controller is never in an undetermined state before the
// first tick. Starting a running controller is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mutex.Lock()
	if c.running {
		c.mutex.Unlock()
		return
	}
	c.running = true
	if c.startedAt.IsZero() {
		c.startedAt = time.Now()
	}
	c.stopChan = make(chan struct{})
	stopChan := c.stopChan
	c.mutex.Unlock()

	c.logger.Info("Degradation controller started",
		"service", c.name,
		"check_interval", c.checkInterval.String(),
	)

	c.CheckHealth(ctx)
	go c.checkLoop(ctx, stopChan)
}

func (c *Controller) checkLoop(ctx context.Context, stopChan chan struct{}) {
	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopChan:
			return
		case <-ticker.C:
			c.CheckHealth(ctx)
		}
	}
}

// Stop halts the health-check loop. Counters, the override, and the cached
// result survive, so a stopped controller can be restarted and resumes from
// where it left off. In-flight Execute calls are not cancelled.
func (c *Controller) Stop() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.running {
		return
	}
	close(c.stopChan)
	c.running = false

	c.logger.Info("Degradation controller stopped", "service", c.name)
}

func (c *Controller) storeCached(result interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.lastCached = result
	c.hasCached = true
}

func (c *Controller) cachedResult() (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.lastCached, c.hasCached
}
