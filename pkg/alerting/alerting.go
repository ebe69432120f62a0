package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/resilientsys/degrade/pkg/logging"
)

// AlertSeverity represents the severity level of an alert
type AlertSeverity int

const (
	// SeverityInfo - informational alerts
	SeverityInfo AlertSeverity = iota
	// SeverityWarning - warning alerts that need attention
	SeverityWarning
	// SeverityError - error alerts that need immediate attention
	SeverityError
	// SeverityCritical - critical alerts that need urgent attention
	SeverityCritical
)

func (s AlertSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Alert represents an alert that needs to be sent
type Alert struct {
	ID          string                 `json:"id"`
	Severity    AlertSeverity          `json:"severity"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Source      string                 `json:"source"`
	Timestamp   time.Time              `json:"timestamp"`
	Tags        map[string]string      `json:"tags"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// Handler defines the interface for handling alerts
type Handler interface {
	HandleAlert(ctx context.Context, alert Alert) error
	Name() string
}

// Manager routes alerts to registered handlers with per-source rate limiting.
type Manager struct {
	handlers []Handler
	mutex    sync.Mutex
	logger   *logging.Logger

	alertCounts   map[string]int
	lastReset     time.Time
	rateLimit     int
	resetInterval time.Duration
}

// NewManager creates a new alert manager
func NewManager() *Manager {
	return &Manager{
		handlers:      make([]Handler, 0),
		logger:        logging.GetLogger(),
		alertCounts:   make(map[string]int),
		lastReset:     time.Now(),
		rateLimit:     100, // per source, per reset interval
		resetInterval: time.Hour,
	}
}

// AddHandler adds an alert handler
func (m *Manager) AddHandler(handler Handler) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.handlers = append(m.handlers, handler)
	m.logger.Info("Alert handler added", "handler", handler.Name())
}

// Send sends an alert to all registered handlers
func (m *Manager) Send(ctx context.Context, alert Alert) error {
	m.mutex.Lock()
	if !m.checkRateLimit(alert.Source) {
		m.mutex.Unlock()
		m.logger.Warn("Alert rate limit exceeded",
			"source", alert.Source,
			"title", alert.Title,
		)
		return fmt.Errorf("alert rate limit exceeded for source: %s", alert.Source)
	}
	handlers := make([]Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mutex.Unlock()

	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}

	var lastErr error
	successCount := 0

	for _, handler := range handlers {
		if err := handler.HandleAlert(ctx, alert); err != nil {
			m.logger.Error("Alert handler failed",
				"handler", handler.Name(),
				"alert_id", alert.ID,
				"error", err,
			)
			lastErr = err
		} else {
			successCount++
		}
	}

	if successCount == 0 && lastErr != nil {
		return fmt.Errorf("all alert handlers failed: %w", lastErr)
	}
	return nil
}

func (m *Manager) checkRateLimit(source string) bool {
	now := time.Now()

	if now.Sub(m.lastReset) >= m.resetInterval {
		m.alertCounts = make(map[string]int)
		m.lastReset = now
	}

	count := m.alertCounts[source]
	if count >= m.rateLimit {
		return false
	}

	m.alertCounts[source] = count + 1
	return true
}

// LoggingHandler logs alerts to the application logger
type LoggingHandler struct {
	logger *logging.Logger
}

// NewLoggingHandler creates a new logging alert handler
func NewLoggingHandler() *LoggingHandler {
	return &LoggingHandler{
		logger: logging.GetLogger(),
	}
}

// HandleAlert handles an alert by logging it
func (h *LoggingHandler) HandleAlert(ctx context.Context, alert Alert) error {
	fields := []interface{}{
		"alert_id", alert.ID,
		"severity", alert.Severity.String(),
		"source", alert.Source,
		"description", alert.Description,
		"timestamp", alert.Timestamp,
	}

	for key, value := range alert.Tags {
		fields = append(fields, fmt.Sprintf("tag_%s", key), value)
	}
	for key, value := range alert.Metadata {
		fields = append(fields, fmt.Sprintf("meta_%s", key), value)
	}

	switch alert.Severity {
	case SeverityInfo:
		h.logger.Info("ALERT: "+alert.Title, fields...)
	case SeverityWarning:
		h.logger.Warn("ALERT: "+alert.Title, fields...)
	default:
		h.logger.Error("ALERT: "+alert.Title, fields...)
	}

	return nil
}

// Name returns the name of the handler
func (h *LoggingHandler) Name() string {
	return "logging"
}
