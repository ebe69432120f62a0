package alerting

import (
	"context"
	"fmt"

	"github.com/resilientsys/degrade/pkg/degradation"
	"github.com/resilientsys/degrade/pkg/logging"
)

// LevelMonitor turns degradation level transitions into alerts. Wire its
// OnLevelChange method into a controller's configuration; each transition
// produces exactly one alert whose severity tracks the new level.
type LevelMonitor struct {
	service string
	manager *Manager
	logger  *logging.Logger
}

// NewLevelMonitor creates a monitor for the named service.
func NewLevelMonitor(service string, manager *Manager) *LevelMonitor {
	return &LevelMonitor{
		service: service,
		manager: manager,
		logger:  logging.GetLogger(),
	}
}

// OnLevelChange satisfies the controller's level-change hook.
func (lm *LevelMonitor) OnLevelChange(from, to degradation.DegradationLevel) {
	alert := Alert{
		Severity:    severityForLevel(to),
		Title:       "Service Degradation Level Changed",
		Description: fmt.Sprintf("service %q moved from %s to %s", lm.service, from, to),
		Source:      lm.service,
		Tags: map[string]string{
			"component":      "degradation_controller",
			"previous_level": from.String(),
			"current_level":  to.String(),
		},
	}

	if err := lm.manager.Send(context.Background(), alert); err != nil {
		lm.logger.Error("Failed to send level-change alert",
			"service", lm.service,
			"error", err,
		)
	}
}

func severityForLevel(level degradation.DegradationLevel) AlertSeverity {
	switch level {
	case degradation.LevelNormal:
		return SeverityInfo
	case degradation.LevelDegraded:
		return SeverityWarning
	case degradation.LevelMinimal:
		return SeverityError
	default:
		return SeverityCritical
	}
}
