package degradation

// ServiceMetrics is a point-in-time snapshot of the monitored dependency's
// health counters. A fresh snapshot is built before every rule evaluation;
// snapshots are never persisted.
type ServiceMetrics struct {
	// ErrorRate is the ratio of failed health checks to total checks, in [0,1]
	ErrorRate float64 `json:"error_rate"`
	// LatencyMs is reserved for probes that measure response time
	LatencyMs float64 `json:"latency_ms"`
	// RequestCount is the total number of health checks performed
	RequestCount int64 `json:"request_count"`
}

// Rule pairs a degradation level with a predicate over service metrics.
// The rule set is supplied at construction and is immutable for the
// controller's lifetime. Multiple or zero rules per level are legal.
type Rule struct {
	Level     DegradationLevel
	Predicate func(ServiceMetrics) bool
}

// resolveLevel evaluates rules in strict severity order, Offline first and
// Normal last. The first matching rule determines the level; with no match
// the level defaults to Normal. Evaluating Normal first would silently mask
// outages whenever a loosely written predicate also holds under worse
// conditions, so the ordering here must not change.
func resolveLevel(rules []Rule, m ServiceMetrics) DegradationLevel {
	for _, level := range levelsBySeverity {
		for _, rule := range rules {
			if rule.Level != level || rule.Predicate == nil {
				continue
			}
			if rule.Predicate(m) {
				return level
			}
		}
	}
	return LevelNormal
}

// ErrorRateAtLeast returns a predicate that is true once the observed error
// rate reaches the given threshold.
func ErrorRateAtLeast(threshold float64) func(ServiceMetrics) bool {
	return func(m ServiceMetrics) bool {
		return m.ErrorRate >= threshold
	}
}

// DefaultRules builds the canonical error-rate rule set: one rule per
// non-normal level, each tripping at the given threshold.
func DefaultRules(degraded, minimal, offline float64) []Rule {
	return []Rule{
		{Level: LevelOffline, Predicate: ErrorRateAtLeast(offline)},
		{Level: LevelMinimal, Predicate: ErrorRateAtLeast(minimal)},
		{Level: LevelDegraded, Predicate: ErrorRateAtLeast(degraded)},
	}
}
