package degradation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveLevelMostSevereWins(t *testing.T) {
	// All predicates match; severity order must pick Offline.
	rules := []Rule{
		{Level: LevelDegraded, Predicate: func(ServiceMetrics) bool { return true }},
		{Level: LevelOffline, Predicate: func(ServiceMetrics) bool { return true }},
		{Level: LevelMinimal, Predicate: func(ServiceMetrics) bool { return true }},
	}

	assert.Equal(t, LevelOffline, resolveLevel(rules, ServiceMetrics{}))
}

func TestResolveLevelNoMatchDefaultsToNormal(t *testing.T) {
	rules := []Rule{
		{Level: LevelOffline, Predicate: func(ServiceMetrics) bool { return false }},
		{Level: LevelDegraded, Predicate: func(ServiceMetrics) bool { return false }},
	}

	assert.Equal(t, LevelNormal, resolveLevel(rules, ServiceMetrics{ErrorRate: 0.1}))
	assert.Equal(t, LevelNormal, resolveLevel(nil, ServiceMetrics{ErrorRate: 1.0}))
}

func TestResolveLevelSkipsNilPredicates(t *testing.T) {
	rules := []Rule{
		{Level: LevelOffline, Predicate: nil},
		{Level: LevelDegraded, Predicate: func(ServiceMetrics) bool { return true }},
	}

	assert.Equal(t, LevelDegraded, resolveLevel(rules, ServiceMetrics{}))
}

func TestDefaultRulesThresholds(t *testing.T) {
	rules := DefaultRules(0.2, 0.5, 0.9)

	tests := []struct {
		errorRate float64
		expected  DegradationLevel
	}{
		{0.0, LevelNormal},
		{0.19, LevelNormal},
		{0.2, LevelDegraded},
		{0.49, LevelDegraded},
		{0.5, LevelMinimal},
		{0.75, LevelMinimal}, // 3 of 4 checks failing
		{0.9, LevelOffline},
		{1.0, LevelOffline},
	}

	for _, tt := range tests {
		level := resolveLevel(rules, ServiceMetrics{ErrorRate: tt.errorRate})
		assert.Equal(t, tt.expected, level, "error rate %.2f", tt.errorRate)
	}
}
