package degradation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DegradationLevel represents the operating posture of a monitored dependency.
// Levels are ordered by severity; a higher value is a more severe level.
type DegradationLevel int

const (
	// LevelNormal - the dependency is healthy, full-feature operation
	LevelNormal DegradationLevel = iota
	// LevelDegraded - the dependency is struggling, calls run under a shortened timeout
	LevelDegraded
	// LevelMinimal - the dependency is mostly down, fallbacks are preferred over calls
	LevelMinimal
	// LevelOffline - the dependency is unusable, calls are never attempted
	LevelOffline
)

// levelsBySeverity lists every level from most to least severe. Rule
// evaluation walks this slice so that when several predicates match at once
// the most severe applicable level wins.
var levelsBySeverity = [...]DegradationLevel{LevelOffline, LevelMinimal, LevelDegraded, LevelNormal}

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "NORMAL"
	case LevelDegraded:
		return "DEGRADED"
	case LevelMinimal:
		return "MINIMAL"
	case LevelOffline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}

// MoreSevereThan reports whether l is a worse operating posture than other.
func (l DegradationLevel) MoreSevereThan(other DegradationLevel) bool {
	return l > other
}

// ParseLevel converts a level name (case-insensitive) to a DegradationLevel.
func ParseLevel(s string) (DegradationLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORMAL":
		return LevelNormal, nil
	case "DEGRADED":
		return LevelDegraded, nil
	case "MINIMAL":
		return LevelMinimal, nil
	case "OFFLINE":
		return LevelOffline, nil
	default:
		return LevelNormal, fmt.Errorf("unknown degradation level: %q", s)
	}
}

// MarshalJSON encodes the level as its name
func (l DegradationLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes the level from its name
func (l *DegradationLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	level, err := ParseLevel(name)
	if err != nil {
		return err
	}
	*l = level
	return nil
}
