package mission

import (
	"fmt"
	"strings"
)

// ValidationError lists every violated field of a mission definition, not
// just the first one found.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mission validation failed: %s", strings.Join(e.Violations, "; "))
}

// Validate checks the mission against the model constraints. It returns
// nil or a *ValidationError enumerating all violations.
func (m *Mission) Validate() error {
	var violations []string
	add := func(format string, args ...interface{}) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if m.ID == "" {
		add("mission_id: must not be empty")
	}
	if len(m.Waypoints) == 0 {
		add("waypoints: must not be empty")
	}
	if m.MaxSpeed <= 0 {
		add("max_speed: must be > 0, got %v", m.MaxSpeed)
	}
	if m.DefaultAltitude < 0 {
		add("default_altitude: must be >= 0, got %v", m.DefaultAltitude)
	}

	for i, wp := range m.Waypoints {
		if wp.Lat < -90 || wp.Lat > 90 {
			add("waypoints[%d].lat: %v out of range [-90, 90]", i, wp.Lat)
		}
		if wp.Lon < -180 || wp.Lon > 180 {
			add("waypoints[%d].lon: %v out of range [-180, 180]", i, wp.Lon)
		}
		if wp.Alt < 0 {
			add("waypoints[%d].alt: must be >= 0, got %v", i, wp.Alt)
		}
		if wp.HoldSeconds < 0 {
			add("waypoints[%d].hold_seconds: must be >= 0, got %v", i, wp.HoldSeconds)
		}
		if !wp.Action.Valid() {
			add("waypoints[%d].action: unknown action %q", i, wp.Action)
		}
	}

	if len(violations) == 0 {
		return nil
	}

	return &ValidationError{Violations: violations}
}
