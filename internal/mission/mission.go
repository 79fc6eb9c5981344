// Package mission defines the mission model, file loading and validation.
// A Mission is immutable once loaded; the engine references waypoints by
// index and never mutates them.
package mission

// Action is the closed set of waypoint actions. Unknown tags fail
// validation instead of degrading to ActionNone.
type Action string

const (
	ActionNone    Action = "none"
	ActionDeliver Action = "deliver"
	ActionPhoto   Action = "photo"
	ActionLand    Action = "land"
)

func (a Action) Valid() bool {
	switch a {
	case ActionNone, ActionDeliver, ActionPhoto, ActionLand:
		return true
	}
	return false
}

type Waypoint struct {
	Lat         float64           `json:"lat" yaml:"lat"`
	Lon         float64           `json:"lon" yaml:"lon"`
	Alt         float64           `json:"alt" yaml:"alt"`
	HoldSeconds float64           `json:"hold_seconds" yaml:"hold_seconds"`
	Action      Action            `json:"action" yaml:"action"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type Mission struct {
	ID              string            `json:"mission_id" yaml:"mission_id"`
	Name            string            `json:"name" yaml:"name"`
	Waypoints       []Waypoint        `json:"waypoints" yaml:"waypoints"`
	PayloadMetadata map[string]string `json:"payload_metadata,omitempty" yaml:"payload_metadata,omitempty"`
	MaxSpeed        float64           `json:"max_speed" yaml:"max_speed"`
	DefaultAltitude float64           `json:"default_altitude" yaml:"default_altitude"`
}
