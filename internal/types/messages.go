package types

// CommandType is the closed set of mission commands accepted from ground
// control. Unknown command types are rejected at the bridge.
type CommandType string

const (
	CommandStart  CommandType = "start"
	CommandPause  CommandType = "pause"
	CommandResume CommandType = "resume"
	CommandAbort  CommandType = "abort"
)

func (c CommandType) Valid() bool {
	switch c {
	case CommandStart, CommandPause, CommandResume, CommandAbort:
		return true
	}
	return false
}

type Command struct {
	Type      CommandType `json:"type"`
	MissionID string      `json:"mission_id,omitempty"`
}

// ObstacleEvent is a perception detection. It is transient: the engine
// keeps at most one event as pause context and discards the rest.
type ObstacleEvent struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Alt        float64  `json:"alt"`
	Distance   *float64 `json:"distance,omitempty"`
	Timestamp  float64  `json:"timestamp"`
}

// Severity classifies an obstacle by distance for the status stream.
// Informational only; the confidence gate drives transitions.
func (o ObstacleEvent) Severity() string {
	if o.Distance == nil {
		return "warning"
	}
	switch {
	case *o.Distance < 10:
		return "critical"
	case *o.Distance < 50:
		return "warning"
	}
	return "info"
}

// DeliverPayload asks the delivery controller to release the payload at
// the given waypoint. Emitted at most once per waypoint.
type DeliverPayload struct {
	MissionID     string            `json:"mission_id"`
	WaypointIndex int               `json:"waypoint_index"`
	Lat           float64           `json:"lat"`
	Lon           float64           `json:"lon"`
	Alt           float64           `json:"alt"`
	Payload       map[string]string `json:"payload"`
}

// ActuatorCommand is the outbound servo release command. Fire-and-forget:
// there is no acknowledgment channel in this prototype.
type ActuatorCommand struct {
	DeviceID        string            `json:"device_id"`
	Timestamp       float64           `json:"timestamp"`
	Command         string            `json:"command"`
	WaypointIndex   int               `json:"waypoint_index"`
	PayloadMetadata map[string]string `json:"payload_metadata"`
}

// MissionStatus is the published snapshot of the running mission. It is
// overwritten every tick and never persisted.
type MissionStatus struct {
	MissionID              string     `json:"mission_id"`
	State                  string     `json:"state"`
	CurrentWaypoint        int        `json:"current_waypoint"`
	TotalWaypoints         int        `json:"total_waypoints"`
	ProgressPercent        float64    `json:"progress_percent"`
	EstimatedTimeRemaining float64    `json:"estimated_time_remaining"`
	CurrentPosition        [3]float64 `json:"current_position"`
	TargetPosition         [3]float64 `json:"target_position"`
	Speed                  float64    `json:"speed"`
	Timestamp              float64    `json:"timestamp"`
	ErrorMessage           string     `json:"error_message,omitempty"`
}
