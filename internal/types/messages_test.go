package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTypeValid(t *testing.T) {
	for _, c := range []CommandType{CommandStart, CommandPause, CommandResume, CommandAbort} {
		assert.True(t, c.Valid(), "%s", c)
	}
	assert.False(t, CommandType("reboot").Valid())
	assert.False(t, CommandType("").Valid())
}

func TestObstacleSeverity(t *testing.T) {
	dist := func(v float64) *float64 { return &v }

	assert.Equal(t, "critical", ObstacleEvent{Distance: dist(5)}.Severity())
	assert.Equal(t, "warning", ObstacleEvent{Distance: dist(25)}.Severity())
	assert.Equal(t, "info", ObstacleEvent{Distance: dist(120)}.Severity())
	assert.Equal(t, "warning", ObstacleEvent{}.Severity(), "unknown distance is treated as close")
}

func TestMissionStatusWireFormat(t *testing.T) {
	status := MissionStatus{
		MissionID:              "relief-4",
		State:                  "ENROUTE",
		CurrentWaypoint:        1,
		TotalWaypoints:         3,
		ProgressPercent:        33.3,
		EstimatedTimeRemaining: 42.0,
		CurrentPosition:        [3]float64{60.17, 24.94, 30},
		TargetPosition:         [3]float64{60.1705, 24.941, 30},
		Speed:                  5.0,
		Timestamp:              1756000000.5,
	}

	data, err := json.Marshal(status)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))

	for _, key := range []string{
		"mission_id", "state", "current_waypoint", "total_waypoints",
		"progress_percent", "estimated_time_remaining", "current_position",
		"target_position", "speed", "timestamp",
	} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "error_message", "empty error is omitted")
}

func TestCreateMessage(t *testing.T) {
	msg := CreateMessage(MessageTypeCommand, "ground", "pi-drone-01", Command{Type: CommandStart})

	assert.Equal(t, MessageTypeCommand, msg.MessageType)
	assert.Equal(t, "ground", msg.From)
	assert.Equal(t, "pi-drone-01", msg.To)
	assert.False(t, msg.Timestamp.IsZero())
}
