package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyaid/missionengine/internal/types"
)

func TestBuildReflectsLatestStatus(t *testing.T) {
	s := New("pi-drone-01", time.Second).(*simulator)
	s.latest = types.MissionStatus{
		MissionID:       "relief-4",
		State:           "ENROUTE",
		CurrentWaypoint: 1,
		ProgressPercent: 33.3,
		CurrentPosition: [3]float64{60.1702, 24.9404, 30},
	}

	msg := s.build()
	assert.Equal(t, types.MessageTypeTelemetry, msg.MessageType)

	tele, ok := msg.Message.(Telemetry)
	require.True(t, ok)
	assert.Equal(t, "pi-drone-01", tele.DeviceID)
	assert.NotEmpty(t, tele.MessageID)
	assert.Greater(t, tele.Timestamp, 0.0)

	assert.Equal(t, 60.1702, tele.GPS.Lat)
	assert.Equal(t, 30.0, tele.GPS.Alt)
	assert.Equal(t, "relief-4", tele.Mission.MissionID)
	assert.Equal(t, "ENROUTE", tele.Mission.State)
	assert.Equal(t, 33.3, tele.Mission.ProgressPercent)
}

func TestBuildBeforeAnyStatus(t *testing.T) {
	s := New("pi-drone-01", time.Second).(*simulator)

	tele := s.build().Message.(Telemetry)
	assert.Equal(t, "IDLE", tele.Mission.State)
	assert.Empty(t, tele.Mission.MissionID)
}

func TestReceiveFiltersMessageTypes(t *testing.T) {
	s := New("pi-drone-01", time.Second).(*simulator)

	s.Receive(types.CreateMessage(types.MessageTypeStateChanged, "x", "*", nil))
	s.Receive(types.CreateMessage(types.MessageTypeCommand, "x", "*", nil))
	assert.Empty(t, s.inbox)

	s.Receive(types.CreateMessage(types.MessageTypeStatusSnapshot, "x", "*", types.MissionStatus{}))
	assert.Len(t, s.inbox, 1)
}
