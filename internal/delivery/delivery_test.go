package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyaid/missionengine/internal/types"
)

func TestDeliverPostsActuatorCommand(t *testing.T) {
	c := New("pi-drone-01").(*controller)

	var posted []types.Message
	post := func(m types.Message) { posted = append(posted, m) }

	req := types.DeliverPayload{
		MissionID:     "relief-4",
		WaypointIndex: 1,
		Lat:           60.1705,
		Lon:           24.9410,
		Alt:           30,
		Payload:       map[string]string{"contents": "medical-kit"},
	}
	c.deliver(req, post)

	require.Len(t, posted, 1)
	assert.Equal(t, types.MessageTypeActuatorCommand, posted[0].MessageType)

	cmd, ok := posted[0].Message.(types.ActuatorCommand)
	require.True(t, ok)
	assert.Equal(t, "release", cmd.Command)
	assert.Equal(t, "pi-drone-01", cmd.DeviceID)
	assert.Equal(t, 1, cmd.WaypointIndex)
	assert.Equal(t, req.Payload, cmd.PayloadMetadata)
	assert.Greater(t, cmd.Timestamp, 0.0)
}

func TestReceiveFiltersMessageTypes(t *testing.T) {
	c := New("pi-drone-01").(*controller)

	c.Receive(types.CreateMessage(types.MessageTypeStatus, "x", "*", nil))
	c.Receive(types.CreateMessage(types.MessageTypeObstacle, "x", "*", nil))
	assert.Empty(t, c.inbox)

	c.Receive(types.CreateMessage(types.MessageTypeDeliverPayload, "x", "*", types.DeliverPayload{}))
	assert.Len(t, c.inbox, 1)
}
