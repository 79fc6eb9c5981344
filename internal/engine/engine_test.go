package engine

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyaid/missionengine/internal/config"
	"github.com/skyaid/missionengine/internal/mission"
	"github.com/skyaid/missionengine/internal/types"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		TickPeriod:          500 * time.Millisecond,
		ArrivalEpsilonM:     2.0,
		ConfidenceThreshold: 0.7,
		ClimbRateMS:         2.0,
		DefaultSpeedMS:      5.0,
		DefaultAltitudeM:    50.0,
		StatusInterval:      2 * time.Second,
		TelemetryInterval:   time.Second,
	}
}

func newTestEngine(loader MissionLoader) (*Engine, *[]types.Message, types.PostFn) {
	e := New(testEngineConfig(), "test-drone", loader)
	posted := &[]types.Message{}
	post := func(m types.Message) { *posted = append(*posted, m) }
	return e, posted, post
}

func staticLoader(m *mission.Mission) MissionLoader {
	return func(id string) (*mission.Mission, error) { return m, nil }
}

func commandMsg(cmdType types.CommandType, missionID string) types.Message {
	cmd := types.Command{Type: cmdType, MissionID: missionID}
	return types.CreateMessage(types.MessageTypeCommand, "ground", "test-drone", cmd)
}

func obstacleMsg(confidence float64) types.Message {
	distance := 25.0
	ev := types.ObstacleEvent{
		Label:      "person",
		Confidence: confidence,
		Lat:        60.1702,
		Lon:        24.9404,
		Alt:        1.8,
		Distance:   &distance,
	}
	return types.CreateMessage(types.MessageTypeObstacle, "perception", "test-drone", ev)
}

func messagesOfType(msgs []types.Message, messageType string) []types.Message {
	var out []types.Message
	for _, m := range msgs {
		if m.MessageType == messageType {
			out = append(out, m)
		}
	}
	return out
}

// drives the engine through takeoff and the first waypoint so it is
// enroute toward waypoint 1.
func toEnroute(t *testing.T, e *Engine, post types.PostFn) time.Time {
	t.Helper()
	e.Receive(commandMsg(types.CommandStart, "relief-4"))
	e.step(testEpoch, post)
	require.Equal(t, StateTakeoff, e.state.state)

	now := testEpoch.Add(14 * time.Second)
	e.step(now, post)
	require.Equal(t, StateEnroute, e.state.state)

	// target is still waypoint 0 at this point; one more tick arrives
	// there and moves on to waypoint 1
	now = now.Add(500 * time.Millisecond)
	e.step(now, post)
	require.Equal(t, StateEnroute, e.state.state)
	require.Equal(t, 1, e.state.wpIndex)
	return now
}

func TestStartCommand(t *testing.T) {
	e, posted, post := newTestEngine(staticLoader(testMission()))

	e.Receive(commandMsg(types.CommandStart, "relief-4"))
	e.step(testEpoch, post)

	assert.Equal(t, StateTakeoff, e.state.state)

	changes := messagesOfType(*posted, types.MessageTypeStateChanged)
	require.Len(t, changes, 1)
	snap := changes[0].Message.(types.MissionStatus)
	assert.Equal(t, string(StateTakeoff), snap.State)
	assert.Equal(t, "relief-4", snap.MissionID)

	assert.Len(t, messagesOfType(*posted, types.MessageTypeStatusSnapshot), 1)
}

func TestStartUnknownMissionRejected(t *testing.T) {
	loader := func(id string) (*mission.Mission, error) {
		return nil, errors.Errorf("no mission definition for %q", id)
	}
	e, posted, post := newTestEngine(loader)

	e.Receive(commandMsg(types.CommandStart, "ghost"))
	e.step(testEpoch, post)

	assert.Equal(t, StateIdle, e.state.state)
	assert.Empty(t, *posted, "a rejected start must have no side effects")
}

func TestStartInvalidMissionEntersError(t *testing.T) {
	loader := func(id string) (*mission.Mission, error) {
		return nil, &mission.ValidationError{Violations: []string{"waypoints: must not be empty"}}
	}
	e, posted, post := newTestEngine(loader)

	e.Receive(commandMsg(types.CommandStart, "broken"))
	e.step(testEpoch, post)

	assert.Equal(t, StateError, e.state.state)

	changes := messagesOfType(*posted, types.MessageTypeStateChanged)
	require.Len(t, changes, 1)
	snap := changes[0].Message.(types.MissionStatus)
	assert.Equal(t, string(StateError), snap.State)
	assert.Contains(t, snap.ErrorMessage, "waypoints")

	// abort is the explicit reset out of ERROR
	e.Receive(commandMsg(types.CommandAbort, ""))
	e.step(testEpoch.Add(time.Second), post)
	assert.Equal(t, StateIdle, e.state.state)
}

func TestStartRejectedWhileActive(t *testing.T) {
	calls := 0
	loader := func(id string) (*mission.Mission, error) {
		calls++
		return testMission(), nil
	}
	e, _, post := newTestEngine(loader)

	e.Receive(commandMsg(types.CommandStart, "relief-4"))
	e.step(testEpoch, post)
	require.Equal(t, StateTakeoff, e.state.state)

	e.Receive(commandMsg(types.CommandStart, "relief-4"))
	e.step(testEpoch.Add(500*time.Millisecond), post)

	assert.Equal(t, StateTakeoff, e.state.state)
	assert.Equal(t, 1, calls)
}

func TestStartRequiresMissionID(t *testing.T) {
	calls := 0
	loader := func(id string) (*mission.Mission, error) {
		calls++
		return testMission(), nil
	}
	e, _, post := newTestEngine(loader)

	e.Receive(commandMsg(types.CommandStart, ""))
	e.step(testEpoch, post)

	assert.Equal(t, StateIdle, e.state.state)
	assert.Equal(t, 0, calls)
}

func TestObstacleConfidenceGate(t *testing.T) {
	e, posted, post := newTestEngine(staticLoader(testMission()))
	now := toEnroute(t, e, post)

	// below threshold: ignored
	e.Receive(obstacleMsg(0.5))
	now = now.Add(500 * time.Millisecond)
	e.step(now, post)
	assert.Equal(t, StateEnroute, e.state.state)

	// at or above threshold: pause
	e.Receive(obstacleMsg(0.9))
	now = now.Add(500 * time.Millisecond)
	e.step(now, post)
	assert.Equal(t, StatePaused, e.state.state)

	changes := messagesOfType(*posted, types.MessageTypeStateChanged)
	last := changes[len(changes)-1].Message.(types.MissionStatus)
	assert.Equal(t, string(StatePaused), last.State)

	// resume restores enroute toward the same waypoint
	e.Receive(commandMsg(types.CommandResume, ""))
	now = now.Add(500 * time.Millisecond)
	e.step(now, post)
	assert.Equal(t, StateEnroute, e.state.state)
	assert.Equal(t, 1, e.state.wpIndex)
}

func TestMalformedObstacleDropped(t *testing.T) {
	e, _, post := newTestEngine(staticLoader(testMission()))
	now := toEnroute(t, e, post)

	e.Receive(obstacleMsg(math.NaN()))
	e.Receive(obstacleMsg(1.5))
	e.step(now.Add(500*time.Millisecond), post)

	assert.Equal(t, StateEnroute, e.state.state)
}

func TestAbortAppliedBeforeOtherEvents(t *testing.T) {
	e, _, post := newTestEngine(staticLoader(testMission()))
	now := toEnroute(t, e, post)

	// obstacle arrives first in the batch, abort still wins
	e.Receive(obstacleMsg(0.9))
	e.Receive(commandMsg(types.CommandAbort, ""))
	e.step(now.Add(500*time.Millisecond), post)

	assert.Equal(t, StateIdle, e.state.state)
	assert.Nil(t, e.state.mission)
}

func TestPauseWinsArrivalTie(t *testing.T) {
	e, _, post := newTestEngine(staticLoader(testMission()))
	now := toEnroute(t, e, post)

	// far enough in the future that the leg to waypoint 1 would complete
	// this tick; the queued pause must be applied first
	e.Receive(commandMsg(types.CommandPause, ""))
	e.step(now.Add(time.Minute), post)

	assert.Equal(t, StatePaused, e.state.state)
	assert.Equal(t, 1, e.state.wpIndex)
	assert.Equal(t, 1, e.state.completed, "arrival must not be processed on the pause tick")
}

func TestNavigationFaultEntersError(t *testing.T) {
	e, posted, post := newTestEngine(staticLoader(testMission()))
	now := toEnroute(t, e, post)

	e.state.speed = 0 // poisons the next interpolation
	now = now.Add(500 * time.Millisecond)
	e.step(now, post)

	require.Equal(t, StateError, e.state.state)
	changes := messagesOfType(*posted, types.MessageTypeStateChanged)
	last := changes[len(changes)-1].Message.(types.MissionStatus)
	assert.Contains(t, last.ErrorMessage, "navigation fault")

	// terminal: no further motion, start is refused
	e.Receive(commandMsg(types.CommandStart, "relief-4"))
	e.step(now.Add(time.Second), post)
	assert.Equal(t, StateError, e.state.state)
}

func TestPrioritize(t *testing.T) {
	batch := []types.Message{
		commandMsg(types.CommandResume, ""),
		obstacleMsg(0.9),
		commandMsg(types.CommandAbort, ""),
		commandMsg(types.CommandPause, ""),
	}

	ordered := prioritize(batch)
	require.Len(t, ordered, 4)
	assert.Equal(t, types.Command{Type: types.CommandAbort}, ordered[0].Message)
	assert.Equal(t, types.MessageTypeObstacle, ordered[1].MessageType)
	assert.Equal(t, types.Command{Type: types.CommandPause}, ordered[2].Message)
	assert.Equal(t, types.Command{Type: types.CommandResume}, ordered[3].Message)
}

func TestReceiveFiltersMessageTypes(t *testing.T) {
	e, _, _ := newTestEngine(staticLoader(testMission()))

	e.Receive(types.CreateMessage(types.MessageTypeTelemetry, "x", "*", nil))
	e.Receive(types.CreateMessage(types.MessageTypeStatus, "x", "*", nil))
	assert.Empty(t, e.drain())

	e.Receive(commandMsg(types.CommandStart, "relief-4"))
	assert.Len(t, e.drain(), 1)
}
