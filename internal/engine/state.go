package engine

import (
	"log"
	"time"

	"github.com/skyaid/missionengine/internal/mission"
	"github.com/skyaid/missionengine/internal/nav"
	"github.com/skyaid/missionengine/internal/types"
)

type State string

const (
	StateIdle     State = "IDLE"
	StateTakeoff  State = "TAKEOFF"
	StateEnroute  State = "ENROUTE"
	StateHold     State = "HOLD"
	StateDelivery State = "DELIVERY"
	StateReturn   State = "RETURN"
	StateLanded   State = "LANDED"
	StatePaused   State = "PAUSED"
	StateError    State = "ERROR"
)

// Moving reports whether the state advances on tick.
func (s State) Moving() bool {
	switch s {
	case StateTakeoff, StateEnroute, StateHold, StateDelivery, StateReturn:
		return true
	}
	return false
}

// Interruptible reports whether an obstacle or pause command may interrupt.
func (s State) Interruptible() bool {
	switch s {
	case StateEnroute, StateHold, StateDelivery:
		return true
	}
	return false
}

type Params struct {
	DeviceID            string
	ArrivalEpsilon      float64
	ConfidenceThreshold float64
	ClimbRate           float64
}

// missionState holds all mutable state of one mission execution. It is
// owned exclusively by the engine run loop; methods take an explicit clock
// value so transitions stay deterministic under test.
type missionState struct {
	params Params

	mission   *mission.Mission
	state     State
	wpIndex   int
	completed int

	current   nav.Position
	target    nav.Position
	legOrigin nav.Position
	legStart  time.Time
	holdStart time.Time
	startedAt time.Time
	launch    nav.Position
	speed     float64

	// pause capture, restored on resume
	captured      bool
	capturedState State
	capturedIndex int
	obstacle      *types.ObstacleEvent

	delivered map[int]bool
	errMsg    string
}

func newMissionState(params Params) *missionState {
	return &missionState{
		params:    params,
		state:     StateIdle,
		delivered: map[int]bool{},
	}
}

// start begins executing a validated mission. The vehicle starts on the
// ground at the first waypoint's coordinates, which also become the launch
// point for the RETURN leg.
func (s *missionState) start(m *mission.Mission, now time.Time) {
	first := m.Waypoints[0]

	s.mission = m
	s.state = StateTakeoff
	s.wpIndex = 0
	s.completed = 0
	s.speed = m.MaxSpeed
	s.startedAt = now
	s.current = nav.Position{Lat: first.Lat, Lon: first.Lon, Alt: 0}
	s.launch = s.current
	s.target = nav.Position{Lat: first.Lat, Lon: first.Lon, Alt: first.Alt}
	s.legOrigin = s.current
	s.legStart = now
	s.captured = false
	s.obstacle = nil
	s.delivered = map[int]bool{}
	s.errMsg = ""
}

// abort discards the mission instance and returns to IDLE. It is valid
// from any state and doubles as the explicit reset out of ERROR/LANDED.
func (s *missionState) abort() {
	s.mission = nil
	s.state = StateIdle
	s.wpIndex = 0
	s.completed = 0
	s.captured = false
	s.obstacle = nil
	s.delivered = map[int]bool{}
	s.errMsg = ""
}

// fail moves to the terminal ERROR state. No further ticking occurs.
func (s *missionState) fail(msg string) {
	s.state = StateError
	s.errMsg = msg
}

// pause interrupts an interruptible state, capturing state and waypoint
// index for resume. A second obstacle while already paused updates the
// obstacle context but never overwrites the capture.
func (s *missionState) pause(ev *types.ObstacleEvent) bool {
	if s.state == StatePaused {
		if ev != nil {
			s.obstacle = ev
		}
		return false
	}
	if !s.state.Interruptible() {
		return false
	}

	s.captured = true
	s.capturedState = s.state
	s.capturedIndex = s.wpIndex
	s.obstacle = ev
	s.state = StatePaused
	return true
}

// resume restores the state and waypoint index captured at pause time. The
// resume command resolves any pending obstacle context (operator override);
// position is kept, timers re-anchor at now.
func (s *missionState) resume(now time.Time) bool {
	if s.state != StatePaused || !s.captured {
		return false
	}

	s.obstacle = nil
	s.state = s.capturedState
	s.wpIndex = s.capturedIndex
	s.captured = false
	s.legOrigin = s.current
	s.legStart = now
	if s.state == StateHold {
		s.holdStart = now
	}
	if s.wpIndex < len(s.mission.Waypoints) {
		wp := s.mission.Waypoints[s.wpIndex]
		s.target = nav.Position{Lat: wp.Lat, Lon: wp.Lon, Alt: wp.Alt}
	}
	return true
}

// tick advances simulated motion and evaluates timed transitions. Returned
// messages are delivery requests to the delivery controller.
func (s *missionState) tick(now time.Time) ([]types.Message, error) {
	switch s.state {
	case StateTakeoff:
		climbed := s.params.ClimbRate * now.Sub(s.legStart).Seconds()
		alt := s.legOrigin.Alt + climbed
		if alt > s.target.Alt {
			alt = s.target.Alt
		}
		s.current.Alt = alt
		if s.target.Alt-s.current.Alt <= s.params.ArrivalEpsilon {
			s.current.Alt = s.target.Alt
			s.state = StateEnroute
			s.legOrigin = s.current
			s.legStart = now
		}
		return nil, nil

	case StateEnroute:
		pos, err := nav.Interpolate(s.legOrigin, s.target, s.speed, now.Sub(s.legStart))
		if err != nil {
			return nil, err
		}
		s.current = pos
		if nav.Reached(s.current, s.target, s.params.ArrivalEpsilon) {
			s.current = s.target
			s.arrive(now)
		}
		return nil, nil

	case StateHold:
		if now.Sub(s.holdStart).Seconds() >= s.waypoint().HoldSeconds {
			s.afterHold(now)
		}
		return nil, nil

	case StateDelivery:
		out := s.deliver(now)
		s.advance(now)
		return out, nil

	case StateReturn:
		pos, err := nav.Interpolate(s.legOrigin, s.target, s.speed, now.Sub(s.legStart))
		if err != nil {
			return nil, err
		}
		s.current = pos
		if nav.Reached(s.current, s.target, s.params.ArrivalEpsilon) {
			s.current = s.target
			s.state = StateLanded
		}
		return nil, nil
	}

	return nil, nil
}

// arrive handles a reached waypoint: hold first, then the waypoint action.
func (s *missionState) arrive(now time.Time) {
	s.completed = s.wpIndex + 1
	if s.waypoint().HoldSeconds > 0 {
		s.state = StateHold
		s.holdStart = now
		return
	}
	s.afterHold(now)
}

func (s *missionState) afterHold(now time.Time) {
	switch s.waypoint().Action {
	case mission.ActionDeliver:
		s.state = StateDelivery
		return
	case mission.ActionPhoto:
		log.Printf("Photo captured at waypoint %d (%.6f, %.6f)", s.wpIndex, s.current.Lat, s.current.Lon)
	case mission.ActionLand:
		// A land tag short-circuits the remaining waypoints.
		s.beginReturn(now)
		return
	}
	s.advance(now)
}

// advance moves on to the next waypoint, or to RETURN after the last one.
func (s *missionState) advance(now time.Time) {
	s.wpIndex++
	if s.wpIndex >= len(s.mission.Waypoints) {
		s.wpIndex = len(s.mission.Waypoints)
		s.beginReturn(now)
		return
	}

	wp := s.mission.Waypoints[s.wpIndex]
	s.state = StateEnroute
	s.legOrigin = s.current
	s.legStart = now
	s.target = nav.Position{Lat: wp.Lat, Lon: wp.Lon, Alt: wp.Alt}
}

func (s *missionState) beginReturn(now time.Time) {
	s.state = StateReturn
	s.legOrigin = s.current
	s.legStart = now
	s.target = s.launch
}

// deliver emits at most one delivery request per waypoint, guarded against
// a pause/resume round trip through the DELIVERY state.
func (s *missionState) deliver(now time.Time) []types.Message {
	if s.delivered[s.wpIndex] {
		return nil
	}
	s.delivered[s.wpIndex] = true

	wp := s.waypoint()
	payload := types.DeliverPayload{
		MissionID:     s.mission.ID,
		WaypointIndex: s.wpIndex,
		Lat:           wp.Lat,
		Lon:           wp.Lon,
		Alt:           wp.Alt,
		Payload:       s.mission.PayloadMetadata,
	}

	return []types.Message{
		types.CreateMessage(types.MessageTypeDeliverPayload, s.params.DeviceID, s.params.DeviceID, payload),
	}
}

func (s *missionState) waypoint() mission.Waypoint {
	return s.mission.Waypoints[s.wpIndex]
}

// snapshot builds the published status view of the current state.
func (s *missionState) snapshot(now time.Time) types.MissionStatus {
	st := types.MissionStatus{
		State:        string(s.state),
		Timestamp:    float64(now.UnixNano()) / 1e9,
		ErrorMessage: s.errMsg,
	}
	if s.mission == nil {
		return st
	}

	total := len(s.mission.Waypoints)
	st.MissionID = s.mission.ID
	st.CurrentWaypoint = s.wpIndex
	st.TotalWaypoints = total
	st.ProgressPercent = float64(s.completed) / float64(total) * 100
	st.EstimatedTimeRemaining = s.remainingDistance() / s.speed
	st.CurrentPosition = [3]float64{s.current.Lat, s.current.Lon, s.current.Alt}
	st.TargetPosition = [3]float64{s.target.Lat, s.target.Lon, s.target.Alt}
	st.Speed = s.speed
	return st
}

// remainingDistance sums the distance to the current target, the legs
// between the remaining waypoints, and the final return leg.
func (s *missionState) remainingDistance() float64 {
	switch s.state {
	case StateLanded:
		return 0
	case StateReturn:
		return nav.Distance(s.current, s.launch)
	}

	d := nav.Distance(s.current, s.target)
	wps := s.mission.Waypoints
	for i := s.wpIndex; i >= 0 && i+1 < len(wps); i++ {
		d += nav.Distance(wpPos(wps[i]), wpPos(wps[i+1]))
	}
	if len(wps) > 0 {
		d += nav.Distance(wpPos(wps[len(wps)-1]), s.launch)
	}
	return d
}

func wpPos(wp mission.Waypoint) nav.Position {
	return nav.Position{Lat: wp.Lat, Lon: wp.Lon, Alt: wp.Alt}
}
