// Package engine runs the mission state machine: one simulation loop owns
// all mutable mission state, merges asynchronous command and obstacle
// events with the tick clock, and publishes status snapshots to the bus.
package engine

import (
	"context"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/skyaid/missionengine/internal/config"
	"github.com/skyaid/missionengine/internal/metrics"
	"github.com/skyaid/missionengine/internal/mission"
	"github.com/skyaid/missionengine/internal/types"
)

// MissionLoader resolves a mission id to a validated mission.
type MissionLoader func(id string) (*mission.Mission, error)

type Engine struct {
	deviceID  string
	tick      time.Duration
	loader    MissionLoader
	inbox     chan types.Message
	state     *missionState
	lastState State
}

func New(cfg config.EngineConfig, deviceID string, loader MissionLoader) *Engine {
	params := Params{
		DeviceID:            deviceID,
		ArrivalEpsilon:      cfg.ArrivalEpsilonM,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		ClimbRate:           cfg.ClimbRateMS,
	}
	return &Engine{
		deviceID:  deviceID,
		tick:      cfg.TickPeriod,
		loader:    loader,
		inbox:     make(chan types.Message, 32),
		state:     newMissionState(params),
		lastState: StateIdle,
	}
}

func (e *Engine) Receive(msg types.Message) {
	switch msg.MessageType {
	case types.MessageTypeCommand, types.MessageTypeObstacle:
		e.inbox <- msg
	}
}

func (e *Engine) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	log.Printf("Starting mission engine of drone: '%s'", e.deviceID)
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Engine shutting down")
			return
		case <-ticker.C:
			e.step(time.Now().UTC(), post)
		}
	}
}

// step is one tick: drain queued events, apply them in priority order,
// then advance simulated motion. Events are applied before motion, so a
// pause always wins a tie against a pending waypoint arrival.
func (e *Engine) step(now time.Time, post types.PostFn) {
	for _, msg := range prioritize(e.drain()) {
		e.handleEvent(msg, now)
	}

	if e.state.state.Moving() {
		out, err := e.state.tick(now)
		if err != nil {
			log.Printf("Navigation fault: %v", err)
			e.state.fail(err.Error())
		}
		for _, m := range out {
			post(m)
		}
	}

	e.publishStatus(now, post)
}

func (e *Engine) drain() []types.Message {
	var batch []types.Message
	for {
		select {
		case m := <-e.inbox:
			batch = append(batch, m)
		default:
			return batch
		}
	}
}

// prioritize orders one drained batch: abort first, then obstacle/pause,
// then everything else. The sort is stable so equal-priority events keep
// their arrival order.
func prioritize(batch []types.Message) []types.Message {
	sort.SliceStable(batch, func(i, j int) bool {
		return rank(batch[i]) < rank(batch[j])
	})
	return batch
}

func rank(m types.Message) int {
	switch m.MessageType {
	case types.MessageTypeObstacle:
		return 1
	case types.MessageTypeCommand:
		if cmd, ok := m.Message.(types.Command); ok {
			switch cmd.Type {
			case types.CommandAbort:
				return 0
			case types.CommandPause:
				return 1
			}
		}
	}
	return 2
}

func (e *Engine) handleEvent(msg types.Message, now time.Time) {
	switch msg.MessageType {
	case types.MessageTypeCommand:
		cmd, ok := msg.Message.(types.Command)
		if !ok {
			log.Printf("Malformed command message dropped")
			return
		}
		e.handleCommand(cmd, now)
	case types.MessageTypeObstacle:
		ev, ok := msg.Message.(types.ObstacleEvent)
		if !ok {
			log.Printf("Malformed obstacle message dropped")
			return
		}
		e.handleObstacle(ev, now)
	}
}

func (e *Engine) handleCommand(cmd types.Command, now time.Time) {
	switch cmd.Type {
	case types.CommandStart:
		e.handleStart(cmd, now)
	case types.CommandPause:
		if e.state.pause(nil) {
			log.Printf("Mission paused by command")
		} else {
			log.Printf("Pause rejected in state %s", e.state.state)
		}
	case types.CommandResume:
		if e.state.resume(now) {
			log.Printf("Mission resumed")
		} else {
			log.Printf("Resume rejected in state %s", e.state.state)
		}
	case types.CommandAbort:
		log.Printf("Mission aborted by command")
		e.state.abort()
	default:
		log.Printf("Unknown command: %s", cmd.Type)
	}
}

func (e *Engine) handleStart(cmd types.Command, now time.Time) {
	if e.state.state != StateIdle {
		log.Printf("Start rejected in state %s", e.state.state)
		return
	}
	if cmd.MissionID == "" {
		log.Printf("Start rejected: no mission id")
		return
	}

	m, err := e.loader(cmd.MissionID)
	if err != nil {
		var verr *mission.ValidationError
		if errors.As(err, &verr) {
			// An invalid definition is a hard failure; an unknown id is
			// rejected without side effects.
			log.Printf("Mission %s failed validation: %v", cmd.MissionID, err)
			e.state.fail(err.Error())
			return
		}
		log.Printf("Start rejected: %v", err)
		return
	}

	e.state.start(m, now)
	log.Printf("Starting mission: %s", m.Name)
}

func (e *Engine) handleObstacle(ev types.ObstacleEvent, now time.Time) {
	if math.IsNaN(ev.Confidence) || ev.Confidence < 0 || ev.Confidence > 1 {
		log.Printf("Malformed obstacle event dropped: confidence %v", ev.Confidence)
		metrics.ObstacleEvents.WithLabelValues(metrics.ObstacleMalformed).Inc()
		return
	}
	if ev.Confidence < e.state.params.ConfidenceThreshold {
		log.Printf("Obstacle ignored: %s (confidence %.2f below threshold)", ev.Label, ev.Confidence)
		metrics.ObstacleEvents.WithLabelValues(metrics.ObstacleIgnored).Inc()
		return
	}

	metrics.ObstacleEvents.WithLabelValues(metrics.ObstacleAccepted).Inc()
	if e.state.pause(&ev) {
		log.Printf("Obstacle detected: %s (confidence %.2f, severity %s) - pausing",
			ev.Label, ev.Confidence, ev.Severity())
	}
}

// publishStatus posts a state-changed message immediately on transition
// and a latest-value snapshot for the status publisher while a mission
// instance exists.
func (e *Engine) publishStatus(now time.Time, post types.PostFn) {
	snap := e.state.snapshot(now)

	if e.state.state != e.lastState {
		log.Printf("State changed: %s -> %s", e.lastState, e.state.state)
		metrics.StateTransitions.WithLabelValues(string(e.state.state)).Inc()
		post(types.CreateMessage(types.MessageTypeStateChanged, e.deviceID, "*", snap))
		e.lastState = e.state.state
	}

	if e.state.mission != nil || e.state.state == StateError {
		post(types.CreateMessage(types.MessageTypeStatusSnapshot, e.deviceID, "*", snap))
	}

	metrics.MissionProgress.Set(snap.ProgressPercent)
}
