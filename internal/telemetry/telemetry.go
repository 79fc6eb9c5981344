// Package telemetry publishes simulated vehicle telemetry on its own
// interval: a synthetic battery, a GPS fix derived from the engine's
// latest position, an IMU at rest, and a mission summary.
package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skyaid/missionengine/internal/types"
)

type Battery struct {
	Voltage    float64 `json:"voltage"`
	Percentage float64 `json:"percentage"`
}

type GPS struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Alt     float64 `json:"alt"`
	NumSats int     `json:"num_sats"`
	HDOP    float64 `json:"hdop"`
	Quality int     `json:"quality"`
}

type Axes struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type IMU struct {
	PitchDeg float64 `json:"pitch_deg"`
	RollDeg  float64 `json:"roll_deg"`
	Accel    Axes    `json:"accel"`
	Gyro     Axes    `json:"gyro"`
}

type MissionSummary struct {
	MissionID       string  `json:"mission_id"`
	State           string  `json:"state"`
	Waypoint        int     `json:"waypoint"`
	ProgressPercent float64 `json:"progress_percent"`
}

type Telemetry struct {
	DeviceID  string         `json:"device_id"`
	MessageID string         `json:"message_id"`
	Timestamp float64        `json:"timestamp"`
	Battery   Battery        `json:"battery"`
	GPS       GPS            `json:"gps"`
	IMU       IMU            `json:"imu"`
	Mission   MissionSummary `json:"mission"`
}

type simulator struct {
	deviceID string
	interval time.Duration
	inbox    chan types.Message

	// owned by the Run goroutine
	latest types.MissionStatus
}

func New(deviceID string, interval time.Duration) types.MessageHandler {
	return &simulator{
		deviceID: deviceID,
		interval: interval,
		inbox:    make(chan types.Message, 10),
		latest:   types.MissionStatus{State: "IDLE"},
	}
}

func (t *simulator) Receive(message types.Message) {
	if message.MessageType == types.MessageTypeStatusSnapshot {
		t.inbox <- message
	}
}

func (t *simulator) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Telemetry simulator shutting down")
			return
		case msg := <-t.inbox:
			if snap, ok := msg.Message.(types.MissionStatus); ok {
				t.latest = snap
			}
		case <-ticker.C:
			post(t.build())
		}
	}
}

func (t *simulator) build() types.Message {
	tele := Telemetry{
		DeviceID:  t.deviceID,
		MessageID: uuid.New().String(),
		Timestamp: float64(time.Now().UTC().UnixNano()) / 1e9,
		Battery:   Battery{Voltage: 12.4, Percentage: 85.0},
		GPS: GPS{
			Lat:     t.latest.CurrentPosition[0],
			Lon:     t.latest.CurrentPosition[1],
			Alt:     t.latest.CurrentPosition[2],
			NumSats: 8,
			HDOP:    1.2,
			Quality: 1,
		},
		IMU: IMU{Accel: Axes{Z: 1.0}},
		Mission: MissionSummary{
			MissionID:       t.latest.MissionID,
			State:           t.latest.State,
			Waypoint:        t.latest.CurrentWaypoint,
			ProgressPercent: t.latest.ProgressPercent,
		},
	}

	return types.CreateMessage(types.MessageTypeTelemetry, t.deviceID, "*", tele)
}
