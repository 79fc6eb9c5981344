// Package status publishes mission status with latest-value semantics:
// immediately on every state transition and on a fixed wall-clock interval
// while a mission is active. Exactly one snapshot exists at a time; slow
// consumers simply see the newest one.
package status

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skyaid/missionengine/internal/types"
)

type publisher struct {
	deviceID string
	interval time.Duration
	inbox    chan types.Message

	// owned by the Run goroutine
	latest *types.MissionStatus
	active bool
}

func New(deviceID string, interval time.Duration) types.MessageHandler {
	return &publisher{
		deviceID: deviceID,
		interval: interval,
		inbox:    make(chan types.Message, 10),
	}
}

func (p *publisher) Receive(message types.Message) {
	switch message.MessageType {
	case types.MessageTypeStatusSnapshot, types.MessageTypeStateChanged:
		p.inbox <- message
	}
}

func (p *publisher) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Status publisher shutting down")
			return
		case msg := <-p.inbox:
			p.handle(msg, post)
		case <-ticker.C:
			if p.latest != nil && p.active {
				p.publish(*p.latest, post)
			}
		}
	}
}

func (p *publisher) handle(msg types.Message, post types.PostFn) {
	snap, ok := msg.Message.(types.MissionStatus)
	if !ok {
		return
	}

	p.latest = &snap
	switch snap.State {
	case "IDLE", "LANDED", "ERROR":
		p.active = false
	default:
		p.active = true
	}

	// Transitions go out immediately, decoupled from the interval.
	if msg.MessageType == types.MessageTypeStateChanged {
		p.publish(snap, post)
	}
}

func (p *publisher) publish(snap types.MissionStatus, post types.PostFn) {
	msg := types.CreateMessage(types.MessageTypeStatus, p.deviceID, "*", snap)
	msg.ID = uuid.New().String()
	post(msg)
}
