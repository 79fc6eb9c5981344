// Package delivery turns delivery requests from the engine into outbound
// actuator commands. Dispatch is fire-and-forget: the proof-of-delivery
// record is written locally whether or not the actuator ever acknowledges.
package delivery

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/skyaid/missionengine/internal/metrics"
	"github.com/skyaid/missionengine/internal/types"
)

type controller struct {
	deviceID string
	inbox    chan types.Message
}

func New(deviceID string) types.MessageHandler {
	return &controller{deviceID, make(chan types.Message, 10)}
}

func (c *controller) Receive(message types.Message) {
	if message.MessageType == types.MessageTypeDeliverPayload {
		c.inbox <- message
	}
}

func (c *controller) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			log.Println("Delivery controller shutting down")
			return
		case msg := <-c.inbox:
			req, ok := msg.Message.(types.DeliverPayload)
			if !ok {
				log.Printf("Malformed delivery request dropped")
				continue
			}
			c.deliver(req, post)
		}
	}
}

func (c *controller) deliver(req types.DeliverPayload, post types.PostFn) {
	cmd := types.ActuatorCommand{
		DeviceID:        c.deviceID,
		Timestamp:       float64(time.Now().UTC().UnixNano()) / 1e9,
		Command:         "release",
		WaypointIndex:   req.WaypointIndex,
		PayloadMetadata: req.Payload,
	}

	post(types.CreateMessage(types.MessageTypeActuatorCommand, c.deviceID, "actuator", cmd))
	metrics.Deliveries.Inc()

	// Proof of delivery: the local record is the authoritative trace in
	// this prototype, independent of actuator acknowledgment.
	log.Printf("Proof of delivery: mission=%s waypoint=%d position=(%.6f, %.6f, %.1f)",
		req.MissionID, req.WaypointIndex, req.Lat, req.Lon, req.Alt)
}
