package mqttbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/skyaid/missionengine/internal/metrics"
	"github.com/skyaid/missionengine/internal/types"
)

// Topics used by the drone companion system.
func commandTopic(deviceID string) string { return fmt.Sprintf("drone/%s/mission/command", deviceID) }
func obstacleTopic(deviceID string) string { return fmt.Sprintf("drone/%s/obstacles", deviceID) }
func statusTopic(deviceID string) string { return fmt.Sprintf("drone/%s/mission/status", deviceID) }
func servoTopic(deviceID string) string { return fmt.Sprintf("drone/%s/servo/command", deviceID) }
func telemetryTopic(deviceID string) string { return fmt.Sprintf("drone/%s/telemetry", deviceID) }

// Bridge connects the broker to the internal bus: inbound command and
// obstacle payloads are decoded and posted; outbound status, actuator and
// telemetry messages are published best-effort.
type Bridge struct {
	client   mqtt.Client
	deviceID string
	inbox    chan types.Message
}

func NewBridge(client mqtt.Client, deviceID string) *Bridge {
	return &Bridge{client, deviceID, make(chan types.Message, 32)}
}

func (b *Bridge) Receive(message types.Message) {
	switch message.MessageType {
	case types.MessageTypeStatus, types.MessageTypeActuatorCommand, types.MessageTypeTelemetry:
		b.inbox <- message
	}
}

func (b *Bridge) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	b.subscribe(commandTopic(b.deviceID), func(payload []byte) {
		cmd, err := DecodeCommand(payload)
		if err != nil {
			log.Printf("Could not decode command payload: %v", err)
			return
		}
		post(types.CreateMessage(types.MessageTypeCommand, "ground", b.deviceID, cmd))
	})
	b.subscribe(obstacleTopic(b.deviceID), func(payload []byte) {
		ev, err := DecodeObstacle(payload)
		if err != nil {
			log.Printf("Could not decode obstacle payload: %v", err)
			metrics.ObstacleEvents.WithLabelValues(metrics.ObstacleMalformed).Inc()
			return
		}
		post(types.CreateMessage(types.MessageTypeObstacle, "perception", b.deviceID, ev))
	})

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT bridge shutting down")
			return
		case msg := <-b.inbox:
			b.publish(msg)
		}
	}
}

func (b *Bridge) subscribe(topic string, handle func(payload []byte)) {
	tok := b.client.Subscribe(topic, qos, func(_ mqtt.Client, m mqtt.Message) {
		handle(m.Payload())
	})
	if tok.WaitTimeout(5*time.Second) && tok.Error() == nil {
		log.Printf("Subscribed to topic: %s", topic)
		return
	}
	log.Printf("Subscription to %s failed: %v", topic, tok.Error())
}

// publish is best-effort: failures are logged and counted, never retried.
func (b *Bridge) publish(msg types.Message) {
	var topic string
	switch msg.MessageType {
	case types.MessageTypeStatus:
		topic = statusTopic(b.deviceID)
	case types.MessageTypeActuatorCommand:
		topic = servoTopic(b.deviceID)
	case types.MessageTypeTelemetry:
		topic = telemetryTopic(b.deviceID)
	default:
		return
	}

	payload, err := json.Marshal(msg.Message)
	if err != nil {
		log.Printf("Unable to marshal %s message: %v", msg.MessageType, err)
		metrics.PublishFailures.Inc()
		return
	}

	tok := b.client.Publish(topic, qos, retain, payload)
	if !tok.WaitTimeout(2*time.Second) || tok.Error() != nil {
		log.Printf("Publish to %s failed: %v", topic, tok.Error())
		metrics.PublishFailures.Inc()
		return
	}

	if msg.MessageType == types.MessageTypeStatus {
		metrics.StatusesPublished.Inc()
	}
}

// DecodeCommand parses an inbound command payload, rejecting unknown
// command types.
func DecodeCommand(payload []byte) (types.Command, error) {
	var cmd types.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return types.Command{}, err
	}
	if !cmd.Type.Valid() {
		return types.Command{}, fmt.Errorf("unknown command type %q", cmd.Type)
	}
	return cmd, nil
}

type obstaclePayload struct {
	Label      *string  `json:"label"`
	Confidence *float64 `json:"confidence"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Alt        *float64 `json:"alt"`
	Distance   *float64 `json:"distance"`
	Timestamp  *float64 `json:"timestamp"`
}

// DecodeObstacle parses an inbound obstacle detection, requiring label,
// confidence and position fields.
func DecodeObstacle(payload []byte) (types.ObstacleEvent, error) {
	var p obstaclePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return types.ObstacleEvent{}, err
	}
	if p.Label == nil || p.Confidence == nil || p.Lat == nil || p.Lon == nil || p.Alt == nil {
		return types.ObstacleEvent{}, fmt.Errorf("missing required obstacle fields")
	}
	if *p.Confidence < 0 || *p.Confidence > 1 {
		return types.ObstacleEvent{}, fmt.Errorf("confidence %v out of range", *p.Confidence)
	}

	ev := types.ObstacleEvent{
		Label:      *p.Label,
		Confidence: *p.Confidence,
		Lat:        *p.Lat,
		Lon:        *p.Lon,
		Alt:        *p.Alt,
		Distance:   p.Distance,
	}
	if p.Timestamp != nil {
		ev.Timestamp = *p.Timestamp
	} else {
		ev.Timestamp = float64(time.Now().UTC().UnixNano()) / 1e9
	}
	return ev, nil
}
