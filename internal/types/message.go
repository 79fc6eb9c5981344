package types

import (
	"time"
)

// Message types routed over the internal bus. Inbound and outbound types
// cross the MQTT bridge; the rest stay inside the process.
const (
	// Inbound
	MessageTypeCommand  = "mission-command"
	MessageTypeObstacle = "obstacle-detected"

	// Internal
	MessageTypeStatusSnapshot = "status-snapshot"
	MessageTypeStateChanged   = "state-changed"
	MessageTypeDeliverPayload = "deliver-payload"

	// Outbound
	MessageTypeStatus          = "mission-status"
	MessageTypeActuatorCommand = "actuator-command"
	MessageTypeTelemetry       = "telemetry"
)

type Message struct {
	Timestamp   time.Time   `json:"timestamp"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	ID          string      `json:"id"`
	MessageType string      `json:"message_type"`
	Message     interface{} `json:"message"`
}

func CreateMessage(messageType, from, to string, message interface{}) Message {
	return Message{
		Timestamp:   time.Now().UTC(),
		From:        from,
		To:          to,
		ID:          "",
		MessageType: messageType,
		Message:     message,
	}
}
