package types

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

type busLogger struct {
}

// NewLogger returns a handler that logs bus traffic, skipping the
// high-rate snapshot and telemetry messages.
func NewLogger() MessageHandler {
	return &busLogger{}
}

func (l *busLogger) Receive(message Message) {
	switch message.MessageType {
	case MessageTypeStatusSnapshot, MessageTypeStatus, MessageTypeTelemetry:
		return
	}

	b, _ := json.Marshal(message.Message)
	log.Printf("Message: %s (%s -> %s): %s", message.MessageType, message.From, message.To, string(b))
}

func (l *busLogger) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
}
