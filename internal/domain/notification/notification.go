package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultClientBuffer is the per-client message buffer.
const DefaultClientBuffer = 100

// SSEClient represents an active SSE connection
type SSEClient struct {
	ClientID    string
	UserID      string
	ConnectedAt time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates a new SSE client for the given caller.
func NewSSEClient(userID string) *SSEClient {
	return &SSEClient{
		ClientID:    uuid.New().String(),
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, DefaultClientBuffer),
	}
}

// Close closes the client's message channel
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage represents a message to be sent via SSE
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage creates a new SSE message
func NewSSEMessage(event string, data json.RawMessage) *SSEMessage {
	return &SSEMessage{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
