package notification

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_hub.go -package=mocks . SSEHub,Publisher

import "context"

// SSEHub defines the interface for managing SSE connections
type SSEHub interface {
	Register(client *SSEClient)
	Unregister(clientID string)
	GetClientCount() int
	BroadcastToUser(userID string, message *SSEMessage) int
	Stop()
}

// Publisher sends trade events to an external message bus.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}
