package domain

import "context"

// DataUpdated is the notification emitted after a background refresh
// rewrites a cache key. Payload is the freshly-fetched serialized
// value. Delivery is best-effort; subscribers (the GUI layer) get no
// acknowledgement and the publisher never blocks a refresh on it.
type DataUpdated struct {
	Event   string `json:"event"`
	Key     string `json:"key"`
	Payload any    `json:"payload"`
}

// EventPublisher is the port to the external pub/sub the GUI
// subscribes to.
type EventPublisher interface {
	PublishDataUpdated(ctx context.Context, key string, payload any) error
}
