// Package broadcast fans dashboard events out to every browser tab attached
// to a session. MemoryHub serves a single server process; RedisHub carries
// the same events over redis pub/sub so replicas behind a load balancer see
// each other's updates.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
)

// Event types.
const (
	EventView   = "view"
	EventNotice = "notice"
)

// ErrClosed is returned by a hub after Close.
var ErrClosed = errors.New("hub closed")

// Event is one message on a session channel. Data is JSON so it can be
// forwarded to a websocket unchanged.
type Event struct {
	Type string          `json:"type" msgpack:"type"`
	Data json.RawMessage `json:"data" msgpack:"data"`
}

// Hub delivers events published on a channel to all of its subscribers.
type Hub interface {
	Publish(ctx context.Context, channel string, ev Event) error
	// Subscribe returns the event stream of channel and a function that
	// ends the subscription and closes the stream.
	Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error)
	Close() error
}

// subscriberBuffer is how many events a slow subscriber may lag behind
// before events are dropped for it.
const subscriberBuffer = 32
