package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// ChannelPrefix namespaces session channels in redis.
const ChannelPrefix = "chemvis:view:"

// RedisHub is a Hub over redis pub/sub. Events travel msgpack-encoded.
type RedisHub struct {
	client *redis.Client
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

// NewRedisHub connects to addr and checks the connection with a PING.
func NewRedisHub(ctx context.Context, addr string, logger *slog.Logger) (*RedisHub, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return newRedisHub(client, logger), nil
}

func newRedisHub(client *redis.Client, logger *slog.Logger) *RedisHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisHub{
		client: client,
		logger: logger,
		subs:   make(map[*redis.PubSub]struct{}),
	}
}

func (h *RedisHub) Publish(ctx context.Context, channel string, ev Event) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := h.client.Publish(ctx, ChannelPrefix+channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}
	return nil
}

func (h *RedisHub) Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, nil, ErrClosed
	}
	h.mu.Unlock()

	ps := h.client.Subscribe(ctx, ChannelPrefix+channel)
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}

	h.mu.Lock()
	h.subs[ps] = struct{}{}
	h.mu.Unlock()

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			ev, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				h.logger.Warn("dropping undecodable event", "channel", msg.Channel, "error", err)
				continue
			}
			select {
			case out <- ev:
			default:
				h.logger.Debug("subscriber lagging, event dropped", "channel", msg.Channel)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ps)
			h.mu.Unlock()
			ps.Close()
		})
	}
	return out, cancel, nil
}

// Close ends all subscriptions and closes the redis client.
func (h *RedisHub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := h.subs
	h.subs = nil
	h.mu.Unlock()

	for ps := range subs {
		ps.Close()
	}
	return h.client.Close()
}

func encodeEvent(ev Event) ([]byte, error) {
	data, err := msgpack.Marshal(&ev)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := msgpack.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	return ev, nil
}
