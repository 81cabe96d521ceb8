package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/chemvis/dashboard/internal/dashboard"
)

const publishTimeout = 2 * time.Second

// Publisher forwards a controller's view changes and notices to a hub
// channel. It implements dashboard.Observer and dashboard.Notifier.
type Publisher struct {
	hub     Hub
	channel string
	logger  *slog.Logger
}

// NewPublisher publishes to channel on hub.
func NewPublisher(hub Hub, channel string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{hub: hub, channel: channel, logger: logger}
}

func (p *Publisher) ViewChanged(view dashboard.ViewModel) {
	p.publish(context.Background(), EventView, view)
}

func (p *Publisher) Notify(ctx context.Context, n dashboard.Notice) {
	p.publish(context.WithoutCancel(ctx), EventNotice, n)
}

func (p *Publisher) publish(ctx context.Context, typ string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("encoding event", "type", typ, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.hub.Publish(ctx, p.channel, Event{Type: typ, Data: data}); err != nil {
		p.logger.Warn("publishing event", "type", typ, "session", p.channel, "error", err)
	}
}
