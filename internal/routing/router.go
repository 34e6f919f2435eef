// Package routing delivers emitted attachment payloads to everything that
// listens for them: the outbox, connected gateway clients and chat channels.
package routing

import (
	"context"
	"time"

	"github.com/soyeahso/attachkit/internal/actions"
	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/logging"
	"github.com/soyeahso/attachkit/internal/store"
)

// EventAttachmentSent is the gateway event pushed for every delivered payload.
const EventAttachmentSent = "attachment.sent"

// Outbox persists emitted payloads.
type Outbox interface {
	Append(ctx context.Context, choice string, p domain.Payload) (*store.OutboxEntry, error)
}

// Publisher pushes an event to connected clients.
type Publisher interface {
	Publish(event string, payload any)
}

// Channels delivers a payload to chat transports.
type Channels interface {
	Broadcast(ctx context.Context, p domain.Payload) error
}

// SentEvent is the body of an attachment.sent event.
type SentEvent struct {
	ID        string         `json:"id,omitempty"`
	Choice    string         `json:"choice,omitempty"`
	Payload   domain.Payload `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Router fans a payload out to the configured sinks. Any sink may be nil.
type Router struct {
	outbox    Outbox
	publisher Publisher
	channels  Channels
	log       *logging.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithOutbox records every payload in the outbox.
func WithOutbox(o Outbox) Option {
	return func(r *Router) { r.outbox = o }
}

// WithPublisher pushes every payload to gateway clients.
func WithPublisher(p Publisher) Option {
	return func(r *Router) { r.publisher = p }
}

// WithChannels delivers every payload to chat channels.
func WithChannels(c Channels) Option {
	return func(r *Router) { r.channels = c }
}

// NewRouter creates a delivery router.
func NewRouter(log *logging.Logger, opts ...Option) *Router {
	r := &Router{log: log.Sub("routing")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetPublisher replaces the publisher. It must be called before the first
// Deliver, typically once the gateway server exists.
func (r *Router) SetPublisher(p Publisher) {
	r.publisher = p
}

// Deliver is an actions.SendFunc. Sink failures are logged and never stop
// delivery to the remaining sinks.
func (r *Router) Deliver(ctx context.Context, p domain.Payload) {
	evt := SentEvent{
		Payload:   p,
		CreatedAt: time.Now().UTC(),
	}
	if choice, ok := actions.ChoiceFromContext(ctx); ok {
		evt.Choice = choice.String()
	}

	if r.outbox != nil {
		entry, err := r.outbox.Append(ctx, evt.Choice, p)
		if err != nil {
			r.log.Error().Err(err).Str("choice", evt.Choice).Msg("failed to record outbox entry")
		} else {
			evt.ID = entry.ID
			evt.CreatedAt = entry.CreatedAt
		}
	}

	if r.publisher != nil {
		r.publisher.Publish(EventAttachmentSent, evt)
	}

	if r.channels != nil {
		if err := r.channels.Broadcast(ctx, p); err != nil {
			r.log.Error().Err(err).Str("kind", string(p.Kind())).Msg("channel delivery failed")
		}
	}

	r.log.Info().
		Str("id", evt.ID).
		Str("choice", evt.Choice).
		Str("kind", string(p.Kind())).
		Msg("payload delivered")
}

// SendFunc returns Deliver as an actions.SendFunc.
func (r *Router) SendFunc() actions.SendFunc {
	return r.Deliver
}
