// Package channel keeps the chat transports that emitted attachments are
// delivered to.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/logging"
)

// ErrUnsupported is returned when a channel cannot carry a payload kind.
var ErrUnsupported = errors.New("channel does not support payload kind")

// Registry manages a set of delivery channels.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]domain.Channel
	log      *logging.Logger
}

// NewRegistry creates a channel registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		channels: make(map[string]domain.Channel),
		log:      log.Sub("channels"),
	}
}

// Register adds a channel, replacing any channel with the same ID.
func (r *Registry) Register(ch domain.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID()] = ch
	r.log.Info().Str("channel", ch.ID()).Msg("channel registered")
}

// Get returns a channel by ID.
func (r *Registry) Get(id string) (domain.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// List returns all channel IDs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Status returns the status of all registered channels, ordered by ID.
func (r *Registry) Status() []domain.ChannelStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	statuses := make([]domain.ChannelStatus, 0, len(r.channels))
	for _, ch := range r.channels {
		if sc, ok := ch.(interface{ Status() domain.ChannelStatus }); ok {
			statuses = append(statuses, sc.Status())
		} else {
			statuses = append(statuses, domain.ChannelStatus{
				ChannelID: ch.ID(),
				Running:   true,
			})
		}
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ChannelID < statuses[j].ChannelID })
	return statuses
}

// StartAll starts all registered channels in background goroutines.
// Channel Start methods may block (e.g. IRC's Connect).
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, ch := range r.channels {
		r.log.Info().Str("channel", id).Msg("starting channel")
		go func(id string, ch domain.Channel) {
			if err := ch.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Error().Err(err).Str("channel", id).Msg("channel exited with error")
			}
		}(id, ch)
	}
	return nil
}

// StopAll stops all registered channels.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, ch := range r.channels {
		r.log.Info().Str("channel", id).Msg("stopping channel")
		if err := ch.Stop(ctx); err != nil {
			r.log.Error().Err(err).Str("channel", id).Msg("failed to stop channel")
		}
	}
}

// Count returns the number of registered channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Message converts a payload into an outbound message for one channel.
func Message(channelID string, p domain.Payload) domain.OutboundMessage {
	msg := domain.OutboundMessage{
		ChannelID: channelID,
		Timestamp: time.Now().UTC(),
	}
	if p.Location != nil {
		loc := *p.Location
		msg.Location = &loc
	} else {
		msg.Media = []domain.Attachment{{URL: p.Image}}
	}
	return msg
}

// Broadcast delivers a payload to every channel able to carry its kind.
// Channels lacking the capability are skipped. Send errors from all
// channels are joined.
func (r *Registry) Broadcast(ctx context.Context, p domain.Payload) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for id, ch := range r.channels {
		caps := ch.Capabilities()
		if (p.Kind() == domain.PayloadLocation && !caps.Location) ||
			(p.Kind() == domain.PayloadImage && !caps.Media) {
			r.log.Debug().Str("channel", id).Str("kind", string(p.Kind())).Msg("skipping channel")
			continue
		}
		if err := ch.Send(ctx, Message(id, p)); err != nil {
			r.log.Warn().Err(err).Str("channel", id).Msg("delivery failed")
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
