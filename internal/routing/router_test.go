package routing

import (
	"context"
	"sync"
	"testing"

	"github.com/soyeahso/attachkit/internal/actions"
	"github.com/soyeahso/attachkit/internal/channel"
	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/logging"
	"github.com/soyeahso/attachkit/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

type published struct {
	event   string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{event, payload})
}

type fakeChannels struct {
	got []domain.Payload
	err error
}

func (f *fakeChannels) Broadcast(_ context.Context, p domain.Payload) error {
	f.got = append(f.got, p)
	return f.err
}

type failingOutbox struct{}

func (failingOutbox) Append(context.Context, string, domain.Payload) (*store.OutboxEntry, error) {
	return nil, assert.AnError
}

// mockChannel is a test double for domain.Channel.
type mockChannel struct {
	id   string
	sent []domain.OutboundMessage
}

func (m *mockChannel) ID() string { return m.id }
func (m *mockChannel) Capabilities() domain.ChannelCapabilities {
	return domain.ChannelCapabilities{Media: true, Location: true}
}
func (m *mockChannel) Start(_ context.Context) error { return nil }
func (m *mockChannel) Stop(_ context.Context) error  { return nil }
func (m *mockChannel) Send(_ context.Context, msg domain.OutboundMessage) error {
	m.sent = append(m.sent, msg)
	return nil
}

func openOutbox(t *testing.T) *store.OutboxStore {
	t.Helper()
	db, err := store.Open(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewOutboxStore(db)
}

func TestDeliver_AllSinks(t *testing.T) {
	outbox := openOutbox(t)
	pub := &fakePublisher{}
	ch := &mockChannel{id: "irc"}
	reg := channel.NewRegistry(testLogger())
	reg.Register(ch)

	r := NewRouter(testLogger(), WithOutbox(outbox), WithPublisher(pub), WithChannels(reg))
	ctx := actions.ContextWithChoice(context.Background(), domain.ChoiceLibrary)
	r.Deliver(ctx, domain.ImagePayload("https://x/a.jpg"))

	entries, err := outbox.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "library", entries[0].Choice)
	assert.Equal(t, "https://x/a.jpg", entries[0].Payload.Image)

	require.Len(t, pub.events, 1)
	assert.Equal(t, EventAttachmentSent, pub.events[0].event)
	evt, ok := pub.events[0].payload.(SentEvent)
	require.True(t, ok)
	assert.Equal(t, entries[0].ID, evt.ID)
	assert.Equal(t, "library", evt.Choice)

	require.Len(t, ch.sent, 1)
	require.Len(t, ch.sent[0].Media, 1)
	assert.Equal(t, "https://x/a.jpg", ch.sent[0].Media[0].URL)
}

func TestDeliver_NoChoiceInContext(t *testing.T) {
	pub := &fakePublisher{}
	r := NewRouter(testLogger(), WithPublisher(pub))
	r.Deliver(context.Background(), domain.LocationPayload(1, 2))

	require.Len(t, pub.events, 1)
	evt := pub.events[0].payload.(SentEvent)
	assert.Empty(t, evt.Choice)
	assert.Empty(t, evt.ID)
	require.NotNil(t, evt.Payload.Location)
}

func TestDeliver_SinkFailuresDoNotStopOthers(t *testing.T) {
	pub := &fakePublisher{}
	chans := &fakeChannels{err: assert.AnError}
	r := NewRouter(testLogger(), WithOutbox(failingOutbox{}), WithPublisher(pub), WithChannels(chans))

	assert.NotPanics(t, func() {
		r.Deliver(context.Background(), domain.ImagePayload("https://x/a.jpg"))
	})
	assert.Len(t, pub.events, 1)
	assert.Len(t, chans.got, 1)
}

func TestDeliver_NoSinks(t *testing.T) {
	r := NewRouter(testLogger())
	assert.NotPanics(t, func() {
		r.Deliver(context.Background(), domain.ImagePayload("https://x/a.jpg"))
	})
}

func TestSetPublisher(t *testing.T) {
	r := NewRouter(testLogger())
	pub := &fakePublisher{}
	r.SetPublisher(pub)
	r.SendFunc()(context.Background(), domain.ImagePayload("https://x/a.jpg"))
	assert.Len(t, pub.events, 1)
}
