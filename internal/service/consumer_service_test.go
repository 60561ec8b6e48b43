package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spapperi-configurator/internal/entity"
	"spapperi-configurator/internal/pkg/logger"
	"spapperi-configurator/internal/pkg/mailer"
	"spapperi-configurator/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryFunnelRepo struct {
	mu       sync.Mutex
	stored   []*entity.FunnelEvent
	attempts int
	failures int // number of Create calls to fail before succeeding
}

func (r *memoryFunnelRepo) Create(_ context.Context, event *entity.FunnelEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.failures > 0 {
		r.failures--
		return errors.New("database unavailable")
	}
	r.stored = append(r.stored, event)
	return nil
}

func (r *memoryFunnelRepo) FindByConversation(_ context.Context, conversationId string, limit int) ([]*entity.FunnelEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.FunnelEvent
	for _, e := range r.stored {
		if e.ConversationId == conversationId && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryFunnelRepo) CountByType(_ context.Context, eventType string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.stored {
		if e.Type == eventType {
			n++
		}
	}
	return n, nil
}

func (r *memoryFunnelRepo) snapshot() ([]*entity.FunnelEvent, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.FunnelEvent(nil), r.stored...), r.attempts
}

func newTestBus(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestConsumerService_PersistsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)
	repo := &memoryFunnelRepo{}
	require.NoError(t, NewConsumerService(bus, "funnel", repo, nil, logger.NewNopLogger()).Consume(ctx))

	pub := events.NewBusPublisher(bus, "funnel")
	require.NoError(t, pub.Publish(ctx, events.NewEvent(events.TypeCompleted, map[string]interface{}{
		events.KeyConversationID: "conv-1",
		events.KeyExportFile:     "report.xlsx",
	})))

	require.Eventually(t, func() bool {
		stored, _ := repo.snapshot()
		return len(stored) == 1
	}, time.Second, 5*time.Millisecond)

	stored, _ := repo.snapshot()
	assert.Equal(t, events.TypeCompleted, stored[0].Type)
	assert.Equal(t, "conv-1", stored[0].ConversationId)
	assert.Equal(t, "report.xlsx", stored[0].Payload[events.KeyExportFile])
	assert.NotEqual(t, uuid.Nil, stored[0].Id)
	assert.False(t, stored[0].OccurredAt.IsZero())
}

func TestConsumerService_DropsUndecodableMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)
	repo := &memoryFunnelRepo{}
	require.NoError(t, NewConsumerService(bus, "funnel", repo, nil, logger.NewNopLogger()).Consume(ctx))

	require.NoError(t, bus.Publish("funnel", message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	require.NoError(t, bus.Publish("funnel", message.NewMessage(watermill.NewUUID(), []byte(`{"payload":{}}`))))

	id := uuid.New()
	require.NoError(t, bus.Publish("funnel", message.NewMessage(id.String(), []byte(`{"type":"CONVERSATION_EXPORTED","payload":{"conversation_id":"conv-2"}}`))))

	require.Eventually(t, func() bool {
		stored, _ := repo.snapshot()
		return len(stored) == 1
	}, time.Second, 5*time.Millisecond)

	stored, attempts := repo.snapshot()
	assert.Equal(t, 1, attempts, "invalid messages never reach the repository")
	assert.Equal(t, id, stored[0].Id, "the message id becomes the event id")
	assert.Equal(t, "conv-2", stored[0].ConversationId)
}

func TestConsumerService_RedeliversAfterRepositoryError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)
	repo := &memoryFunnelRepo{failures: 2}
	require.NoError(t, NewConsumerService(bus, "funnel", repo, nil, logger.NewNopLogger()).Consume(ctx))

	pub := events.NewBusPublisher(bus, "funnel")
	require.NoError(t, pub.Publish(ctx, events.NewEvent(events.TypeTurnRelayed, map[string]interface{}{
		events.KeyConversationID: "conv-3",
	})))

	require.Eventually(t, func() bool {
		stored, _ := repo.snapshot()
		return len(stored) == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, attempts := repo.snapshot()
	assert.Equal(t, 3, attempts)
}

func TestConsumerService_WithoutRepositoryOnlyLogs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)
	require.NoError(t, NewConsumerService(bus, "funnel", nil, nil, logger.NewNopLogger()).Consume(ctx))

	pub := events.NewBusPublisher(bus, "funnel")
	assert.NoError(t, pub.Publish(ctx, events.NewEvent(events.TypeHistoryFetched, nil)))
}

type recordingNotifier struct {
	mu    sync.Mutex
	leads []mailer.Lead
	err   error
}

func (n *recordingNotifier) NotifyCompleted(_ context.Context, lead mailer.Lead) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leads = append(n.leads, lead)
	return n.err
}

func (n *recordingNotifier) sent() []mailer.Lead {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mailer.Lead(nil), n.leads...)
}

func TestConsumerService_NotifiesCompletedLeads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)
	repo := &memoryFunnelRepo{}
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	require.NoError(t, NewConsumerService(bus, "funnel", repo, notifier, logger.NewNopLogger()).Consume(ctx))

	pub := events.NewBusPublisher(bus, "funnel")
	require.NoError(t, pub.Publish(ctx, events.NewEvent(events.TypeTurnRelayed, map[string]interface{}{
		events.KeyConversationID: "conv-5",
	})))
	require.NoError(t, pub.Publish(ctx, events.NewEvent(events.TypeCompleted, map[string]interface{}{
		events.KeyConversationID: "conv-5",
		events.KeyExportFile:     "report_conv-5.xlsx",
	})))

	require.Eventually(t, func() bool { return len(notifier.sent()) == 1 }, time.Second, 5*time.Millisecond)
	lead := notifier.sent()[0]
	assert.Equal(t, "conv-5", lead.ConversationId)
	assert.Equal(t, "report_conv-5.xlsx", lead.ExportFile)

	stored, attempts := repo.snapshot()
	assert.Len(t, stored, 2)
	assert.Equal(t, 2, attempts, "a failed mail does not redeliver the event")
}
