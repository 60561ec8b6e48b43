package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"spapperi-configurator/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.funnel.CONVERSATION_COMPLETED", Subject(events.TypeCompleted))
}

func TestPublisher_PublishesToJetStream(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("Skipping NATS test: NATS_URL not set")
	}

	pub, err := NewPublisher(url)
	require.NoError(t, err)
	defer pub.Close()

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync(Subject(events.TypeExported))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pub.Publish(ctx, events.NewEvent(events.TypeExported, map[string]interface{}{
		events.KeyConversationID: "conv-nats",
	})))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)

	env, err := events.DecodeEnvelope(msg.Data)
	require.NoError(t, err)
	assert.Equal(t, events.TypeExported, env.Type)
	assert.Equal(t, "conv-nats", env.Payload[events.KeyConversationID])
}
