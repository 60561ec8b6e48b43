package service

import (
	"context"
	"fmt"
	"time"

	"spapperi-configurator/internal/entity"
	"spapperi-configurator/internal/pkg/logger"
	"spapperi-configurator/internal/pkg/mailer"
	"spapperi-configurator/internal/repository"
	"spapperi-configurator/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const consumerModule = "FunnelConsumer"

// IConsumerService records funnel events published on the in-process bus and tells
// sales about completed configurations.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	repo       repository.FunnelEventRepository
	notifier   mailer.ILeadNotifier
	logger     logger.ILogger
}

// NewConsumerService wires the funnel consumer. repo may be nil, in which case events
// are only logged; notifier may be nil to skip lead emails.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	repo repository.FunnelEventRepository,
	notifier mailer.ILeadNotifier,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		repo:       repo,
		notifier:   notifier,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", cs.topicName, err)
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	env, err := events.DecodeEnvelope(msg.Payload)
	if err != nil {
		cs.logger.Error(consumerModule, "Dropping undecodable event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	conversationId, _ := env.Payload[events.KeyConversationID].(string)
	occurredAt := env.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	event := &entity.FunnelEvent{
		Id:             eventId(msg.UUID),
		Type:           env.Type,
		ConversationId: conversationId,
		Payload:        env.Payload,
		OccurredAt:     occurredAt,
	}

	details := map[string]interface{}{
		"type":            event.Type,
		"conversation_id": event.ConversationId,
	}

	if cs.repo == nil {
		cs.logger.Info(consumerModule, "Funnel event", details)
	} else if err := cs.repo.Create(ctx, event); err != nil {
		details["error"] = err.Error()
		cs.logger.Error(consumerModule, "Failed to persist funnel event", details)
		msg.Nack() // Nack for retriable errors
		return
	} else {
		cs.logger.Debug(consumerModule, "Funnel event persisted", details)
	}

	msg.Ack()

	if event.Type == events.TypeCompleted {
		cs.notifyLead(ctx, event)
	}
}

// notifyLead runs after the ack; a mail failure must not redeliver the event.
func (cs *consumerService) notifyLead(ctx context.Context, event *entity.FunnelEvent) {
	if cs.notifier == nil {
		return
	}
	exportFile, _ := event.Payload[events.KeyExportFile].(string)
	err := cs.notifier.NotifyCompleted(ctx, mailer.Lead{
		ConversationId: event.ConversationId,
		ExportFile:     exportFile,
		CompletedAt:    event.OccurredAt,
	})
	if err != nil {
		cs.logger.Warn(consumerModule, "Lead notification failed", map[string]interface{}{
			"conversation_id": event.ConversationId,
			"error":           err.Error(),
		})
	}
}

// eventId reuses the watermill message id so redelivered messages keep their key.
func eventId(messageUUID string) uuid.UUID {
	if id, err := uuid.Parse(messageUUID); err == nil {
		return id
	}
	return uuid.New()
}
