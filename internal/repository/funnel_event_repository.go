package repository

import (
	"context"

	"spapperi-configurator/internal/entity"
)

type FunnelEventRepository interface {
	Create(ctx context.Context, event *entity.FunnelEvent) error
	FindByConversation(ctx context.Context, conversationId string, limit int) ([]*entity.FunnelEvent, error)
	CountByType(ctx context.Context, eventType string) (int64, error)
}
