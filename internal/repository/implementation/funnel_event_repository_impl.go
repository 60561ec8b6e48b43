package implementation

import (
	"context"

	"spapperi-configurator/internal/entity"
	"spapperi-configurator/internal/mapper"
	"spapperi-configurator/internal/model"
	"spapperi-configurator/internal/repository"

	"gorm.io/gorm"
)

type FunnelEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.FunnelEventMapper
}

func NewFunnelEventRepository(db *gorm.DB) repository.FunnelEventRepository {
	return &FunnelEventRepositoryImpl{db: db, mapper: mapper.NewFunnelEventMapper()}
}

func (r *FunnelEventRepositoryImpl) Create(ctx context.Context, event *entity.FunnelEvent) error {
	m, err := r.mapper.ToModel(event)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	event.Id = m.Id
	event.CreatedAt = m.CreatedAt
	return nil
}

func (r *FunnelEventRepositoryImpl) FindByConversation(ctx context.Context, conversationId string, limit int) ([]*entity.FunnelEvent, error) {
	var rows []model.FunnelEvent
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("occurred_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*entity.FunnelEvent, 0, len(rows))
	for i := range rows {
		result = append(result, r.mapper.ToEntity(&rows[i]))
	}
	return result, nil
}

func (r *FunnelEventRepositoryImpl) CountByType(ctx context.Context, eventType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.FunnelEvent{}).
		Where("type = ?", eventType).
		Count(&count).Error
	return count, err
}
