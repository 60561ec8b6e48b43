package mapper

import (
	"encoding/json"

	"spapperi-configurator/internal/entity"
	"spapperi-configurator/internal/model"

	"gorm.io/datatypes"
)

type FunnelEventMapper struct{}

func NewFunnelEventMapper() *FunnelEventMapper {
	return &FunnelEventMapper{}
}

func (m *FunnelEventMapper) ToModel(e *entity.FunnelEvent) (*model.FunnelEvent, error) {
	if e == nil {
		return nil, nil
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}

	return &model.FunnelEvent{
		Id:             e.Id,
		Type:           e.Type,
		ConversationId: e.ConversationId,
		Payload:        datatypes.JSON(payload),
		OccurredAt:     e.OccurredAt,
		CreatedAt:      e.CreatedAt,
	}, nil
}

func (m *FunnelEventMapper) ToEntity(f *model.FunnelEvent) *entity.FunnelEvent {
	if f == nil {
		return nil
	}

	var payload map[string]interface{}
	if len(f.Payload) > 0 {
		// A corrupt payload still yields the event's metadata.
		_ = json.Unmarshal(f.Payload, &payload)
	}

	return &entity.FunnelEvent{
		Id:             f.Id,
		Type:           f.Type,
		ConversationId: f.ConversationId,
		Payload:        payload,
		OccurredAt:     f.OccurredAt,
		CreatedAt:      f.CreatedAt,
	}
}
