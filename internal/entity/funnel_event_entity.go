package entity

import (
	"time"

	"github.com/google/uuid"
)

type FunnelEvent struct {
	Id             uuid.UUID
	Type           string
	ConversationId string
	Payload        map[string]interface{}
	OccurredAt     time.Time
	CreatedAt      time.Time
}
