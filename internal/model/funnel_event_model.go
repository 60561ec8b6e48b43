package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FunnelEvent struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Type           string         `gorm:"type:varchar(64);not null;index"`
	ConversationId string         `gorm:"type:varchar(128);index"`
	Payload        datatypes.JSON `gorm:"type:jsonb"`
	OccurredAt     time.Time      `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
}

func (FunnelEvent) TableName() string {
	return "funnel_events"
}
