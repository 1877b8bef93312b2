package schemas

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;column:id"`
	CustomerID string         `gorm:"column:customer_id;index;not null"`
	EventType  string         `gorm:"column:event_type;not null"`
	Details    datatypes.JSON `gorm:"column:details;type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;column:created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
