package repositories

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/soctierzero/soc-onboarding/pkg/domain/entities"
	"github.com/soctierzero/soc-onboarding/pkg/infrastructure/postgres/schemas"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) CreateAuditEvent(event *entities.AuditEvent) error {
	var details datatypes.JSON
	if event.Details != nil {
		data, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
		details = datatypes.JSON(data)
	}

	id := event.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	record := schemas.AuditLog{
		ID:         id,
		CustomerID: event.CustomerID,
		EventType:  string(event.EventType),
		Details:    details,
	}
	return r.db.Create(&record).Error
}
