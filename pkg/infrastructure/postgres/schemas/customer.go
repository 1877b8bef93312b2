package schemas

import (
	"time"

	"github.com/google/uuid"
	"github.com/soctierzero/soc-onboarding/pkg/domain/entities"
	"gorm.io/gorm"
)

type Customer struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;column:id"`
	// Name and Email are derived at onboarding time; the portal has no
	// user-profile capture of its own.
	Name     string `gorm:"column:name;not null"`
	Email    string `gorm:"column:email;not null"`
	TenantID string `gorm:"column:tenant_id;uniqueIndex;not null"`

	WorkspaceID    string `gorm:"column:workspace_id;not null"`
	WorkspaceName  string `gorm:"column:workspace_name;not null"`
	SubscriptionID string `gorm:"column:azure_subscription_id;not null"`
	ResourceGroup  string `gorm:"column:resource_group;not null"`

	// Only the hash and a short display prefix are stored; the raw key is
	// returned to the caller once and never persisted.
	APIKeyHash   string `gorm:"column:api_key_hash;not null"`
	APIKeyPrefix string `gorm:"column:api_key_prefix;not null"`

	CallbackURL       string                       `gorm:"column:callback_url"`
	AIAnalysisEnabled bool                         `gorm:"column:ai_analysis_enabled;default:true"`
	Status            entities.CustomerStatusValue `gorm:"column:status;not null"`
	SubscriptionTier  string                       `gorm:"column:subscription_tier;default:free"`

	IncidentCount        int `gorm:"column:incident_count;default:0"`
	MonthlyIncidentCount int `gorm:"column:monthly_incident_count;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Customer) TableName() string {
	return "customers"
}
