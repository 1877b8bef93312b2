package repositories

import (
	"errors"
	"fmt"

	"github.com/soctierzero/soc-onboarding/pkg/domain/entities"
	"github.com/soctierzero/soc-onboarding/pkg/infrastructure/postgres/schemas"
	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) CreateCustomer(
	customer *entities.CustomerEntity,
	keyHash string,
	keyPrefix string,
) error {
	record := schemas.Customer{
		ID:                customer.ID,
		Name:              customer.WorkspaceName,
		Email:             fmt.Sprintf("%s@onboard.soctierzero.com", customer.TenantID),
		TenantID:          customer.TenantID,
		WorkspaceID:       customer.WorkspaceID,
		WorkspaceName:     customer.WorkspaceName,
		SubscriptionID:    customer.SubscriptionID,
		ResourceGroup:     customer.ResourceGroup,
		APIKeyHash:        keyHash,
		APIKeyPrefix:      keyPrefix,
		CallbackURL:       customer.CallbackURL,
		AIAnalysisEnabled: customer.AIAnalysisEnabled,
		Status:            entities.CustomerStatusActive,
		SubscriptionTier:  "free",
	}
	return r.db.Create(&record).Error
}

func (r *CustomerRepository) GetCustomerByTenant(tenantID string) (*entities.CustomerEntity, error) {
	var record schemas.Customer
	err := r.db.Where("tenant_id = ?", tenantID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entities.CustomerEntity{
		ID:                record.ID,
		TenantID:          record.TenantID,
		WorkspaceID:       record.WorkspaceID,
		WorkspaceName:     record.WorkspaceName,
		SubscriptionID:    record.SubscriptionID,
		ResourceGroup:     record.ResourceGroup,
		CallbackURL:       record.CallbackURL,
		AIAnalysisEnabled: record.AIAnalysisEnabled,
		Status:            record.Status,
	}, nil
}

// UpdateAPIKey replaces the stored key hash, invalidating the previous key.
func (r *CustomerRepository) UpdateAPIKey(customerID string, keyHash string, keyPrefix string) error {
	result := r.db.Model(&schemas.Customer{}).
		Where("id = ?", customerID).
		Updates(map[string]any{
			"api_key_hash":   keyHash,
			"api_key_prefix": keyPrefix,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("customer %s not found", customerID)
	}
	return nil
}
